package domain

import (
	"fmt"
	"time"
)

// TaskInstance is a base task materialised at a (zone, floor) coordinate.
// Instances are created once by the generator; only the scheduler touches
// the allocation and date fields afterwards.
type TaskInstance struct {
	ID            string
	BaseID        string
	Name          string
	Discipline    string
	SubDiscipline string
	Zone          string
	Floor         int

	Type         TaskType
	ResourceType string
	BaseDuration *float64
	MinCrews     int
	Equipment    []EquipmentRequirement
	DelayDays    int

	// Predecessors holds resolved instance ids, sorted for determinism.
	Predecessors []string

	// Scheduling results. Dates are zero until the scheduler commits a
	// placement; EndDate is the exclusive day after the last workday.
	AllocatedCrews     int
	AllocatedEquipment map[string]int
	StartDate          time.Time
	EndDate            time.Time

	// CPM fields from the priority pass, in workdays from project start.
	EarliestStart  int
	EarliestFinish int
	LatestStart    int
	LatestFinish   int
	TotalFloat     int
}

// InstanceID builds the canonical instance identifier for a base task
// placed on a floor of a zone.
func InstanceID(baseID string, floor int, zone string) string {
	return fmt.Sprintf("%s-F%d-%s", baseID, floor, zone)
}

// Scheduled reports whether the scheduler has committed a placement.
func (t *TaskInstance) Scheduled() bool {
	return !t.StartDate.IsZero()
}

// IsCritical reports whether the instance sits on a critical path of the
// priority pass.
func (t *TaskInstance) IsCritical() bool {
	return t.TotalFloat == 0
}
