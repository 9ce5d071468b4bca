package domain

// TaskType determines which resource managers a task negotiates with.
type TaskType string

const (
	// TaskTypeWorker tasks only reserve worker crews.
	TaskTypeWorker TaskType = "worker"
	// TaskTypeEquipment tasks only reserve equipment units.
	TaskTypeEquipment TaskType = "equipment"
	// TaskTypeHybrid tasks reserve both; the slower side sets the duration.
	TaskTypeHybrid TaskType = "hybrid"
)

// IsValid returns true if the task type is a known value.
func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeWorker, TaskTypeEquipment, TaskTypeHybrid:
		return true
	default:
		return false
	}
}

// RequiresWorkers reports whether the type negotiates with the worker manager.
func (t TaskType) RequiresWorkers() bool {
	return t == TaskTypeWorker || t == TaskTypeHybrid
}

// RequiresEquipment reports whether the type negotiates with the equipment manager.
func (t TaskType) RequiresEquipment() bool {
	return t == TaskTypeEquipment || t == TaskTypeHybrid
}

// FloorScope controls which floors of a zone a base task is instantiated on.
type FloorScope string

const (
	// FloorScopeAuto derives the range from the discipline: ground
	// disciplines stay on floor 0, everything else covers all floors.
	FloorScopeAuto FloorScope = "auto"
	// FloorScopeGroundOnly restricts the task to floor 0.
	FloorScopeGroundOnly FloorScope = "ground_only"
	// FloorScopeAboveGround restricts the task to floors 1 and up.
	FloorScopeAboveGround FloorScope = "above_ground"
	// FloorScopeAllFloors covers every floor, overriding the ground-discipline default.
	FloorScopeAllFloors FloorScope = "all_floors"
)

// IsValid returns true if the scope is a known value.
func (s FloorScope) IsValid() bool {
	switch s {
	case FloorScopeAuto, FloorScopeGroundOnly, FloorScopeAboveGround, FloorScopeAllFloors:
		return true
	default:
		return false
	}
}

// ChoiceMode distinguishes a fixed equipment pool from a set of
// interchangeable alternatives.
type ChoiceMode string

const (
	ChoiceSingle ChoiceMode = "single"
	ChoiceAnyOf  ChoiceMode = "any_of"
)

// EquipmentRequirement asks for a number of units from one pool (single)
// or spread across interchangeable pools (any_of). Members keeps its
// declared order; the first member is the productivity reference for
// duration math.
type EquipmentRequirement struct {
	Mode    ChoiceMode `json:"mode,omitempty"`
	Members []string   `json:"members"`
	Units   int        `json:"units,omitempty"`
}

// SingleEquipment builds a requirement satisfied by exactly one pool.
func SingleEquipment(pool string, units int) EquipmentRequirement {
	return EquipmentRequirement{Mode: ChoiceSingle, Members: []string{pool}, Units: units}
}

// AnyOfEquipment builds a requirement satisfied by any mix of the given pools.
func AnyOfEquipment(units int, pools ...string) EquipmentRequirement {
	return EquipmentRequirement{Mode: ChoiceAnyOf, Members: pools, Units: units}
}

// CrossFloorDependency links a task instance to a base task on another
// floor of the same zone. FloorOffset is relative to the instance's own
// floor; the conventional value is -1 (the floor below).
type CrossFloorDependency struct {
	TaskID      string `json:"task_id"`
	FloorOffset int    `json:"floor_offset,omitempty"`
}

// BaseTask is a catalogue entry: a parameterised construction activity
// that the generator expands into per-(zone, floor) instances. The
// catalogue is input data and is never mutated during a run.
type BaseTask struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	Discipline    string `json:"discipline,omitempty"`
	SubDiscipline string `json:"sub_discipline,omitempty"`

	// ResourceType names the worker pool this task draws crews from.
	ResourceType string   `json:"resource_type,omitempty"`
	Type         TaskType `json:"type,omitempty"`

	// BaseDuration, when set, fixes the workday count and bypasses the
	// duration calculator entirely.
	BaseDuration *float64 `json:"base_duration,omitempty"`

	MinCrews  int                    `json:"min_crews,omitempty"`
	Equipment []EquipmentRequirement `json:"equipment,omitempty"`

	// Predecessors lists base-task ids that must finish first on the
	// same floor and zone (ground-discipline predecessors resolve to
	// floor 0 instead).
	Predecessors []string `json:"predecessors,omitempty"`

	CrossFloorDeps []CrossFloorDependency `json:"cross_floor_deps,omitempty"`

	FloorScope FloorScope `json:"floors,omitempty"`

	// RepeatOnFloor controls per-floor replication; a task that does not
	// repeat is instantiated only on the lowest floor of its range.
	RepeatOnFloor bool `json:"repeat_on_floor,omitempty"`

	// CrossFloorRepetition chains the task to its own instance one floor
	// below, forcing strict floor order.
	CrossFloorRepetition bool `json:"cross_floor_repetition,omitempty"`

	// DelayDays is a calendar-day gap inserted after every predecessor.
	DelayDays int `json:"delay_days,omitempty"`

	// Excluded removes the task from generation without deleting it
	// from the catalogue.
	Excluded bool `json:"excluded,omitempty"`
}

// FixedDuration is a convenience for building catalogue entries with a
// preset workday count.
func FixedDuration(days float64) *float64 {
	return &days
}
