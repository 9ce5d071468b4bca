package domain

import (
	"time"

	sharedDomain "github.com/fieldscale/takt/internal/shared/domain"
	"github.com/google/uuid"
)

// ScheduledTask is one line of a computed plan: a task instance with its
// committed dates, allocations, and the CPM figures that drove its
// priority. Values are immutable once the plan is created.
type ScheduledTask struct {
	TaskID        string         `json:"task_id"`
	BaseID        string         `json:"base_id"`
	Name          string         `json:"name"`
	Discipline    string         `json:"discipline"`
	SubDiscipline string         `json:"sub_discipline,omitempty"`
	Zone          string         `json:"zone"`
	Floor         int            `json:"floor"`
	StartDate     time.Time      `json:"start_date"`
	EndDate       time.Time      `json:"end_date"`
	DurationDays  int            `json:"duration_days"`
	Crews         int            `json:"crews"`
	Equipment     map[string]int `json:"equipment,omitempty"`
	Predecessors  []string       `json:"predecessors,omitempty"`

	EarliestStart  int  `json:"earliest_start"`
	EarliestFinish int  `json:"earliest_finish"`
	LatestStart    int  `json:"latest_start"`
	LatestFinish   int  `json:"latest_finish"`
	TotalFloat     int  `json:"total_float"`
	Critical       bool `json:"critical"`
}

// Plan is the aggregate produced by a scheduling run: the full
// time-phased task list for one project.
type Plan struct {
	sharedDomain.BaseAggregateRoot
	projectID  uuid.UUID
	startDate  time.Time
	endDate    time.Time
	computedAt time.Time
	tasks      []ScheduledTask
}

// NewPlan creates a plan from the scheduler's output and records the
// PlanComputed event. The end date is the latest task end.
func NewPlan(projectID uuid.UUID, startDate time.Time, tasks []ScheduledTask) *Plan {
	end := NormalizeDate(startDate)
	for _, task := range tasks {
		if task.EndDate.After(end) {
			end = task.EndDate
		}
	}

	p := &Plan{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		projectID:         projectID,
		startDate:         NormalizeDate(startDate),
		endDate:           end,
		computedAt:        time.Now().UTC(),
		tasks:             tasks,
	}
	p.AddDomainEvent(NewPlanComputed(p))
	return p
}

// RehydratePlan recreates a plan from persisted state without emitting events.
func RehydratePlan(
	id uuid.UUID,
	projectID uuid.UUID,
	startDate, endDate, computedAt time.Time,
	tasks []ScheduledTask,
	createdAt, updatedAt time.Time,
	version int,
) *Plan {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &Plan{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(baseEntity, version),
		projectID:         projectID,
		startDate:         startDate,
		endDate:           endDate,
		computedAt:        computedAt,
		tasks:             tasks,
	}
}

func (p *Plan) ProjectID() uuid.UUID   { return p.projectID }
func (p *Plan) StartDate() time.Time   { return p.startDate }
func (p *Plan) EndDate() time.Time     { return p.endDate }
func (p *Plan) ComputedAt() time.Time  { return p.computedAt }
func (p *Plan) Tasks() []ScheduledTask { return p.tasks }
func (p *Plan) TaskCount() int         { return len(p.tasks) }

// MakespanWorkdays counts the workdays between the plan start and end
// using the given calendar.
func (p *Plan) MakespanWorkdays(cal *Calendar) int {
	if cal == nil {
		return 0
	}
	return cal.WorkdaysBetween(p.startDate, p.endDate)
}

// CriticalTasks returns the tasks with zero total float, in stored order.
func (p *Plan) CriticalTasks() []ScheduledTask {
	var critical []ScheduledTask
	for _, task := range p.tasks {
		if task.Critical {
			critical = append(critical, task)
		}
	}
	return critical
}

// TaskByID finds a scheduled task by its instance id.
func (p *Plan) TaskByID(taskID string) (ScheduledTask, bool) {
	for _, task := range p.tasks {
		if task.TaskID == taskID {
			return task, true
		}
	}
	return ScheduledTask{}, false
}
