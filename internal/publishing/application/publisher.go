// Package application defines the publishing contract: how a computed
// plan is represented on an external calendar, independent of the
// transport (CalDAV push or ICS file export).
package application

import (
	"context"
	"fmt"
	"time"
)

// PropXTaktTaskID marks calendar events owned by this system. The value
// is the task instance id; publish and delete-missing key on it, so a
// republished plan updates events in place and never touches foreign
// entries on the same calendar.
const PropXTaktTaskID = "X-TAKT-TASK-ID"

// PlanEvent is one scheduled task flattened for calendar publishing.
// Dates are whole days; EndDate stays exclusive, which matches the
// iCalendar DTEND convention for all-day events.
type PlanEvent struct {
	TaskID     string
	Name       string
	Discipline string
	Zone       string
	Floor      int
	StartDate  time.Time
	EndDate    time.Time
	Crews      int
	Critical   bool
}

// Summary renders the event title: "name (zone, floor F)".
func (e PlanEvent) Summary() string {
	return fmt.Sprintf("%s (%s, floor %d)", e.Name, e.Zone, e.Floor)
}

// PublishResult describes the outcome of a publish run.
type PublishResult struct {
	Created int
	Updated int
	Failed  int
	Deleted int
}

// Publisher pushes plan events to an external calendar.
type Publisher interface {
	Publish(ctx context.Context, events []PlanEvent) (*PublishResult, error)
}
