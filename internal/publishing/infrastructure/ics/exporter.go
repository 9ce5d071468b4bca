// Package ics renders a plan as a single iCalendar file suitable for
// import into any calendar application.
package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/fieldscale/takt/internal/publishing/application"
)

const dateLayout = "20060102"

// Exporter writes plan events as one VCALENDAR with an all-day VEVENT
// per task.
type Exporter struct{}

// NewExporter creates an ICS exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export writes the events to w in iCalendar format.
func (e *Exporter) Export(w io.Writer, events []application.PlanEvent) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//Takt//Schedule Export//EN")

	stamp := time.Now().UTC()
	for _, event := range events {
		cal.Children = append(cal.Children, toVEvent(event, stamp).Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func toVEvent(event application.PlanEvent, stamp time.Time) *ical.Event {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, event.TaskID)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	setDateProp(ev, ical.PropDateTimeStart, event.StartDate)
	setDateProp(ev, ical.PropDateTimeEnd, event.EndDate)
	ev.Props.SetText(ical.PropSummary, event.Summary())
	ev.Props.SetText(ical.PropCategories, event.Discipline)

	description := fmt.Sprintf("Crews: %d", event.Crews)
	if event.Critical {
		description += "\nOn the critical path"
	}
	description += "\n\nManaged by Takt"
	ev.Props.SetText(ical.PropDescription, description)

	taskProp := ical.NewProp(application.PropXTaktTaskID)
	taskProp.Value = event.TaskID
	ev.Props[application.PropXTaktTaskID] = []ical.Prop{*taskProp}

	return ev
}

// setDateProp writes a VALUE=DATE property. DTEND stays exclusive,
// which is what RFC 5545 expects for all-day events.
func setDateProp(event *ical.Event, name string, t time.Time) {
	prop := ical.NewProp(name)
	prop.Value = t.Format(dateLayout)
	prop.Params.Set(ical.ParamValue, string(ical.ValueDate))
	event.Props.Set(prop)
}
