package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	scheduling "github.com/fieldscale/takt/internal/scheduling/domain"
)

// DateLayout is the calendar-day format used in definition documents.
const DateLayout = "2006-01-02"

// Definition is the engine-facing content of a project: the full set of
// inputs a scheduling run needs, with dates and weekdays already typed.
type Definition struct {
	StartDate         time.Time
	Workweek          []time.Weekday
	Holidays          []time.Time
	ZoneFloors        map[string]int
	GroundDisciplines []string
	Tasks             map[string][]scheduling.BaseTask
	Quantities        scheduling.QuantityMatrix
	Workers           map[string]*scheduling.WorkerPool
	Equipment         map[string]*scheduling.EquipmentPool
	CrossFloorLinks   map[string][]string
	Acceleration      map[string]scheduling.AccelerationPolicy
	ShiftFactors      map[string]float64
	ZonePolicies      map[string]scheduling.DisciplineZonePolicy
}

// SchedulingContext assembles a run context from the definition. The
// returned context is freshly built on every call, so a run can patch
// defaults without mutating the stored definition.
func (d Definition) SchedulingContext() (*scheduling.SchedulingContext, error) {
	workweek := d.Workweek
	if len(workweek) == 0 {
		workweek = scheduling.DefaultWorkweek()
	}
	cal, err := scheduling.NewCalendar(workweek, d.Holidays)
	if err != nil {
		return nil, err
	}

	ground := make(map[string]bool, len(d.GroundDisciplines))
	for _, discipline := range d.GroundDisciplines {
		ground[discipline] = true
	}

	sctx := &scheduling.SchedulingContext{
		Tasks:             cloneTasks(d.Tasks),
		ZoneFloors:        d.ZoneFloors,
		Quantities:        cloneQuantities(d.Quantities),
		Workers:           cloneWorkers(d.Workers),
		Equipment:         cloneEquipment(d.Equipment),
		StartDate:         d.StartDate,
		Calendar:          cal,
		CrossFloorLinks:   d.CrossFloorLinks,
		Acceleration:      cloneMap(d.Acceleration),
		ShiftFactors:      cloneMap(d.ShiftFactors),
		ZonePolicies:      d.ZonePolicies,
		GroundDisciplines: ground,
	}
	if sctx.Acceleration == nil {
		sctx.Acceleration = make(map[string]scheduling.AccelerationPolicy)
	}
	if _, ok := sctx.Acceleration[scheduling.DefaultKey]; !ok {
		sctx.Acceleration[scheduling.DefaultKey] = scheduling.AccelerationPolicy{Factor: 1.0, MaxMultiplier: 3.0}
	}
	if sctx.ShiftFactors == nil {
		sctx.ShiftFactors = make(map[string]float64)
	}
	if _, ok := sctx.ShiftFactors[scheduling.DefaultKey]; !ok {
		sctx.ShiftFactors[scheduling.DefaultKey] = 1.0
	}
	return sctx, nil
}

// Disciplines returns the catalogue's discipline names in sorted order.
func (d Definition) Disciplines() []string {
	names := make([]string, 0, len(d.Tasks))
	for name := range d.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TaskCount returns the number of catalogue entries across disciplines.
func (d Definition) TaskCount() int {
	n := 0
	for _, tasks := range d.Tasks {
		n += len(tasks)
	}
	return n
}

func cloneTasks(tasks map[string][]scheduling.BaseTask) map[string][]scheduling.BaseTask {
	out := make(map[string][]scheduling.BaseTask, len(tasks))
	for discipline, list := range tasks {
		copied := make([]scheduling.BaseTask, len(list))
		copy(copied, list)
		// Equipment requirements are patched in place during validation,
		// so the slice and its member lists get their own backing arrays.
		for i := range copied {
			if len(copied[i].Equipment) == 0 {
				continue
			}
			reqs := make([]scheduling.EquipmentRequirement, len(copied[i].Equipment))
			copy(reqs, copied[i].Equipment)
			for j := range reqs {
				reqs[j].Members = append([]string(nil), reqs[j].Members...)
			}
			copied[i].Equipment = reqs
		}
		out[discipline] = copied
	}
	return out
}

func cloneQuantities(q scheduling.QuantityMatrix) scheduling.QuantityMatrix {
	if q == nil {
		return nil
	}
	out := make(scheduling.QuantityMatrix, len(q))
	for baseID, byFloor := range q {
		floors := make(map[int]map[string]float64, len(byFloor))
		for floor, byZone := range byFloor {
			floors[floor] = cloneMap(byZone)
		}
		out[baseID] = floors
	}
	return out
}

func cloneWorkers(pools map[string]*scheduling.WorkerPool) map[string]*scheduling.WorkerPool {
	out := make(map[string]*scheduling.WorkerPool, len(pools))
	for name, pool := range pools {
		if pool == nil {
			out[name] = nil
			continue
		}
		copied := *pool
		out[name] = &copied
	}
	return out
}

func cloneEquipment(pools map[string]*scheduling.EquipmentPool) map[string]*scheduling.EquipmentPool {
	out := make(map[string]*scheduling.EquipmentPool, len(pools))
	for name, pool := range pools {
		if pool == nil {
			out[name] = nil
			continue
		}
		copied := *pool
		out[name] = &copied
	}
	return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Document is the external form of a project definition: the shape of
// the YAML file fed to `takt project import`, of the JSON body accepted
// by the API, and of the definition column in the stores. Dates are
// `2006-01-02` strings and the workweek is day names.
type Document struct {
	Name              string                                     `json:"name"`
	StartDate         string                                     `json:"start_date"`
	Workweek          []string                                   `json:"workweek,omitempty"`
	Holidays          []string                                   `json:"holidays,omitempty"`
	Zones             map[string]int                             `json:"zones"`
	GroundDisciplines []string                                   `json:"ground_disciplines,omitempty"`
	Tasks             map[string][]scheduling.BaseTask           `json:"tasks"`
	Quantities        scheduling.QuantityMatrix                  `json:"quantities,omitempty"`
	Workers           map[string]*scheduling.WorkerPool          `json:"workers,omitempty"`
	Equipment         map[string]*scheduling.EquipmentPool       `json:"equipment,omitempty"`
	CrossFloorLinks   map[string][]string                        `json:"cross_floor_links,omitempty"`
	Acceleration      map[string]scheduling.AccelerationPolicy   `json:"acceleration,omitempty"`
	Shifts            map[string]float64                         `json:"shifts,omitempty"`
	ZonePolicies      map[string]scheduling.DisciplineZonePolicy `json:"zone_policies,omitempty"`
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeekday resolves a day name ("mon", "Monday", ...) to a weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if len(key) > 3 {
		key = key[:3]
	}
	wd, ok := weekdayNames[key]
	if !ok {
		return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidDefinition, name)
	}
	return wd, nil
}

// ParseDocument converts the external form into a typed definition,
// validating dates and day names. Catalogue-level validation happens
// later, when the definition is turned into a run context.
func (doc Document) ParseDocument() (string, Definition, error) {
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return "", Definition{}, fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}

	startDate, err := time.Parse(DateLayout, doc.StartDate)
	if err != nil {
		return "", Definition{}, fmt.Errorf("%w: start_date %q is not %s", ErrInvalidDefinition, doc.StartDate, DateLayout)
	}

	var workweek []time.Weekday
	for _, day := range doc.Workweek {
		wd, err := ParseWeekday(day)
		if err != nil {
			return "", Definition{}, err
		}
		workweek = append(workweek, wd)
	}

	var holidays []time.Time
	for _, raw := range doc.Holidays {
		h, err := time.Parse(DateLayout, raw)
		if err != nil {
			return "", Definition{}, fmt.Errorf("%w: holiday %q is not %s", ErrInvalidDefinition, raw, DateLayout)
		}
		holidays = append(holidays, h)
	}

	def := Definition{
		StartDate:         startDate,
		Workweek:          workweek,
		Holidays:          holidays,
		ZoneFloors:        doc.Zones,
		GroundDisciplines: doc.GroundDisciplines,
		Tasks:             doc.Tasks,
		Quantities:        doc.Quantities,
		Workers:           doc.Workers,
		Equipment:         doc.Equipment,
		CrossFloorLinks:   doc.CrossFloorLinks,
		Acceleration:      doc.Acceleration,
		ShiftFactors:      doc.Shifts,
		ZonePolicies:      doc.ZonePolicies,
	}
	return name, def, nil
}

// BuildDocument converts a named definition back to its external form.
// Round-tripping a parsed document yields an equivalent document.
func BuildDocument(name string, def Definition) Document {
	var workweek []string
	for _, wd := range def.Workweek {
		workweek = append(workweek, strings.ToLower(wd.String()[:3]))
	}

	var holidays []string
	for _, h := range def.Holidays {
		holidays = append(holidays, h.Format(DateLayout))
	}

	return Document{
		Name:              name,
		StartDate:         def.StartDate.Format(DateLayout),
		Workweek:          workweek,
		Holidays:          holidays,
		Zones:             def.ZoneFloors,
		GroundDisciplines: def.GroundDisciplines,
		Tasks:             def.Tasks,
		Quantities:        def.Quantities,
		Workers:           def.Workers,
		Equipment:         def.Equipment,
		CrossFloorLinks:   def.CrossFloorLinks,
		Acceleration:      def.Acceleration,
		Shifts:            def.ShiftFactors,
		ZonePolicies:      def.ZonePolicies,
	}
}
