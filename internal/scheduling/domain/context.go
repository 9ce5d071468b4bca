package domain

import (
	"fmt"
	"time"
)

// DefaultKey is the required fallback entry in the acceleration and
// shift-factor maps.
const DefaultKey = "default"

// QuantityMatrix maps base-task id, floor, and zone to the amount of work
// at that coordinate, in the units the productivity rates are quoted in.
type QuantityMatrix map[string]map[int]map[string]float64

// Get returns the quantity at a coordinate and whether it was present.
func (q QuantityMatrix) Get(baseID string, floor int, zone string) (float64, bool) {
	byFloor, ok := q[baseID]
	if !ok {
		return 0, false
	}
	byZone, ok := byFloor[floor]
	if !ok {
		return 0, false
	}
	qty, ok := byZone[zone]
	return qty, ok
}

// Set stores a quantity, materialising nested maps as needed.
func (q QuantityMatrix) Set(baseID string, floor int, zone string, qty float64) {
	byFloor, ok := q[baseID]
	if !ok {
		byFloor = make(map[int]map[string]float64)
		q[baseID] = byFloor
	}
	byZone, ok := byFloor[floor]
	if !ok {
		byZone = make(map[string]float64)
		byFloor[floor] = byZone
	}
	byZone[zone] = qty
}

// SchedulingContext carries every input a scheduling run needs. It is
// built once per run and handed explicitly to each component; nothing in
// the engine reads ambient state.
type SchedulingContext struct {
	// Tasks groups the base-task catalogue by discipline, preserving
	// catalogue order within each group.
	Tasks map[string][]BaseTask

	// ZoneFloors maps zone name to its highest floor (0 = ground only).
	ZoneFloors map[string]int

	Quantities QuantityMatrix

	Workers   map[string]*WorkerPool
	Equipment map[string]*EquipmentPool

	StartDate time.Time
	Calendar  *Calendar

	// CrossFloorLinks maps base-task id to predecessor base ids that the
	// task depends on one floor below.
	CrossFloorLinks map[string][]string

	// Acceleration and ShiftFactors are keyed by discipline and must
	// both carry a "default" entry.
	Acceleration map[string]AccelerationPolicy
	ShiftFactors map[string]float64

	ZonePolicies map[string]DisciplineZonePolicy

	GroundDisciplines map[string]bool
}

// AccelerationFor resolves the policy for a discipline, falling back to
// the default entry.
func (c *SchedulingContext) AccelerationFor(discipline string) AccelerationPolicy {
	if p, ok := c.Acceleration[discipline]; ok {
		return p
	}
	return c.Acceleration[DefaultKey]
}

// ShiftFactorFor resolves the shift factor for a discipline, falling back
// to the default entry.
func (c *SchedulingContext) ShiftFactorFor(discipline string) float64 {
	if s, ok := c.ShiftFactors[discipline]; ok {
		return s
	}
	return c.ShiftFactors[DefaultKey]
}

// IsGroundDiscipline reports whether tasks of the discipline stay on
// floor 0 under the auto floor scope.
func (c *SchedulingContext) IsGroundDiscipline(discipline string) bool {
	return c.GroundDisciplines[discipline]
}

// Validate normalises omitted fields to their documented defaults and
// rejects structurally broken input. It patches in place: zero-valued
// optional fields become explicit defaults, but no task is ever removed.
func (c *SchedulingContext) Validate() error {
	if c.Calendar == nil {
		return fmt.Errorf("%w: calendar is required", ErrInvalidInput)
	}
	if c.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}
	if _, ok := c.Acceleration[DefaultKey]; !ok {
		return fmt.Errorf("%w: acceleration config must provide a %q entry", ErrInvalidInput, DefaultKey)
	}
	if _, ok := c.ShiftFactors[DefaultKey]; !ok {
		return fmt.Errorf("%w: shift config must provide a %q entry", ErrInvalidInput, DefaultKey)
	}

	for zone, maxFloor := range c.ZoneFloors {
		if maxFloor < 0 {
			return fmt.Errorf("%w: zone %q has negative max floor %d", ErrInvalidInput, zone, maxFloor)
		}
	}

	for name, pool := range c.Workers {
		if pool == nil {
			return fmt.Errorf("%w: worker pool %q is nil", ErrInvalidInput, name)
		}
		if pool.Count <= 0 {
			return fmt.Errorf("%w: worker pool %q has non-positive count %d", ErrInvalidInput, name, pool.Count)
		}
		pool.Name = name
		if pool.ProductivityRates == nil {
			pool.ProductivityRates = make(map[string]float64)
		}
	}
	for name, pool := range c.Equipment {
		if pool == nil {
			return fmt.Errorf("%w: equipment pool %q is nil", ErrInvalidInput, name)
		}
		if pool.Count <= 0 {
			return fmt.Errorf("%w: equipment pool %q has non-positive count %d", ErrInvalidInput, name, pool.Count)
		}
		pool.Name = name
		if pool.ProductivityRates == nil {
			pool.ProductivityRates = make(map[string]float64)
		}
		if pool.Efficiency <= 0 {
			pool.Efficiency = 1.0
		}
	}

	for discipline, policy := range c.Acceleration {
		if policy.Factor <= 0 {
			policy.Factor = 1.0
		}
		if policy.MaxMultiplier <= 0 {
			policy.MaxMultiplier = 3.0
		}
		c.Acceleration[discipline] = policy
	}
	for discipline, factor := range c.ShiftFactors {
		if factor <= 0 {
			c.ShiftFactors[discipline] = 1.0
		}
	}

	if c.Quantities == nil {
		c.Quantities = make(QuantityMatrix)
	}

	seen := make(map[string]string)
	for discipline, tasks := range c.Tasks {
		for i := range tasks {
			task := &tasks[i]
			if task.ID == "" {
				return fmt.Errorf("%w: discipline %q has a task with an empty id", ErrInvalidInput, discipline)
			}
			if prev, dup := seen[task.ID]; dup {
				return fmt.Errorf("%w: task id %q appears in %q and %q", ErrInvalidInput, task.ID, prev, discipline)
			}
			seen[task.ID] = discipline

			if task.Discipline == "" {
				task.Discipline = discipline
			}
			if task.Type == "" {
				task.Type = TaskTypeWorker
			}
			if !task.Type.IsValid() {
				return fmt.Errorf("%w: task %q has unknown type %q", ErrInvalidInput, task.ID, task.Type)
			}
			if task.FloorScope == "" {
				task.FloorScope = FloorScopeAuto
			}
			if !task.FloorScope.IsValid() {
				return fmt.Errorf("%w: task %q has unknown floor scope %q", ErrInvalidInput, task.ID, task.FloorScope)
			}
			if task.MinCrews < 1 {
				task.MinCrews = 1
			}
			if task.DelayDays < 0 {
				task.DelayDays = 0
			}
			if err := c.validateResources(task); err != nil {
				return err
			}
		}
	}

	for discipline, policy := range c.ZonePolicies {
		if !policy.Strategy.IsValid() {
			return fmt.Errorf("%w: discipline %q has unknown zone strategy %q", ErrInvalidInput, discipline, policy.Strategy)
		}
	}

	return nil
}

func (c *SchedulingContext) validateResources(task *BaseTask) error {
	if task.Excluded {
		return nil
	}
	if task.Type.RequiresWorkers() {
		if task.ResourceType == "" {
			return fmt.Errorf("%w: task %q needs workers but names no resource type", ErrInvalidInput, task.ID)
		}
		if _, ok := c.Workers[task.ResourceType]; !ok {
			return fmt.Errorf("%w: task %q references unknown worker pool %q", ErrInvalidInput, task.ID, task.ResourceType)
		}
	}
	if task.Type == TaskTypeEquipment && len(task.Equipment) == 0 {
		return fmt.Errorf("%w: task %q is equipment-typed but requests no equipment", ErrInvalidInput, task.ID)
	}
	for i := range task.Equipment {
		req := &task.Equipment[i]
		if len(req.Members) == 0 {
			return fmt.Errorf("%w: task %q has an equipment requirement with no members", ErrInvalidInput, task.ID)
		}
		if req.Mode == "" {
			if len(req.Members) == 1 {
				req.Mode = ChoiceSingle
			} else {
				req.Mode = ChoiceAnyOf
			}
		}
		if req.Units < 1 {
			req.Units = 1
		}
		for _, member := range req.Members {
			if _, ok := c.Equipment[member]; !ok {
				return fmt.Errorf("%w: task %q references unknown equipment pool %q", ErrInvalidInput, task.ID, member)
			}
		}
	}
	return nil
}
