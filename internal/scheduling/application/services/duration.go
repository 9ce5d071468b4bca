package services

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/fieldscale/takt/internal/scheduling/domain"
)

// DurationCalculator turns a task instance plus a granted resource set
// into a whole number of workdays.
type DurationCalculator struct {
	config EngineConfig
	logger *slog.Logger
}

// NewDurationCalculator creates the calculator. A nil logger falls back
// to the default slog handler.
func NewDurationCalculator(config EngineConfig, logger *slog.Logger) *DurationCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &DurationCalculator{config: config, logger: logger}
}

// Workdays computes how long the task runs when holding the given crews
// and equipment units.
//
// A preset base duration wins outright and skips quantity, shift, and
// floor adjustments. Otherwise the raw duration is quantity over
// throughput (crews or units times the productivity rate, whichever side
// of a hybrid is slower), divided by the discipline shift factor and
// discounted per repeated floor. A configured rate at or below zero is a
// hard error; a division that produces NaN or infinity is too. Benign
// non-positive results are patched to one workday with a warning.
func (c *DurationCalculator) Workdays(
	sctx *domain.SchedulingContext,
	task *domain.TaskInstance,
	crews int,
	equipment map[string]int,
) (int, error) {
	if task.BaseDuration != nil {
		d := math.Ceil(*task.BaseDuration)
		if d < 1 {
			d = 1
		}
		return int(d), nil
	}

	qty := c.quantity(sctx, task)

	var d float64
	switch task.Type {
	case domain.TaskTypeWorker:
		dw, err := c.workerDuration(sctx, task, qty, crews)
		if err != nil {
			return 0, err
		}
		d = dw

	case domain.TaskTypeEquipment:
		if len(task.Equipment) == 0 {
			return 0, fmt.Errorf("%w: equipment task %s declares no equipment", domain.ErrInvalidInput, task.ID)
		}
		de, err := c.equipmentDuration(sctx, task, qty, equipment, false)
		if err != nil {
			return 0, err
		}
		d = de

	case domain.TaskTypeHybrid:
		dw, err := c.workerDuration(sctx, task, qty, crews)
		if err != nil {
			return 0, err
		}
		d = dw
		// Equipment only binds a hybrid when the task asked for it and
		// some units were granted; the slower side wins.
		if len(task.Equipment) > 0 && totalUnits(task.Equipment[0], equipment) > 0 {
			de, err := c.equipmentDuration(sctx, task, qty, equipment, true)
			if err != nil {
				return 0, err
			}
			if de > d {
				d = de
			}
		}

	default:
		return 0, fmt.Errorf("%w: task %s has unknown type %q", domain.ErrInvalidInput, task.ID, task.Type)
	}

	d /= sctx.ShiftFactorFor(task.Discipline)

	// Crews repeating a task floor over floor get faster.
	if task.Floor > 1 {
		d *= math.Pow(c.config.FloorLearningRate, float64(task.Floor-1))
	}

	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("%w: task %s", domain.ErrNonFiniteDuration, task.ID)
	}
	if d <= 0 {
		c.logger.Warn("non-positive duration, defaulting to 1 workday",
			slog.String("task", task.ID))
		d = 1
	}

	days := int(math.Ceil(d))
	if days < 1 {
		days = 1
	}
	return days, nil
}

func (c *DurationCalculator) workerDuration(sctx *domain.SchedulingContext, task *domain.TaskInstance, qty float64, crews int) (float64, error) {
	pool, ok := sctx.Workers[task.ResourceType]
	if !ok {
		return 0, fmt.Errorf("%w: task %s draws from unknown worker pool %q", domain.ErrInvalidInput, task.ID, task.ResourceType)
	}
	rate, err := c.poolRate(pool.ProductivityRates, pool.Name, task.BaseID)
	if err != nil {
		return 0, err
	}
	return qty / (float64(crews) * rate), nil
}

// equipmentDuration derives the equipment-side duration from the first
// requirement entry: units granted across its alternatives, at the rate
// of its first member. Hybrid tasks scale the rate by the reference
// pool's efficiency.
func (c *DurationCalculator) equipmentDuration(
	sctx *domain.SchedulingContext,
	task *domain.TaskInstance,
	qty float64,
	equipment map[string]int,
	applyEfficiency bool,
) (float64, error) {
	req := task.Equipment[0]
	if len(req.Members) == 0 {
		return 0, fmt.Errorf("%w: equipment requirement of task %s has no members", domain.ErrInvalidInput, task.ID)
	}

	ref := req.Members[0]
	pool, ok := sctx.Equipment[ref]
	if !ok {
		return 0, fmt.Errorf("%w: task %s references unknown equipment pool %q", domain.ErrInvalidInput, task.ID, ref)
	}
	rate, err := c.poolRate(pool.ProductivityRates, pool.Name, task.BaseID)
	if err != nil {
		return 0, err
	}
	if applyEfficiency {
		rate *= pool.Efficiency
	}

	units := totalUnits(req, equipment)
	return qty / (float64(units) * rate), nil
}

func (c *DurationCalculator) quantity(sctx *domain.SchedulingContext, task *domain.TaskInstance) float64 {
	qty, ok := sctx.Quantities.Get(task.BaseID, task.Floor, task.Zone)
	if !ok {
		c.logger.Warn("quantity missing, defaulting to 1",
			slog.String("task", task.BaseID),
			slog.Int("floor", task.Floor),
			slog.String("zone", task.Zone))
		return 1
	}
	if qty <= 0 {
		return 1
	}
	return qty
}

func (c *DurationCalculator) poolRate(rates map[string]float64, pool, baseID string) (float64, error) {
	rate, ok := rates[baseID]
	if !ok {
		c.logger.Warn("productivity rate missing, defaulting to 1",
			slog.String("pool", pool),
			slog.String("task", baseID))
		return 1, nil
	}
	if rate <= 0 {
		return 0, fmt.Errorf("%w: pool %s has rate %v for task %s", domain.ErrProductivityZero, pool, rate, baseID)
	}
	return rate, nil
}

// totalUnits sums the granted units over a requirement's alternatives.
func totalUnits(req domain.EquipmentRequirement, equipment map[string]int) int {
	units := 0
	for _, m := range req.Members {
		units += equipment[m]
	}
	return units
}

// MinimumAllocation returns the smallest grant that can satisfy a task:
// its minimum crew count for worker work, and each requirement's declared
// units assigned to the requirement's first member. The priority pass
// prices every task with this grant before any real allocation happens.
func MinimumAllocation(task *domain.TaskInstance) (int, map[string]int) {
	crews := 0
	if task.Type.RequiresWorkers() {
		crews = task.MinCrews
		if crews < 1 {
			crews = 1
		}
	}

	var equipment map[string]int
	if task.Type.RequiresEquipment() && len(task.Equipment) > 0 {
		equipment = make(map[string]int, len(task.Equipment))
		for _, req := range task.Equipment {
			if len(req.Members) == 0 {
				continue
			}
			units := req.Units
			if units < 1 {
				units = 1
			}
			equipment[req.Members[0]] += units
		}
	}
	return crews, equipment
}
