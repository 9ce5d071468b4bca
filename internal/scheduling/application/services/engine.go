package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/fieldscale/takt/internal/scheduling/domain"
	"github.com/fieldscale/takt/pkg/observability"
)

// EngineConfig tunes the placement loop. Zero values are not usable;
// start from DefaultEngineConfig and override fields as needed.
type EngineConfig struct {
	// MaxPlacementAttempts bounds how many start dates are probed for a
	// single task before the run fails with a starvation error.
	MaxPlacementAttempts int

	// LegacyCrewCap caps crew grants for tasks without an explicit
	// per-task maximum. A tunable, not a contract.
	LegacyCrewCap int

	// FloorLearningRate discounts durations on repeated floors: floor f
	// runs at rate^(f-1) of the base effort.
	FloorLearningRate float64
}

// DefaultEngineConfig returns the production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxPlacementAttempts: 5000,
		LegacyCrewCap:        25,
		FloorLearningRate:    0.98,
	}
}

// RunResult is the outcome of one scheduling run.
type RunResult struct {
	// Tasks holds every scheduled instance, sorted by start date then id.
	Tasks []*domain.TaskInstance

	// ProjectDuration is the critical-path length in workdays, computed
	// with minimum resources before placement.
	ProjectDuration int

	// CriticalPaths are the zero-float chains of the priority pass.
	CriticalPaths [][]string
}

// Engine is the list-scheduling core. One call to Run takes a validated
// SchedulingContext through expansion, critical-path analysis, and
// placement, and returns the complete schedule or an error; there are no
// partial results. The engine runs single-threaded and checks the
// context between task placements.
type Engine struct {
	config  EngineConfig
	logger  *slog.Logger
	metrics observability.Metrics

	generator *Generator
	analyzer  *GraphAnalyzer
	durations *DurationCalculator
}

// NewEngine creates an engine. Nil logger and metrics fall back to the
// default slog handler and a no-op sink.
func NewEngine(config EngineConfig, logger *slog.Logger, metrics observability.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Engine{
		config:    config,
		logger:    logger,
		metrics:   metrics,
		generator: NewGenerator(logger),
		analyzer:  NewGraphAnalyzer(),
		durations: NewDurationCalculator(config, logger),
	}
}

// Run executes a full scheduling run over the context. Validation and
// graph errors surface before any reservation is made; starvation is the
// only late failure and aborts the run whole.
func (e *Engine) Run(ctx context.Context, sctx *domain.SchedulingContext) (result *RunResult, err error) {
	started := time.Now()
	e.metrics.Counter(observability.MetricEngineRuns, 1)
	defer func() {
		e.metrics.Timing(observability.MetricEngineDuration, time.Since(started))
		if err != nil {
			e.metrics.Counter(observability.MetricEngineErrors, 1)
		}
	}()

	if err := sctx.Validate(); err != nil {
		return nil, err
	}

	instances, err := e.generator.Generate(sctx)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return &RunResult{}, nil
	}

	// Priority pass: price every task at its minimum grant and rank by
	// (float, earliest start, id). The durations here are ceilings for
	// the real placements, which may run shorter under acceleration.
	minDurations := make(map[string]int, len(instances))
	for _, inst := range instances {
		crews, equipment := MinimumAllocation(inst)
		d, err := e.durations.Workdays(sctx, inst, crews, equipment)
		if err != nil {
			return nil, err
		}
		minDurations[inst.ID] = d
	}

	graph, err := e.analyzer.Analyze(instances, minDurations)
	if err != nil {
		return nil, err
	}
	graph.Apply(instances)

	workers := NewWorkerManager(sctx, e.config)
	equipment := NewEquipmentManager(sctx, e.config)

	if err := e.place(ctx, sctx, instances, minDurations, workers, equipment); err != nil {
		return nil, err
	}

	scheduled := make([]*domain.TaskInstance, len(instances))
	copy(scheduled, instances)
	sort.Slice(scheduled, func(i, j int) bool {
		if !scheduled[i].StartDate.Equal(scheduled[j].StartDate) {
			return scheduled[i].StartDate.Before(scheduled[j].StartDate)
		}
		return scheduled[i].ID < scheduled[j].ID
	})

	e.metrics.Counter(observability.MetricEngineTasksScheduled, int64(len(scheduled)))
	e.logger.Info("scheduling run complete",
		slog.Int("tasks", len(scheduled)),
		slog.Int("project_workdays", graph.ProjectDuration),
		slog.Int("critical_paths", len(graph.CriticalPaths)))

	return &RunResult{
		Tasks:           scheduled,
		ProjectDuration: graph.ProjectDuration,
		CriticalPaths:   graph.CriticalPaths,
	}, nil
}

// place drives the ready-set loop: repeatedly commit the best-priority
// ready task, then release its successors as they complete their
// predecessor sets.
func (e *Engine) place(
	ctx context.Context,
	sctx *domain.SchedulingContext,
	instances []*domain.TaskInstance,
	minDurations map[string]int,
	workers *WorkerManager,
	equipment *EquipmentManager,
) error {
	byID := make(map[string]*domain.TaskInstance, len(instances))
	pending := make(map[string]int, len(instances))
	succs := make(map[string][]string, len(instances))
	for _, inst := range instances {
		byID[inst.ID] = inst
		pending[inst.ID] = len(inst.Predecessors)
		for _, p := range inst.Predecessors {
			succs[p] = append(succs[p], inst.ID)
		}
	}

	ready := make([]*domain.TaskInstance, 0, len(instances))
	for _, inst := range instances {
		if pending[inst.ID] == 0 {
			ready = append(ready, inst)
		}
	}

	for len(ready) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		sort.Slice(ready, func(i, j int) bool {
			a, b := ready[i], ready[j]
			if a.TotalFloat != b.TotalFloat {
				return a.TotalFloat < b.TotalFloat
			}
			if a.EarliestStart != b.EarliestStart {
				return a.EarliestStart < b.EarliestStart
			}
			return a.ID < b.ID
		})
		task := ready[0]
		ready = ready[1:]

		earliest := domain.NormalizeDate(sctx.StartDate)
		for _, pid := range task.Predecessors {
			candidate := sctx.Calendar.AddCalendarDays(byID[pid].EndDate, task.DelayDays)
			if candidate.After(earliest) {
				earliest = candidate
			}
		}

		if err := e.placeTask(sctx, task, earliest, minDurations[task.ID], workers, equipment); err != nil {
			return err
		}

		for _, sid := range succs[task.ID] {
			pending[sid]--
			if pending[sid] == 0 {
				ready = append(ready, byID[sid])
			}
		}
	}
	return nil
}

// placeTask probes start dates from the earliest feasible workday until
// both managers can cover the task, then commits the reservation.
func (e *Engine) placeTask(
	sctx *domain.SchedulingContext,
	task *domain.TaskInstance,
	earliest time.Time,
	minDuration int,
	workers *WorkerManager,
	equipment *EquipmentManager,
) error {
	cal := sctx.Calendar
	start := cal.NextWorkday(earliest)

	var lastStart, lastEnd time.Time
	for attempt := 0; attempt < e.config.MaxPlacementAttempts; attempt++ {
		end := cal.AddWorkdays(start, minDuration)
		lastStart, lastEnd = start, end

		crews, grant, ok := e.tryWindow(task, workers, equipment, start, end)
		if !ok {
			e.metrics.Counter(observability.MetricEngineRetries, 1)
			start = cal.NextWorkday(start.AddDate(0, 0, 1))
			continue
		}

		// The actual grant can exceed the minimum under acceleration;
		// recompute the duration it implies. Should the window ever
		// grow, every grant must be re-verified against the longer
		// window, where availability can only shrink, until the window
		// is stable or the placement fails.
		actual, err := e.durations.Workdays(sctx, task, crews, grant)
		if err != nil {
			return err
		}
		endActual := cal.AddWorkdays(start, actual)

		fits := true
		for endActual.After(end) {
			end = endActual
			crews2, grant2, ok := e.tryWindow(task, workers, equipment, start, end)
			if !ok {
				fits = false
				break
			}
			if crews2 == crews && equalUnits(grant2, grant) {
				break
			}
			crews, grant = crews2, grant2
			actual, err = e.durations.Workdays(sctx, task, crews, grant)
			if err != nil {
				return err
			}
			endActual = cal.AddWorkdays(start, actual)
		}
		if !fits {
			e.metrics.Counter(observability.MetricEngineRetries, 1)
			start = cal.NextWorkday(start.AddDate(0, 0, 1))
			continue
		}

		if task.Type.RequiresWorkers() && crews > 0 {
			workers.Allocate(task.ID, task.ResourceType, crews, start, endActual)
		}
		if len(grant) > 0 {
			equipment.Allocate(task.ID, grant, start, endActual)
		}
		task.StartDate = start
		task.EndDate = endActual
		task.AllocatedCrews = crews
		task.AllocatedEquipment = grant

		e.logger.Debug("task placed",
			slog.String("task", task.ID),
			slog.Time("start", start),
			slog.Time("end", endActual),
			slog.Int("crews", crews),
			slog.Int("attempts", attempt+1))
		return nil
	}

	e.metrics.Counter(observability.MetricEngineStarvations, 1)
	return &domain.StarvationError{
		TaskID:    task.ID,
		Attempts:  e.config.MaxPlacementAttempts,
		LastStart: lastStart,
		LastEnd:   lastEnd,
	}
}

// tryWindow asks both managers for a grant over [start, end) without
// committing anything.
func (e *Engine) tryWindow(
	task *domain.TaskInstance,
	workers *WorkerManager,
	equipment *EquipmentManager,
	start, end time.Time,
) (int, map[string]int, bool) {
	crews, ok := workers.ComputeAllocation(task, start, end)
	if !ok {
		return 0, nil, false
	}
	grant, ok := equipment.ComputeAllocation(task, start, end)
	if !ok {
		return 0, nil, false
	}
	return crews, grant, true
}

func equalUnits(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
