package services

import (
	"math"
	"time"

	"github.com/fieldscale/takt/internal/scheduling/domain"
)

// WorkerManager tracks crew reservations per pool for the lifetime of one
// scheduling run and sizes crew grants for placement windows. It is not
// safe for concurrent use; the engine is single-threaded.
type WorkerManager struct {
	sctx         *domain.SchedulingContext
	config       EngineConfig
	reservations map[string][]domain.Reservation
}

// NewWorkerManager creates a manager over the run's worker pools.
func NewWorkerManager(sctx *domain.SchedulingContext, config EngineConfig) *WorkerManager {
	return &WorkerManager{
		sctx:         sctx,
		config:       config,
		reservations: make(map[string][]domain.Reservation),
	}
}

// Used sums the crews reserved from a pool over any part of [start, end).
func (m *WorkerManager) Used(pool string, start, end time.Time) int {
	used := 0
	for _, r := range m.reservations[pool] {
		if r.Overlaps(start, end) {
			used += r.Units
		}
	}
	return used
}

// ComputeAllocation sizes a crew grant for the task over [start, end)
// without reserving anything. The grant is the minimum crew count scaled
// by the discipline's acceleration factor, capped by the task's crew
// maximum (or the legacy cap) and by what the pool has free in the
// window. It returns (0, true) for tasks that do not use workers and
// (0, false) when even the minimum cannot be covered.
func (m *WorkerManager) ComputeAllocation(task *domain.TaskInstance, start, end time.Time) (int, bool) {
	if !task.Type.RequiresWorkers() {
		return 0, true
	}
	pool, ok := m.sctx.Workers[task.ResourceType]
	if !ok {
		return 0, false
	}

	available := pool.Count - m.Used(task.ResourceType, start, end)

	minNeeded := task.MinCrews
	if minNeeded < 1 {
		minNeeded = 1
	}

	factor := m.sctx.AccelerationFor(task.Discipline).Factor
	candidate := int(math.Ceil(float64(minNeeded) * factor))

	limit := m.config.LegacyCrewCap
	if max, ok := pool.MaxCrews[task.BaseID]; ok {
		limit = max
	}
	if candidate > limit {
		candidate = limit
	}

	allocated := candidate
	if allocated > available {
		allocated = available
	}
	if allocated < minNeeded {
		return 0, false
	}
	return allocated, true
}

// Allocate commits a crew reservation. Callers size it with
// ComputeAllocation over the same window first; nothing here re-checks.
func (m *WorkerManager) Allocate(taskID, pool string, units int, start, end time.Time) {
	m.reservations[pool] = append(m.reservations[pool], domain.Reservation{
		TaskID: taskID,
		Units:  units,
		Start:  start,
		End:    end,
	})
}

// Release drops every reservation held by the task across all pools.
func (m *WorkerManager) Release(taskID string) {
	for pool, records := range m.reservations {
		kept := records[:0]
		for _, r := range records {
			if r.TaskID != taskID {
				kept = append(kept, r)
			}
		}
		m.reservations[pool] = kept
	}
}

// Reservations returns a copy of a pool's reservation records in commit
// order, for audits and tests.
func (m *WorkerManager) Reservations(pool string) []domain.Reservation {
	records := m.reservations[pool]
	out := make([]domain.Reservation, len(records))
	copy(out, records)
	return out
}
