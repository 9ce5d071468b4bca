package services

import (
	"math"
	"sort"
	"time"

	"github.com/fieldscale/takt/internal/scheduling/domain"
)

// EquipmentManager distributes equipment units across interchangeable
// alternatives and tracks reservations per pool for one scheduling run.
// Not safe for concurrent use.
type EquipmentManager struct {
	sctx         *domain.SchedulingContext
	config       EngineConfig
	reservations map[string][]domain.Reservation
}

// NewEquipmentManager creates a manager over the run's equipment pools.
func NewEquipmentManager(sctx *domain.SchedulingContext, config EngineConfig) *EquipmentManager {
	return &EquipmentManager{
		sctx:         sctx,
		config:       config,
		reservations: make(map[string][]domain.Reservation),
	}
}

// Used sums the units reserved from a pool over any part of [start, end).
func (m *EquipmentManager) Used(pool string, start, end time.Time) int {
	used := 0
	for _, r := range m.reservations[pool] {
		if r.Overlaps(start, end) {
			used += r.Units
		}
	}
	return used
}

// equipmentOption is one alternative of a requirement entry with its
// capacity in the probed window.
type equipmentOption struct {
	name        string
	allocatable int
	hourlyRate  float64
}

// ComputeAllocation sizes a unit grant for every requirement entry of the
// task over [start, end) without reserving anything.
//
// Each entry is filled in two stages. Stage one meets the declared
// minimum at the lowest cost, drawing from alternatives in ascending
// hourly-rate order. Stage two pursues the accelerated target with a
// balanced score that trades cost against remaining capacity. When any
// entry cannot meet its minimum, the whole task fails with no grant;
// there are no partial grants. Tasks without equipment needs get an
// empty grant and true.
func (m *EquipmentManager) ComputeAllocation(task *domain.TaskInstance, start, end time.Time) (map[string]int, bool) {
	if !task.Type.RequiresEquipment() || len(task.Equipment) == 0 {
		return nil, true
	}

	policy := m.sctx.AccelerationFor(task.Discipline)
	result := make(map[string]int)
	// Draws made for earlier entries of this same task count against
	// availability and against the per-task cap for later entries.
	drawn := make(map[string]int)

	for _, req := range task.Equipment {
		alloc, ok := m.allocateEntry(task, req, policy, start, end, drawn)
		if !ok {
			return nil, false
		}
		for name, units := range alloc {
			result[name] += units
			drawn[name] += units
		}
	}
	return result, true
}

func (m *EquipmentManager) allocateEntry(
	task *domain.TaskInstance,
	req domain.EquipmentRequirement,
	policy domain.AccelerationPolicy,
	start, end time.Time,
	drawn map[string]int,
) (map[string]int, bool) {
	minRequired := req.Units
	if minRequired < 1 {
		minRequired = 1
	}

	target := int(math.Ceil(float64(minRequired) * policy.Factor))
	if limit := int(float64(minRequired) * policy.MaxMultiplier); target > limit {
		target = limit
	}

	options := make([]equipmentOption, 0, len(req.Members))
	totalAllocatable := 0
	for _, name := range req.Members {
		pool, ok := m.sctx.Equipment[name]
		if !ok {
			continue
		}
		free := pool.Count - m.Used(name, start, end) - drawn[name]
		limit := pool.Count
		if max, ok := pool.MaxEquipment[task.BaseID]; ok {
			limit = max
		}
		limit -= drawn[name]

		allocatable := free
		if allocatable > limit {
			allocatable = limit
		}
		if allocatable < 0 {
			allocatable = 0
		}
		options = append(options, equipmentOption{
			name:        name,
			allocatable: allocatable,
			hourlyRate:  pool.HourlyRate,
		})
		totalAllocatable += allocatable
	}
	if totalAllocatable == 0 && target >= 1 {
		return nil, false
	}

	// Stage one: meet the minimum at the lowest cost.
	stage1 := make([]equipmentOption, len(options))
	copy(stage1, options)
	sort.Slice(stage1, func(i, j int) bool {
		if stage1[i].hourlyRate != stage1[j].hourlyRate {
			return stage1[i].hourlyRate < stage1[j].hourlyRate
		}
		return stage1[i].name < stage1[j].name
	})

	alloc := make(map[string]int)
	remaining := make(map[string]int, len(options))
	for _, opt := range options {
		remaining[opt.name] = opt.allocatable
	}

	need := minRequired
	for _, opt := range stage1 {
		if need == 0 {
			break
		}
		take := opt.allocatable
		if take > need {
			take = need
		}
		if take <= 0 {
			continue
		}
		alloc[opt.name] += take
		remaining[opt.name] -= take
		need -= take
	}
	if need > 0 {
		return nil, false
	}

	// Stage two: pursue the accelerated target, trading cost against
	// what each alternative still has free.
	total := minRequired
	if target > total {
		stage2 := make([]equipmentOption, 0, len(options))
		for _, opt := range options {
			stage2 = append(stage2, equipmentOption{
				name:        opt.name,
				allocatable: remaining[opt.name],
				hourlyRate:  opt.hourlyRate,
			})
		}
		sort.Slice(stage2, func(i, j int) bool {
			si := balancedScore(stage2[i])
			sj := balancedScore(stage2[j])
			if si != sj {
				return si < sj
			}
			return stage2[i].name < stage2[j].name
		})
		for _, opt := range stage2 {
			if total >= target {
				break
			}
			take := opt.allocatable
			if take > target-total {
				take = target - total
			}
			if take <= 0 {
				continue
			}
			alloc[opt.name] += take
			total += take
		}
	}
	return alloc, true
}

func balancedScore(opt equipmentOption) float64 {
	return 0.7*opt.hourlyRate + 0.3*(-float64(opt.allocatable))
}

// Allocate commits a unit reservation per pool in the grant. Pools are
// committed in name order so record lists replay identically across runs.
func (m *EquipmentManager) Allocate(taskID string, grant map[string]int, start, end time.Time) {
	for _, name := range sortedKeys(grant) {
		units := grant[name]
		if units <= 0 {
			continue
		}
		m.reservations[name] = append(m.reservations[name], domain.Reservation{
			TaskID: taskID,
			Units:  units,
			Start:  start,
			End:    end,
		})
	}
}

// Release drops every reservation held by the task across all pools.
func (m *EquipmentManager) Release(taskID string) {
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
func (m *EquipmentManager) Reservations(pool string) []domain.Reservation {
	records := m.reservations[pool]
	out := make([]domain.Reservation, len(records))
	copy(out, records)
	return out
}
