package domain

// WorkerPool describes a crew type: how many crews exist concurrently,
// how productive a single crew is per base task, and optional per-task
// crew caps. Name is normalised to the pool's map key during validation.
type WorkerPool struct {
	Name  string `json:"-"`
	Count int    `json:"count"`

	// ProductivityRates maps base-task id to units produced per day by
	// one crew. Missing entries are patched to 1 during validation.
	ProductivityRates map[string]float64 `json:"productivity_rates,omitempty"`

	// MaxCrews caps the crews a single task may hold, per base-task id.
	MaxCrews map[string]int `json:"max_crews,omitempty"`
}

// EquipmentPool describes a fleet of interchangeable machines.
type EquipmentPool struct {
	Name  string `json:"-"`
	Count int    `json:"count"`

	// ProductivityRates maps base-task id to units produced per day by
	// one machine.
	ProductivityRates map[string]float64 `json:"productivity_rates,omitempty"`

	// MaxEquipment caps the units a single task may hold, per base-task id.
	MaxEquipment map[string]int `json:"max_equipment,omitempty"`

	// Efficiency scales equipment productivity on hybrid tasks. 1.0 when unset.
	Efficiency float64 `json:"efficiency,omitempty"`

	// HourlyRate orders alternatives during cost-aware allocation.
	HourlyRate float64 `json:"hourly_rate,omitempty"`
}

// AccelerationPolicy inflates the requested crew or unit count above the
// minimum for a discipline, bounded by MaxMultiplier.
type AccelerationPolicy struct {
	Factor        float64 `json:"factor"`
	MaxMultiplier float64 `json:"max_multiplier,omitempty"`
}

// ZoneStrategy orders work between zone groups of a discipline.
type ZoneStrategy string

const (
	// ZoneStrategySequential treats every group as strictly ordered.
	ZoneStrategySequential ZoneStrategy = "sequential"
	// ZoneStrategyFullyParallel imposes no cross-zone ordering.
	ZoneStrategyFullyParallel ZoneStrategy = "fully_parallel"
	// ZoneStrategyGroupSequential makes each task wait for its twin in
	// every zone of the previous group.
	ZoneStrategyGroupSequential ZoneStrategy = "group_sequential"
)

// IsValid returns true if the strategy is a known value.
func (s ZoneStrategy) IsValid() bool {
	switch s {
	case ZoneStrategySequential, ZoneStrategyFullyParallel, ZoneStrategyGroupSequential:
		return true
	default:
		return false
	}
}

// Ordered reports whether the strategy imposes precedence between groups.
func (s ZoneStrategy) Ordered() bool {
	return s == ZoneStrategySequential || s == ZoneStrategyGroupSequential
}

// DisciplineZonePolicy groups a discipline's zones into ordered waves.
type DisciplineZonePolicy struct {
	ZoneGroups [][]string   `json:"zone_groups"`
	Strategy   ZoneStrategy `json:"strategy,omitempty"`
}
