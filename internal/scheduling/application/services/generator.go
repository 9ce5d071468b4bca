package services

import (
	"log/slog"
	"sort"

	"github.com/fieldscale/takt/internal/scheduling/domain"
)

// Generator expands the base-task catalogue across the zone/floor grid of
// a project and resolves every instance-level dependency edge. It owns no
// state beyond a logger; the full input arrives as a SchedulingContext.
type Generator struct {
	logger *slog.Logger
}

// NewGenerator creates a generator. A nil logger falls back to the
// default slog handler.
func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{logger: logger}
}

// Generate materialises one TaskInstance per (base task, zone, floor)
// coordinate and unions the five dependency sources into each instance's
// predecessor list: same-floor catalogue predecessors (pinned to floor 0
// when the predecessor belongs to a ground discipline), predefined
// cross-floor links one floor below, user-configured cross-floor
// dependencies with explicit offsets, the vertical self-chain, and
// cross-zone sequencing between ordered zone groups.
//
// After expansion it verifies the instance graph is acyclic and patches
// missing quantities and productivity rates to 1, logging a warning for
// each patch. Patching never removes an instance. The returned slice is
// sorted by instance id.
func (g *Generator) Generate(sctx *domain.SchedulingContext) ([]*domain.TaskInstance, error) {
	bases := indexBases(sctx)

	instances := make(map[string]*domain.TaskInstance)
	var ids []string

	for _, discipline := range sortedKeys(sctx.Tasks) {
		group := sctx.Tasks[discipline]
		for i := range group {
			base := &group[i]
			if base.Excluded {
				continue
			}
			for _, zone := range sortedKeys(sctx.ZoneFloors) {
				floors := floorRange(base, sctx.ZoneFloors[zone], sctx.IsGroundDiscipline(base.Discipline))
				for _, floor := range floors {
					inst := newInstance(base, zone, floor)
					instances[inst.ID] = inst
					ids = append(ids, inst.ID)
				}
			}
		}
	}

	for _, id := range ids {
		inst := instances[id]
		inst.Predecessors = g.resolvePredecessors(sctx, bases, instances, inst)
	}

	sort.Strings(ids)
	result := make([]*domain.TaskInstance, 0, len(ids))
	for _, id := range ids {
		result = append(result, instances[id])
	}

	if err := g.validate(sctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// indexBases flattens the discipline-grouped catalogue into an id lookup.
func indexBases(sctx *domain.SchedulingContext) map[string]*domain.BaseTask {
	bases := make(map[string]*domain.BaseTask)
	for _, group := range sctx.Tasks {
		for i := range group {
			bases[group[i].ID] = &group[i]
		}
	}
	return bases
}

// floorRange returns the ascending floors a base task occupies in a zone
// with the given top floor. A task that does not repeat per floor is
// placed only on the lowest floor of its range.
func floorRange(base *domain.BaseTask, maxFloor int, ground bool) []int {
	lo, hi := 0, maxFloor
	switch base.FloorScope {
	case domain.FloorScopeGroundOnly:
		hi = 0
	case domain.FloorScopeAboveGround:
		lo = 1
	case domain.FloorScopeAllFloors:
		// full range regardless of discipline
	default:
		if ground {
			hi = 0
		}
	}
	if hi < lo {
		return nil
	}
	if !base.RepeatOnFloor {
		return []int{lo}
	}
	floors := make([]int, 0, hi-lo+1)
	for f := lo; f <= hi; f++ {
		floors = append(floors, f)
	}
	return floors
}

func newInstance(base *domain.BaseTask, zone string, floor int) *domain.TaskInstance {
	return &domain.TaskInstance{
		ID:            domain.InstanceID(base.ID, floor, zone),
		BaseID:        base.ID,
		Name:          base.Name,
		Discipline:    base.Discipline,
		SubDiscipline: base.SubDiscipline,
		Zone:          zone,
		Floor:         floor,
		Type:          base.Type,
		ResourceType:  base.ResourceType,
		BaseDuration:  base.BaseDuration,
		MinCrews:      base.MinCrews,
		Equipment:     base.Equipment,
		DelayDays:     base.DelayDays,
	}
}

// resolvePredecessors unions the five dependency sources for one
// instance. Self-references and references to instances that were never
// generated are dropped; the result is deduplicated and sorted.
func (g *Generator) resolvePredecessors(
	sctx *domain.SchedulingContext,
	bases map[string]*domain.BaseTask,
	instances map[string]*domain.TaskInstance,
	inst *domain.TaskInstance,
) []string {
	base := bases[inst.BaseID]
	seen := make(map[string]struct{})
	add := func(id string) {
		if id == inst.ID {
			return
		}
		if _, ok := instances[id]; !ok {
			return
		}
		seen[id] = struct{}{}
	}

	// Same-floor catalogue predecessors. A predecessor from a ground
	// discipline lives on floor 0 no matter which floor depends on it.
	for _, p := range base.Predecessors {
		floor := inst.Floor
		if pb, ok := bases[p]; ok && sctx.IsGroundDiscipline(pb.Discipline) {
			floor = 0
		}
		add(domain.InstanceID(p, floor, inst.Zone))
	}

	// Predefined vertical links: floor f waits for each linked base on
	// floor f-1.
	if inst.Floor > 0 {
		for _, p := range sctx.CrossFloorLinks[inst.BaseID] {
			add(domain.InstanceID(p, inst.Floor-1, inst.Zone))
		}
	}

	// User-configured cross-floor dependencies with explicit offsets.
	// Offsets that land below ground are dropped.
	for _, dep := range base.CrossFloorDeps {
		floor := inst.Floor + dep.FloorOffset
		if floor < 0 {
			continue
		}
		add(domain.InstanceID(dep.TaskID, floor, inst.Zone))
	}

	// Vertical self-chain: strict floor order for the same base task.
	if base.CrossFloorRepetition && inst.Floor > 0 {
		add(domain.InstanceID(inst.BaseID, inst.Floor-1, inst.Zone))
	}

	// Cross-zone sequencing: wait for the twin task in every zone of the
	// previous group when the discipline's strategy orders its groups.
	if policy, ok := sctx.ZonePolicies[inst.Discipline]; ok && policy.Strategy.Ordered() {
		if k := zoneGroupIndex(policy.ZoneGroups, inst.Zone); k > 0 {
			for _, prev := range policy.ZoneGroups[k-1] {
				add(domain.InstanceID(inst.BaseID, inst.Floor, prev))
			}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// zoneGroupIndex returns the index of the group containing the zone, or
// -1 when the zone is not governed by the policy.
func zoneGroupIndex(groups [][]string, zone string) int {
	for k, group := range groups {
		for _, z := range group {
			if z == zone {
				return k
			}
		}
	}
	return -1
}

// validate checks the expanded graph for cycles and patches missing
// quantity and productivity entries to 1. Patches are logged, never
// fatal; only a cycle aborts generation.
func (g *Generator) validate(sctx *domain.SchedulingContext, instances []*domain.TaskInstance) error {
	preds := make(map[string][]string, len(instances))
	order := make([]string, 0, len(instances))
	for _, inst := range instances {
		preds[inst.ID] = inst.Predecessors
		order = append(order, inst.ID)
	}
	if _, err := topologicalOrder(order, preds); err != nil {
		return err
	}

	for _, inst := range instances {
		g.patchQuantity(sctx, inst)
		g.patchRates(sctx, inst)
	}
	return nil
}

func (g *Generator) patchQuantity(sctx *domain.SchedulingContext, inst *domain.TaskInstance) {
	qty, ok := sctx.Quantities.Get(inst.BaseID, inst.Floor, inst.Zone)
	switch {
	case !ok:
		sctx.Quantities.Set(inst.BaseID, inst.Floor, inst.Zone, 1)
		g.logger.Warn("quantity missing, defaulting to 1",
			slog.String("task", inst.BaseID),
			slog.Int("floor", inst.Floor),
			slog.String("zone", inst.Zone))
	case qty <= 0:
		sctx.Quantities.Set(inst.BaseID, inst.Floor, inst.Zone, 1)
		g.logger.Warn("non-positive quantity, defaulting to 1",
			slog.String("task", inst.BaseID),
			slog.Int("floor", inst.Floor),
			slog.String("zone", inst.Zone))
	}
}

func (g *Generator) patchRates(sctx *domain.SchedulingContext, inst *domain.TaskInstance) {
	if inst.Type.RequiresWorkers() {
		if pool, ok := sctx.Workers[inst.ResourceType]; ok {
			g.ensureRate(pool.ProductivityRates, pool.Name, inst.BaseID)
		}
	}
	if inst.Type.RequiresEquipment() {
		for _, req := range inst.Equipment {
			for _, member := range req.Members {
				if pool, ok := sctx.Equipment[member]; ok {
					g.ensureRate(pool.ProductivityRates, pool.Name, inst.BaseID)
				}
			}
		}
	}
}

func (g *Generator) ensureRate(rates map[string]float64, pool, baseID string) {
	if _, ok := rates[baseID]; ok {
		return
	}
	rates[baseID] = 1
	g.logger.Warn("productivity rate missing, defaulting to 1",
		slog.String("pool", pool),
		slog.String("task", baseID))
}

// sortedKeys returns the keys of a string-keyed map in ascending order.
// Every loop over context maps goes through this so that runs over the
// same input replay identically.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
