package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fieldscale/takt/internal/scheduling/domain"
)

// GraphResult carries the critical-path metrics of one analyzer pass.
// All values are whole workdays counted from the project start; calendar
// dates only appear later, in the placement loop.
type GraphResult struct {
	// Order is a topological order of the instance ids.
	Order []string

	EarliestStart  map[string]int
	EarliestFinish map[string]int
	LatestStart    map[string]int
	LatestFinish   map[string]int
	TotalFloat     map[string]int

	// ProjectDuration is the longest path through the graph in workdays.
	ProjectDuration int

	// CriticalPaths holds every maximal zero-float chain, each a list of
	// instance ids from a source to a sink.
	CriticalPaths [][]string
}

// Apply copies the computed metrics onto the instances.
func (r *GraphResult) Apply(instances []*domain.TaskInstance) {
	for _, inst := range instances {
		inst.EarliestStart = r.EarliestStart[inst.ID]
		inst.EarliestFinish = r.EarliestFinish[inst.ID]
		inst.LatestStart = r.LatestStart[inst.ID]
		inst.LatestFinish = r.LatestFinish[inst.ID]
		inst.TotalFloat = r.TotalFloat[inst.ID]
	}
}

// GraphAnalyzer computes critical-path-method metrics over an instance
// set. It is stateless and re-entrant: every call rebuilds its maps from
// scratch, so the scheduler can re-run it with different durations.
type GraphAnalyzer struct{}

// NewGraphAnalyzer creates an analyzer.
func NewGraphAnalyzer() *GraphAnalyzer {
	return &GraphAnalyzer{}
}

// Analyze runs the forward and backward passes with the given per-task
// workday durations and derives total float and the critical paths.
// Instances must form a closed set: a predecessor id that is not itself
// in the set is a missing dependency.
func (a *GraphAnalyzer) Analyze(instances []*domain.TaskInstance, durations map[string]int) (*GraphResult, error) {
	ids := make([]string, 0, len(instances))
	preds := make(map[string][]string, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
		preds[inst.ID] = inst.Predecessors
	}
	sort.Strings(ids)

	succs := make(map[string][]string, len(ids))
	for _, id := range ids {
		for _, p := range preds[id] {
			if _, ok := preds[p]; !ok {
				return nil, fmt.Errorf("%w: task %s depends on %s which was never generated",
					domain.ErrMissingDependency, id, p)
			}
			succs[p] = append(succs[p], id)
		}
	}
	for _, list := range succs {
		sort.Strings(list)
	}

	order, err := topologicalOrder(ids, preds)
	if err != nil {
		return nil, err
	}

	es := make(map[string]int, len(order))
	ef := make(map[string]int, len(order))
	projectDuration := 0
	for _, id := range order {
		start := 0
		for _, p := range preds[id] {
			if ef[p] > start {
				start = ef[p]
			}
		}
		es[id] = start
		ef[id] = start + durations[id]
		if ef[id] > projectDuration {
			projectDuration = ef[id]
		}
	}

	ls := make(map[string]int, len(order))
	lf := make(map[string]int, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		finish := projectDuration
		for _, s := range succs[id] {
			if ls[s] < finish {
				finish = ls[s]
			}
		}
		lf[id] = finish
		ls[id] = finish - durations[id]
	}

	fl := make(map[string]int, len(order))
	for _, id := range order {
		fl[id] = ls[id] - es[id]
	}

	return &GraphResult{
		Order:           order,
		EarliestStart:   es,
		EarliestFinish:  ef,
		LatestStart:     ls,
		LatestFinish:    lf,
		TotalFloat:      fl,
		ProjectDuration: projectDuration,
		CriticalPaths:   criticalPaths(ids, preds, succs, fl),
	}, nil
}

// criticalPaths walks every maximal zero-float chain by depth-first
// search from the zero-float sources. Successor lists are pre-sorted, so
// the paths come out in a stable order.
func criticalPaths(ids []string, preds map[string][]string, succs map[string][]string, fl map[string]int) [][]string {
	var paths [][]string
	var walk func(id string, path []string)
	walk = func(id string, path []string) {
		path = append(path, id)
		extended := false
		for _, s := range succs[id] {
			if fl[s] == 0 {
				extended = true
				walk(s, path)
			}
		}
		if !extended {
			paths = append(paths, append([]string(nil), path...))
		}
	}
	for _, id := range ids {
		if len(preds[id]) == 0 && fl[id] == 0 {
			walk(id, nil)
		}
	}
	return paths
}

// topologicalOrder runs a Kahn traversal over the instance graph,
// breaking ties by ascending id so the order is total. References to ids
// outside the set are ignored; callers decide whether those are errors.
// A cycle fails with the ids that could not be ordered.
func topologicalOrder(ids []string, preds map[string][]string) ([]string, error) {
	indegree := make(map[string]int, len(ids))
	succs := make(map[string][]string, len(ids))
	for _, id := range ids {
		indegree[id] = 0
	}
	for _, id := range ids {
		for _, p := range preds[id] {
			if _, ok := indegree[p]; !ok {
				continue
			}
			indegree[id]++
			succs[p] = append(succs[p], id)
		}
	}

	ready := make([]string, 0, len(ids))
	for _, id := range ids {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(ids))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := false
		for _, s := range succs[id] {
			indegree[s]--
			if indegree[s] == 0 {
				ready = append(ready, s)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(order) != len(ids) {
		remaining := make([]string, 0, len(ids)-len(order))
		for _, id := range ids {
			if indegree[id] > 0 {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphCycle, strings.Join(remaining, ", "))
	}
	return order, nil
}
