package deployment

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/peakdefi/fund-deployer/internal/deployerr"
)

// Order returns units sorted so that each one comes after every unit it
// references. known names are already registered (fixture output, external
// handles) and satisfy references without ordering constraints. Independent
// units keep their declaration order.
//
// Order fails before anything is deployed: duplicate names are a
// ConfigurationError, a reference to a name that is neither declared nor
// known is an UnresolvedReference and a reference cycle is a DependencyCycle.
func Order(units []Unit, known []string) ([]Unit, error) {
	knownSet := make(map[string]struct{}, len(known))
	for _, name := range known {
		knownSet[name] = struct{}{}
	}

	index := make(map[string]int, len(units))
	for i, unit := range units {
		if unit.Name == "" {
			return nil, deployerr.Newf(deployerr.ErrConfiguration, fmt.Sprintf("unit #%d", i), "unit name is empty")
		}
		if unit.Action == nil {
			return nil, deployerr.New(deployerr.ErrConfiguration, unit.Name, errors.New("unit has no deployment action"))
		}
		if _, ok := index[unit.Name]; ok {
			return nil, deployerr.New(deployerr.ErrConfiguration, unit.Name, errors.New("unit declared twice"))
		}
		if _, ok := knownSet[unit.Name]; ok {
			return nil, deployerr.New(deployerr.ErrConfiguration, unit.Name, errors.New("unit name is already registered"))
		}
		index[unit.Name] = i
	}

	deps := make([][]int, len(units))
	dependents := make([][]int, len(units))
	for i, unit := range units {
		for _, ref := range unit.References() {
			if j, ok := index[ref]; ok {
				deps[i] = append(deps[i], j)
				dependents[j] = append(dependents[j], i)
				continue
			}
			if _, ok := knownSet[ref]; ok {
				continue
			}
			return nil, deployerr.Newf(deployerr.ErrUnresolvedReference, ref, "referenced by unit %s", unit.Name)
		}
	}

	pending := make([]int, len(units))
	var ready []int
	for i := range units {
		pending[i] = len(deps[i])
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]Unit, 0, len(units))
	done := make([]bool, len(units))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]

		ordered = append(ordered, units[next])
		done[next] = true
		for _, dependent := range dependents[next] {
			pending[dependent]--
			if pending[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(ordered) < len(units) {
		cycle := findCycle(units, deps, done)
		return nil, deployerr.Newf(deployerr.ErrDependencyCycle, strings.Join(cycle, " -> "), "%d units cannot be ordered", len(units)-len(ordered))
	}

	return ordered, nil
}

// findCycle walks unfinished units along their unfinished dependencies until
// a unit repeats. Every unfinished unit has at least one unfinished
// dependency, so the walk always closes a loop.
func findCycle(units []Unit, deps [][]int, done []bool) []string {
	start := -1
	for i := range units {
		if !done[i] {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	position := make(map[int]int)
	var path []int
	for current := start; ; {
		if at, ok := position[current]; ok {
			names := make([]string, 0, len(path)-at+1)
			for _, i := range path[at:] {
				names = append(names, units[i].Name)
			}
			return append(names, units[current].Name)
		}
		position[current] = len(path)
		path = append(path, current)

		next := -1
		for _, dep := range deps[current] {
			if !done[dep] {
				next = dep
				break
			}
		}
		if next < 0 {
			return []string{units[current].Name}
		}
		current = next
	}
}
