package registry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/knowledgenet/core"
)

// DetectCycles walks the connected graph reachable from the public agents
// and fails with ErrCycle on the first cycle found.
func (r *Registry) DetectCycles() error {
	return DetectCycles(r.Public())
}

// DetectCycles walks the connected graph reachable from roots.
func DetectCycles(roots core.Directory) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := map[core.Agent]int{}
	var path []string

	var visit func(a core.Agent) error
	visit = func(a core.Agent) error {
		switch state[a] {
		case visiting:
			start := slices.Index(path, a.ID())
			cycle := append(slices.Clone(path[start:]), a.ID())
			return fmt.Errorf("%w: %s", core.ErrCycle, strings.Join(cycle, " -> "))
		case done:
			return nil
		}
		state[a] = visiting
		path = append(path, a.ID())
		connected := a.Connected()
		for _, id := range connected.IDs() {
			if err := visit(connected[id]); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[a] = done
		return nil
	}

	for _, id := range roots.IDs() {
		if err := visit(roots[id]); err != nil {
			return err
		}
	}
	return nil
}
