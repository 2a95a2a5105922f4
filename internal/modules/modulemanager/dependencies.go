package modulemanager

import (
	"fmt"
	"sort"
	"strings"
)

// DependencyProvider is an optional interface for modules that declare dependencies
type DependencyProvider interface {
	// Dependencies returns the list of module IDs this module depends on
	Dependencies() []string
}

// initializationOrder sorts modules so that every module follows the modules
// it depends on. Ties are broken by module ID for a stable order.
func initializationOrder(modules map[string]Module) ([]Module, error) {
	ids := make([]string, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	deps := make(map[string][]string, len(modules))
	for _, id := range ids {
		if provider, ok := modules[id].(DependencyProvider); ok {
			for _, dep := range provider.Dependencies() {
				if _, exists := modules[dep]; !exists {
					return nil, fmt.Errorf("module %s depends on unknown module %s", id, dep)
				}
				deps[id] = append(deps[id], dep)
			}
		}
	}

	order := make([]Module, 0, len(modules))
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		if inStack[id] {
			return fmt.Errorf("circular module dependency: %s", strings.Join(append(path, id), " -> "))
		}
		if visited[id] {
			return nil
		}
		inStack[id] = true
		for _, dep := range deps[id] {
			if err := visit(dep, append(path, id)); err != nil {
				return err
			}
		}
		inStack[id] = false
		visited[id] = true
		order = append(order, modules[id])
		return nil
	}

	for _, id := range ids {
		if err := visit(id, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}
