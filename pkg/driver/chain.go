package driver

import (
	"context"
	"fmt"
	"sort"

	"github.com/specvital/phpunit-runner/pkg/logging"
)

const subsystem = "driver"

// EffectiveOrder returns hint followed by every catalog name missing from it,
// keeping only the first occurrence of each name.
func EffectiveOrder(hint, catalog []string) []string {
	seen := make(map[string]bool, len(hint)+len(catalog))
	order := make([]string, 0, len(hint)+len(catalog))

	for _, names := range [][]string{hint, catalog} {
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			order = append(order, name)
		}
	}
	return order
}

// Names returns the names of drivers in order.
func Names(drivers []Driver) []string {
	names := make([]string, len(drivers))
	for i, d := range drivers {
		names[i] = d.Name()
	}
	return names
}

// Sort returns a copy of drivers ordered by their position in the effective
// order for hint. Ties keep catalog order; names missing from the order rank last.
func Sort(hint []string, drivers []Driver) []Driver {
	order := EffectiveOrder(hint, Names(drivers))
	index := make(map[string]int, len(order))
	for i, name := range order {
		index[name] = i
	}
	rank := func(d Driver) int {
		if i, ok := index[d.Name()]; ok {
			return i
		}
		return len(order)
	}

	sorted := append([]Driver(nil), drivers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank(sorted[i]) < rank(sorted[j])
	})
	return sorted
}

// ProbeResult pairs a driver with the outcome of its probe.
type ProbeResult struct {
	Driver Driver
	Probe  Probe
}

// Resolver selects the first available driver in priority order.
type Resolver struct {
	drivers []Driver
}

// NewResolver sorts drivers by priority once.
func NewResolver(priority []string, drivers []Driver) *Resolver {
	return &Resolver{drivers: Sort(priority, drivers)}
}

// Drivers returns the drivers in resolution order.
func (r *Resolver) Drivers() []Driver {
	return append([]Driver(nil), r.drivers...)
}

// Resolve probes drivers in order and returns the first available one.
// It returns ErrNoDriver when none is.
func (r *Resolver) Resolve(ctx context.Context) (Driver, error) {
	for _, d := range r.drivers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := d.Probe(ctx)
		if p.OK() {
			logging.Debug(subsystem, "driver %s is available", d.Name())
			return d, nil
		}
		logging.Debug(subsystem, "skipping driver %s: %s", d.Name(), p.Reason())
	}
	return nil, ErrNoDriver
}

// ProbeAll probes every driver in order without stopping at the first success.
func (r *Resolver) ProbeAll(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, 0, len(r.drivers))
	for _, d := range r.drivers {
		results = append(results, ProbeResult{Driver: d, Probe: d.Probe(ctx)})
	}
	return results
}

// subChain resolves the PHPUnit entry point through the local drivers for
// composite drivers that run it elsewhere.
type subChain struct {
	priority []string
	drivers  []Driver
}

func (c *subChain) PHPUnitPath(ctx context.Context) (string, error) {
	for _, d := range Sort(c.priority, c.drivers) {
		path, err := d.PHPUnitPath(ctx)
		if err == nil && path != "" {
			return path, nil
		}
	}
	return "", fmt.Errorf("local drivers: %w", ErrPHPUnitNotFound)
}
