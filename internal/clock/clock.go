// Package clock models per-domain clock enable gating.
//
// The RX and TX datapaths each advance in lock-step with their own clock.
// An externally supplied enable generator decides, edge by edge, whether the
// datapath is active. The MAC must move frames correctly and keep timestamps
// aligned under arbitrary gating patterns, so the generator is an explicit
// input consumed one value per edge rather than a polled variable.
package clock

// Enable produces one clock-enable value per edge.
type Enable interface {
	Next() bool
}

type alwaysOn struct{}

func (alwaysOn) Next() bool { return true }

// AlwaysOn returns a generator that never gates the domain off. This is the
// behavior when no generator was supplied.
func AlwaysOn() Enable { return alwaysOn{} }

type pattern struct {
	vals []bool
	pos  int
}

// Pattern replays the given values once, one per edge. Once exhausted it
// holds the domain inactive.
func Pattern(vals ...bool) Enable {
	return &pattern{vals: vals}
}

func (p *pattern) Next() bool {
	if p.pos >= len(p.vals) {
		return false
	}
	v := p.vals[p.pos]
	p.pos++
	return v
}

type cycle struct {
	vals []bool
	pos  int
}

// Cycle repeats the given values forever. Cycle(false, false, false, true)
// activates the domain on every fourth edge.
func Cycle(vals ...bool) Enable {
	return &cycle{vals: vals}
}

func (c *cycle) Next() bool {
	v := c.vals[c.pos]
	c.pos = (c.pos + 1) % len(c.vals)
	return v
}

// Domain tracks one timing domain: its edge count, how many of those edges
// were active, and the gating generator. All stateful components of the MAC
// are stepped only on active edges of their domain.
type Domain struct {
	name   string
	enable Enable
	edges  uint64
	active uint64
}

// NewDomain creates a domain with the given gating generator; nil means
// always active.
func NewDomain(name string, enable Enable) *Domain {
	if enable == nil {
		enable = AlwaysOn()
	}
	return &Domain{name: name, enable: enable}
}

// SetEnable swaps the gating generator. Takes effect from the next edge.
func (d *Domain) SetEnable(enable Enable) {
	if enable == nil {
		enable = AlwaysOn()
	}
	d.enable = enable
}

// Step advances the domain by one clock edge and reports whether the edge
// is active.
func (d *Domain) Step() bool {
	d.edges++
	if d.enable.Next() {
		d.active++
		return true
	}
	return false
}

// Name returns the domain name ("rx" or "tx").
func (d *Domain) Name() string { return d.name }

// Edges returns the total number of edges stepped.
func (d *Domain) Edges() uint64 { return d.edges }

// ActiveEdges returns the number of edges on which the domain was active.
func (d *Domain) ActiveEdges() uint64 { return d.active }
