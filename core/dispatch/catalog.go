package dispatch

import "tunebridge-go/core/channel"

// CatalogEntry describes one channel of a catalog listing.
type CatalogEntry struct {
	Name  channel.Channel `json:"name"`
	Group string          `json:"group"`
	Kind  string          `json:"kind"`
	Bound bool            `json:"bound,omitempty"`
}

// Catalog is a listing of a registry together with its fingerprint.
type Catalog struct {
	Fingerprint string         `json:"fingerprint"`
	Channels    []CatalogEntry `json:"channels"`
}

// BuildCatalog lists reg in definition order, marking request channels with a
// handler in d as bound. d may be nil.
func BuildCatalog(reg *channel.Registry, d *Dispatcher) *Catalog {
	defs := reg.All()
	cat := &Catalog{Fingerprint: reg.Fingerprint(), Channels: make([]CatalogEntry, len(defs))}
	for i, def := range defs {
		cat.Channels[i] = CatalogEntry{
			Name:  def.Name,
			Group: def.Group.Prefix(),
			Kind:  def.Kind.String(),
			Bound: d != nil && d.HasHandler(def.Name),
		}
	}
	return cat
}

// Catalog lists the dispatcher's registry with handler bindings.
func (d *Dispatcher) Catalog() *Catalog {
	return BuildCatalog(d.registry, d)
}

// Filter returns the entries of group g.
func (c *Catalog) Filter(g channel.Group) *Catalog {
	out := &Catalog{Fingerprint: c.Fingerprint}
	for _, e := range c.Channels {
		if e.Group == g.Prefix() {
			out.Channels = append(out.Channels, e)
		}
	}
	return out
}
