// Package channel defines the catalog of named channels shared by the backend
// process and its UI processes, and the immutable Registry built from it.
package channel

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// Registry is an immutable catalog of channel definitions.
// It is safe for concurrent use; nothing mutates it after NewRegistry returns.
type Registry struct {
	defs        []Definition
	byName      map[Channel]int
	byGroup     map[Group][]Channel
	fingerprint string
}

// NewRegistry validates defs and builds a registry from them.
// A name defined twice yields a *DuplicateChannelError.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		defs:    make([]Definition, 0, len(defs)),
		byName:  make(map[Channel]int, len(defs)),
		byGroup: make(map[Group][]Channel),
	}

	for _, d := range defs {
		if err := validateDefinition(d); err != nil {
			return nil, err
		}
		if i, exists := r.byName[d.Name]; exists {
			return nil, &DuplicateChannelError{Name: d.Name, First: r.defs[i].Group, Second: d.Group}
		}
		r.byName[d.Name] = len(r.defs)
		r.defs = append(r.defs, d)
		r.byGroup[d.Group] = append(r.byGroup[d.Group], d.Name)
	}

	r.fingerprint = computeFingerprint(r.defs)
	return r, nil
}

// NewDefaultRegistry builds a registry from DefaultCatalog.
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(DefaultCatalog())
}

func validateDefinition(d Definition) error {
	if !d.Group.Valid() {
		return fmt.Errorf("%w: %q has group %s", ErrInvalidDefinition, d.Name, d.Group)
	}
	if d.Kind != KindRequest && d.Kind != KindEvent {
		return fmt.Errorf("%w: %q has kind %s", ErrInvalidDefinition, d.Name, d.Kind)
	}
	prefix, action, ok := strings.Cut(string(d.Name), ":")
	if !ok || action == "" {
		return fmt.Errorf("%w: %q is not of the form group:action", ErrInvalidDefinition, d.Name)
	}
	if prefix != d.Group.Prefix() {
		return fmt.Errorf("%w: %q does not belong to group %s", ErrInvalidDefinition, d.Name, d.Group)
	}
	return nil
}

// ChannelsFor returns the channels of group g in definition order.
func (r *Registry) ChannelsFor(g Group) ([]Channel, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGroup, int(g))
	}
	names := r.byGroup[g]
	out := make([]Channel, len(names))
	copy(out, names)
	return out, nil
}

// IsValid reports whether name is a registered channel.
func (r *Registry) IsValid(name string) bool {
	_, ok := r.byName[Channel(name)]
	return ok
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name Channel) (Definition, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// Require is like Lookup but returns ErrUnknownChannel for unregistered names.
func (r *Registry) Require(name Channel) (Definition, error) {
	d, ok := r.Lookup(name)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	return d, nil
}

// All returns every definition in definition order.
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Groups returns the groups that have at least one channel, in Group order.
func (r *Registry) Groups() []Group {
	var out []Group
	for _, g := range AllGroups() {
		if len(r.byGroup[g]) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// OfKind returns the channels of kind k in definition order.
func (r *Registry) OfKind(k Kind) []Channel {
	var out []Channel
	for _, d := range r.defs {
		if d.Kind == k {
			out = append(out, d.Name)
		}
	}
	return out
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Fingerprint returns a hex BLAKE3 digest of the catalog. Two processes agree on
// the wire contract exactly when their fingerprints match.
func (r *Registry) Fingerprint() string {
	return r.fingerprint
}

func computeFingerprint(defs []Definition) string {
	lines := make([]string, len(defs))
	for i, d := range defs {
		lines[i] = fmt.Sprintf("%s|%s|%s", d.Name, d.Group.Prefix(), d.Kind)
	}
	sort.Strings(lines)

	sum := blake3.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
