package channel

import (
	"errors"
	"testing"
)

func newDefault(t *testing.T) *Registry {
	t.Helper()
	r, err := NewDefaultRegistry()
	if err != nil {
		t.Fatalf("NewDefaultRegistry() error = %v", err)
	}
	return r
}

func TestRegistry_IsValid_AllRegistered(t *testing.T) {
	r := newDefault(t)

	for _, d := range DefaultCatalog() {
		if !r.IsValid(string(d.Name)) {
			t.Errorf("IsValid(%q) = false, want true", d.Name)
		}
	}
}

func TestRegistry_IsValid_Unregistered(t *testing.T) {
	r := newDefault(t)

	for _, name := range []string{"", "player:unknown", "player", ":play", "Player:play", "player:play ", "foo:bar"} {
		if r.IsValid(name) {
			t.Errorf("IsValid(%q) = true, want false", name)
		}
	}
}

func TestRegistry_ChannelsFor(t *testing.T) {
	r := newDefault(t)

	got, err := r.ChannelsFor(GroupSettings)
	if err != nil {
		t.Fatalf("ChannelsFor() error = %v", err)
	}
	want := []Channel{SettingsGet, SettingsSet, SettingsGetAll, SettingsReset, SettingsChanged}
	if len(got) != len(want) {
		t.Fatalf("ChannelsFor() returned %d channels, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ChannelsFor()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRegistry_ChannelsFor_ReturnsCopy(t *testing.T) {
	r := newDefault(t)

	got, _ := r.ChannelsFor(GroupPlayer)
	got[0] = "player:tampered"

	again, _ := r.ChannelsFor(GroupPlayer)
	if again[0] != PlayerPlay {
		t.Errorf("registry mutated through returned slice: got %v", again[0])
	}
}

func TestRegistry_ChannelsFor_UnknownGroup(t *testing.T) {
	r := newDefault(t)

	for _, g := range []Group{-1, groupCount, 99} {
		if _, err := r.ChannelsFor(g); !errors.Is(err, ErrUnknownGroup) {
			t.Errorf("ChannelsFor(%d) error = %v, want ErrUnknownGroup", g, err)
		}
	}
}

func TestRegistry_EveryGroupPopulated(t *testing.T) {
	r := newDefault(t)

	for _, g := range AllGroups() {
		names, err := r.ChannelsFor(g)
		if err != nil {
			t.Fatalf("ChannelsFor(%s) error = %v", g, err)
		}
		if len(names) == 0 {
			t.Errorf("group %s has no channels", g)
		}
	}
}

func TestNewRegistry_DuplicateName(t *testing.T) {
	defs := []Definition{
		{Name: PlayerPlay, Group: GroupPlayer, Kind: KindRequest},
		{Name: PlayerPause, Group: GroupPlayer, Kind: KindRequest},
		{Name: PlayerPlay, Group: GroupPlayer, Kind: KindEvent},
	}

	_, err := NewRegistry(defs)
	if !errors.Is(err, ErrDuplicateChannel) {
		t.Fatalf("NewRegistry() error = %v, want ErrDuplicateChannel", err)
	}

	var dup *DuplicateChannelError
	if !errors.As(err, &dup) {
		t.Fatalf("error is not *DuplicateChannelError: %T", err)
	}
	if dup.Name != PlayerPlay {
		t.Errorf("Name = %v, want %v", dup.Name, PlayerPlay)
	}
}

func TestNewRegistry_InvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{"no separator", Definition{Name: "playerplay", Group: GroupPlayer}},
		{"empty action", Definition{Name: "player:", Group: GroupPlayer}},
		{"wrong prefix", Definition{Name: "queue:play", Group: GroupPlayer}},
		{"bad group", Definition{Name: "player:play", Group: 42}},
		{"bad kind", Definition{Name: "player:play", Group: GroupPlayer, Kind: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry([]Definition{tt.def}); !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("NewRegistry() error = %v, want ErrInvalidDefinition", err)
			}
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := newDefault(t)

	d, ok := r.Lookup(PlayerStateChanged)
	if !ok {
		t.Fatal("Lookup(player:stateChanged) not found")
	}
	if d.Group != GroupPlayer || d.Kind != KindEvent {
		t.Errorf("Lookup() = %+v, want Player/event", d)
	}

	if _, err := r.Require("player:unknown"); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("Require() error = %v, want ErrUnknownChannel", err)
	}
}

func TestRegistry_Fingerprint(t *testing.T) {
	a := newDefault(t)
	b := newDefault(t)

	if a.Fingerprint() == "" {
		t.Fatal("Fingerprint() is empty")
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical catalogs produced different fingerprints")
	}

	// Order-independent.
	defs := DefaultCatalog()
	defs[0], defs[len(defs)-1] = defs[len(defs)-1], defs[0]
	c, err := NewRegistry(defs)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if c.Fingerprint() != a.Fingerprint() {
		t.Error("reordering the catalog changed the fingerprint")
	}

	// A rename must change it.
	defs = DefaultCatalog()
	defs[0].Name = "auth:signIn"
	d, err := NewRegistry(defs)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if d.Fingerprint() == a.Fingerprint() {
		t.Error("renaming a channel did not change the fingerprint")
	}
}

func TestRegistry_OfKind(t *testing.T) {
	r := newDefault(t)

	total := len(r.OfKind(KindRequest)) + len(r.OfKind(KindEvent))
	if total != r.Len() {
		t.Errorf("request+event = %d, want %d", total, r.Len())
	}
}

func TestGroup_StringAndParse(t *testing.T) {
	tests := []struct {
		group    Group
		expected string
	}{
		{GroupAuth, "Auth"},
		{GroupCollection, "Collection"},
		{GroupScrobbler, "Scrobbler"},
		{GroupSystem, "System"},
		{Group(99), "Unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.group.String(); got != tt.expected {
				t.Errorf("String() = %v, want %v", got, tt.expected)
			}
		})
	}

	for _, g := range AllGroups() {
		parsed, err := ParseGroup(g.String())
		if err != nil || parsed != g {
			t.Errorf("ParseGroup(%q) = %v, %v", g.String(), parsed, err)
		}
	}

	if _, err := ParseGroup("lyrics"); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("ParseGroup(lyrics) error = %v, want ErrUnknownGroup", err)
	}
}

func TestRegistry_Groups(t *testing.T) {
	if got := newDefault(t).Groups(); len(got) != len(AllGroups()) {
		t.Errorf("len(Groups()) = %d, want %d", len(got), len(AllGroups()))
	}

	r, err := NewRegistry([]Definition{
		{Name: "system:ping", Group: GroupSystem, Kind: KindRequest},
		{Name: "auth:login", Group: GroupAuth, Kind: KindRequest},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	got := r.Groups()
	if len(got) != 2 || got[0] != GroupAuth || got[1] != GroupSystem {
		t.Errorf("Groups() = %v, want [Auth System]", got)
	}
}
