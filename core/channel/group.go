package channel

import (
	"fmt"
	"strings"
)

// Group identifies the subsystem a channel belongs to.
type Group int

const (
	GroupAuth Group = iota
	GroupCollection
	GroupPlayer
	GroupQueue
	GroupPlaylist
	GroupRadio
	GroupCache
	GroupScrobbler
	GroupSettings
	GroupWindow
	GroupSystem

	groupCount
)

var groupPrefixes = [groupCount]string{
	GroupAuth:       "auth",
	GroupCollection: "collection",
	GroupPlayer:     "player",
	GroupQueue:      "queue",
	GroupPlaylist:   "playlist",
	GroupRadio:      "radio",
	GroupCache:      "cache",
	GroupScrobbler:  "scrobbler",
	GroupSettings:   "settings",
	GroupWindow:     "window",
	GroupSystem:     "system",
}

// AllGroups returns every known group in declaration order.
func AllGroups() []Group {
	groups := make([]Group, 0, groupCount)
	for g := Group(0); g < groupCount; g++ {
		groups = append(groups, g)
	}
	return groups
}

// Valid reports whether g is a recognized group tag.
func (g Group) Valid() bool {
	return g >= 0 && g < groupCount
}

// Prefix returns the channel-name prefix used by the group, e.g. "player".
func (g Group) Prefix() string {
	if !g.Valid() {
		return ""
	}
	return groupPrefixes[g]
}

// String returns the string representation of the group.
func (g Group) String() string {
	if !g.Valid() {
		return fmt.Sprintf("Unknown(%d)", int(g))
	}
	p := groupPrefixes[g]
	return strings.ToUpper(p[:1]) + p[1:]
}

// ParseGroup maps a textual tag ("player", "Player") to its Group.
func ParseGroup(s string) (Group, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for g := Group(0); g < groupCount; g++ {
		if groupPrefixes[g] == s {
			return g, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownGroup, s)
}

// Kind distinguishes request/response channels from event channels.
type Kind int

const (
	// KindRequest channels carry a request answered by exactly one handler.
	KindRequest Kind = iota
	// KindEvent channels carry fire-and-forget broadcasts.
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindEvent:
		return "event"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}
