// Package vanish keeps vanished players out of other clients' tab lists.
//
// The Filter runs on every outgoing Player List Item packet right before it
// is encoded and drops entries that refer to vanished players. Removal
// updates are never filtered so that clients always forget stale entries.
package vanish

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/StoreStation/EssentialsCraft/pkg/protocol"
)

// ErrUnresolvedPlayer is returned under MissingFail when an entry's profile id
// is not registered to a connected player.
var ErrUnresolvedPlayer = errors.New("unresolved player reference")

// PlayerState is the part of a connected player the filter looks at.
type PlayerState interface {
	Vanished() bool
}

// Registry resolves profile ids to connected players.
type Registry interface {
	LookupPlayer(id uuid.UUID) (PlayerState, bool)
}

// MissingPolicy decides what happens to entries whose player is not connected,
// e.g. when a player disconnects between packet construction and the write.
type MissingPolicy int

const (
	// MissingVisible keeps the entry.
	MissingVisible MissingPolicy = iota
	// MissingFail aborts the packet with ErrUnresolvedPlayer.
	MissingFail
)

// ParseMissingPolicy parses "visible" or "fail".
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch s {
	case "", "visible":
		return MissingVisible, nil
	case "fail":
		return MissingFail, nil
	default:
		return 0, fmt.Errorf("unknown missing player policy %q", s)
	}
}

func (p MissingPolicy) String() string {
	if p == MissingFail {
		return "fail"
	}
	return "visible"
}

// Filter removes vanished players from Player List Item packets.
type Filter struct {
	registry Registry
	missing  MissingPolicy
	log      zerolog.Logger
}

// Option configures a Filter.
type Option func(*Filter)

// WithMissingPolicy sets the policy for unresolvable profile ids.
func WithMissingPolicy(p MissingPolicy) Option {
	return func(f *Filter) { f.missing = p }
}

// WithLogger sets the logger used for per-packet debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Filter) { f.log = l }
}

// New returns a Filter that resolves players through registry.
func New(registry Registry, opts ...Option) *Filter {
	f := &Filter{
		registry: registry,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SkipVanished drops every entry of pkt whose player is vanished, in place.
// Removal packets pass untouched. Under MissingFail an unresolvable id
// returns an error and leaves pkt unchanged.
func (f *Filter) SkipVanished(pkt *protocol.PlayerListItem) error {
	if pkt == nil || pkt.Action == protocol.ActionRemovePlayer || len(pkt.Entries) == 0 {
		return nil
	}

	// Resolve everything before mutating so a failure leaves no partial edit.
	hidden := make([]bool, len(pkt.Entries))
	drop := 0
	for i, e := range pkt.Entries {
		state, ok := f.registry.LookupPlayer(e.ProfileID)
		if !ok {
			if f.missing == MissingFail {
				return fmt.Errorf("%w: %s", ErrUnresolvedPlayer, e.ProfileID)
			}
			continue
		}
		if state.Vanished() {
			hidden[i] = true
			drop++
		}
	}
	if drop == 0 {
		return nil
	}

	kept := pkt.Entries[:0]
	for i, e := range pkt.Entries {
		if !hidden[i] {
			kept = append(kept, e)
		}
	}
	clear(pkt.Entries[len(kept):])
	pkt.Entries = kept
	f.log.Debug().
		Stringer("action", pkt.Action).
		Int("dropped", drop).
		Int("remaining", len(pkt.Entries)).
		Msg("skipped vanished players")
	return nil
}

// Hook adapts the filter to a pre-send hook. Messages other than
// Player List Item packets pass through.
func (f *Filter) Hook() func(protocol.Message) error {
	return func(m protocol.Message) error {
		pkt, ok := m.(*protocol.PlayerListItem)
		if !ok {
			return nil
		}
		return f.SkipVanished(pkt)
	}
}
