package server

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/StoreStation/EssentialsCraft/pkg/vanish"
)

// addPlayer makes player visible to lookups by entity id and profile id.
// It returns the session previously registered for the same profile, if any.
func (s *Server) addPlayer(player *Player) *Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.byProfile[player.UUID]
	s.players[player.EntityID] = player
	s.byProfile[player.UUID] = player
	return old
}

// ownsProfile reports whether player is the session its profile id resolves to.
func (s *Server) ownsProfile(player *Player) bool {
	p, ok := s.playerByProfile(player.UUID)
	return ok && p == player
}

func (s *Server) removePlayer(player *Player) {
	s.mu.Lock()
	delete(s.players, player.EntityID)
	if s.byProfile[player.UUID] == player {
		delete(s.byProfile, player.UUID)
	}
	s.mu.Unlock()
}

// LookupPlayer resolves a profile id to a connected player.
func (s *Server) LookupPlayer(id uuid.UUID) (vanish.PlayerState, bool) {
	p, ok := s.playerByProfile(id)
	if !ok {
		return nil, false
	}
	return p, true
}

func (s *Server) playerByProfile(id uuid.UUID) (*Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byProfile[id]
	return p, ok
}

// findPlayer looks a player up by case-insensitive username.
func (s *Server) findPlayer(name string) *Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if strings.EqualFold(p.Username, name) {
			return p
		}
	}
	return nil
}

// onlinePlayers returns a snapshot of the connected players ordered by
// entity id. Callers write to the players without holding the server lock.
func (s *Server) onlinePlayers() []*Player {
	s.mu.RLock()
	out := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

func (s *Server) playerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// visiblePlayerCount counts players that are not vanished.
func (s *Server) visiblePlayerCount() int {
	n := 0
	for _, p := range s.onlinePlayers() {
		if !p.Vanished() {
			n++
		}
	}
	return n
}
