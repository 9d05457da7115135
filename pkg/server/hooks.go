package server

import (
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"

	"github.com/StoreStation/EssentialsCraft/pkg/protocol"
)

// PreSendHook inspects or rewrites an outgoing message before it is encoded.
// Returning an error drops the message.
type PreSendHook func(msg protocol.Message) error

type hookEntry struct {
	fn PreSendHook
}

type hookChain struct {
	mu   deadlock.RWMutex
	byID map[int32][]*hookEntry
}

// RegisterPreSendHook runs hook on every outgoing message with the given
// packet id, after hooks registered earlier. The returned func unregisters it.
func (s *Server) RegisterPreSendHook(packetID int32, hook PreSendHook) (remove func()) {
	entry := &hookEntry{fn: hook}

	s.hooks.mu.Lock()
	if s.hooks.byID == nil {
		s.hooks.byID = make(map[int32][]*hookEntry)
	}
	s.hooks.byID[packetID] = append(s.hooks.byID[packetID], entry)
	s.hooks.mu.Unlock()

	return func() {
		s.hooks.mu.Lock()
		defer s.hooks.mu.Unlock()
		kept := make([]*hookEntry, 0, len(s.hooks.byID[packetID]))
		for _, other := range s.hooks.byID[packetID] {
			if other != entry {
				kept = append(kept, other)
			}
		}
		s.hooks.byID[packetID] = kept
	}
}

// runPreSendHooks passes msg through its hooks. Hooks run without the chain
// lock held so they may call back into the server.
func (s *Server) runPreSendHooks(msg protocol.Message) error {
	s.hooks.mu.RLock()
	hooks := s.hooks.byID[msg.PacketID()]
	s.hooks.mu.RUnlock()

	for _, h := range hooks {
		if err := h.fn(msg); err != nil {
			return err
		}
	}
	return nil
}

// prepareMessage runs the hooks once and encodes the result.
func (s *Server) prepareMessage(msg protocol.Message) (*protocol.Packet, error) {
	if err := s.runPreSendHooks(msg); err != nil {
		return nil, err
	}
	return protocol.EncodeMessage(msg)
}

// sendMessage delivers a typed message to one player.
func (s *Server) sendMessage(player *Player, msg protocol.Message) error {
	pkt, err := s.prepareMessage(msg)
	if err != nil {
		log.Warn().Err(err).
			Str("player", player.Username).
			Int32("packet", msg.PacketID()).
			Msg("outgoing packet dropped")
		return err
	}
	return player.writePacket(pkt)
}

// broadcastMessage delivers a typed message to every online player except
// skip (which may be nil). Hooks run once for the whole broadcast.
func (s *Server) broadcastMessage(msg protocol.Message, skip *Player) error {
	pkt, err := s.prepareMessage(msg)
	if err != nil {
		log.Warn().Err(err).
			Int32("packet", msg.PacketID()).
			Msg("outgoing broadcast dropped")
		return err
	}
	s.broadcastPacket(pkt, skip)
	return nil
}
