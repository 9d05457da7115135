package server

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/StoreStation/EssentialsCraft/pkg/chat"
	"github.com/StoreStation/EssentialsCraft/pkg/protocol"
)

// SetVanished hides or reveals player. It reports whether the state changed.
//
// Vanishing sends a tab list removal to everyone, which the vanish filter
// lets through, and destroys the player's entity on the other clients.
// Reappearing re-adds the tab list entry and spawns the entity again.
func (s *Server) SetVanished(player *Player, vanished bool) bool {
	if player.vanished.Swap(vanished) == vanished {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.store.SetVanished(ctx, player.UUID, vanished); err != nil {
		log.Error().Err(err).Str("player", player.Username).Msg("could not persist vanish state")
	}

	if vanished {
		s.broadcastPlayerListRemove(player)
		destroy := destroyEntityPacket(player.EntityID)
		for _, other := range s.onlinePlayers() {
			if other != player {
				other.writePacket(destroy)
			}
		}
	} else {
		// Others get the tab entry together with the spawn; the player's own
		// entry was removed by the vanish broadcast.
		s.sendMessage(player, &protocol.PlayerListItem{
			Action:  protocol.ActionAddPlayer,
			Entries: []protocol.PlayerListEntry{playerListEntry(player)},
		})
		s.spawnPlayerForOthers(player)
	}

	log.Info().Str("player", player.Username).Bool("vanished", vanished).Msg("vanish toggled")
	return true
}

// handleVanishCommand handles the /vanish command.
// Usage: /vanish [player]
func (s *Server) handleVanishCommand(player *Player, args []string) {
	target := player
	if len(args) > 1 {
		s.sendChatToPlayer(player, chat.Colored("Usage: /vanish [player]", "red"))
		return
	}
	if len(args) == 1 {
		target = s.findPlayer(args[0])
		// Same visibility rule as /tp.
		if target == nil || (target.Vanished() && !player.Vanished()) {
			s.sendChatToPlayer(player, chat.Colored("Player not found: "+args[0], "red"))
			return
		}
	}

	vanished := !target.Vanished()
	s.SetVanished(target, vanished)

	state := "visible"
	if vanished {
		state = "vanished"
	}
	if target != player {
		s.sendChatToPlayer(player, chat.Colored(target.Username+" is now "+state, "gray"))
	}
	s.sendChatToPlayer(target, chat.Colored("You are now "+state, "gray"))
}
