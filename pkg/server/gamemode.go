package server

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/StoreStation/EssentialsCraft/pkg/protocol"
)

// Gamemode constants matching Minecraft protocol values.
const (
	GameModeSurvival  byte = 0
	GameModeCreative  byte = 1
	GameModeAdventure byte = 2
	GameModeSpectator byte = 3
)

// Entity metadata flags (index 0, type byte).
const (
	EntityFlagInvisible byte = 0x20
)

// ParseGameMode parses a gamemode string into its byte value.
// Returns the mode and true on success, or 0 and false on failure.
func ParseGameMode(s string) (byte, bool) {
	switch strings.ToLower(s) {
	case "survival", "s", "0":
		return GameModeSurvival, true
	case "creative", "c", "1":
		return GameModeCreative, true
	case "adventure", "a", "2":
		return GameModeAdventure, true
	case "spectator", "sp", "3":
		return GameModeSpectator, true
	default:
		return 0, false
	}
}

// GameModeName returns the display name for a gamemode.
func GameModeName(mode byte) string {
	switch mode {
	case GameModeSurvival:
		return "Survival"
	case GameModeCreative:
		return "Creative"
	case GameModeAdventure:
		return "Adventure"
	case GameModeSpectator:
		return "Spectator"
	default:
		return fmt.Sprintf("Unknown(%d)", mode)
	}
}

// switchGameMode changes a player's gamemode, sending all necessary packets
// to the player and broadcasting updates to other players.
func (s *Server) switchGameMode(player *Player, mode byte) {
	player.mu.Lock()
	player.GameMode = mode
	player.mu.Unlock()

	changeGameState := protocol.MarshalPacket(0x2B, func(w *bytes.Buffer) {
		protocol.WriteByte(w, 3)                // Reason: change game mode
		protocol.WriteFloat32(w, float32(mode)) // Value: new game mode
	})
	player.writePacket(changeGameState)

	s.sendPlayerAbilities(player)

	// Tab list update goes through the vanish filter like any other.
	s.broadcastPlayerListGameMode(player)

	s.broadcastEntityFlags(player)

	log.Info().Str("player", player.Username).Str("mode", GameModeName(mode)).Msg("game mode changed")
}

// sendPlayerAbilities sends the Player Abilities packet (0x39) based on the player's current gamemode.
func (s *Server) sendPlayerAbilities(player *Player) {
	player.mu.Lock()
	mode := player.GameMode
	player.mu.Unlock()

	var flags byte
	switch mode {
	case GameModeCreative:
		flags = 0x0D // Invulnerable | Allow Flying | Instant Break
	case GameModeSpectator:
		flags = 0x07 // Invulnerable | Flying | Allow Flying
	}
	abilities := protocol.MarshalPacket(0x39, func(w *bytes.Buffer) {
		protocol.WriteByte(w, flags)
		protocol.WriteFloat32(w, 0.05) // Flying speed
		protocol.WriteFloat32(w, 0.1)  // Walking speed (FOV modifier)
	})
	player.writePacket(abilities)
}

// broadcastEntityFlags sends an Entity Metadata packet (0x1C) to the other
// players with the invisible flag set for spectators.
func (s *Server) broadcastEntityFlags(player *Player) {
	player.mu.Lock()
	var flags byte
	if player.GameMode == GameModeSpectator {
		flags = EntityFlagInvisible
	}
	player.mu.Unlock()

	pkt := protocol.MarshalPacket(0x1C, func(w *bytes.Buffer) {
		protocol.WriteVarInt(w, player.EntityID)
		protocol.WriteByte(w, 0x00) // header: (type 0 << 5) | index 0 = entity flags
		protocol.WriteByte(w, flags)
		protocol.WriteByte(w, 0x7F) // Metadata terminator
	})
	s.broadcastToOthers(player, pkt)
}
