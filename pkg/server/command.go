package server

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/StoreStation/EssentialsCraft/pkg/chat"
	"github.com/StoreStation/EssentialsCraft/pkg/protocol"
)

// handleCommand dispatches a /-prefixed command from a player.
func (s *Server) handleCommand(player *Player, message string) {
	parts := strings.Fields(message)
	if len(parts) == 0 {
		return
	}
	cmd := strings.ToLower(parts[0])
	log.Info().Str("player", player.Username).Str("command", message).Msg("player issued command")

	switch cmd {
	case "/vanish", "/v":
		s.handleVanishCommand(player, parts[1:])
	case "/list", "/who":
		s.handleListCommand(player)
	case "/gamemode", "/gm":
		s.handleGamemodeCommand(player, parts[1:])
	case "/tp", "/teleport":
		s.handleTpCommand(player, parts[1:])
	case "/stop":
		s.handleStopCommand(player)
	default:
		s.sendChatToPlayer(player, chat.Colored("Unknown command: "+cmd, "red"))
	}
}

// handleListCommand lists the players others can see. Vanished players
// only see themselves marked as such.
func (s *Server) handleListCommand(player *Player) {
	var names []string
	for _, p := range s.onlinePlayers() {
		switch {
		case !p.Vanished():
			names = append(names, p.Username)
		case p == player:
			names = append(names, p.Username+" (vanished)")
		}
	}
	header := fmt.Sprintf("There are %d/%d players online:", s.visiblePlayerCount(), s.config.MaxPlayers)
	s.sendChatToPlayer(player, chat.Colored(header, "gold"))
	s.sendChatToPlayer(player, chat.Text(strings.Join(names, ", ")))
}

// handleGamemodeCommand handles the /gamemode command.
// Usage: /gamemode <survival|creative|adventure|spectator|0|1|2|3>
func (s *Server) handleGamemodeCommand(player *Player, args []string) {
	if len(args) < 1 {
		s.sendChatToPlayer(player, chat.Colored("Usage: /gamemode <survival|creative|adventure|spectator|0|1|2|3>", "red"))
		return
	}

	mode, ok := ParseGameMode(args[0])
	if !ok {
		s.sendChatToPlayer(player, chat.Colored("Unknown gamemode: "+args[0], "red"))
		return
	}

	s.switchGameMode(player, mode)
	s.sendChatToPlayer(player, chat.Colored("Game mode set to "+GameModeName(mode), "gray"))
}

// handleTpCommand handles the /tp command.
// Usage: /tp <x> <y> <z> or /tp <player>
func (s *Server) handleTpCommand(player *Player, args []string) {
	switch len(args) {
	case 3:
		x, err1 := strconv.ParseFloat(args[0], 64)
		y, err2 := strconv.ParseFloat(args[1], 64)
		z, err3 := strconv.ParseFloat(args[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			s.sendChatToPlayer(player, chat.Colored("Invalid coordinates. Usage: /tp <x> <y> <z>", "red"))
			return
		}
		s.teleportPlayer(player, x, y, z)
		s.sendChatToPlayer(player, chat.Colored(fmt.Sprintf("Teleported to %.1f, %.1f, %.1f", x, y, z), "gray"))
	case 1:
		target := s.findPlayer(args[0])
		// Vanished players cannot be found by name unless you are one.
		if target == nil || (target.Vanished() && !player.Vanished()) {
			s.sendChatToPlayer(player, chat.Colored("Player not found: "+args[0], "red"))
			return
		}
		x, y, z, _, _, _ := target.position()
		s.teleportPlayer(player, x, y, z)
		s.sendChatToPlayer(player, chat.Colored("Teleported to "+target.Username, "gray"))
	default:
		s.sendChatToPlayer(player, chat.Colored("Usage: /tp <x> <y> <z> or /tp <player>", "red"))
	}
}

// teleportPlayer moves a player to the given coordinates and syncs the change.
func (s *Server) teleportPlayer(player *Player, x, y, z float64) {
	player.mu.Lock()
	player.X = x
	player.Y = y
	player.Z = z
	yaw, pitch := player.Yaw, player.Pitch
	player.mu.Unlock()

	posLook := protocol.MarshalPacket(0x08, func(w *bytes.Buffer) {
		protocol.WriteFloat64(w, x)
		protocol.WriteFloat64(w, y)
		protocol.WriteFloat64(w, z)
		protocol.WriteFloat32(w, yaw)
		protocol.WriteFloat32(w, pitch)
		protocol.WriteByte(w, 0) // Flags (all absolute)
	})
	player.writePacket(posLook)

	s.broadcastEntityTeleport(player)
	log.Debug().Str("player", player.Username).Float64("x", x).Float64("y", y).Float64("z", z).Msg("teleported")
}

// handleStopCommand handles the /stop command.
func (s *Server) handleStopCommand(player *Player) {
	log.Warn().Str("player", player.Username).Msg("stop requested, shutting down")
	s.broadcastChat(chat.Colored("Server is stopping...", "red"))

	// Let the message flush before Stop closes every connection.
	go func() {
		time.Sleep(500 * time.Millisecond)
		s.Stop()
	}()
}
