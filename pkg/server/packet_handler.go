package server

import (
	"bytes"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/StoreStation/EssentialsCraft/pkg/chat"
	"github.com/StoreStation/EssentialsCraft/pkg/protocol"
)

const maxChatLength = 100

func (s *Server) handlePlayPacket(player *Player, pkt *protocol.Packet) {
	r := bytes.NewReader(pkt.Data)

	switch pkt.ID {
	case 0x00: // Keep Alive

	case 0x01: // Chat Message
		message, err := protocol.ReadString(r)
		if err != nil {
			return
		}
		if len(message) > maxChatLength {
			message = message[:maxChatLength]
		}
		if strings.HasPrefix(message, "/") {
			s.handleCommand(player, message)
			return
		}
		log.Info().Str("player", player.Username).Str("message", message).Msg("chat")
		s.broadcastChat(chat.Message{
			Extra: []chat.Message{
				chat.Colored("<"+player.Username+"> ", "white"),
				chat.Text(message),
			},
		})

	case 0x03: // Player (on ground)
		onGround, _ := protocol.ReadBool(r)
		player.mu.Lock()
		player.OnGround = onGround
		player.mu.Unlock()

	case 0x04: // Player Position
		x, _ := protocol.ReadFloat64(r)
		y, _ := protocol.ReadFloat64(r)
		z, _ := protocol.ReadFloat64(r)
		onGround, _ := protocol.ReadBool(r)
		player.mu.Lock()
		player.X, player.Y, player.Z = x, y, z
		player.OnGround = onGround
		player.mu.Unlock()
		s.broadcastEntityTeleport(player)

	case 0x05: // Player Look
		yaw, _ := protocol.ReadFloat32(r)
		pitch, _ := protocol.ReadFloat32(r)
		onGround, _ := protocol.ReadBool(r)
		player.mu.Lock()
		player.Yaw, player.Pitch = yaw, pitch
		player.OnGround = onGround
		player.mu.Unlock()
		s.broadcastEntityLook(player)

	case 0x06: // Player Position And Look
		x, _ := protocol.ReadFloat64(r)
		y, _ := protocol.ReadFloat64(r)
		z, _ := protocol.ReadFloat64(r)
		yaw, _ := protocol.ReadFloat32(r)
		pitch, _ := protocol.ReadFloat32(r)
		onGround, _ := protocol.ReadBool(r)
		player.mu.Lock()
		player.X, player.Y, player.Z = x, y, z
		player.Yaw, player.Pitch = yaw, pitch
		player.OnGround = onGround
		player.mu.Unlock()
		s.broadcastEntityTeleport(player)

	case 0x0A: // Animation
		s.broadcastAnimation(player, 0)

	case 0x13: // Player Abilities (serverbound)
		// F3+N toggles creative/spectator; creative carries Instant Break (0x08).
		clientFlags, _ := protocol.ReadByte(r)
		player.mu.Lock()
		currentMode := player.GameMode
		player.mu.Unlock()

		if currentMode == GameModeCreative && clientFlags&0x08 == 0 {
			s.switchGameMode(player, GameModeSpectator)
		} else if currentMode == GameModeSpectator && clientFlags&0x08 != 0 {
			s.switchGameMode(player, GameModeCreative)
		}

	case 0x09, 0x15, 0x16, 0x17: // Held Item, Client Settings, Client Status, Plugin Message
	}
}
