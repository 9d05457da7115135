package server

import (
	"bytes"

	"github.com/StoreStation/EssentialsCraft/pkg/chat"
	"github.com/StoreStation/EssentialsCraft/pkg/protocol"
)

// broadcastPacket writes a raw packet to every online player except skip.
// Raw packets bypass the pre-send hooks; tab list traffic goes through
// broadcastMessage instead.
func (s *Server) broadcastPacket(pkt *protocol.Packet, skip *Player) {
	for _, p := range s.onlinePlayers() {
		if p == skip {
			continue
		}
		p.writePacket(pkt)
	}
}

func chatPacket(msg chat.Message) *protocol.Packet {
	jsonMsg := msg.String()
	return protocol.MarshalPacket(0x02, func(w *bytes.Buffer) {
		protocol.WriteString(w, jsonMsg)
		protocol.WriteByte(w, 0) // Position: chat
	})
}

func (s *Server) broadcastChat(msg chat.Message) {
	s.broadcastPacket(chatPacket(msg), nil)
}

// sendChatToPlayer sends a chat message to a single player.
func (s *Server) sendChatToPlayer(player *Player, msg chat.Message) {
	player.writePacket(chatPacket(msg))
}

// playerListEntry builds the tab list record for player.
func playerListEntry(player *Player) protocol.PlayerListEntry {
	player.mu.Lock()
	defer player.mu.Unlock()
	return protocol.PlayerListEntry{
		ProfileID: player.UUID,
		Name:      player.Username,
		GameMode:  int32(player.GameMode),
	}
}

// broadcastPlayerListRemove removes player from every tab list.
func (s *Server) broadcastPlayerListRemove(player *Player) error {
	return s.broadcastMessage(&protocol.PlayerListItem{
		Action:  protocol.ActionRemovePlayer,
		Entries: []protocol.PlayerListEntry{{ProfileID: player.UUID}},
	}, nil)
}

// broadcastPlayerListGameMode updates player's game mode in every tab list.
func (s *Server) broadcastPlayerListGameMode(player *Player) error {
	return s.broadcastMessage(&protocol.PlayerListItem{
		Action:  protocol.ActionUpdateGameMode,
		Entries: []protocol.PlayerListEntry{playerListEntry(player)},
	}, nil)
}

// broadcastToOthers relays a packet about player's entity to everyone else,
// unless player is vanished and has no entity on their clients.
func (s *Server) broadcastToOthers(player *Player, pkts ...*protocol.Packet) {
	if player.Vanished() {
		return
	}
	for _, other := range s.onlinePlayers() {
		if other == player {
			continue
		}
		for _, pkt := range pkts {
			other.writePacket(pkt)
		}
	}
}

func (s *Server) broadcastEntityTeleport(player *Player) {
	x, y, z, yaw, pitch, onGround := player.position()

	pkt := protocol.MarshalPacket(0x18, func(w *bytes.Buffer) {
		protocol.WriteVarInt(w, player.EntityID)
		protocol.WriteInt32(w, int32(x*32))
		protocol.WriteInt32(w, int32(y*32))
		protocol.WriteInt32(w, int32(z*32))
		protocol.WriteByte(w, byte(yaw*256/360))
		protocol.WriteByte(w, byte(pitch*256/360))
		protocol.WriteBool(w, onGround)
	})
	s.broadcastToOthers(player, pkt)
}

func (s *Server) broadcastEntityLook(player *Player) {
	_, _, _, yaw, pitch, onGround := player.position()

	look := protocol.MarshalPacket(0x16, func(w *bytes.Buffer) {
		protocol.WriteVarInt(w, player.EntityID)
		protocol.WriteByte(w, byte(yaw*256/360))
		protocol.WriteByte(w, byte(pitch*256/360))
		protocol.WriteBool(w, onGround)
	})
	headRotation := protocol.MarshalPacket(0x19, func(w *bytes.Buffer) {
		protocol.WriteVarInt(w, player.EntityID)
		protocol.WriteByte(w, byte(yaw*256/360))
	})
	s.broadcastToOthers(player, look, headRotation)
}

func (s *Server) broadcastAnimation(player *Player, animationID byte) {
	pkt := protocol.MarshalPacket(0x0B, func(w *bytes.Buffer) {
		protocol.WriteVarInt(w, player.EntityID)
		protocol.WriteByte(w, animationID)
	})
	s.broadcastToOthers(player, pkt)
}

func destroyEntityPacket(entityID int32) *protocol.Packet {
	return protocol.MarshalPacket(0x13, func(w *bytes.Buffer) {
		protocol.WriteVarInt(w, 1) // Count
		protocol.WriteVarInt(w, entityID)
	})
}

func (s *Server) broadcastDestroyEntity(entityID int32) {
	s.broadcastPacket(destroyEntityPacket(entityID), nil)
}

// spawnPlayerForOthers shows player to everyone already online.
func (s *Server) spawnPlayerForOthers(player *Player) {
	if player.Vanished() {
		return
	}
	for _, other := range s.onlinePlayers() {
		if other == player {
			continue
		}
		s.sendSpawnPlayer(other, player)
	}
}

// spawnOthersForPlayer shows every visible online player to player.
func (s *Server) spawnOthersForPlayer(player *Player) {
	for _, other := range s.onlinePlayers() {
		if other == player || other.Vanished() {
			continue
		}
		s.sendSpawnPlayer(player, other)
	}
}

func (s *Server) sendSpawnPlayer(viewer *Player, target *Player) {
	x, y, z, yaw, pitch, _ := target.position()
	target.mu.Lock()
	gameMode := target.GameMode
	target.mu.Unlock()

	// The tab list entry has to reach the client before Spawn Player. If the
	// filter dropped it, target vanished in the meantime and stays unspawned.
	item := &protocol.PlayerListItem{
		Action:  protocol.ActionAddPlayer,
		Entries: []protocol.PlayerListEntry{playerListEntry(target)},
	}
	if err := s.sendMessage(viewer, item); err != nil || len(item.Entries) == 0 {
		return
	}

	var entityFlags byte
	if gameMode == GameModeSpectator {
		entityFlags = EntityFlagInvisible
	}

	spawnPlayer := protocol.MarshalPacket(0x0C, func(w *bytes.Buffer) {
		protocol.WriteVarInt(w, target.EntityID)
		protocol.WriteUUID(w, target.UUID)
		protocol.WriteInt32(w, int32(x*32)) // Fixed-point X
		protocol.WriteInt32(w, int32(y*32)) // Fixed-point Y
		protocol.WriteInt32(w, int32(z*32)) // Fixed-point Z
		protocol.WriteByte(w, byte(yaw*256/360))
		protocol.WriteByte(w, byte(pitch*256/360))
		protocol.WriteInt16(w, 0)          // Current item
		protocol.WriteByte(w, 0x00)        // Metadata header: (type 0 << 5) | index 0
		protocol.WriteByte(w, entityFlags) // Entity flags
		protocol.WriteByte(w, 0x7F)        // Metadata terminator
	})
	viewer.writePacket(spawnPlayer)
}
