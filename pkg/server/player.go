package server

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"

	"github.com/StoreStation/EssentialsCraft/pkg/chat"
	"github.com/StoreStation/EssentialsCraft/pkg/protocol"
	"github.com/StoreStation/EssentialsCraft/pkg/world"
)

const storeTimeout = 2 * time.Second

// writeTimeout bounds a single packet write. It stays well under
// go-deadlock's detection timeout so a client that stops reading gets
// disconnected instead of stalling the writers queued behind it.
var writeTimeout = 10 * time.Second

// Player represents a connected player.
type Player struct {
	EntityID int32
	Username string
	UUID     uuid.UUID
	Conn     net.Conn
	GameMode byte
	X, Y, Z  float64
	Yaw      float32
	Pitch    float32
	OnGround bool

	vanished atomic.Bool
	mu       deadlock.Mutex // guards the fields above
	writeMu  deadlock.Mutex // serializes writes to Conn
}

// Vanished reports whether the player is hidden from other players.
func (p *Player) Vanished() bool {
	return p.vanished.Load()
}

// writePacket writes one packet, serialized with other writers. A write
// that misses writeTimeout closes the connection.
func (p *Player) writePacket(pkt *protocol.Packet) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.Conn == nil {
		return nil
	}
	p.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := protocol.WritePacket(p.Conn, pkt)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			log.Warn().Str("player", p.Username).Msg("write timed out, closing connection")
			p.Conn.Close()
		}
	}
	return err
}

func (p *Player) position() (x, y, z float64, yaw, pitch float32, onGround bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.X, p.Y, p.Z, p.Yaw, p.Pitch, p.OnGround
}

func (s *Server) handleLoginStart(conn net.Conn, pkt *protocol.Packet) (*Player, error) {
	r := bytes.NewReader(pkt.Data)
	username, err := protocol.ReadString(r)
	if err != nil {
		return nil, err
	}
	if len(username) == 0 || len(username) > 16 {
		return nil, fmt.Errorf("invalid username length %d", len(username))
	}

	log.Info().Str("player", username).Msg("player is logging in")

	id := offlineUUID(username)

	s.mu.Lock()
	eid := s.nextEID
	s.nextEID++
	s.mu.Unlock()

	player := &Player{
		EntityID: eid,
		Username: username,
		UUID:     id,
		Conn:     conn,
		GameMode: s.config.DefaultGameMode,
		X:        8,
		Y:        world.SpawnHeight,
		Z:        8,
		OnGround: true,
	}
	s.restoreVanish(player)

	loginSuccess := protocol.MarshalPacket(0x02, func(w *bytes.Buffer) {
		protocol.WriteString(w, id.String())
		protocol.WriteString(w, username)
	})
	if err := protocol.WritePacket(conn, loginSuccess); err != nil {
		return nil, err
	}

	return player, nil
}

// restoreVanish loads the persisted vanish flag. Store failures leave the
// player visible.
func (s *Server) restoreVanish(player *Player) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	vanished, err := s.store.IsVanished(ctx, player.UUID)
	if err != nil {
		log.Error().Err(err).Str("player", player.Username).Msg("could not load vanish state")
		return
	}
	player.vanished.Store(vanished)
}

func (s *Server) handlePlay(player *Player) {
	conn := player.Conn

	joinGame := protocol.MarshalPacket(0x01, func(w *bytes.Buffer) {
		protocol.WriteInt32(w, player.EntityID)          // Entity ID
		protocol.WriteByte(w, player.GameMode)           // Gamemode
		protocol.WriteByte(w, 0)                         // Dimension: overworld
		protocol.WriteByte(w, 0)                         // Difficulty: peaceful
		protocol.WriteByte(w, byte(s.config.MaxPlayers)) // Max players
		protocol.WriteString(w, "flat")                  // Level type
		protocol.WriteBool(w, false)                     // Reduced debug info
	})
	player.writePacket(joinGame)

	spawnPos := protocol.MarshalPacket(0x05, func(w *bytes.Buffer) {
		protocol.WritePosition(w, 8, int32(player.Y), 8)
	})
	player.writePacket(spawnPos)

	s.sendPlayerAbilities(player)

	posLook := protocol.MarshalPacket(0x08, func(w *bytes.Buffer) {
		protocol.WriteFloat64(w, player.X)
		protocol.WriteFloat64(w, player.Y)
		protocol.WriteFloat64(w, player.Z)
		protocol.WriteFloat32(w, player.Yaw)
		protocol.WriteFloat32(w, player.Pitch)
		protocol.WriteByte(w, 0) // Flags (all absolute)
	})
	player.writePacket(posLook)

	s.sendSpawnChunks(player)

	// Register before any tab list traffic so the vanish filter can resolve
	// this player.
	if old := s.addPlayer(player); old != nil {
		s.kickPlayer(old, "You logged in from another location")
	}

	if !player.Vanished() {
		s.broadcastChat(chat.Colored(player.Username+" joined the game", "yellow"))
	}
	log.Info().
		Str("player", player.Username).
		Int32("eid", player.EntityID).
		Bool("vanished", player.Vanished()).
		Msg("player joined the game")

	stopKeepAlive := make(chan struct{})
	go s.keepAliveLoop(player, stopKeepAlive)

	defer func() {
		close(stopKeepAlive)
		s.disconnectPlayer(player)
	}()

	s.spawnPlayerForOthers(player)
	s.spawnOthersForPlayer(player)

	// Add self to own tab list so the player can see themselves.
	s.sendMessage(player, &protocol.PlayerListItem{
		Action:  protocol.ActionAddPlayer,
		Entries: []protocol.PlayerListEntry{playerListEntry(player)},
	})

	if player.Vanished() {
		s.sendChatToPlayer(player, chat.Colored("You are vanished. Use /vanish to reappear.", "gray"))
	}

	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		pkt, err := protocol.ReadPacket(conn)
		if err != nil {
			return
		}

		s.handlePlayPacket(player, pkt)
	}
}

// disconnectPlayer removes player from every client and the registry.
func (s *Server) disconnectPlayer(player *Player) {
	// Removal is never filtered and must go out while the player still
	// resolves. A newer session of the same profile keeps its tab entry.
	if s.ownsProfile(player) {
		s.broadcastPlayerListRemove(player)
	}
	s.removePlayer(player)
	if !player.Vanished() {
		s.broadcastChat(chat.Colored(player.Username+" left the game", "yellow"))
		s.broadcastDestroyEntity(player.EntityID)
	}
	log.Info().Str("player", player.Username).Msg("player disconnected")
}

// kickPlayer sends a Disconnect packet and closes the connection. The play
// loop of that player then runs the usual disconnect cleanup.
func (s *Server) kickPlayer(player *Player, reason string) {
	pkt := protocol.MarshalPacket(0x40, func(w *bytes.Buffer) {
		protocol.WriteString(w, chat.Text(reason).String())
	})
	player.writePacket(pkt)
	if player.Conn != nil {
		player.Conn.Close()
	}
	log.Info().Str("player", player.Username).Str("reason", reason).Msg("player kicked")
}

func (s *Server) keepAliveLoop(player *Player, stop chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			keepAliveID := rand.Int31()
			pkt := protocol.MarshalPacket(0x00, func(w *bytes.Buffer) {
				protocol.WriteVarInt(w, keepAliveID)
			})
			if err := player.writePacket(pkt); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendSpawnChunks(player *Player) {
	chunkData, primaryBitMask := world.GenerateFlatChunkData()

	for cx := -world.SpawnRadius; cx <= world.SpawnRadius; cx++ {
		for cz := -world.SpawnRadius; cz <= world.SpawnRadius; cz++ {
			pkt := protocol.MarshalPacket(0x21, func(w *bytes.Buffer) {
				protocol.WriteInt32(w, int32(cx))
				protocol.WriteInt32(w, int32(cz))
				protocol.WriteBool(w, true) // Ground-up continuous
				protocol.WriteUint16(w, primaryBitMask)
				protocol.WriteVarInt(w, int32(len(chunkData)))
				w.Write(chunkData)
			})
			player.writePacket(pkt)
		}
	}
}

// offlineUUID derives the offline-mode profile id: an MD5 name-based (v3)
// UUID of "OfflinePlayer:" + username.
func offlineUUID(username string) uuid.UUID {
	id := uuid.UUID(md5.Sum([]byte("OfflinePlayer:" + username)))
	id[6] = (id[6] & 0x0F) | 0x30
	id[8] = (id[8] & 0x3F) | 0x80
	return id
}
