package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"

	"github.com/StoreStation/EssentialsCraft/pkg/protocol"
	"github.com/StoreStation/EssentialsCraft/pkg/store"
	"github.com/StoreStation/EssentialsCraft/pkg/vanish"
)

// Config holds server configuration.
type Config struct {
	Address         string
	MaxPlayers      int
	MOTD            string
	DefaultGameMode byte
	// MissingPlayer decides how the vanish filter treats tab list entries
	// whose player is no longer connected.
	MissingPlayer vanish.MissingPolicy
}

// DefaultConfig returns a default server configuration.
func DefaultConfig() Config {
	return Config{
		Address:         ":25565",
		MaxPlayers:      20,
		MOTD:            "An Essentials Server",
		DefaultGameMode: GameModeSurvival,
		MissingPlayer:   vanish.MissingVisible,
	}
}

// Server represents a Minecraft 1.8 server.
type Server struct {
	config    Config
	listener  net.Listener
	players   map[int32]*Player
	byProfile map[uuid.UUID]*Player
	mu        deadlock.RWMutex
	nextEID   int32
	stopCh    chan struct{}
	stopOnce  sync.Once

	hooks  hookChain
	vanish *vanish.Filter
	store  store.VanishStore
}

// Option customizes a Server.
type Option func(*Server)

// WithVanishStore persists vanish state in st instead of memory.
func WithVanishStore(st store.VanishStore) Option {
	return func(s *Server) { s.store = st }
}

// New creates a new server with the given configuration. The vanish filter
// is registered as a pre-send hook for Player List Item packets.
func New(config Config, opts ...Option) *Server {
	s := &Server{
		config:    config,
		players:   make(map[int32]*Player),
		byProfile: make(map[uuid.UUID]*Player),
		nextEID:   1,
		stopCh:    make(chan struct{}),
		store:     store.NewMemory(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.vanish = vanish.New(s,
		vanish.WithMissingPolicy(config.MissingPlayer),
		vanish.WithLogger(log.With().Str("component", "vanish").Logger()),
	)
	s.RegisterPreSendHook(protocol.PacketPlayerListItem, s.vanish.Hook())
	return s
}

// Start begins listening for connections.
func (s *Server) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}
	log.Info().Str("address", s.listener.Addr().String()).Msg("server listening")

	go s.acceptLoop()
	return nil
}

// Stop gracefully shuts down the server. It is safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.listener != nil {
			s.listener.Close()
		}
		for _, p := range s.onlinePlayers() {
			if p.Conn != nil {
				p.Conn.Close()
			}
		}
	})
}

// StopChan is closed once the server begins shutting down.
func (s *Server) StopChan() <-chan struct{} {
	return s.stopCh
}

// Addr returns the listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				log.Warn().Err(err).Msg("accept failed")
				continue
			}
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	state := protocol.StateHandshaking

	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		pkt, err := protocol.ReadPacket(conn)
		if err != nil {
			return
		}

		switch state {
		case protocol.StateHandshaking:
			if pkt.ID == 0x00 {
				newState, err := s.handleHandshake(pkt)
				if err != nil {
					log.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("bad handshake")
					return
				}
				state = newState
			}
		case protocol.StateStatus:
			switch pkt.ID {
			case 0x00:
				s.handleStatusRequest(conn)
			case 0x01:
				s.handlePing(conn, pkt)
				return
			}
		case protocol.StateLogin:
			if pkt.ID == 0x00 {
				player, err := s.handleLoginStart(conn, pkt)
				if err != nil {
					log.Warn().Err(err).Msg("login failed")
					return
				}
				s.handlePlay(player)
				return
			}
		default:
			return
		}
	}
}

func (s *Server) handleHandshake(pkt *protocol.Packet) (int, error) {
	r := bytes.NewReader(pkt.Data)

	if _, _, err := protocol.ReadVarInt(r); err != nil { // protocol version
		return 0, err
	}
	if _, err := protocol.ReadString(r); err != nil { // server address
		return 0, err
	}
	if _, err := protocol.ReadUint16(r); err != nil { // server port
		return 0, err
	}

	nextState, _, err := protocol.ReadVarInt(r)
	if err != nil {
		return 0, err
	}
	if nextState != protocol.StateStatus && nextState != protocol.StateLogin {
		return 0, fmt.Errorf("invalid next state %d", nextState)
	}
	return int(nextState), nil
}

// statusResponse is the Server List Ping JSON document.
type statusResponse struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int   `json:"max"`
		Online int   `json:"online"`
		Sample []any `json:"sample"`
	} `json:"players"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
}

func (s *Server) handleStatusRequest(conn net.Conn) {
	var resp statusResponse
	resp.Version.Name = "1.8.9"
	resp.Version.Protocol = protocol.ProtocolVersion
	resp.Players.Max = s.config.MaxPlayers
	resp.Players.Online = s.visiblePlayerCount()
	resp.Players.Sample = []any{}
	resp.Description.Text = s.config.MOTD

	jsonResp, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal status response")
		return
	}
	pkt := protocol.MarshalPacket(0x00, func(w *bytes.Buffer) {
		protocol.WriteString(w, string(jsonResp))
	})
	protocol.WritePacket(conn, pkt)
}

func (s *Server) handlePing(conn net.Conn, pkt *protocol.Packet) {
	r := bytes.NewReader(pkt.Data)
	payload, err := protocol.ReadInt64(r)
	if err != nil {
		return
	}

	resp := protocol.MarshalPacket(0x01, func(w *bytes.Buffer) {
		protocol.WriteInt64(w, payload)
	})
	protocol.WritePacket(conn, resp)
}
