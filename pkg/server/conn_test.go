package server

import (
	"bytes"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/StoreStation/EssentialsCraft/pkg/chat"
	"github.com/StoreStation/EssentialsCraft/pkg/protocol"
)

// recordConn captures everything the server writes to a player.
type recordConn struct {
	net.Conn
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (c *recordConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(b)
}

func (c *recordConn) SetWriteDeadline(time.Time) error { return nil }

func (c *recordConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// packets parses and drains the recorded bytes.
func (c *recordConn) packets(t *testing.T) []*protocol.Packet {
	t.Helper()
	c.mu.Lock()
	data := append([]byte(nil), c.buf.Bytes()...)
	c.buf.Reset()
	c.mu.Unlock()

	var out []*protocol.Packet
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		pkt, err := protocol.ReadPacket(r)
		require.NoError(t, err)
		out = append(out, pkt)
	}
	return out
}

func filterPackets(pkts []*protocol.Packet, id int32) []*protocol.Packet {
	var out []*protocol.Packet
	for _, p := range pkts {
		if p.ID == id {
			out = append(out, p)
		}
	}
	return out
}

func decodePlayerLists(t *testing.T, pkts []*protocol.Packet) []*protocol.PlayerListItem {
	t.Helper()
	var out []*protocol.PlayerListItem
	for _, p := range filterPackets(pkts, protocol.PacketPlayerListItem) {
		item, err := protocol.DecodePlayerListItem(bytes.NewReader(p.Data))
		require.NoError(t, err)
		out = append(out, item)
	}
	return out
}

// chatTexts returns the plain text of every chat packet.
func chatTexts(t *testing.T, pkts []*protocol.Packet) []string {
	t.Helper()
	var out []string
	for _, p := range filterPackets(pkts, 0x02) {
		raw, err := protocol.ReadString(bytes.NewReader(p.Data))
		require.NoError(t, err)
		msg, err := chat.Parse(raw)
		require.NoError(t, err)
		out = append(out, msg.Plain())
	}
	return out
}

// addTestPlayer registers a connected player backed by a recordConn.
func addTestPlayer(s *Server, name string) (*Player, *recordConn) {
	conn := &recordConn{}
	s.mu.Lock()
	eid := s.nextEID
	s.nextEID++
	s.mu.Unlock()

	p := &Player{
		EntityID: eid,
		Username: name,
		UUID:     offlineUUID(name),
		Conn:     conn,
		GameMode: GameModeSurvival,
		X:        8,
		Y:        5,
		Z:        8,
	}
	s.addPlayer(p)
	return p, conn
}

func chatCommand(text string) *protocol.Packet {
	return protocol.MarshalPacket(0x01, func(w *bytes.Buffer) {
		protocol.WriteString(w, text)
	})
}
