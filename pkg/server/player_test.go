package server

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StoreStation/EssentialsCraft/pkg/chat"
	"github.com/StoreStation/EssentialsCraft/pkg/protocol"
)

func TestStalledClientDoesNotBlockWriters(t *testing.T) {
	prevTimeout, prevHook, prevWrite := deadlock.Opts.DeadlockTimeout, deadlock.Opts.OnPotentialDeadlock, writeTimeout
	t.Cleanup(func() {
		deadlock.Opts.DeadlockTimeout = prevTimeout
		deadlock.Opts.OnPotentialDeadlock = prevHook
		writeTimeout = prevWrite
	})

	var reported atomic.Bool
	deadlock.Opts.DeadlockTimeout = 300 * time.Millisecond
	deadlock.Opts.OnPotentialDeadlock = func() { reported.Store(true) }
	writeTimeout = 50 * time.Millisecond

	s := New(DefaultConfig())
	serverEnd, clientEnd := net.Pipe()
	defer clientEnd.Close()
	// Nobody reads clientEnd.
	p := &Player{EntityID: 1, Username: "Stalled", UUID: offlineUUID("Stalled"), Conn: serverEnd}
	s.addPlayer(p)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.sendChatToPlayer(p, chat.Text("hello"))
	}()
	go func() {
		defer wg.Done()
		s.broadcastChat(chat.Text("everyone"))
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writers still blocked on a stalled client")
	}

	assert.False(t, reported.Load(), "lock wait reported as a deadlock")

	// The timed out write closed the connection.
	err := p.writePacket(chatPacket(chat.Text("late")))
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	// Position readers never wait on the writer.
	x, _, _, _, _, _ := p.position()
	assert.Zero(t, x)
}

func TestDuplicateLoginReplacesSession(t *testing.T) {
	s := New(DefaultConfig())
	first, firstConn := addTestPlayer(s, "Alice")
	_, carolConn := addTestPlayer(s, "Carol")

	second := &Player{EntityID: 99, Username: "Alice", UUID: offlineUUID("Alice"), Conn: &recordConn{}}
	old := s.addPlayer(second)
	require.Same(t, first, old)

	s.kickPlayer(old, "You logged in from another location")
	assert.True(t, firstConn.closed)
	assert.Len(t, filterPackets(firstConn.packets(t), 0x40), 1)

	// The old session's cleanup must not remove the shared profile id.
	s.disconnectPlayer(first)
	assert.Empty(t, decodePlayerLists(t, carolConn.packets(t)))
	state, ok := s.LookupPlayer(second.UUID)
	require.True(t, ok)
	assert.Same(t, second, state)

	s.disconnectPlayer(second)
	lists := decodePlayerLists(t, carolConn.packets(t))
	require.Len(t, lists, 1)
	assert.Equal(t, protocol.ActionRemovePlayer, lists[0].Action)
	_, ok = s.LookupPlayer(second.UUID)
	assert.False(t, ok)
}
