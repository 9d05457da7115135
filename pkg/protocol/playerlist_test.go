package protocol

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StoreStation/EssentialsCraft/pkg/chat"
)

func encodePlayerList(t *testing.T, p *PlayerListItem) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))
	return buf.Bytes()
}

func TestPlayerListRemoveLayout(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	data := encodePlayerList(t, &PlayerListItem{
		Action:  ActionRemovePlayer,
		Entries: []PlayerListEntry{{ProfileID: id, Name: "ignored"}},
	})

	// action, count, uuid; nothing else for removals
	want := append([]byte{0x04, 0x01}, id[:]...)
	assert.Equal(t, want, data)
}

func TestPlayerListAddLayout(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	data := encodePlayerList(t, &PlayerListItem{
		Action: ActionAddPlayer,
		Entries: []PlayerListEntry{{
			ProfileID: id,
			Name:      "Steve",
			GameMode:  1,
			Latency:   20,
		}},
	})

	var want bytes.Buffer
	WriteVarInt(&want, 0)
	WriteVarInt(&want, 1)
	WriteUUID(&want, id)
	WriteString(&want, "Steve")
	WriteVarInt(&want, 0) // properties
	WriteVarInt(&want, 1)
	WriteVarInt(&want, 20)
	WriteBool(&want, false)
	assert.Equal(t, want.Bytes(), data)
}

func TestPlayerListDecodeAllActions(t *testing.T) {
	name := chat.Colored("Alex", "gold")
	tests := []struct {
		name string
		pkt  *PlayerListItem
	}{
		{"add", &PlayerListItem{Action: ActionAddPlayer, Entries: []PlayerListEntry{{
			ProfileID:   uuid.New(),
			Name:        "Alex",
			Properties:  []ProfileProperty{{Name: "textures", Value: "e30=", Signature: "sig"}},
			GameMode:    3,
			Latency:     150,
			DisplayName: &name,
		}}}},
		{"game mode", &PlayerListItem{Action: ActionUpdateGameMode, Entries: []PlayerListEntry{
			{ProfileID: uuid.New(), GameMode: 2},
			{ProfileID: uuid.New(), GameMode: 0},
		}}},
		{"latency", &PlayerListItem{Action: ActionUpdateLatency, Entries: []PlayerListEntry{
			{ProfileID: uuid.New(), Latency: 42},
		}}},
		{"display name", &PlayerListItem{Action: ActionUpdateDisplayName, Entries: []PlayerListEntry{
			{ProfileID: uuid.New(), DisplayName: &name},
			{ProfileID: uuid.New()},
		}}},
		{"remove", &PlayerListItem{Action: ActionRemovePlayer, Entries: []PlayerListEntry{
			{ProfileID: uuid.New()},
		}}},
		{"empty", &PlayerListItem{Action: ActionUpdateLatency, Entries: []PlayerListEntry{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodePlayerList(t, tt.pkt)
			got, err := DecodePlayerListItem(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, tt.pkt, got)
		})
	}
}

func TestPlayerListInvalidAction(t *testing.T) {
	var buf bytes.Buffer
	err := (&PlayerListItem{Action: 9}).Encode(&buf)
	assert.Error(t, err)

	WriteVarInt(&buf, 7)
	WriteVarInt(&buf, 0)
	_, err = DecodePlayerListItem(&buf)
	assert.Error(t, err)
}

func TestPlayerListTruncated(t *testing.T) {
	var buf bytes.Buffer
	WriteVarInt(&buf, int32(ActionUpdateLatency))
	WriteVarInt(&buf, 2)
	WriteUUID(&buf, uuid.New())
	WriteVarInt(&buf, 5)

	_, err := DecodePlayerListItem(&buf)
	assert.Error(t, err)
}

func TestEncodeMessage(t *testing.T) {
	pkt, err := EncodeMessage(&PlayerListItem{Action: ActionRemovePlayer})
	require.NoError(t, err)
	assert.Equal(t, PacketPlayerListItem, pkt.ID)
	assert.Equal(t, []byte{0x04, 0x00}, pkt.Data)

	_, err = EncodeMessage(&PlayerListItem{Action: -1})
	assert.Error(t, err)
}
