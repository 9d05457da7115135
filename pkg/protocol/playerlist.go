package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/StoreStation/EssentialsCraft/pkg/chat"
)

// PacketPlayerListItem is the clientbound Player List Item packet id.
const PacketPlayerListItem int32 = 0x38

// PlayerListAction tags what a Player List Item packet does to each entry.
type PlayerListAction int32

// Player list actions, numbered as on the 1.8 wire.
const (
	ActionAddPlayer PlayerListAction = iota
	ActionUpdateGameMode
	ActionUpdateLatency
	ActionUpdateDisplayName
	ActionRemovePlayer
)

func (a PlayerListAction) String() string {
	switch a {
	case ActionAddPlayer:
		return "add_player"
	case ActionUpdateGameMode:
		return "update_game_mode"
	case ActionUpdateLatency:
		return "update_latency"
	case ActionUpdateDisplayName:
		return "update_display_name"
	case ActionRemovePlayer:
		return "remove_player"
	default:
		return fmt.Sprintf("unknown(%d)", int32(a))
	}
}

// ProfileProperty is a signed game profile property such as a skin texture.
type ProfileProperty struct {
	Name      string
	Value     string
	Signature string
}

// PlayerListEntry is one player's record in a Player List Item packet.
// Only the fields used by the packet's action are written.
type PlayerListEntry struct {
	ProfileID   uuid.UUID
	Name        string
	Properties  []ProfileProperty
	GameMode    int32
	Latency     int32
	DisplayName *chat.Message
}

// PlayerListItem updates a client's tab list. Entries belong to the packet
// until it is encoded, so pre-send hooks may rewrite them in place.
type PlayerListItem struct {
	Action  PlayerListAction
	Entries []PlayerListEntry
}

// PacketID implements Message.
func (p *PlayerListItem) PacketID() int32 {
	return PacketPlayerListItem
}

// Encode writes the packet payload.
func (p *PlayerListItem) Encode(w *bytes.Buffer) error {
	if p.Action < ActionAddPlayer || p.Action > ActionRemovePlayer {
		return fmt.Errorf("player list: invalid action %d", int32(p.Action))
	}
	WriteVarInt(w, int32(p.Action))
	WriteVarInt(w, int32(len(p.Entries)))
	for _, e := range p.Entries {
		WriteUUID(w, e.ProfileID)
		switch p.Action {
		case ActionAddPlayer:
			WriteString(w, e.Name)
			WriteVarInt(w, int32(len(e.Properties)))
			for _, prop := range e.Properties {
				WriteString(w, prop.Name)
				WriteString(w, prop.Value)
				WriteBool(w, prop.Signature != "")
				if prop.Signature != "" {
					WriteString(w, prop.Signature)
				}
			}
			WriteVarInt(w, e.GameMode)
			WriteVarInt(w, e.Latency)
			writeDisplayName(w, e.DisplayName)
		case ActionUpdateGameMode:
			WriteVarInt(w, e.GameMode)
		case ActionUpdateLatency:
			WriteVarInt(w, e.Latency)
		case ActionUpdateDisplayName:
			writeDisplayName(w, e.DisplayName)
		case ActionRemovePlayer:
		}
	}
	return nil
}

func writeDisplayName(w *bytes.Buffer, name *chat.Message) {
	WriteBool(w, name != nil)
	if name != nil {
		WriteString(w, name.String())
	}
}

// DecodePlayerListItem parses a Player List Item payload.
func DecodePlayerListItem(r io.Reader) (*PlayerListItem, error) {
	action, _, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("player list action: %w", err)
	}
	p := &PlayerListItem{Action: PlayerListAction(action)}
	if p.Action < ActionAddPlayer || p.Action > ActionRemovePlayer {
		return nil, fmt.Errorf("player list: invalid action %d", action)
	}

	count, _, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("player list count: %w", err)
	}
	if count < 0 {
		return nil, fmt.Errorf("player list: negative entry count %d", count)
	}

	p.Entries = make([]PlayerListEntry, 0, min(int(count), 64))
	for i := int32(0); i < count; i++ {
		e, err := decodeEntry(r, p.Action)
		if err != nil {
			return nil, fmt.Errorf("player list entry %d: %w", i, err)
		}
		p.Entries = append(p.Entries, e)
	}
	return p, nil
}

func decodeEntry(r io.Reader, action PlayerListAction) (PlayerListEntry, error) {
	var e PlayerListEntry
	var err error
	if e.ProfileID, err = ReadUUID(r); err != nil {
		return e, err
	}

	switch action {
	case ActionAddPlayer:
		if e.Name, err = ReadString(r); err != nil {
			return e, err
		}
		n, _, err := ReadVarInt(r)
		if err != nil {
			return e, err
		}
		for j := int32(0); j < n; j++ {
			var prop ProfileProperty
			if prop.Name, err = ReadString(r); err != nil {
				return e, err
			}
			if prop.Value, err = ReadString(r); err != nil {
				return e, err
			}
			signed, err := ReadBool(r)
			if err != nil {
				return e, err
			}
			if signed {
				if prop.Signature, err = ReadString(r); err != nil {
					return e, err
				}
			}
			e.Properties = append(e.Properties, prop)
		}
		if e.GameMode, _, err = ReadVarInt(r); err != nil {
			return e, err
		}
		if e.Latency, _, err = ReadVarInt(r); err != nil {
			return e, err
		}
		e.DisplayName, err = readDisplayName(r)
	case ActionUpdateGameMode:
		e.GameMode, _, err = ReadVarInt(r)
	case ActionUpdateLatency:
		e.Latency, _, err = ReadVarInt(r)
	case ActionUpdateDisplayName:
		e.DisplayName, err = readDisplayName(r)
	}
	return e, err
}

func readDisplayName(r io.Reader) (*chat.Message, error) {
	has, err := ReadBool(r)
	if err != nil || !has {
		return nil, err
	}
	raw, err := ReadString(r)
	if err != nil {
		return nil, err
	}
	msg, err := chat.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("display name: %w", err)
	}
	return &msg, nil
}
