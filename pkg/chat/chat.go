// Package chat models the JSON text components used in chat and tab list
// display names.
package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message represents a Minecraft JSON chat message.
type Message struct {
	Text          string    `json:"text"`
	Bold          bool      `json:"bold,omitempty"`
	Italic        bool      `json:"italic,omitempty"`
	Underlined    bool      `json:"underlined,omitempty"`
	Strikethrough bool      `json:"strikethrough,omitempty"`
	Obfuscated    bool      `json:"obfuscated,omitempty"`
	Color         string    `json:"color,omitempty"`
	Extra         []Message `json:"extra,omitempty"`
}

// String serializes the message to JSON.
func (m Message) String() string {
	b, _ := json.Marshal(m)
	return string(b)
}

// Plain flattens the message and its extras into unformatted text.
func (m Message) Plain() string {
	var sb strings.Builder
	m.writePlain(&sb)
	return sb.String()
}

func (m Message) writePlain(sb *strings.Builder) {
	sb.WriteString(m.Text)
	for _, e := range m.Extra {
		e.writePlain(sb)
	}
}

// Parse decodes a JSON component. A bare JSON string is accepted as plain text.
func Parse(raw string) (Message, error) {
	var msg Message
	if strings.HasPrefix(strings.TrimSpace(raw), `"`) {
		var text string
		if err := json.Unmarshal([]byte(raw), &text); err != nil {
			return msg, fmt.Errorf("chat: %w", err)
		}
		return Text(text), nil
	}
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return msg, fmt.Errorf("chat: %w", err)
	}
	return msg, nil
}

// Text creates a simple text message.
func Text(text string) Message {
	return Message{Text: text}
}

// Colored creates a colored text message.
func Colored(text, color string) Message {
	return Message{Text: text, Color: color}
}
