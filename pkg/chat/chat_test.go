package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	assert.Equal(t, `{"text":"hi","color":"red"}`, Colored("hi", "red").String())
	assert.Equal(t, `{"text":""}`, Message{}.String())
}

func TestPlain(t *testing.T) {
	msg := Message{
		Extra: []Message{
			Colored("<Alice> ", "white"),
			{Text: "hello", Extra: []Message{Text(" world")}},
		},
	}
	assert.Equal(t, "<Alice> hello world", msg.Plain())
}

func TestParse(t *testing.T) {
	msg, err := Parse(`{"text":"Alice","color":"gold","bold":true}`)
	require.NoError(t, err)
	assert.Equal(t, Message{Text: "Alice", Color: "gold", Bold: true}, msg)

	msg, err = Parse(`"just text"`)
	require.NoError(t, err)
	assert.Equal(t, Text("just text"), msg)

	_, err = Parse(`{"text":`)
	assert.Error(t, err)
}
