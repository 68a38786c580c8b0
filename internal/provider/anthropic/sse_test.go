package anthropic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEScannerBasicEvents(t *testing.T) {
	input := `event: content_block_delta
data: {"a":1}

event: message_stop
data: {}

`
	s := newSSEScanner(strings.NewReader(input))

	require.True(t, s.Next())
	assert.Equal(t, "content_block_delta", s.Event().name)
	assert.Equal(t, `{"a":1}`, s.Event().data)

	require.True(t, s.Next())
	assert.Equal(t, "message_stop", s.Event().name)

	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func TestSSEScannerMultilineData(t *testing.T) {
	input := "data: line1\ndata: line2\n\n"
	s := newSSEScanner(strings.NewReader(input))

	require.True(t, s.Next())
	assert.Equal(t, "line1\nline2", s.Event().data)
}

func TestSSEScannerSkipsComments(t *testing.T) {
	input := ": keep-alive\nevent: stop\ndata: {}\n\n"
	s := newSSEScanner(strings.NewReader(input))

	require.True(t, s.Next())
	assert.Equal(t, "stop", s.Event().name)
}

func TestSSEScannerNoTrailingNewline(t *testing.T) {
	input := "event: stop\ndata: {}"
	s := newSSEScanner(strings.NewReader(input))

	require.True(t, s.Next())
	assert.Equal(t, "stop", s.Event().name)
	assert.False(t, s.Next())
}
