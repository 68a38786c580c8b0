package anthropic

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one parsed server-sent event from the messages stream.
type sseEvent struct {
	name string
	data string
}

// sseScanner walks an SSE response body event by event, so deltas can be
// forwarded as they arrive. Scan/Event/Err follow the bufio.Scanner shape.
type sseScanner struct {
	lines *bufio.Scanner
	cur   sseEvent
	err   error
	eof   bool
}

func newSSEScanner(r io.Reader) *sseScanner {
	return &sseScanner{lines: bufio.NewScanner(r)}
}

// Next reads lines until a complete event is assembled. It returns false at
// end of stream or on a read error; check Err afterwards.
func (s *sseScanner) Next() bool {
	if s.eof {
		return false
	}

	var name string
	var data []string

	flush := func() bool {
		if name == "" && data == nil {
			return false
		}
		s.cur = sseEvent{name: name, data: strings.Join(data, "\n")}
		return true
	}

	for s.lines.Scan() {
		line := s.lines.Text()
		switch {
		case line == "":
			// Blank line terminates the pending event, if any.
			if flush() {
				return true
			}
		case strings.HasPrefix(line, ":"):
			// Comment, used by the API as a keep-alive.
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(line[len("data:"):]))
		}
	}

	s.err = s.lines.Err()
	s.eof = true

	// A final event may arrive without its terminating blank line.
	return flush()
}

// Event returns the event assembled by the last successful Next.
func (s *sseScanner) Event() sseEvent {
	return s.cur
}

// Err reports the first read error, nil on clean end of stream.
func (s *sseScanner) Err() error {
	return s.err
}
