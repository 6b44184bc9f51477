package sse

import "strings"

// Event names written by the bridge.
const (
	EventEndpoint = "endpoint"
	EventMessage  = "message"
)

// FormatEvent renders one SSE frame: an event line, one data line per input
// line, and a terminating blank line. An empty payload still produces a
// single empty data line.
func FormatEvent(name, data string) string {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(name)
	b.WriteByte('\n')

	if data == "" {
		b.WriteString("data:\n")
	} else {
		for _, line := range splitLines(data) {
			b.WriteString("data: ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	b.WriteByte('\n')
	return b.String()
}

// FormatMessage renders a "message" frame.
func FormatMessage(data string) string {
	return FormatEvent(EventMessage, data)
}

// splitLines splits on \n, drops one trailing empty line and strips a
// trailing \r from each line.
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
