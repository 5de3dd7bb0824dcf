package protocol

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

// TestRequestRoundTrip tests that any encoded request decodes back as a
// response-shaped message would on the mpv side: same id, same command line.
func TestRequestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.Int64Range(1, 1<<40).Draw(t, "id")
		name := rapid.StringMatching(`[a-z][a-z-]{0,20}`).Draw(t, "name")
		argCount := rapid.IntRange(0, 4).Draw(t, "argCount")

		args := make([]any, argCount)
		for i := range args {
			switch rapid.IntRange(0, 2).Draw(t, "argKind") {
			case 0:
				args[i] = rapid.String().Draw(t, "strArg")
			case 1:
				args[i] = rapid.Float64Range(-1e6, 1e6).Draw(t, "numArg")
			default:
				args[i] = rapid.Bool().Draw(t, "boolArg")
			}
		}

		line, err := EncodeRequest(NewRequest(id, name, args...))
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		// Exactly one line, newline-terminated.
		if line[len(line)-1] != '\n' {
			t.Fatalf("missing trailing newline")
		}
		if bytes.IndexByte(line[:len(line)-1], '\n') != -1 {
			t.Fatalf("embedded newline in encoded request")
		}

		// The request decodes as a message carrying the same request id.
		msg, err := DecodeMessage(line)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if msg.RequestID != id {
			t.Fatalf("request id mismatch: got %d, want %d", msg.RequestID, id)
		}
	})
}
