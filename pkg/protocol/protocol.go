// Package protocol implements the mpv JSON IPC wire format: one JSON object
// per line, newline-terminated, in both directions.
//
// See https://mpv.io/manual/stable/#json-ipc
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrEmptyCommand     = errors.New("command name is empty")
)

// Request is one outbound command. The request id is assigned by the sender
// and correlates the (optional) response; mpv never chooses ids itself.
type Request struct {
	RequestID int64 `json:"request_id"`
	Command   []any `json:"command"`
}

// NewRequest builds a request for the named command.
func NewRequest(requestID int64, command string, args ...any) *Request {
	cmd := make([]any, 0, len(args)+1)
	cmd = append(cmd, command)
	cmd = append(cmd, args...)
	return &Request{RequestID: requestID, Command: cmd}
}

// EncodeRequest returns the complete wire line for a request, including the
// trailing newline. The caller is expected to write the returned slice in a
// single write so concurrent senders cannot interleave partial lines.
func EncodeRequest(req *Request) ([]byte, error) {
	if len(req.Command) == 0 {
		return nil, ErrEmptyCommand
	}
	if name, ok := req.Command[0].(string); !ok || name == "" {
		return nil, ErrEmptyCommand
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return append(data, '\n'), nil
}

// Response is the body of a reply to one request, with the request id
// already stripped off by the decoder.
type Response struct {
	Error string
	Data  any
}

// OK reports whether the response indicates success. mpv replies with the
// literal error string "success" on success.
func (r *Response) OK() bool {
	return r.Error == "" || r.Error == StatusSuccess
}

// Event is an asynchronous message from the player. Params holds every field
// of the original object except "event".
type Event struct {
	Name   string
	Params map[string]any
}

// PropertyChange extracts the subscription id, property name and value from a
// property-change event. ok is false for any other event or when the id or
// name fields are missing. A missing data field is valid and yields nil (the
// property currently has no value).
func (e *Event) PropertyChange() (id int64, name string, data any, ok bool) {
	if e.Name != EventPropertyChange {
		return 0, "", nil, false
	}
	rawID, ok := asInt64(e.Params["id"])
	if !ok {
		return 0, "", nil, false
	}
	propName, ok := e.Params["name"].(string)
	if !ok {
		return 0, "", nil, false
	}
	return rawID, propName, e.Params["data"], true
}

// Message is one decoded inbound line: either a response (Response set,
// RequestID valid) or an event (Event set). Lines that are valid JSON
// objects but neither shape decode into an empty Message; the reader is
// expected to drop those.
type Message struct {
	RequestID int64
	Response  *Response
	Event     *Event
}

// DecodeMessage parses one inbound line (without or with its trailing
// newline). It returns ErrMalformedMessage for anything that is not a JSON
// object.
func DecodeMessage(line []byte) (*Message, error) {
	var fields map[string]any
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if rawID, present := fields["request_id"]; present {
		id, ok := asInt64(rawID)
		if !ok {
			return nil, fmt.Errorf("%w: non-numeric request_id", ErrMalformedMessage)
		}
		resp := &Response{Data: fields["data"]}
		if errStr, ok := fields["error"].(string); ok {
			resp.Error = errStr
		}
		return &Message{RequestID: id, Response: resp}, nil
	}

	if rawEvent, present := fields["event"]; present {
		name, ok := rawEvent.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string event name", ErrMalformedMessage)
		}
		delete(fields, "event")
		return &Message{Event: &Event{Name: name, Params: fields}}, nil
	}

	return &Message{}, nil
}

// asInt64 converts the numeric types encoding/json may produce.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
