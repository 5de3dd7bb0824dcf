package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      *Request
		wantLine string
		wantErr  error
	}{
		{
			name:     "command without args",
			req:      NewRequest(1, CommandStop),
			wantLine: `{"request_id":1,"command":["stop"]}` + "\n",
		},
		{
			name:     "command with args",
			req:      NewRequest(7, CommandGetProperty, "pause"),
			wantLine: `{"request_id":7,"command":["get_property","pause"]}` + "\n",
		},
		{
			name:     "mixed argument types",
			req:      NewRequest(3, CommandObserveProperty, int64(2), "volume"),
			wantLine: `{"request_id":3,"command":["observe_property",2,"volume"]}` + "\n",
		},
		{
			name:    "empty command",
			req:     &Request{RequestID: 1},
			wantErr: ErrEmptyCommand,
		},
		{
			name:    "non-string command name",
			req:     &Request{RequestID: 1, Command: []any{42}},
			wantErr: ErrEmptyCommand,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := EncodeRequest(tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLine, string(line))
		})
	}
}

func TestDecodeMessageResponse(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"request_id":1,"data":false,"error":"success"}`))
	require.NoError(t, err)

	require.NotNil(t, msg.Response)
	assert.Nil(t, msg.Event)
	assert.Equal(t, int64(1), msg.RequestID)
	assert.Equal(t, false, msg.Response.Data)
	assert.True(t, msg.Response.OK())
}

func TestDecodeMessageResponseError(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"request_id":4,"error":"property not found"}`))
	require.NoError(t, err)

	require.NotNil(t, msg.Response)
	assert.Equal(t, int64(4), msg.RequestID)
	assert.False(t, msg.Response.OK())
	assert.Nil(t, msg.Response.Data)
}

func TestDecodeMessageEvent(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"event":"property-change","id":1,"name":"volume","data":50}`))
	require.NoError(t, err)

	require.NotNil(t, msg.Event)
	assert.Nil(t, msg.Response)
	assert.Equal(t, EventPropertyChange, msg.Event.Name)

	id, name, data, ok := msg.Event.PropertyChange()
	require.True(t, ok)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "volume", name)
	assert.Equal(t, float64(50), data)
}

func TestDecodeMessageEventStripsEventField(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"event":"end-file","reason":"eof"}`))
	require.NoError(t, err)

	require.NotNil(t, msg.Event)
	assert.Equal(t, "end-file", msg.Event.Name)
	assert.Equal(t, map[string]any{"reason": "eof"}, msg.Event.Params)
	assert.NotContains(t, msg.Event.Params, "event")
}

func TestDecodeMessagePropertyChangeWithoutData(t *testing.T) {
	// mpv omits data when the property currently has no value.
	msg, err := DecodeMessage([]byte(`{"event":"property-change","id":3,"name":"duration"}`))
	require.NoError(t, err)

	id, name, data, ok := msg.Event.PropertyChange()
	require.True(t, ok)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, "duration", name)
	assert.Nil(t, data)
}

func TestDecodeMessageMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", "this is not json"},
		{"truncated object", `{"request_id":1`},
		{"non-object", `[1,2,3]`},
		{"bare number", `5`},
		{"string request_id", `{"request_id":"one"}`},
		{"numeric event name", `{"event":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMessage([]byte(tt.line))
			assert.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestDecodeMessageNeitherShape(t *testing.T) {
	// Valid JSON object without request_id or event: decodes to an empty
	// message that the reader drops.
	msg, err := DecodeMessage([]byte(`{"something":"else"}`))
	require.NoError(t, err)
	assert.Nil(t, msg.Response)
	assert.Nil(t, msg.Event)
}

func TestPropertyChangeOnOtherEvent(t *testing.T) {
	ev := &Event{Name: "end-file", Params: map[string]any{"id": float64(1)}}
	_, _, _, ok := ev.PropertyChange()
	assert.False(t, ok)
}

func TestResponseOK(t *testing.T) {
	assert.True(t, (&Response{Error: StatusSuccess}).OK())
	assert.True(t, (&Response{}).OK())
	assert.False(t, (&Response{Error: "invalid parameter"}).OK())
}

func TestAsInt64JSONNumber(t *testing.T) {
	id, ok := asInt64(json.Number("12"))
	require.True(t, ok)
	assert.Equal(t, int64(12), id)
}
