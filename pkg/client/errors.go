package client

import "errors"

var (
	// ErrConnectionFailed means the transport could not be established.
	// Callers that want the connection should retry with backoff.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNotConnected means an operation was attempted with no live
	// transport. It is surfaced immediately and never retried internally.
	ErrNotConnected = errors.New("not connected")

	// ErrDisconnected means the transport broke during or after a request.
	ErrDisconnected = errors.New("disconnected")
)
