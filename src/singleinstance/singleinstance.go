// Package singleinstance lets one resident process own a loopback port and
// lets CLI invocations hand their requests to it.
//
// Wire format: the client sends one JSON request line, then for progress
// requests one JSON update per line until it half-closes. The resident answers
// "SUCCESS\n" followed by a JSON body, or "ERROR\n" followed by a message.
// A bare "PING\n" line is answered with "PONG\n" and is used for discovery.
package singleinstance

import (
	"context"

	"notify-shell/src/messages"
)

// Server is the resident side.
type Server interface {
	Start(ctx context.Context) error
	// Port is 0 until Start succeeds.
	Port() int
	Next(ctx context.Context) (Conn, error)
	Close() error
}

// Conn is one accepted, already validated request.
type Conn interface {
	Request() messages.Request
	// NextUpdate returns io.EOF once the client has sent its last update.
	NextUpdate(ctx context.Context) (messages.Update, error)
	RespondSuccess(body []byte) error
	RespondError(msg string) error
	Close() error
}

// Client is the CLI side. TryDelegate returns delegated=false with a nil
// error when no resident answers; updates, when non-nil, are streamed until
// the channel closes.
type Client interface {
	TryDelegate(ctx context.Context, req messages.Request, updates <-chan messages.Update) (delegated bool, body []byte, err error)
}

func NewServer() Server { return newTcpServer() }

func NewClient() Client { return newTcpClient() }
