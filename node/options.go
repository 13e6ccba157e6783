package node

import (
	"log/slog"
	"time"

	"github.com/luca-patrignani/hangouts/replica"
)

const defaultHandshakeTimeout = 10 * time.Second

type settings struct {
	handshakeTimeout time.Duration
	onChange         func(replica.State)
	logger           *slog.Logger
}

type Option func(settings) settings

// WithHandshakeTimeout bounds the delivery of each directed action, so a
// newcomer is not left waiting on a player that never answers.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s settings) settings {
		s.handshakeTimeout = d
		return s
	}
}

// WithStateHook calls hook with the replica after every processed action.
// It runs on the work loop and must not block.
func WithStateHook(hook func(replica.State)) Option {
	return func(s settings) settings {
		s.onChange = hook
		return s
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s settings) settings {
		s.logger = l
		return s
	}
}
