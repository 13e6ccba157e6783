package replica

import (
	"fmt"
	"log/slog"

	"github.com/luca-patrignani/hangouts/domain/board"
	"github.com/luca-patrignani/hangouts/signing"
)

// KeyPolicy decides what happens when a player announces a key that differs
// from the one already recorded for it.
type KeyPolicy int

const (
	// KeepFirst ignores the new key. A Join is still answered.
	KeepFirst KeyPolicy = iota
	// Overwrite replaces the recorded key.
	Overwrite
	// RejectConflicting drops the whole action as suspicious.
	RejectConflicting
)

func (p KeyPolicy) String() string {
	switch p {
	case KeepFirst:
		return "keep-first"
	case Overwrite:
		return "overwrite"
	case RejectConflicting:
		return "reject"
	default:
		return fmt.Sprintf("KeyPolicy(%d)", int(p))
	}
}

// ParseKeyPolicy converts the textual form used in configuration.
func ParseKeyPolicy(s string) (KeyPolicy, error) {
	switch s {
	case "keep-first", "":
		return KeepFirst, nil
	case "overwrite":
		return Overwrite, nil
	case "reject":
		return RejectConflicting, nil
	default:
		return KeepFirst, fmt.Errorf("unknown key policy %q", s)
	}
}

// settings is shared by every State derived from the same New call and is
// never modified afterwards.
type settings struct {
	provider  signing.Provider
	handle    signing.Handle
	width     int
	height    int
	keyPolicy KeyPolicy
	observer  Observer
	logger    *slog.Logger
}

type Option func(settings) settings

// WithBoardSize sets the board dimensions. The default is 16x16.
func WithBoardSize(width, height int) Option {
	return func(s settings) settings {
		s.width = width
		s.height = height
		return s
	}
}

func WithKeyPolicy(p KeyPolicy) Option {
	return func(s settings) settings {
		s.keyPolicy = p
		return s
	}
}

// WithObserver reports accepted and rejected actions to o.
func WithObserver(o Observer) Option {
	return func(s settings) settings {
		s.observer = o
		return s
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s settings) settings {
		s.logger = l
		return s
	}
}

// WithHandle uses an existing identity instead of generating one.
func WithHandle(h signing.Handle) Option {
	return func(s settings) settings {
		s.handle = h
		return s
	}
}

func defaultSettings(provider signing.Provider) settings {
	return settings{
		provider:  provider,
		width:     board.DefaultSize,
		height:    board.DefaultSize,
		keyPolicy: KeepFirst,
		observer:  nopObserver{},
		logger:    slog.Default(),
	}
}
