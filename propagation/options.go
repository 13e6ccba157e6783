package propagation

import "log/slog"

type Option func(Engine) Engine

// WithReceiver replaces the verification gate. Used to drive the engine with
// action sets other than the game's own.
func WithReceiver(r Receiver) Option {
	return func(e Engine) Engine {
		e.receiver = r
		return e
	}
}

// WithDeliveryHook calls hook after every delivery.
func WithDeliveryHook(hook func(Delivery)) Option {
	return func(e Engine) Engine {
		e.hook = hook
		return e
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e Engine) Engine {
		e.logger = l
		return e
	}
}
