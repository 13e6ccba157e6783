package propagation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luca-patrignani/hangouts/domain/action"
	"github.com/luca-patrignani/hangouts/domain/board"
	"github.com/luca-patrignani/hangouts/replica"
)

var ErrUnknownSender = errors.New("sender is not part of the registry")

// Delivery describes one envelope handed to one replica.
type Delivery struct {
	From     board.PlayerID
	To       board.PlayerID
	Envelope action.Envelope
	Secured  bool
}

type Engine struct {
	receiver Receiver
	hook     func(Delivery)
	logger   *slog.Logger
}

func New(opts ...Option) Engine {
	e := Engine{
		receiver: gate{},
		hook:     func(Delivery) {},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		e = opt(e)
	}
	return e
}

// pending is an action waiting to be signed by from and delivered.
type pending struct {
	from   board.PlayerID
	action action.Action
}

// fifo is the single-goroutine work queue of a dispatch run.
type fifo struct {
	items []pending
	head  int
}

func (q *fifo) push(p pending) { q.items = append(q.items, p) }

func (q *fifo) pop() (pending, bool) {
	if q.head == len(q.items) {
		return pending{}, false
	}
	p := q.items[q.head]
	q.items[q.head] = pending{}
	q.head++
	if q.head == len(q.items) {
		q.items, q.head = q.items[:0], 0
	}
	return p, true
}

// Dispatch signs a as origin and propagates it, and everything it causes,
// through r. It returns the registry reached when no derived action is left.
// If ctx ends first the registry reached so far is returned with ctx.Err().
func (e Engine) Dispatch(ctx context.Context, origin board.PlayerID, a action.Action, r replica.Registry) (replica.Registry, error) {
	return e.run(ctx, origin, a, r, true)
}

// DispatchUnsecured is Dispatch with signature checks disabled for the whole
// run. It bootstraps a newcomer's Join and the Handshakes answering it.
func (e Engine) DispatchUnsecured(ctx context.Context, origin board.PlayerID, a action.Action, r replica.Registry) (replica.Registry, error) {
	return e.run(ctx, origin, a, r, false)
}

func (e Engine) run(ctx context.Context, origin board.PlayerID, a action.Action, r replica.Registry, secured bool) (replica.Registry, error) {
	if _, ok := r.Get(origin); !ok {
		return r, fmt.Errorf("%w: player %d", ErrUnknownSender, origin)
	}
	q := &fifo{}
	q.push(pending{from: origin, action: a})
	steps := 0
	for {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("dispatch interrupted", "steps", steps, "error", err)
			return r, err
		}
		p, ok := q.pop()
		if !ok {
			break
		}
		steps++
		// the sender is read from the current registry so derived actions
		// are signed by the replica that emitted them, as it is now
		sender, ok := r.Get(p.from)
		if !ok {
			return r, fmt.Errorf("%w: player %d", ErrUnknownSender, p.from)
		}
		env, err := action.Seal(sender, p.action)
		if err != nil {
			return r, fmt.Errorf("dispatch %s: %w", p.action.Type(), err)
		}
		for _, to := range e.targets(r, p.action) {
			target, _ := r.Get(to)
			var derived []action.Action
			if secured {
				target, derived = e.receiver.Receive(target, env)
			} else {
				target, derived = e.receiver.ReceiveUnsecured(target, env.Action())
			}
			if r, err = r.Replace(target); err != nil {
				return r, err
			}
			e.hook(Delivery{From: p.from, To: to, Envelope: env, Secured: secured})
			for _, d := range derived {
				q.push(pending{from: to, action: d})
			}
		}
	}
	e.logger.Debug("dispatch settled", "origin", int(origin), "type", string(a.Type()), "steps", steps)
	return r, nil
}

// targets lists the addressees of a in registry order.
func (e Engine) targets(r replica.Registry, a action.Action) []board.PlayerID {
	to, directed := a.Recipient()
	if !directed {
		return r.IDs()
	}
	if _, ok := r.Get(to); !ok {
		e.logger.Debug("recipient not in registry", "type", string(a.Type()), "to", int(to))
		return nil
	}
	return []board.PlayerID{to}
}
