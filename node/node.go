package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/luca-patrignani/hangouts/domain/action"
	"github.com/luca-patrignani/hangouts/domain/board"
	"github.com/luca-patrignani/hangouts/network"
	"github.com/luca-patrignani/hangouts/replica"
)

var (
	ErrAlreadyRunning = errors.New("node is already running")
	ErrNotBootstrap   = errors.New("action may not travel unsecured")
	ErrImpersonation  = errors.New("sender does not match rank")
	ErrKeyRecorded    = errors.New("key already recorded")
)

// Transport is the part of network.Peer a node needs.
type Transport interface {
	Send(ctx context.Context, to int, data []byte) error
	Inbox() <-chan network.Message
}

// work is either an action this node must sign and send (origin) or an
// envelope it received.
type work struct {
	origin   bool
	action   action.Action
	envelope action.Envelope
	secured  bool
}

type outgoing struct {
	data     []byte
	kind     action.Type
	directed bool
}

type Node struct {
	settings
	id        board.PlayerID
	transport Transport
	players   []board.PlayerID
	work      *queue[work]
	outboxes  map[board.PlayerID]*queue[outgoing]
	running   atomic.Bool

	mu    sync.RWMutex
	state replica.State
}

// New wraps state into a node that talks to players through transport.
// Transport ranks are player IDs.
func New(state replica.State, transport Transport, players []board.PlayerID, opts ...Option) (*Node, error) {
	cfg := settings{
		handshakeTimeout: defaultHandshakeTimeout,
		onChange:         func(replica.State) {},
	}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	id := state.PlayerID()
	n := &Node{
		settings:  cfg,
		id:        id,
		transport: transport,
		work:      newQueue[work](),
		outboxes:  map[board.PlayerID]*queue[outgoing]{},
		state:     state,
	}
	n.logger = n.logger.With("node", int(id))
	for _, p := range players {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %d", board.ErrInvalidPlayer, p)
		}
		if slices.Contains(n.players, p) {
			return nil, fmt.Errorf("player %d listed twice", p)
		}
		n.players = append(n.players, p)
		if p != id {
			n.outboxes[p] = newQueue[outgoing]()
		}
	}
	if !slices.Contains(n.players, id) {
		n.players = append(n.players, id)
	}
	slices.Sort(n.players)
	return n, nil
}

func (n *Node) ID() board.PlayerID { return n.id }

// State returns the current replica.
func (n *Node) State() replica.State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Dispatch signs a and propagates it to every player, this one included.
func (n *Node) Dispatch(a action.Action) {
	n.work.Push(work{origin: true, action: a, secured: true})
}

// DispatchUnsecured propagates a, and what it causes, without signature
// checks. Only for this node's first Join.
func (n *Node) DispatchUnsecured(a action.Action) {
	n.work.Push(work{origin: true, action: a, secured: false})
}

// Join announces this node's key to every player.
func (n *Node) Join() {
	n.DispatchUnsecured(action.CreateJoin(n.State()))
}

// Move claims (x, y) for this node's player.
func (n *Node) Move(x, y int) {
	n.Dispatch(action.CreateMove(n.State(), x, y))
}

// Pending returns how many actions and outgoing messages wait to be handled.
func (n *Node) Pending() int {
	total := n.work.Len()
	for _, q := range n.outboxes {
		total += q.Len()
	}
	return total
}

// Run processes work until ctx ends. It returns nil when ctx is canceled.
func (n *Node) Run(ctx context.Context) error {
	if !n.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer n.running.Store(false)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.receiveLoop(ctx) })
	g.Go(func() error { return n.workLoop(ctx) })
	for to, q := range n.outboxes {
		g.Go(func() error { return n.sendLoop(ctx, to, q) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (n *Node) receiveLoop(ctx context.Context) error {
	inbox := n.transport.Inbox()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-inbox:
			if !ok {
				return nil
			}
			msg, err := decodeMessage(m.Data)
			if err != nil {
				n.logger.Warn("discarding message", "from", m.From, "id", m.ID, "error", err)
				continue
			}
			if !msg.Secured {
				if err := n.admitUnsecured(m.From, msg.Envelope.Action()); err != nil {
					n.logger.Warn("discarding unsecured action", "from", m.From, "type", string(msg.Envelope.Action().Type()), "error", err)
					continue
				}
			}
			n.work.Push(work{envelope: msg.Envelope, secured: msg.Secured})
		}
	}
}

// admitUnsecured checks an unsecured action received from rank from. Only
// first contact travels unsecured: a Join or Handshake that the sending rank
// makes for itself, addressed to this node, for a player whose key is not
// recorded yet. Repeating the recorded key is allowed.
func (n *Node) admitUnsecured(from int, a action.Action) error {
	key, ok := a.AnnouncedKey()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotBootstrap, a.Type())
	}
	if int(a.Sender()) != from {
		return fmt.Errorf("%w: rank %d claims player %d", ErrImpersonation, from, a.Sender())
	}
	if to, directed := a.Recipient(); directed && to != n.id {
		return fmt.Errorf("%w: addressed to player %d", ErrNotBootstrap, to)
	}
	if recorded, known := n.State().KeyOf(a.Sender()); known && recorded != key {
		return fmt.Errorf("%w: player %d", ErrKeyRecorded, a.Sender())
	}
	return nil
}

func (n *Node) workLoop(ctx context.Context) error {
	for {
		w, err := n.work.Pop(ctx)
		if err != nil {
			return err
		}
		n.process(w)
	}
}

func (n *Node) process(w work) {
	state := n.State()
	if w.origin {
		env, err := action.Seal(state, w.action)
		if err != nil {
			n.logger.Warn("cannot sign action", "type", string(w.action.Type()), "error", err)
			return
		}
		n.route(env, w.secured)
		if to, directed := w.action.Recipient(); directed && to != n.id {
			return
		}
		w.envelope = env
	}

	var derived []action.Action
	if w.secured {
		state, derived = replica.Receive(state, w.envelope)
	} else {
		state, derived = replica.ReceiveUnsecured(state, w.envelope.Action())
	}
	n.mu.Lock()
	n.state = state
	n.mu.Unlock()

	for _, d := range derived {
		n.work.Push(work{origin: true, action: d, secured: w.secured})
	}
	n.onChange(state)
}

// route queues env for every other addressee.
func (n *Node) route(env action.Envelope, secured bool) {
	data, err := encodeMessage(env, secured)
	if err != nil {
		n.logger.Warn("cannot encode envelope", "error", err)
		return
	}
	a := env.Action()
	out := outgoing{data: data, kind: a.Type()}
	if to, directed := a.Recipient(); directed {
		if to == n.id {
			return
		}
		out.directed = true
		q, ok := n.outboxes[to]
		if !ok {
			n.logger.Debug("recipient not in roster", "type", string(a.Type()), "to", int(to))
			return
		}
		q.Push(out)
		return
	}
	for _, p := range n.players {
		if p != n.id {
			n.outboxes[p].Push(out)
		}
	}
}

func (n *Node) sendLoop(ctx context.Context, to board.PlayerID, q *queue[outgoing]) error {
	for {
		out, err := q.Pop(ctx)
		if err != nil {
			return err
		}
		sendCtx, cancel := ctx, context.CancelFunc(func() {})
		if out.directed && n.handshakeTimeout > 0 {
			sendCtx, cancel = context.WithTimeout(ctx, n.handshakeTimeout)
		}
		err = n.transport.Send(sendCtx, int(to), out.data)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			n.logger.Warn("delivery failed", "to", int(to), "type", string(out.kind), "error", err)
		}
	}
}
