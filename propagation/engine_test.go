package propagation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luca-patrignani/hangouts/domain/action"
	"github.com/luca-patrignani/hangouts/domain/board"
	"github.com/luca-patrignani/hangouts/replica"
	"github.com/luca-patrignani/hangouts/signing"
)

// joinAll brings four replicas into the registry one at a time, each through
// an unsecured Join.
func joinAll(t *testing.T, e Engine) replica.Registry {
	t.Helper()
	r, err := replica.NewRegistry()
	require.NoError(t, err)
	for _, id := range board.Players() {
		s, err := replica.New(id, signing.Schnorr())
		require.NoError(t, err)
		r, err = r.Add(s)
		require.NoError(t, err)
		r, err = e.DispatchUnsecured(context.Background(), id, action.CreateJoin(s), r)
		require.NoError(t, err)
	}
	return r
}

func get(t *testing.T, r replica.Registry, id board.PlayerID) replica.State {
	t.Helper()
	s, ok := r.Get(id)
	require.True(t, ok)
	return s
}

func TestJoinHandshakeReciprocity(t *testing.T) {
	e := New()
	r := joinAll(t, e)

	for _, s := range r.States() {
		keys := s.Keys()
		assert.Len(t, keys, board.PlayerCount)
		for _, other := range r.States() {
			assert.Equal(t, other.PublicKey(), keys[other.PlayerID()])
		}
	}
}

func TestNewcomerLearnsEveryExistingKey(t *testing.T) {
	e := New()
	r, err := replica.NewRegistry()
	require.NoError(t, err)
	for _, id := range board.Players()[:3] {
		s, err := replica.New(id, signing.Schnorr())
		require.NoError(t, err)
		r, err = r.Add(s)
		require.NoError(t, err)
		r, err = e.DispatchUnsecured(context.Background(), id, action.CreateJoin(s), r)
		require.NoError(t, err)
	}
	before := map[board.PlayerID]int{}
	for _, s := range r.States() {
		before[s.PlayerID()] = len(s.Keys())
	}

	newcomer, err := replica.New(board.Player4, signing.Schnorr())
	require.NoError(t, err)
	r, err = r.Add(newcomer)
	require.NoError(t, err)
	r, err = e.DispatchUnsecured(context.Background(), board.Player4, action.CreateJoin(newcomer), r)
	require.NoError(t, err)

	p := get(t, r, board.Player4)
	// one key per existing replica, plus its own from its own Join
	assert.Len(t, p.Keys(), len(before)+1)
	for id, n := range before {
		s := get(t, r, id)
		assert.Len(t, s.Keys(), n+1)
		key, ok := p.KeyOf(id)
		require.True(t, ok)
		assert.Equal(t, s.PublicKey(), key)
	}
}

func TestMoveConverges(t *testing.T) {
	e := New()
	r := joinAll(t, e)

	r, err := e.Dispatch(context.Background(), board.Player1, action.CreateMove(get(t, r, board.Player1), 14, 0), r)
	require.NoError(t, err)

	require.True(t, r.Converged())
	for _, s := range r.States() {
		sq, err := s.Board().At(board.Position{X: 14, Y: 0})
		require.NoError(t, err)
		owner, ok := sq.Owner()
		require.True(t, ok)
		assert.Equal(t, board.Player1, owner)
		assert.Equal(t, board.Player2, s.Turn())
	}
}

func TestOutOfTurnMoveChangesNothing(t *testing.T) {
	e := New()
	r := joinAll(t, e)

	r, err := e.Dispatch(context.Background(), board.Player2, action.CreateMove(get(t, r, board.Player2), 14, 0), r)
	require.NoError(t, err)

	for _, s := range r.States() {
		assert.True(t, s.Board().IsEmpty())
		assert.Equal(t, board.Player1, s.Turn())
	}
}

func TestTamperedMoveChangesNothing(t *testing.T) {
	e := New()
	r := joinAll(t, e)
	p1 := get(t, r, board.Player1)

	honest, err := action.Seal(p1, action.CreateMove(p1, 14, 0))
	require.NoError(t, err)
	tampered := action.NewEnvelope(action.New(action.Move{X: 14, Y: 0, PlayerID: board.Player2}), honest.Signature())

	for _, s := range r.States() {
		after, derived := replica.Receive(s, tampered)
		assert.Empty(t, derived)
		assert.True(t, after.Board().IsEmpty())
		assert.Equal(t, board.Player1, after.Turn())
	}
}

func TestRoundRobinGame(t *testing.T) {
	e := New()
	r := joinAll(t, e)

	for i := range 12 {
		mover := board.Players()[i%board.PlayerCount]
		var err error
		r, err = e.Dispatch(context.Background(), mover, action.CreateMove(get(t, r, mover), i, i), r)
		require.NoError(t, err)
		require.True(t, r.Converged())
	}
	for _, s := range r.States() {
		assert.Equal(t, 12, s.Log().Len())
		assert.Equal(t, board.Player1, s.Turn())
		rebuilt, err := replica.RebuildBoard(s)
		require.NoError(t, err)
		assert.True(t, rebuilt.Equal(s.Board()))
	}
}

func TestDeliveryHook(t *testing.T) {
	var deliveries []Delivery
	e := New(WithDeliveryHook(func(d Delivery) { deliveries = append(deliveries, d) }))
	r := joinAll(t, e)
	deliveries = nil

	_, err := e.Dispatch(context.Background(), board.Player1, action.CreateMove(get(t, r, board.Player1), 0, 0), r)
	require.NoError(t, err)

	require.Len(t, deliveries, board.PlayerCount)
	for i, d := range deliveries {
		assert.Equal(t, board.Player1, d.From)
		assert.Equal(t, board.Players()[i], d.To)
		assert.True(t, d.Secured)
	}
}

func TestHandshakeIsDirected(t *testing.T) {
	var deliveries []Delivery
	e := New(WithDeliveryHook(func(d Delivery) { deliveries = append(deliveries, d) }))
	r := joinAll(t, e)
	deliveries = nil

	_, err := e.Dispatch(context.Background(), board.Player3, action.CreateHandshake(get(t, r, board.Player3), board.Player1), r)
	require.NoError(t, err)

	require.Len(t, deliveries, 1)
	assert.Equal(t, board.Player1, deliveries[0].To)
}

func TestDispatchUnknownOrigin(t *testing.T) {
	s, err := replica.New(board.Player1, signing.Schnorr())
	require.NoError(t, err)
	r, err := replica.NewRegistry(s)
	require.NoError(t, err)

	_, err = New().Dispatch(context.Background(), board.Player2, action.CreateMove(s, 0, 0), r)
	assert.ErrorIs(t, err, ErrUnknownSender)
}

// relay answers every delivery with a Handshake to the next player, until
// limit deliveries were seen.
func relay(hops *int, limit int) ReceiverFunc {
	return func(s replica.State, env action.Envelope) (replica.State, []action.Action) {
		*hops++
		if limit > 0 && *hops >= limit {
			return s, nil
		}
		return s, []action.Action{action.CreateHandshake(s, s.PlayerID().Next())}
	}
}

func TestLongChainIsNotCapped(t *testing.T) {
	hops := 0
	e := New(WithReceiver(relay(&hops, 2000)))
	r := joinAll(t, New())

	_, err := e.Dispatch(context.Background(), board.Player1, action.CreateHandshake(get(t, r, board.Player1), board.Player2), r)
	require.NoError(t, err)
	assert.Equal(t, 2000, hops)
}

func TestCycleStopsOnContext(t *testing.T) {
	hops := 0
	e := New(WithReceiver(relay(&hops, 0)))
	r := joinAll(t, New())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	got, err := e.Dispatch(ctx, board.Player1, action.CreateHandshake(get(t, r, board.Player1), board.Player2), r)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, r.Len(), got.Len())
	assert.Positive(t, hops)
}

func TestUnsecuredReceiverFuncCarriesNoSignature(t *testing.T) {
	var signatures []string
	e := New(WithReceiver(ReceiverFunc(func(s replica.State, env action.Envelope) (replica.State, []action.Action) {
		signatures = append(signatures, env.Signature())
		return s, nil
	})))
	r := joinAll(t, New())

	_, err := e.DispatchUnsecured(context.Background(), board.Player1, action.CreateMove(get(t, r, board.Player1), 0, 0), r)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", "", ""}, signatures)
}
