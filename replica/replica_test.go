package replica

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luca-patrignani/hangouts/domain/action"
	"github.com/luca-patrignani/hangouts/domain/board"
	"github.com/luca-patrignani/hangouts/signing"
)

type recorder struct {
	accepted []action.Action
	rejected []Reason
}

func (r *recorder) Accepted(_ State, a action.Action) {
	r.accepted = append(r.accepted, a)
}

func (r *recorder) Rejected(_ State, _ action.Action, reason Reason) {
	r.rejected = append(r.rejected, reason)
}

func newReplicas(t *testing.T, opts ...Option) []State {
	t.Helper()
	states := make([]State, 0, board.PlayerCount)
	for _, id := range board.Players() {
		s, err := New(id, signing.Schnorr(), opts...)
		require.NoError(t, err)
		states = append(states, s)
	}
	return states
}

// introduce delivers every Join, own included, to every replica.
func introduce(states []State) []State {
	out := make([]State, len(states))
	for i := range states {
		out[i] = states[i]
		for _, sender := range states {
			out[i], _ = ReceiveUnsecured(out[i], action.CreateJoin(sender))
		}
	}
	return out
}

func seal(t *testing.T, s State, a action.Action) action.Envelope {
	t.Helper()
	env, err := action.Seal(s, a)
	require.NoError(t, err)
	return env
}

func TestNewReplica(t *testing.T) {
	s, err := New(board.Player3, signing.Schnorr())
	require.NoError(t, err)

	assert.Equal(t, board.Player3, s.PlayerID())
	assert.Equal(t, board.Player1, s.Turn())
	assert.True(t, s.Board().IsEmpty())
	assert.Equal(t, board.DefaultSize, s.Board().Width())
	assert.Equal(t, board.DefaultSize, s.Board().Height())
	assert.Zero(t, s.Log().Len())
	assert.Empty(t, s.Keys())
	assert.NotEmpty(t, s.PublicKey())
	assert.Equal(t, KeepFirst, s.KeyPolicy())
}

func TestNewReplicaRejectsInvalidPlayer(t *testing.T) {
	_, err := New(board.PlayerID(5), signing.Schnorr())
	assert.ErrorIs(t, err, board.ErrInvalidPlayer)
	_, err = New(board.PlayerID(0), signing.Schnorr())
	assert.ErrorIs(t, err, board.ErrInvalidPlayer)
}

func TestNewReplicaWithOptions(t *testing.T) {
	p := signing.Ed25519()
	h, err := p.GenerateIdentity()
	require.NoError(t, err)
	pub, err := p.PublicKeyOf(h)
	require.NoError(t, err)

	s, err := New(board.Player2, p, WithHandle(h), WithBoardSize(4, 3), WithKeyPolicy(Overwrite))
	require.NoError(t, err)
	assert.Equal(t, pub, s.PublicKey())
	assert.Equal(t, 4, s.Board().Width())
	assert.Equal(t, 3, s.Board().Height())
	assert.Equal(t, Overwrite, s.KeyPolicy())

	_, err = New(board.Player2, p, WithBoardSize(0, 3))
	assert.ErrorIs(t, err, board.ErrInvalidSize)
}

func TestApplyMoveInTurn(t *testing.T) {
	states := introduce(newReplicas(t))
	before := states[1]

	after, derived := Apply(before, action.CreateMove(states[0], 14, 0))

	assert.Empty(t, derived)
	sq, err := after.Board().At(board.Position{X: 14, Y: 0})
	require.NoError(t, err)
	owner, ok := sq.Owner()
	require.True(t, ok)
	assert.Equal(t, board.Player1, owner)
	assert.Equal(t, board.Player2, after.Turn())
	assert.Equal(t, 1, after.Log().Len())

	// the previous state is untouched
	assert.True(t, before.Board().IsEmpty())
	assert.Equal(t, board.Player1, before.Turn())
	assert.Zero(t, before.Log().Len())
}

func TestApplyMoveOutOfTurn(t *testing.T) {
	rec := &recorder{}
	states := introduce(newReplicas(t, WithObserver(rec)))
	before := states[0]

	after, derived := Apply(before, action.CreateMove(states[1], 3, 3))

	assert.Empty(t, derived)
	assert.True(t, after.Board().IsEmpty())
	assert.Equal(t, board.Player1, after.Turn())
	assert.Zero(t, after.Log().Len())
	assert.Equal(t, []Reason{ReasonOutOfTurn}, rec.rejected)
}

func TestTurnWrapsAround(t *testing.T) {
	states := introduce(newReplicas(t))
	s := states[0]
	for i, mover := range states {
		assert.Equal(t, mover.PlayerID(), s.Turn())
		s, _ = Apply(s, action.CreateMove(mover, i, i))
	}
	assert.Equal(t, board.Player1, s.Turn())
	assert.Equal(t, board.PlayerCount, s.Log().Len())
	assert.Equal(t, map[board.PlayerID]int{
		board.Player1: 1, board.Player2: 1, board.Player3: 1, board.Player4: 1,
	}, s.Board().Claims())
}

func TestApplyMoveOnOwnedSquareOverwrites(t *testing.T) {
	states := introduce(newReplicas(t))
	s, _ := Apply(states[0], action.CreateMove(states[0], 5, 5))
	s, _ = Apply(s, action.CreateMove(states[1], 5, 5))

	sq, err := s.Board().At(board.Position{X: 5, Y: 5})
	require.NoError(t, err)
	owner, _ := sq.Owner()
	assert.Equal(t, board.Player2, owner)
	assert.Equal(t, board.Player3, s.Turn())
}

func TestApplyMalformedMoves(t *testing.T) {
	tests := []struct {
		name   string
		move   action.Move
		reason Reason
	}{
		{"beyond width", action.Move{X: 16, Y: 0, PlayerID: board.Player1}, ReasonOutOfBounds},
		{"negative", action.Move{X: -1, Y: 2, PlayerID: board.Player1}, ReasonOutOfBounds},
		{"player zero", action.Move{X: 1, Y: 1, PlayerID: 0}, ReasonInvalidPlayer},
		{"player five", action.Move{X: 1, Y: 1, PlayerID: 5}, ReasonInvalidPlayer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			s, err := New(board.Player1, signing.Schnorr(), WithObserver(rec))
			require.NoError(t, err)

			after, derived := Apply(s, action.New(tt.move))

			assert.Empty(t, derived)
			assert.True(t, after.Board().IsEmpty())
			assert.Equal(t, board.Player1, after.Turn())
			assert.Equal(t, []Reason{tt.reason}, rec.rejected)
		})
	}
}

func TestApplyEmptyAction(t *testing.T) {
	rec := &recorder{}
	s, err := New(board.Player1, signing.Schnorr(), WithObserver(rec))
	require.NoError(t, err)

	after, derived := Apply(s, action.Action{})
	assert.Empty(t, derived)
	assert.Equal(t, s.Turn(), after.Turn())
	assert.Equal(t, []Reason{ReasonMalformed}, rec.rejected)
}

func TestJoinRecordsKeyAndAnswers(t *testing.T) {
	states := newReplicas(t)
	p, q := states[0], states[1]

	after, derived := ReceiveUnsecured(p, action.CreateJoin(q))

	key, ok := after.KeyOf(board.Player2)
	require.True(t, ok)
	assert.Equal(t, q.PublicKey(), key)
	require.Len(t, derived, 1)
	assert.Equal(t, action.Handshake{
		To:        board.Player2,
		PublicKey: p.PublicKey(),
		PlayerID:  board.Player1,
	}, derived[0].Payload())
	assert.Empty(t, p.Keys(), "Join must not modify the previous state")
}

func TestOwnJoinRecordsOwnKey(t *testing.T) {
	s := newReplicas(t)[0]
	after, derived := ReceiveUnsecured(s, action.CreateJoin(s))

	key, ok := after.KeyOf(s.PlayerID())
	require.True(t, ok)
	assert.Equal(t, s.PublicKey(), key)
	require.Len(t, derived, 1)
	to, _ := derived[0].Recipient()
	assert.Equal(t, s.PlayerID(), to)
}

func TestHandshakeRecordsKeyOnly(t *testing.T) {
	states := newReplicas(t)
	p, q := states[0], states[1]

	after, derived := Apply(q, action.CreateHandshake(p, q.PlayerID()))

	assert.Empty(t, derived)
	key, ok := after.KeyOf(p.PlayerID())
	require.True(t, ok)
	assert.Equal(t, p.PublicKey(), key)
}

func TestJoinWithEmptyKeyIsDropped(t *testing.T) {
	rec := &recorder{}
	s, err := New(board.Player1, signing.Schnorr(), WithObserver(rec))
	require.NoError(t, err)

	after, derived := Apply(s, action.New(action.Join{PlayerID: board.Player2}))
	assert.Empty(t, derived)
	assert.Empty(t, after.Keys())
	assert.Equal(t, []Reason{ReasonMalformed}, rec.rejected)
}

func TestJoinWithInvalidUTF8KeyIsDropped(t *testing.T) {
	rec := &recorder{}
	s, err := New(board.Player1, signing.Schnorr(), WithObserver(rec))
	require.NoError(t, err)

	after, derived := ReceiveUnsecured(s, action.New(action.Join{PublicKey: "\xff", PlayerID: board.Player2}))
	assert.Empty(t, derived)
	assert.Empty(t, after.Keys())
	assert.Equal(t, []Reason{ReasonMalformed}, rec.rejected)
}

func TestKeyPolicies(t *testing.T) {
	first := action.New(action.Join{PublicKey: "first", PlayerID: board.Player2})
	second := action.New(action.Join{PublicKey: "second", PlayerID: board.Player2})
	tests := []struct {
		policy   KeyPolicy
		wantKey  string
		answered bool
		rejected []Reason
	}{
		{KeepFirst, "first", true, nil},
		{Overwrite, "second", true, nil},
		{RejectConflicting, "first", false, []Reason{ReasonKeyConflict}},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			rec := &recorder{}
			s, err := New(board.Player1, signing.Schnorr(), WithKeyPolicy(tt.policy), WithObserver(rec))
			require.NoError(t, err)

			s, _ = Apply(s, first)
			s, derived := Apply(s, second)

			key, _ := s.KeyOf(board.Player2)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.answered, len(derived) == 1)
			assert.Equal(t, tt.rejected, rec.rejected)
		})
	}
}

func TestUnsecuredJoinNeverReplacesKey(t *testing.T) {
	first := action.New(action.Join{PublicKey: "first", PlayerID: board.Player2})
	second := action.New(action.Join{PublicKey: "second", PlayerID: board.Player2})
	for _, policy := range []KeyPolicy{KeepFirst, Overwrite, RejectConflicting} {
		t.Run(policy.String(), func(t *testing.T) {
			rec := &recorder{}
			s, err := New(board.Player1, signing.Schnorr(), WithKeyPolicy(policy), WithObserver(rec))
			require.NoError(t, err)

			s, _ = ReceiveUnsecured(s, first)
			s, derived := ReceiveUnsecured(s, second)

			key, _ := s.KeyOf(board.Player2)
			assert.Equal(t, "first", key)
			assert.Empty(t, derived)
			assert.Equal(t, []Reason{ReasonKeyConflict}, rec.rejected)

			// the same key again is still answered
			_, derived = ReceiveUnsecured(s, first)
			assert.Len(t, derived, 1)
		})
	}
}

func TestUnsecuredHandshakeNeverReplacesKey(t *testing.T) {
	states := introduce(newReplicas(t, WithKeyPolicy(Overwrite)))
	forged := action.New(action.Handshake{To: board.Player1, PublicKey: "attacker", PlayerID: board.Player2})

	after, _ := ReceiveUnsecured(states[0], forged)

	key, _ := after.KeyOf(board.Player2)
	assert.Equal(t, states[1].PublicKey(), key)
}

func TestSignedJoinFollowsOverwritePolicy(t *testing.T) {
	states := introduce(newReplicas(t, WithKeyPolicy(Overwrite)))
	rotate := action.New(action.Join{PublicKey: "rotated", PlayerID: board.Player2})
	env := seal(t, states[1], rotate)

	after, _ := Receive(states[0], env)

	key, _ := after.KeyOf(board.Player2)
	assert.Equal(t, "rotated", key)
}

func TestParseKeyPolicy(t *testing.T) {
	for _, p := range []KeyPolicy{KeepFirst, Overwrite, RejectConflicting} {
		got, err := ParseKeyPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseKeyPolicy("sometimes")
	assert.Error(t, err)
}

func TestReceiveVerifiedMove(t *testing.T) {
	states := introduce(newReplicas(t))
	env := seal(t, states[0], action.CreateMove(states[0], 14, 0))

	for _, s := range states {
		after, derived := Receive(s, env)
		assert.Empty(t, derived)
		assert.Equal(t, board.Player2, after.Turn())
		assert.Equal(t, 1, after.Log().Len())
	}
}

func TestReceiveUnknownSender(t *testing.T) {
	rec := &recorder{}
	states := newReplicas(t)
	s, err := New(board.Player2, signing.Schnorr(), WithObserver(rec))
	require.NoError(t, err)

	after, derived := Receive(s, seal(t, states[0], action.CreateMove(states[0], 1, 1)))
	assert.Empty(t, derived)
	assert.True(t, after.Board().IsEmpty())
	assert.Equal(t, []Reason{ReasonUnknownSender}, rec.rejected)
}

func TestReceiveForgedSender(t *testing.T) {
	rec := &recorder{}
	states := introduce(newReplicas(t, WithObserver(rec)))
	forger := states[1]
	forged := action.New(action.Move{X: 0, Y: 0, PlayerID: board.Player1})
	env := seal(t, forger, forged)
	rec.rejected = nil

	after, derived := Receive(states[2], env)

	assert.Empty(t, derived)
	assert.True(t, after.Board().IsEmpty())
	assert.Equal(t, board.Player1, after.Turn())
	assert.Equal(t, []Reason{ReasonBadSignature}, rec.rejected)
}

func TestReceiveTamperedPayload(t *testing.T) {
	rec := &recorder{}
	states := introduce(newReplicas(t, WithObserver(rec)))
	signed := seal(t, states[0], action.CreateMove(states[0], 1, 1))
	tampered := action.NewEnvelope(action.CreateMove(states[0], 2, 2), signed.Signature())
	rec.rejected = nil

	after, _ := Receive(states[3], tampered)
	assert.True(t, after.Board().IsEmpty())
	assert.Equal(t, []Reason{ReasonBadSignature}, rec.rejected)
}

func TestReceiveJoinFromUnknownSenderNeedsUnsecuredPath(t *testing.T) {
	states := newReplicas(t)
	join := action.CreateJoin(states[1])

	after, derived := Receive(states[0], seal(t, states[1], join))
	assert.Empty(t, derived)
	assert.Empty(t, after.Keys())

	after, derived = ReceiveUnsecured(states[0], join)
	assert.Len(t, derived, 1)
	assert.Len(t, after.Keys(), 1)
}

func TestRebuildBoardMatchesBoard(t *testing.T) {
	states := introduce(newReplicas(t))
	s := states[0]
	moves := [][2]int{{0, 0}, {15, 15}, {7, 3}, {0, 0}, {9, 12}}
	for i, m := range moves {
		s, _ = Apply(s, action.CreateMove(states[i%len(states)], m[0], m[1]))
	}
	require.Equal(t, len(moves), s.Log().Len())
	require.NoError(t, s.Log().Verify())

	rebuilt, err := RebuildBoard(s)
	require.NoError(t, err)
	assert.True(t, rebuilt.Equal(s.Board()))
}

func TestRebuildEmptyBoard(t *testing.T) {
	s := newReplicas(t)[0]
	rebuilt, err := RebuildBoard(s)
	require.NoError(t, err)
	assert.True(t, rebuilt.IsEmpty())
}

func TestObserversFanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	var rejections []Reason
	obs := Observers{a, b, RejectionFunc(func(_ State, _ action.Action, r Reason) {
		rejections = append(rejections, r)
	})}
	s, err := New(board.Player1, signing.Schnorr(), WithObserver(obs))
	require.NoError(t, err)

	s, _ = Apply(s, action.CreateMove(s, 0, 0))
	Apply(s, action.CreateMove(s, 1, 1))

	assert.Len(t, a.accepted, 1)
	assert.Len(t, b.accepted, 1)
	assert.Equal(t, []Reason{ReasonOutOfTurn}, a.rejected)
	assert.Equal(t, []Reason{ReasonOutOfTurn}, rejections)
}
