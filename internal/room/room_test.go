package room

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/quizrooms/internal/archive"
	"github.com/DoyleJ11/quizrooms/internal/engine"
	"github.com/DoyleJ11/quizrooms/pkg/types"
)

var questions = []types.Question{
	{Name: "Torre Inazuma", Image: "inazuma/torre.png"},
	{Name: "Liyue Harbor", Image: "liyue/harbor.png"},
}

type recorderFunc func(archive.GameResult)

func (f recorderFunc) Record(_ context.Context, res archive.GameResult) error {
	f(res)
	return nil
}

func (recorderFunc) Close() error { return nil }

func newTestRoom(t *testing.T, cfg Config) (*Room, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg.Code = "ABC123"
	cfg.Clock = clock
	return New(ctx, cfg), clock
}

func join(t *testing.T, r *Room, id string) chan types.ServerMessage {
	t.Helper()
	out := make(chan types.ServerMessage, 64)
	require.NoError(t, r.Join(context.Background(), id, id, out))
	return out
}

// helper: receive until a message of type typ arrives, skipping others
func recvType(t *testing.T, ch <-chan types.ServerMessage, typ string, within time.Duration) types.ServerMessage {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("outbox closed while waiting for %s", typ)
			}
			if msg.Type == typ {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
			return types.ServerMessage{} // unreachable
		}
	}
}

func recvNoType(t *testing.T, ch <-chan types.ServerMessage, typ string, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Type == typ {
				t.Fatalf("expected no %s within %v, got %s", typ, within, msg.Data)
			}
		case <-deadline:
			return
		}
	}
}

func view(t *testing.T, r *Room) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := r.State(ctx)
	require.NoError(t, err)
	return v
}

func waitForTimer(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
}

func TestRoom_JoinSendsRoomCreatedThenRoster(t *testing.T) {
	r, _ := newTestRoom(t, Config{})
	a := join(t, r, "a")

	created := recvType(t, a, types.MsgRoomCreated, 100*time.Millisecond)
	var rj types.RoomJoined
	require.NoError(t, created.Decode(&rj))
	assert.Equal(t, types.RoomJoined{RoomCode: "ABC123", PlayerName: "a", IsHost: true}, rj)

	b := join(t, r, "b")
	joined := recvType(t, b, types.MsgRoomJoined, 100*time.Millisecond)
	require.NoError(t, joined.Decode(&rj))
	assert.False(t, rj.IsHost)

	// a sees the roster grow
	recvType(t, a, types.MsgPlayerListUpdated, 100*time.Millisecond)
	roster := recvType(t, a, types.MsgPlayerListUpdated, 100*time.Millisecond)
	var players []types.PlayerInfo
	require.NoError(t, roster.Decode(&players))
	require.Len(t, players, 2)
	assert.Equal(t, "b", players[1].ID)
}

func TestRoom_JoinRejectedWhileInProgress(t *testing.T) {
	r, _ := newTestRoom(t, Config{})
	join(t, r, "a")
	require.NoError(t, r.Start(context.Background(), "a", questions))

	err := r.Join(context.Background(), "b", "b", make(chan types.ServerMessage, 8))
	assert.ErrorIs(t, err, engine.ErrAlreadyStarted)
	assert.Equal(t, 1, view(t, r).NumClients)
}

func TestRoom_TorreInazuma_AllAnsweredBeatsTimer(t *testing.T) {
	r, clock := newTestRoom(t, Config{})
	a := join(t, r, "a")
	b := join(t, r, "b")
	require.NoError(t, r.Start(context.Background(), "a", questions))
	waitForTimer(t, clock)

	r.Inbox() <- Submit{PlayerID: "a", Answer: "Torre Inazuma", ElapsedMs: 200}
	r.Inbox() <- Submit{PlayerID: "b", Answer: "Narukami", ElapsedMs: 1000}

	var res types.AnswerResult
	require.NoError(t, recvType(t, a, types.MsgAnswerResult, 100*time.Millisecond).Decode(&res))
	assert.Equal(t, types.AnswerResult{IsCorrect: true, CorrectAnswer: "Torre Inazuma", Points: 1300, TotalScore: 1300}, res)

	require.NoError(t, recvType(t, b, types.MsgAnswerResult, 100*time.Millisecond).Decode(&res))
	assert.Equal(t, types.AnswerResult{IsCorrect: false, CorrectAnswer: "Torre Inazuma", Points: 0, TotalScore: 0}, res)

	recvType(t, a, types.MsgAllAnswered, 100*time.Millisecond)
	recvType(t, a, types.MsgAllPlayersAnswered, 100*time.Millisecond)
	recvType(t, b, types.MsgAllAnswered, 100*time.Millisecond)

	clock.Advance(engine.DefaultQuestionDuration + time.Second)
	recvNoType(t, a, types.MsgTimeExpired, 50*time.Millisecond)
	recvNoType(t, b, types.MsgAllPlayersAnswered, 10*time.Millisecond)

	v := view(t, r)
	assert.Equal(t, 1300, v.State.Scores["a"])
	assert.False(t, v.State.TimerLive)
}

func TestRoom_ThreePlayers_TimerExpiresOnce(t *testing.T) {
	r, clock := newTestRoom(t, Config{})
	a := join(t, r, "a")
	b := join(t, r, "b")
	c := join(t, r, "c")
	require.NoError(t, r.Start(context.Background(), "a", questions))
	waitForTimer(t, clock)

	r.Inbox() <- Submit{PlayerID: "a", Answer: "Torre Inazuma", ElapsedMs: 100}
	r.Inbox() <- Submit{PlayerID: "b", Answer: "Torre Inazuma", ElapsedMs: 600}
	recvType(t, b, types.MsgAnswerResult, 100*time.Millisecond)

	clock.Advance(engine.DefaultQuestionDuration)

	var reveal types.Reveal
	require.NoError(t, recvType(t, c, types.MsgTimeExpired, 200*time.Millisecond).Decode(&reveal))
	assert.Equal(t, "Torre Inazuma", reveal.CorrectAnswer)
	recvType(t, a, types.MsgAllPlayersAnswered, 100*time.Millisecond)

	// c answers late: no-op
	r.Inbox() <- Submit{PlayerID: "c", Answer: "Torre Inazuma", ElapsedMs: 0}
	recvNoType(t, c, types.MsgAnswerResult, 50*time.Millisecond)
	recvNoType(t, a, types.MsgTimeExpired, 10*time.Millisecond)

	v := view(t, r)
	assert.Equal(t, 1400, v.State.Scores["a"])
	assert.Equal(t, 1000, v.State.Scores["b"])
	assert.Equal(t, 0, v.State.Scores["c"])
}

func TestRoom_TimerGen_DropsStaleFires(t *testing.T) {
	r, _ := newTestRoom(t, Config{})
	a := join(t, r, "a")
	join(t, r, "b")
	require.NoError(t, r.Start(context.Background(), "a", questions))

	next := make(chan error, 1)
	r.Inbox() <- Next{PlayerID: "a", Reply: next}
	require.NoError(t, <-next)
	recvType(t, a, types.MsgNewQuestion, 100*time.Millisecond)
	recvType(t, a, types.MsgNewQuestion, 100*time.Millisecond)

	// Fire left over from question 1.
	r.Inbox() <- TimerFired{Epoch: 1, QuestionIndex: 0}
	recvNoType(t, a, types.MsgTimeExpired, 50*time.Millisecond)

	r.Inbox() <- TimerFired{Epoch: 2, QuestionIndex: 1}
	recvType(t, a, types.MsgTimeExpired, 100*time.Millisecond)
}

func TestRoom_NextFromNonHostIsRejected(t *testing.T) {
	r, _ := newTestRoom(t, Config{})
	join(t, r, "a")
	b := join(t, r, "b")
	require.NoError(t, r.Start(context.Background(), "a", questions))
	recvType(t, b, types.MsgNewQuestion, 100*time.Millisecond)

	next := make(chan error, 1)
	r.Inbox() <- Next{PlayerID: "b", Reply: next}
	assert.ErrorIs(t, <-next, engine.ErrNotAuthorized)
	recvNoType(t, b, types.MsgNewQuestion, 50*time.Millisecond)
	assert.Equal(t, 1, view(t, r).State.CurrentQuestion)
}

func TestRoom_StartByNonHost(t *testing.T) {
	r, _ := newTestRoom(t, Config{})
	join(t, r, "a")
	join(t, r, "b")
	assert.ErrorIs(t, r.Start(context.Background(), "b", questions), engine.ErrNotAuthorized)
	assert.Equal(t, engine.PhaseLobby, view(t, r).State.Phase)
}

func TestRoom_HostLeavesPromotesNext(t *testing.T) {
	r, _ := newTestRoom(t, Config{})
	join(t, r, "a")
	b := join(t, r, "b")
	join(t, r, "c")

	r.Inbox() <- Leave{PlayerID: "a"}
	var p types.PromotedToHost
	require.NoError(t, recvType(t, b, types.MsgPromotedToHost, 100*time.Millisecond).Decode(&p))
	assert.Equal(t, "ABC123", p.RoomCode)

	v := view(t, r)
	assert.Equal(t, "b", v.State.HostID)
	assert.Equal(t, 2, v.NumClients)
}

func TestRoom_LastLeaveClosesRoom(t *testing.T) {
	emptied := make(chan string, 1)
	r, _ := newTestRoom(t, Config{OnEmpty: func(code string, _ *Room) { emptied <- code }})
	a := join(t, r, "a")

	r.Inbox() <- Leave{PlayerID: "a"}

	select {
	case code := <-emptied:
		assert.Equal(t, "ABC123", code)
	case <-time.After(time.Second):
		t.Fatal("OnEmpty never ran")
	}
	<-r.Done()

	// Outbox was closed for the leaver.
	for range a {
	}
	err := r.Join(context.Background(), "b", "b", make(chan types.ServerMessage, 8))
	assert.ErrorIs(t, err, engine.ErrRoomClosed)
}

func TestRoom_DropSlowClient(t *testing.T) {
	r, _ := newTestRoom(t, Config{})

	out := make(chan types.ServerMessage, 1)
	require.NoError(t, r.Join(context.Background(), "a", "a", out))

	assert.Equal(t, 0, view(t, r).NumClients)
}

func TestRoom_ReadyTwiceSameRoster(t *testing.T) {
	r, _ := newTestRoom(t, Config{})
	join(t, r, "a")
	join(t, r, "b")

	r.Inbox() <- Ready{PlayerID: "b"}
	once := view(t, r).State.Roster()
	r.Inbox() <- Ready{PlayerID: "b"}
	twice := view(t, r).State.Roster()

	assert.Equal(t, once, twice)
	assert.True(t, twice[1].Ready)
}

func TestRoom_GameOverIsArchived(t *testing.T) {
	got := make(chan archive.GameResult, 1)
	r, _ := newTestRoom(t, Config{Recorder: recorderFunc(func(res archive.GameResult) { got <- res })})
	a := join(t, r, "a")
	require.NoError(t, r.Start(context.Background(), "a", questions[:1]))

	r.Inbox() <- Submit{PlayerID: "a", Answer: "Torre Inazuma", ElapsedMs: 500}
	recvType(t, a, types.MsgAllPlayersAnswered, 100*time.Millisecond)
	r.Inbox() <- Next{PlayerID: "a"}

	var over types.GameOver
	require.NoError(t, recvType(t, a, types.MsgGameOver, 100*time.Millisecond).Decode(&over))
	assert.Equal(t, []types.Standing{{Name: "a", Score: 1000}}, over.Scores)

	select {
	case res := <-got:
		assert.Equal(t, "ABC123", res.RoomCode)
		assert.Equal(t, 1, res.TotalQuestions)
		assert.Equal(t, over.Scores, res.Standings)
	case <-time.After(time.Second):
		t.Fatal("game was not archived")
	}
}
