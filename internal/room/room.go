// Package room runs one quiz room as an actor: a single goroutine owns the
// engine state and handles inbox messages one at a time.
package room

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/quizrooms/internal/archive"
	"github.com/DoyleJ11/quizrooms/internal/engine"
	"github.com/DoyleJ11/quizrooms/pkg/types"
)

type Msg interface{ isRoomMsg() }

type Join struct {
	PlayerID string
	Name     string
	Outbox   chan types.ServerMessage // where this player wants to receive events
	Reply    chan error
}

func (Join) isRoomMsg() {}

type Leave struct{ PlayerID string }

func (Leave) isRoomMsg() {}

type Ready struct{ PlayerID string }

func (Ready) isRoomMsg() {}

type Start struct {
	PlayerID  string
	Questions []types.Question
	Reply     chan error
}

func (Start) isRoomMsg() {}

type Submit struct {
	PlayerID  string
	Answer    string
	ElapsedMs float64
}

func (Submit) isRoomMsg() {}

// Next is the host asking for the next question. Reply may be nil.
type Next struct {
	PlayerID string
	Reply    chan error
}

func (Next) isRoomMsg() {}

type TimerFired struct {
	Epoch         uint64
	QuestionIndex int
}

func (TimerFired) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type Config struct {
	Code      string
	Rules     engine.Rules
	Clock     clockwork.Clock
	Logger    *zap.Logger
	Recorder  archive.Recorder
	InboxSize int
	// OnEmpty runs once after the last player leaves and the loop has stopped.
	OnEmpty func(code string, r *Room)
}

type Room struct {
	code     string
	inbox    chan Msg
	done     chan struct{}
	state    engine.State
	version  int
	subs     *fanout
	clock    clockwork.Clock
	log      *zap.Logger
	recorder archive.Recorder
	onEmpty  func(string, *Room)
	emptied  bool

	timerCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, cfg Config) *Room {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = archive.Nop{}
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 64
	}

	r := &Room{
		code:     cfg.Code,
		inbox:    make(chan Msg, cfg.InboxSize),
		done:     make(chan struct{}),
		state:    engine.NewState(cfg.Code, cfg.Rules),
		subs:     newFanout(),
		clock:    cfg.Clock,
		log:      cfg.Logger.With(zap.String("room", cfg.Code)),
		recorder: cfg.Recorder,
		onEmpty:  cfg.OnEmpty,
		ctx:      ctx,
		cancel:   cancel,
	}

	go r.loop()
	return r
}

func (r *Room) Code() string { return r.code }

// Done is closed once the room has stopped processing messages.
func (r *Room) Done() <-chan struct{} { return r.done }

// Inbox is exposed for tests and the transport layer. Prefer Send, which
// does not block on a closed room.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) Send(ctx context.Context, m Msg) error {
	select {
	case <-r.done:
		return engine.ErrRoomClosed
	default:
	}
	select {
	case r.inbox <- m:
		return nil
	case <-r.done:
		return engine.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) Join(ctx context.Context, playerID, name string, outbox chan types.ServerMessage) error {
	reply := make(chan error, 1)
	if err := r.Send(ctx, Join{PlayerID: playerID, Name: name, Outbox: outbox, Reply: reply}); err != nil {
		return err
	}
	return r.await(ctx, reply)
}

func (r *Room) Start(ctx context.Context, playerID string, questions []types.Question) error {
	reply := make(chan error, 1)
	if err := r.Send(ctx, Start{PlayerID: playerID, Questions: questions, Reply: reply}); err != nil {
		return err
	}
	return r.await(ctx, reply)
}

func (r *Room) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := r.Send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-r.done:
		return View{}, engine.ErrRoomClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (r *Room) await(ctx context.Context, reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-r.done:
		// The loop may have answered just before stopping.
		select {
		case err := <-reply:
			return err
		default:
			return engine.ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) loop() {
	defer r.finish()
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			if stop := r.handle(m); stop {
				return
			}
		}
	}
}

func (r *Room) handle(m Msg) (stop bool) {
	now := r.clock.Now()

	switch msg := m.(type) {
	case Join:
		err := r.apply(engine.Command{Type: engine.CmdJoin, PlayerID: msg.PlayerID, Name: msg.Name}, func() {
			r.subs.add(msg.PlayerID, msg.Outbox)
		})
		if err != nil {
			r.log.Debug("join rejected", zap.String("player", msg.PlayerID), zap.Error(err))
		}
		reply(msg.Reply, err)

	case Leave:
		r.subs.remove(msg.PlayerID)
		err := r.apply(engine.Command{Type: engine.CmdLeave, PlayerID: msg.PlayerID}, nil)
		if err != nil && !errors.Is(err, engine.ErrUnknownPlayer) {
			r.log.Warn("leave failed", zap.String("player", msg.PlayerID), zap.Error(err))
		}
		if r.emptied {
			r.log.Info("room empty, closing")
			return true
		}

	case Ready:
		r.logDropped("ready", msg.PlayerID,
			r.apply(engine.Command{Type: engine.CmdSetReady, PlayerID: msg.PlayerID}, nil))

	case Start:
		err := r.apply(engine.Command{Type: engine.CmdStartGame, PlayerID: msg.PlayerID, Questions: msg.Questions, Now: now}, nil)
		if err == nil {
			r.log.Info("game started", zap.Int("questions", len(msg.Questions)))
		}
		reply(msg.Reply, err)

	case Next:
		err := r.apply(engine.Command{Type: engine.CmdNextQuestion, PlayerID: msg.PlayerID, Now: now}, nil)
		r.logDropped("next question", msg.PlayerID, err)
		reply(msg.Reply, err)

	case Submit:
		r.logDropped("answer", msg.PlayerID, r.apply(engine.Command{
			Type:      engine.CmdSubmitAnswer,
			PlayerID:  msg.PlayerID,
			Answer:    msg.Answer,
			ElapsedMs: msg.ElapsedMs,
			Now:       now,
		}, nil))

	case TimerFired:
		err := r.apply(engine.Command{Type: engine.CmdTimerExpired, Epoch: msg.Epoch, QuestionIndex: msg.QuestionIndex}, nil)
		if err != nil {
			r.log.Debug("stale timer", zap.Uint64("epoch", msg.Epoch), zap.Int("question", msg.QuestionIndex))
		}

	case GetState:
		// test-only: reflect internal state without data races
		msg.Reply <- View{
			Version:    r.version,
			NumClients: r.subs.len(),
			State:      r.state.Clone(),
		}

	case Shutdown:
		return true
	}
	return false
}

// apply runs cmd through the engine and, on success, runs before (if any)
// and then dispatches the resulting events.
func (r *Room) apply(cmd engine.Command, before func()) error {
	events, next, err := engine.Apply(r.state, cmd)
	if err != nil {
		return err
	}
	r.state = next
	r.version++
	if before != nil {
		before()
	}
	r.dispatch(events)
	return nil
}

func (r *Room) dispatch(events []engine.Event) {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtTimerArmed:
			r.armTimer(ev.Payload.(engine.TimerSpec))
			continue
		case engine.EvtTimerCancelled:
			r.stopTimer()
			continue
		case engine.EvtRoomEmptied:
			r.emptied = true
			continue
		case engine.EvtGameOver:
			r.archive(ev.Payload.(types.GameOver))
		}

		msg, err := types.NewServerMessage(string(ev.Type), ev.Payload)
		if err != nil {
			r.log.Error("encode event", zap.String("type", string(ev.Type)), zap.Error(err))
			continue
		}
		for _, id := range r.subs.publish(ev.To, msg) {
			r.log.Warn("dropped slow client", zap.String("player", id))
		}
	}
}

func (r *Room) archive(over types.GameOver) {
	res := archive.GameResult{
		RoomCode:       r.code,
		TotalQuestions: len(r.state.Questions),
		FinishedAt:     r.clock.Now(),
		Standings:      over.Scores,
	}
	// Off the loop so a slow sink never stalls the room.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.recorder.Record(ctx, res); err != nil {
			r.log.Error("archive game", zap.Error(err))
		}
	}()
}

// logDropped records errors the player is never told about.
func (r *Room) logDropped(what, playerID string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrInvalidQuestionIndex):
		r.log.Warn(what+" dropped", zap.String("player", playerID), zap.Error(err))
	default:
		r.log.Debug(what+" ignored", zap.String("player", playerID), zap.Error(err))
	}
}

func (r *Room) finish() {
	r.stopTimer()
	r.subs.closeAll()
	close(r.done)
	r.cancel()
	if r.emptied && r.onEmpty != nil {
		r.onEmpty(r.code, r)
	}
}

func reply(ch chan error, err error) {
	if ch != nil {
		ch <- err
	}
}
