// Package ws serves the player websocket. One connection is one player
// identity; it can sit in at most one room.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/quizrooms/internal/engine"
	"github.com/DoyleJ11/quizrooms/internal/hub"
	"github.com/DoyleJ11/quizrooms/internal/room"
	"github.com/DoyleJ11/quizrooms/pkg/types"
)

const (
	readLimit    = 1 << 20 // question lists can be large
	writeTimeout = 3 * time.Second
)

var errAlreadyInRoom = errors.New("already in a room")

type Options struct {
	OutboxSize   int
	PingInterval time.Duration
	// OriginPatterns restricts browser origins. Empty or "*" accepts any.
	OriginPatterns []string
}

func Handler(h *hub.Hub, opts Options, log *zap.Logger) http.HandlerFunc {
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 32
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 20 * time.Second
	}
	accept := &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns}
	if len(opts.OriginPatterns) == 0 || (len(opts.OriginPatterns) == 1 && opts.OriginPatterns[0] == "*") {
		accept = &websocket.AcceptOptions{InsecureSkipVerify: true}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, accept)
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		conn.SetReadLimit(readLimit)

		s := &session{
			id:     uuid.NewString(),
			hub:    h,
			conn:   conn,
			out:    make(chan types.ServerMessage, opts.OutboxSize),
			direct: make(chan types.ServerMessage, 8),
		}
		s.log = log.With(zap.String("conn", s.id))
		s.log.Debug("connected")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		defer s.leave()

		go s.writeLoop(ctx, cancel)
		go s.pingLoop(ctx, cancel, opts.PingInterval)
		s.readLoop(ctx)
	}
}

type session struct {
	id   string
	hub  *hub.Hub
	conn *websocket.Conn
	log  *zap.Logger

	// out is handed to the room, which closes it when the player is removed.
	out chan types.ServerMessage
	// direct carries replies only this connection sees. Never closed.
	direct chan types.ServerMessage

	room *room.Room
}

func (s *session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			// Treat clean close/going-away as normal
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				s.log.Debug("closed by client")
			default:
				s.log.Debug("read failed", zap.Error(err))
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			s.sendError("bad json")
			continue
		}
		s.dispatch(ctx, cm)
	}
}

func (s *session) dispatch(ctx context.Context, cm types.ClientMessage) {
	switch cm.Type {
	case types.CmdCreateRoom:
		if s.room != nil {
			s.fail(errAlreadyInRoom)
			return
		}
		rm, err := s.hub.CreateRoom(ctx, s.id, cm.Name, s.out)
		if err != nil {
			s.fail(err)
			return
		}
		s.room = rm
		s.log = s.log.With(zap.String("room", rm.Code()))

	case types.CmdJoinRoom:
		if s.room != nil {
			s.fail(errAlreadyInRoom)
			return
		}
		rm, err := s.hub.JoinRoom(ctx, cm.RoomCode, s.id, cm.PlayerName, s.out)
		if err != nil {
			s.fail(err)
			return
		}
		s.room = rm
		s.log = s.log.With(zap.String("room", rm.Code()))

	case types.CmdPlayerReady:
		s.toRoom(ctx, room.Ready{PlayerID: s.id})

	case types.CmdStartGame:
		if s.room == nil {
			return
		}
		if err := s.room.Start(ctx, s.id, cm.Questions); err != nil {
			s.fail(err)
		}

	case types.CmdSubmitAnswer:
		s.toRoom(ctx, room.Submit{PlayerID: s.id, Answer: cm.Answer, ElapsedMs: cm.TimeTaken})

	case types.CmdNextQuestion:
		s.toRoom(ctx, room.Next{PlayerID: s.id})

	default:
		s.sendError("unknown type")
	}
}

// toRoom forwards fire-and-forget messages. Outside a room they are dropped.
func (s *session) toRoom(ctx context.Context, m room.Msg) {
	if s.room == nil {
		return
	}
	if err := s.room.Send(ctx, m); errors.Is(err, engine.ErrRoomClosed) {
		s.room = nil
	}
}

func (s *session) leave() {
	if s.room == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.room.Send(ctx, room.Leave{PlayerID: s.id}); err != nil && !errors.Is(err, engine.ErrRoomClosed) {
		s.log.Warn("leave not delivered", zap.Error(err))
	}
	s.log.Debug("disconnected")
}

func (s *session) fail(err error) {
	msg := UserMessage(err)
	s.log.Debug("request rejected", zap.String("reply", msg), zap.Error(err))
	s.sendError(msg)
}

func (s *session) sendError(message string) {
	msg, _ := types.NewServerMessage(types.MsgError, types.Error{Message: message})
	select {
	case s.direct <- msg:
	default:
		// Client isn't reading; it'll be dropped soon anyway.
	}
}

func (s *session) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	for {
		var msg types.ServerMessage
		select {
		case <-ctx.Done():
			return
		case m, ok := <-s.out:
			if !ok {
				// Room let go of us: slow consumer or room shut down.
				s.conn.Close(websocket.StatusPolicyViolation, "removed from room")
				return
			}
			msg = m
		case msg = <-s.direct:
		}

		payload, err := json.Marshal(msg)
		if err != nil {
			s.log.Error("encode frame", zap.Error(err))
			continue
		}
		wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
		err = s.conn.Write(wctx, websocket.MessageText, payload)
		wcancel()
		if err != nil {
			s.log.Debug("write failed", zap.Error(err))
			return
		}
	}
}

func (s *session) pingLoop(ctx context.Context, cancel context.CancelFunc, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, every)
			err := s.conn.Ping(pctx)
			pcancel()
			if err != nil {
				s.log.Debug("ping failed", zap.Error(err))
				cancel()
				return
			}
		}
	}
}
