// Package hub is the room registry. It is an actor owning the code -> room
// map; each room runs on its own goroutine.
package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/quizrooms/internal/archive"
	"github.com/DoyleJ11/quizrooms/internal/engine"
	"github.com/DoyleJ11/quizrooms/internal/room"
	"github.com/DoyleJ11/quizrooms/pkg/types"
)

// No 0/O or 1/I, so codes read aloud cleanly.
const (
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6

	maxCodeAttempts = 100
)

var ErrCodeSpaceExhausted = errors.New("could not allocate a room code")

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Reply chan CreateResult
}

type CreateResult struct {
	Room *room.Room
	Err  error
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
	Room *room.Room // only removed if still the registered room
}

type ListRooms struct {
	Reply chan []*room.Room
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ListRooms) isHubMsg()   {}
func (ShutdownHub) isHubMsg() {}

type Config struct {
	Rules     engine.Rules
	Clock     clockwork.Clock
	Logger    *zap.Logger
	Recorder  archive.Recorder
	RoomInbox int
	// NewCode overrides code generation, mostly for tests.
	NewCode func() (string, error)
}

type Hub struct {
	inbox chan HubMsg
	rooms map[string]*room.Room
	cfg   Config
	log   *zap.Logger
	done  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.NewCode == nil {
		cfg.NewCode = GenerateCode
	}

	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		cfg:    cfg,
		log:    cfg.Logger,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// GenerateCode draws CodeLength characters uniformly from CodeAlphabet.
func GenerateCode() (string, error) {
	code := make([]byte, CodeLength)
	n := big.NewInt(int64(len(CodeAlphabet)))
	for i := range code {
		num, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		code[i] = CodeAlphabet[num.Int64()]
	}
	return string(code), nil
}

// NormalizeCode upper-cases and trims a code typed by a player.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case <-h.done:
		return engine.ErrRoomClosed
	default:
	}
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return engine.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateRoom allocates a fresh room and seats the requester as its host.
func (h *Hub) CreateRoom(ctx context.Context, hostID, hostName string, outbox chan types.ServerMessage) (*room.Room, error) {
	if _, err := engine.NormalizeName(hostName); err != nil {
		return nil, err
	}

	reply := make(chan CreateResult, 1)
	if err := h.send(ctx, CreateRoom{Reply: reply}); err != nil {
		return nil, err
	}
	var res CreateResult
	select {
	case res = <-reply:
	case <-h.done:
		return nil, engine.ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}

	if err := res.Room.Join(ctx, hostID, hostName, outbox); err != nil {
		// Nobody else can know the code yet.
		_ = res.Room.Send(context.Background(), room.Shutdown{})
		_ = h.send(context.Background(), RemoveRoom{Code: res.Room.Code(), Room: res.Room})
		return nil, fmt.Errorf("seating host: %w", err)
	}
	return res.Room, nil
}

// JoinRoom seats a player in an existing room.
func (h *Hub) JoinRoom(ctx context.Context, code, playerID, name string, outbox chan types.ServerMessage) (*room.Room, error) {
	r, err := h.Room(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := r.Join(ctx, playerID, name, outbox); err != nil {
		if errors.Is(err, engine.ErrRoomClosed) {
			return nil, engine.ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (h *Hub) Room(ctx context.Context, code string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	if err := h.send(ctx, GetRoom{Code: NormalizeCode(code), Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		if r == nil {
			return nil, engine.ErrNotFound
		}
		return r, nil
	case <-h.done:
		return nil, engine.ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type Stats struct {
	Rooms   int `json:"rooms"`
	Players int `json:"players"`
	Playing int `json:"playing"`
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan []*room.Room, 1)
	if err := h.send(ctx, ListRooms{Reply: reply}); err != nil {
		return Stats{}, err
	}
	var rooms []*room.Room
	select {
	case rooms = <-reply:
	case <-h.done:
		return Stats{}, engine.ErrRoomClosed
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}

	var st Stats
	for _, r := range rooms {
		v, err := r.State(ctx)
		if errors.Is(err, engine.ErrRoomClosed) {
			continue
		}
		if err != nil {
			return Stats{}, err
		}
		st.Rooms++
		st.Players += len(v.State.Players)
		if v.State.Phase == engine.PhaseInProgress {
			st.Playing++
		}
	}
	return st, nil
}

// Shutdown stops every room and the hub itself. Safe to call twice.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
	}
	<-h.done
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				r, err := h.newRoom()
				msg.Reply <- CreateResult{Room: r, Err: err}

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case RemoveRoom:
				if cur := h.rooms[msg.Code]; cur != nil && (msg.Room == nil || cur == msg.Room) {
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code), zap.Int("live", len(h.rooms)))
				}

			case ListRooms:
				out := make([]*room.Room, 0, len(h.rooms))
				for _, r := range h.rooms {
					out = append(out, r)
				}
				msg.Reply <- out

			case ShutdownHub:
				for _, r := range h.rooms {
					select {
					case r.Inbox() <- room.Shutdown{}:
					case <-r.Done():
					}
				}
				clear(h.rooms)
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) newRoom() (*room.Room, error) {
	for range maxCodeAttempts {
		code, err := h.cfg.NewCode()
		if err != nil {
			return nil, fmt.Errorf("generating room code: %w", err)
		}
		if _, taken := h.rooms[code]; taken {
			h.log.Debug("collision on code, regenerating", zap.String("room", code))
			continue
		}

		r := room.New(h.ctx, room.Config{
			Code:      code,
			Rules:     h.cfg.Rules,
			Clock:     h.cfg.Clock,
			Logger:    h.log,
			Recorder:  h.cfg.Recorder,
			InboxSize: h.cfg.RoomInbox,
			OnEmpty:   h.roomEmptied,
		})
		h.rooms[code] = r
		h.log.Info("room created", zap.String("room", code), zap.Int("live", len(h.rooms)))
		return r, nil
	}
	return nil, ErrCodeSpaceExhausted
}

// roomEmptied runs on the room's goroutine.
func (h *Hub) roomEmptied(code string, r *room.Room) {
	select {
	case h.inbox <- RemoveRoom{Code: code, Room: r}:
	case <-h.done:
	}
}
