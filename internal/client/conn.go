package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DoyleJ11/quizrooms/pkg/types"
)

var ErrAlreadyAnswered = errors.New("already answered this question")

const writeWait = 5 * time.Second

// Conn is one player's websocket to the server, feeding a Mirror.
type Conn struct {
	ws     *websocket.Conn
	mirror *Mirror

	writeMu sync.Mutex
}

func Dial(ctx context.Context, url string, mirror *Mirror) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return &Conn{ws: ws, mirror: mirror}, nil
}

func (c *Conn) Mirror() *Mirror { return c.mirror }

func (c *Conn) Send(msg types.ClientMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(msg)
}

func (c *Conn) CreateRoom(name string) error {
	return c.Send(types.ClientMessage{Type: types.CmdCreateRoom, Name: name})
}

func (c *Conn) JoinRoom(code, name string) error {
	return c.Send(types.ClientMessage{Type: types.CmdJoinRoom, RoomCode: code, PlayerName: name})
}

func (c *Conn) Ready() error {
	return c.Send(types.ClientMessage{Type: types.CmdPlayerReady})
}

func (c *Conn) StartGame(questions []types.Question) error {
	return c.Send(types.ClientMessage{Type: types.CmdStartGame, Questions: questions})
}

// SubmitAnswer sends at most one answer per question.
func (c *Conn) SubmitAnswer(answer string, elapsed time.Duration) error {
	if !c.mirror.MarkAnswered(answer) {
		return ErrAlreadyAnswered
	}
	return c.Send(types.ClientMessage{
		Type:      types.CmdSubmitAnswer,
		Answer:    answer,
		TimeTaken: float64(elapsed.Milliseconds()),
	})
}

func (c *Conn) NextQuestion() error {
	return c.Send(types.ClientMessage{Type: types.CmdNextQuestion})
}

// Run reads until the connection or ctx ends, applying each event to the
// mirror before handing it to onEvent.
func (c *Conn) Run(ctx context.Context, onEvent func(types.ServerMessage)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.ws.Close() })
	defer stop()

	for {
		var msg types.ServerMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if err := c.mirror.Apply(msg); err != nil && !errors.Is(err, ErrUnknownEvent) {
			return err
		}
		if onEvent != nil {
			onEvent(msg)
		}
	}
}

func (c *Conn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return c.ws.Close()
}
