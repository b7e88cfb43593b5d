package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/quizrooms/internal/engine"
	"github.com/DoyleJ11/quizrooms/internal/hub"
	"github.com/DoyleJ11/quizrooms/pkg/types"
)

func newServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	h := hub.NewHub(context.Background(), hub.Config{NewCode: func() (string, error) { return "ABC234", nil }})
	srv := httptest.NewServer(Handler(h, Options{}, zap.NewNop()))
	t.Cleanup(func() {
		srv.Close()
		h.Shutdown()
	})
	return srv, h
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, data))
}

// readUntil reads frames until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", typ)
		var msg types.ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func errorText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	var e types.Error
	require.NoError(t, readUntil(t, conn, types.MsgError).Decode(&e))
	return e.Message
}

func TestWS_CreateJoinPlay(t *testing.T) {
	srv, _ := newServer(t)
	host := dial(t, srv)
	guest := dial(t, srv)

	send(t, host, types.ClientMessage{Type: types.CmdCreateRoom, Name: "Ana"})
	var created types.RoomJoined
	require.NoError(t, readUntil(t, host, types.MsgRoomCreated).Decode(&created))
	assert.Equal(t, types.RoomJoined{RoomCode: "ABC234", PlayerName: "Ana", IsHost: true}, created)

	send(t, guest, types.ClientMessage{Type: types.CmdJoinRoom, RoomCode: "abc234", PlayerName: "Ben"})
	readUntil(t, guest, types.MsgRoomJoined)

	var roster []types.PlayerInfo
	require.NoError(t, readUntil(t, host, types.MsgPlayerListUpdated).Decode(&roster))
	if len(roster) == 1 {
		require.NoError(t, readUntil(t, host, types.MsgPlayerListUpdated).Decode(&roster))
	}
	require.Len(t, roster, 2)

	send(t, guest, types.ClientMessage{Type: types.CmdStartGame, Questions: []types.Question{{Name: "Torre Inazuma", Image: "t.png"}}})
	assert.Equal(t, "Only the host can start the game", errorText(t, guest))

	send(t, host, types.ClientMessage{Type: types.CmdStartGame, Questions: []types.Question{{Name: "Torre Inazuma", Image: "t.png"}}})
	var nq types.NewQuestion
	require.NoError(t, readUntil(t, guest, types.MsgNewQuestion).Decode(&nq))
	assert.Equal(t, 1, nq.QuestionNumber)
	assert.Equal(t, "t.png", nq.Image)

	send(t, host, types.ClientMessage{Type: types.CmdSubmitAnswer, Answer: "Torre Inazuma", TimeTaken: 200})
	send(t, guest, types.ClientMessage{Type: types.CmdSubmitAnswer, Answer: "Nope", TimeTaken: 1000})

	var res types.AnswerResult
	require.NoError(t, readUntil(t, host, types.MsgAnswerResult).Decode(&res))
	assert.Equal(t, 1300, res.Points)
	readUntil(t, host, types.MsgAllPlayersAnswered)
	readUntil(t, guest, types.MsgAllAnswered)

	send(t, host, types.ClientMessage{Type: types.CmdNextQuestion})
	var over types.GameOver
	require.NoError(t, readUntil(t, guest, types.MsgGameOver).Decode(&over))
	assert.Equal(t, []types.Standing{{Name: "Ana", Score: 1300}, {Name: "Ben", Score: 0}}, over.Scores)
}

func TestWS_Errors(t *testing.T) {
	srv, _ := newServer(t)
	c := dial(t, srv)

	require.NoError(t, c.Write(context.Background(), websocket.MessageText, []byte("{not json")))
	assert.Equal(t, "bad json", errorText(t, c))

	send(t, c, types.ClientMessage{Type: "dance"})
	assert.Equal(t, "unknown type", errorText(t, c))

	send(t, c, types.ClientMessage{Type: types.CmdJoinRoom, RoomCode: "ZZZZZZ", PlayerName: "Ben"})
	assert.Equal(t, "Room not found", errorText(t, c))

	send(t, c, types.ClientMessage{Type: types.CmdCreateRoom, Name: "Ana"})
	readUntil(t, c, types.MsgRoomCreated)
	send(t, c, types.ClientMessage{Type: types.CmdCreateRoom, Name: "Ana"})
	assert.Equal(t, "Already in a room", errorText(t, c))
}

func TestWS_SoloHostDisconnectRemovesRoom(t *testing.T) {
	srv, h := newServer(t)
	host := dial(t, srv)
	send(t, host, types.ClientMessage{Type: types.CmdCreateRoom, Name: "Ana"})
	readUntil(t, host, types.MsgRoomCreated)

	host.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		_, err := h.Room(context.Background(), "ABC234")
		return errors.Is(err, engine.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)

	late := dial(t, srv)
	send(t, late, types.ClientMessage{Type: types.CmdJoinRoom, RoomCode: "ABC234", PlayerName: "Ben"})
	assert.Equal(t, "Room not found", errorText(t, late))
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{engine.ErrNotFound, "Room not found"},
		{engine.ErrRoomClosed, "Room not found"},
		{engine.ErrAlreadyStarted, "Game already in progress"},
		{engine.ErrNotAuthorized, "Only the host can start the game"},
		{fmt.Errorf("seating host: %w", engine.ErrInvalidName), "Please enter a valid name"},
		{errAlreadyInRoom, "Already in a room"},
		{errors.New("boom"), "Something went wrong"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, UserMessage(tc.err), tc.err.Error())
	}
}
