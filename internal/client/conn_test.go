package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/quizrooms/pkg/types"
)

// scriptedServer answers a createRoom with roomCreated, then closes cleanly.
func scriptedServer(t *testing.T, got chan<- types.ClientMessage) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		var cm types.ClientMessage
		if err := ws.ReadJSON(&cm); err != nil {
			return
		}
		got <- cm

		msg, _ := types.NewServerMessage(types.MsgRoomCreated, types.RoomJoined{RoomCode: "ABC234", PlayerName: cm.Name, IsHost: true})
		_ = ws.WriteJSON(msg)
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConn_CreateRoomUpdatesMirror(t *testing.T) {
	got := make(chan types.ClientMessage, 1)
	srv := scriptedServer(t, got)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), NewMirror(nil, 0))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.CreateRoom("Ana"))

	var seen []string
	err = conn.Run(ctx, func(m types.ServerMessage) { seen = append(seen, m.Type) })
	require.NoError(t, err)

	assert.Equal(t, types.ClientMessage{Type: types.CmdCreateRoom, Name: "Ana"}, <-got)
	assert.Equal(t, []string{types.MsgRoomCreated}, seen)

	v := conn.Mirror().View()
	assert.Equal(t, "ABC234", v.RoomCode)
	assert.True(t, v.IsHost)
	assert.Equal(t, PhaseLobby, v.Phase)
}

func TestConn_SubmitAnswerOnlyOnce(t *testing.T) {
	m := NewMirror(nil, 0)
	q, err := types.NewServerMessage(types.MsgNewQuestion, types.NewQuestion{QuestionNumber: 1, TotalQuestions: 1, CorrectAnswer: "X"})
	require.NoError(t, err)
	require.NoError(t, m.Apply(q))
	require.True(t, m.MarkAnswered("X"))

	c := &Conn{mirror: m}
	assert.ErrorIs(t, c.SubmitAnswer("X", time.Second), ErrAlreadyAnswered)
}
