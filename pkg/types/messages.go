package types

import "encoding/json"

// Client -> Server
//
// createRoom:   { name }
// joinRoom:     { roomCode, playerName }
// playerReady:  {}
// startGame:    { questions: [{ name, image, options }] }
// submitAnswer: { answer, timeTaken }   timeTaken is client-measured ms
// nextQuestion: {}                      host only
const (
	CmdCreateRoom   = "createRoom"
	CmdJoinRoom     = "joinRoom"
	CmdPlayerReady  = "playerReady"
	CmdStartGame    = "startGame"
	CmdSubmitAnswer = "submitAnswer"
	CmdNextQuestion = "nextQuestion"
)

// Server -> Client. Every frame is { type, data }.
const (
	MsgRoomCreated        = "roomCreated"
	MsgRoomJoined         = "roomJoined"
	MsgPlayerListUpdated  = "playerListUpdated"
	MsgGameStarted        = "gameStarted"
	MsgNewQuestion        = "newQuestion"
	MsgAnswerResult       = "answerResult"
	MsgScoresUpdated      = "scoresUpdated"
	MsgAllAnswered        = "allAnswered"
	MsgTimeExpired        = "timeExpired"
	MsgAllPlayersAnswered = "allPlayersAnswered" // host only
	MsgGameOver           = "gameOver"
	MsgPromotedToHost     = "promotedToHost"
	MsgError              = "error"
)

type ClientMessage struct {
	Type       string     `json:"type"`
	Name       string     `json:"name,omitempty"`
	RoomCode   string     `json:"roomCode,omitempty"`
	PlayerName string     `json:"playerName,omitempty"`
	Questions  []Question `json:"questions,omitempty"`
	Answer     string     `json:"answer,omitempty"`
	TimeTaken  float64    `json:"timeTaken,omitempty"`
}

type ServerMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewServerMessage encodes payload as the data field. A nil payload leaves data empty.
func NewServerMessage(typ string, payload any) (ServerMessage, error) {
	msg := ServerMessage{Type: typ}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ServerMessage{}, err
	}
	msg.Data = data
	return msg, nil
}

// Decode unmarshals the data field into v.
func (m ServerMessage) Decode(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}
