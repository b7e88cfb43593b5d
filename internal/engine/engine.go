package engine

import (
	"errors"
	"time"

	"github.com/DoyleJ11/quizrooms/pkg/types"
)

var ErrNotFound = errors.New("room not found")
var ErrAlreadyStarted = errors.New("game already in progress")
var ErrNotAuthorized = errors.New("only the host can do that")
var ErrInvalidQuestionIndex = errors.New("invalid question index")
var ErrDuplicateAnswer = errors.New("answer already submitted")
var ErrNotInProgress = errors.New("game not in progress")
var ErrQuestionClosed = errors.New("question already closed")
var ErrNoQuestions = errors.New("no questions")
var ErrInvalidQuestion = errors.New("invalid question")
var ErrInvalidName = errors.New("invalid player name")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrAlreadyJoined = errors.New("player already in room")
var ErrStaleTimer = errors.New("stale timer fire")
var ErrRoomClosed = errors.New("room closed")
var ErrUnsupportedCommand = errors.New("unsupported command")

const (
	DefaultQuestionDuration = 30 * time.Second
	BonusWindowMs           = 500
	BaseAward               = 1000
	MaxNameLength           = 32
)

type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseInProgress Phase = "inProgress"
	PhaseOver       Phase = "over"
)

type Player struct {
	ID    string
	Name  string
	Ready bool
}

type Rules struct {
	QuestionDuration time.Duration
}

type State struct {
	Code    string
	HostID  string
	Players []Player // join order, also host succession order
	Phase   Phase
	Rules   Rules

	Questions       []types.Question
	CurrentQuestion int // 1-indexed count of questions sent
	Scores          map[string]int
	Answered        map[string]bool
	QuestionOpen    bool
	QuestionStarted time.Time

	TimerEpoch uint64
	TimerLive  bool
}

type CommandType string

const (
	CmdJoin         CommandType = "Join"
	CmdLeave        CommandType = "Leave"
	CmdSetReady     CommandType = "SetReady"
	CmdStartGame    CommandType = "StartGame"
	CmdNextQuestion CommandType = "NextQuestion"
	CmdSubmitAnswer CommandType = "SubmitAnswer"
	CmdTimerExpired CommandType = "TimerExpired"
)

/*
	CmdJoin         -> roomCreated | roomJoined -> playerListUpdated
	CmdLeave        -> (promotedToHost) -> playerListUpdated -> (allAnswered) | roomEmptied
	CmdSetReady     -> playerListUpdated
	CmdStartGame    -> gameStarted -> newQuestion -> timerArmed
	CmdNextQuestion -> timerCancelled? -> newQuestion -> timerArmed | gameOver
	CmdSubmitAnswer -> answerResult -> scoresUpdated -> (timerCancelled -> allAnswered -> allPlayersAnswered)
	CmdTimerExpired -> timeExpired -> allPlayersAnswered
*/

type Command struct {
	Type          CommandType
	PlayerID      string
	Name          string
	Questions     []types.Question
	Answer        string
	ElapsedMs     float64
	Epoch         uint64
	QuestionIndex int
	Now           time.Time
}

type EventType string

const (
	EvtRoomCreated        EventType = types.MsgRoomCreated
	EvtRoomJoined         EventType = types.MsgRoomJoined
	EvtPlayerListUpdated  EventType = types.MsgPlayerListUpdated
	EvtGameStarted        EventType = types.MsgGameStarted
	EvtNewQuestion        EventType = types.MsgNewQuestion
	EvtAnswerResult       EventType = types.MsgAnswerResult
	EvtScoresUpdated      EventType = types.MsgScoresUpdated
	EvtAllAnswered        EventType = types.MsgAllAnswered
	EvtTimeExpired        EventType = types.MsgTimeExpired
	EvtAllPlayersAnswered EventType = types.MsgAllPlayersAnswered
	EvtGameOver           EventType = types.MsgGameOver
	EvtPromotedToHost     EventType = types.MsgPromotedToHost

	// Never sent to clients.
	EvtTimerArmed     EventType = "timerArmed"
	EvtTimerCancelled EventType = "timerCancelled"
	EvtRoomEmptied    EventType = "roomEmptied"
)

type Event struct {
	Type    EventType
	To      string // player id, empty means the whole room
	Payload any
}

// Internal reports whether the event is for the room itself rather than its clients.
func (e Event) Internal() bool {
	switch e.Type {
	case EvtTimerArmed, EvtTimerCancelled, EvtRoomEmptied:
		return true
	}
	return false
}

// TimerSpec is the payload of EvtTimerArmed and EvtTimerCancelled.
type TimerSpec struct {
	Epoch         uint64
	QuestionIndex int
	Duration      time.Duration
}

// Apply runs cmd against s. On error the returned state is s untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	next := s.Clone()
	var (
		events []Event
		err    error
	)

	switch cmd.Type {
	case CmdJoin:
		events, err = join(&next, cmd.PlayerID, cmd.Name)
	case CmdLeave:
		events, err = leave(&next, cmd.PlayerID)
	case CmdSetReady:
		events, err = setReady(&next, cmd.PlayerID)
	case CmdStartGame:
		events, err = start(&next, cmd.PlayerID, cmd.Questions, cmd.Now)
	case CmdNextQuestion:
		events, err = requestAdvance(&next, cmd.PlayerID, cmd.Now)
	case CmdSubmitAnswer:
		events, err = submit(&next, cmd.PlayerID, cmd.Answer, cmd.ElapsedMs)
	case CmdTimerExpired:
		events, err = expire(&next, cmd.Epoch, cmd.QuestionIndex)
	default:
		err = ErrUnsupportedCommand
	}

	if err != nil {
		return nil, s, err
	}
	return events, next, nil
}
