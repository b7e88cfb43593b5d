// Package client keeps a player's local view of a room in step with the
// server. It never decides scores or the end of a question; it only
// applies what the server announces.
package client

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/DoyleJ11/quizrooms/pkg/types"
)

var ErrUnknownEvent = errors.New("unknown server event")

type Phase string

const (
	PhaseNone    Phase = ""
	PhaseLobby   Phase = "lobby"
	PhasePlaying Phase = "playing"
	PhaseOver    Phase = "over"
)

// View is a point-in-time copy of the mirror.
type View struct {
	Phase      Phase
	RoomCode   string
	PlayerName string
	IsHost     bool
	Players    []types.PlayerInfo
	Scores     []types.Standing

	QuestionNumber int
	TotalQuestions int
	Image          string
	Options        []string
	CorrectAnswer  string
	Revealed       bool
	TimedOut       bool
	HasAnswered    bool
	SelectedAnswer string
	LastResult     *types.AnswerResult
	MyScore        int
	// CanAdvance is set for the host once the server says everyone is done.
	CanAdvance bool

	FinalStandings []types.Standing
	LastError      string
}

type Mirror struct {
	mu        sync.RWMutex
	v         View
	countdown *Countdown
	duration  time.Duration
}

// NewMirror builds an empty mirror. questionTime is the length of the local
// countdown started on every newQuestion.
func NewMirror(clock clockwork.Clock, questionTime time.Duration) *Mirror {
	if questionTime <= 0 {
		questionTime = 30 * time.Second
	}
	return &Mirror{countdown: NewCountdown(clock), duration: questionTime}
}

func (m *Mirror) Countdown() *Countdown { return m.countdown }

func (m *Mirror) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v := m.v
	v.Players = slices.Clone(m.v.Players)
	v.Scores = slices.Clone(m.v.Scores)
	v.Options = slices.Clone(m.v.Options)
	v.FinalStandings = slices.Clone(m.v.FinalStandings)
	if m.v.LastResult != nil {
		r := *m.v.LastResult
		v.LastResult = &r
	}
	return v
}

// MarkAnswered records a local pick before it is sent. It refuses a second
// pick for the same question or one after the answer was revealed.
func (m *Mirror) MarkAnswered(answer string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.v.Phase != PhasePlaying || m.v.HasAnswered || m.v.Revealed {
		return false
	}
	m.v.HasAnswered = true
	m.v.SelectedAnswer = answer
	return true
}

// Apply folds one server event into the mirror.
func (m *Mirror) Apply(msg types.ServerMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch msg.Type {
	case types.MsgRoomCreated, types.MsgRoomJoined:
		var p types.RoomJoined
		if err := msg.Decode(&p); err != nil {
			return decodeErr(msg.Type, err)
		}
		m.v = View{Phase: PhaseLobby, RoomCode: p.RoomCode, PlayerName: p.PlayerName, IsHost: p.IsHost}

	case types.MsgPlayerListUpdated:
		var players []types.PlayerInfo
		if err := msg.Decode(&players); err != nil {
			return decodeErr(msg.Type, err)
		}
		m.v.Players = players

	case types.MsgGameStarted:
		var p types.GameStarted
		if err := msg.Decode(&p); err != nil {
			return decodeErr(msg.Type, err)
		}
		m.v.Phase = PhasePlaying
		m.v.TotalQuestions = p.TotalQuestions
		m.v.QuestionNumber = 0
		m.v.MyScore = 0
		m.v.FinalStandings = nil
		m.v.LastResult = nil

	case types.MsgNewQuestion:
		var p types.NewQuestion
		if err := msg.Decode(&p); err != nil {
			return decodeErr(msg.Type, err)
		}
		m.v.Phase = PhasePlaying
		m.v.QuestionNumber = p.QuestionNumber
		m.v.TotalQuestions = p.TotalQuestions
		m.v.Image = p.Image
		m.v.Options = p.Options
		m.v.CorrectAnswer = p.CorrectAnswer
		m.v.Revealed = false
		m.v.TimedOut = false
		m.v.HasAnswered = false
		m.v.SelectedAnswer = ""
		m.v.CanAdvance = false
		m.countdown.Start(m.duration)

	case types.MsgAnswerResult:
		var p types.AnswerResult
		if err := msg.Decode(&p); err != nil {
			return decodeErr(msg.Type, err)
		}
		m.v.LastResult = &p
		m.v.MyScore = p.TotalScore
		m.v.HasAnswered = true

	case types.MsgScoresUpdated:
		var scores []types.Standing
		if err := msg.Decode(&scores); err != nil {
			return decodeErr(msg.Type, err)
		}
		m.v.Scores = scores

	case types.MsgAllAnswered, types.MsgTimeExpired:
		var p types.Reveal
		if err := msg.Decode(&p); err != nil {
			return decodeErr(msg.Type, err)
		}
		m.v.Revealed = true
		m.v.CorrectAnswer = p.CorrectAnswer
		m.v.TimedOut = msg.Type == types.MsgTimeExpired
		m.countdown.ForceComplete()

	case types.MsgAllPlayersAnswered:
		m.v.CanAdvance = m.v.IsHost

	case types.MsgGameOver:
		var p types.GameOver
		if err := msg.Decode(&p); err != nil {
			return decodeErr(msg.Type, err)
		}
		m.v.Phase = PhaseOver
		m.v.FinalStandings = p.Scores
		m.v.CanAdvance = false
		m.countdown.ForceComplete()

	case types.MsgPromotedToHost:
		m.v.IsHost = true

	case types.MsgError:
		var p types.Error
		if err := msg.Decode(&p); err != nil {
			return decodeErr(msg.Type, err)
		}
		m.v.LastError = p.Message

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}
	return nil
}

func decodeErr(typ string, err error) error {
	return fmt.Errorf("decoding %s: %w", typ, err)
}
