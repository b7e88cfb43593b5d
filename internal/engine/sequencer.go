package engine

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/DoyleJ11/quizrooms/pkg/types"
)

func start(s *State, id string, questions []types.Question, now time.Time) ([]Event, error) {
	if id != s.HostID {
		return nil, ErrNotAuthorized
	}
	if s.Phase == PhaseInProgress {
		return nil, ErrAlreadyStarted
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Name) == "" {
			return nil, fmt.Errorf("question %d: %w", i+1, ErrInvalidQuestion)
		}
	}

	s.Questions = slices.Clone(questions)
	for _, p := range s.Players {
		s.Scores[p.ID] = 0
	}
	clear(s.Answered)
	s.Phase = PhaseInProgress
	s.CurrentQuestion = 0

	events := []Event{{Type: EvtGameStarted, Payload: types.GameStarted{TotalQuestions: len(s.Questions)}}}
	return append(events, advance(s, now)...), nil
}

func requestAdvance(s *State, id string, now time.Time) ([]Event, error) {
	if s.Phase != PhaseInProgress {
		return nil, ErrNotInProgress
	}
	if id != s.HostID {
		return nil, ErrNotAuthorized
	}
	return advance(s, now), nil
}

// advance is the only place CurrentQuestion moves.
func advance(s *State, now time.Time) []Event {
	events := cancelTimer(s)
	s.CurrentQuestion++
	clear(s.Answered)

	if s.CurrentQuestion > len(s.Questions) {
		s.Phase = PhaseOver
		s.QuestionOpen = false
		return append(events, Event{Type: EvtGameOver, Payload: types.GameOver{Scores: s.Standings()}})
	}

	q := s.Questions[s.CurrentIndex()]
	s.QuestionOpen = true
	s.QuestionStarted = now
	s.TimerEpoch++
	s.TimerLive = true

	return append(events,
		Event{Type: EvtNewQuestion, Payload: types.NewQuestion{
			QuestionNumber: s.CurrentQuestion,
			TotalQuestions: len(s.Questions),
			Image:          q.Image,
			Options:        q.Options,
			CorrectAnswer:  q.Name,
		}},
		Event{Type: EvtTimerArmed, Payload: TimerSpec{
			Epoch:         s.TimerEpoch,
			QuestionIndex: s.CurrentIndex(),
			Duration:      s.Rules.QuestionDuration,
		}},
	)
}

func expire(s *State, epoch uint64, index int) ([]Event, error) {
	if s.Phase != PhaseInProgress || !s.TimerLive || !s.QuestionOpen {
		return nil, ErrStaleTimer
	}
	if epoch != s.TimerEpoch || index != s.CurrentIndex() {
		return nil, ErrStaleTimer
	}

	s.TimerLive = false
	s.QuestionOpen = false
	q := s.Questions[index]
	return []Event{
		{Type: EvtTimeExpired, Payload: types.Reveal{CorrectAnswer: q.Name}},
		{Type: EvtAllPlayersAnswered, To: s.HostID},
	}, nil
}

func cancelTimer(s *State) []Event {
	if !s.TimerLive {
		return nil
	}
	s.TimerLive = false
	return []Event{{Type: EvtTimerCancelled, Payload: TimerSpec{Epoch: s.TimerEpoch, QuestionIndex: s.CurrentIndex()}}}
}
