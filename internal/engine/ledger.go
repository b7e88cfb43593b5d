package engine

import (
	"math"

	"github.com/DoyleJ11/quizrooms/pkg/types"
)

// Points awards BaseAward plus a bonus of BonusWindowMs minus the reported
// latency, floored. Wrong answers score nothing.
func Points(correct bool, elapsedMs float64) int {
	if !correct {
		return 0
	}
	if math.IsNaN(elapsedMs) || math.IsInf(elapsedMs, 1) {
		return BaseAward
	}
	elapsedMs = math.Max(0, elapsedMs)
	return BaseAward + int(math.Floor(math.Max(0, BonusWindowMs-elapsedMs)))
}

func submit(s *State, id, answer string, elapsedMs float64) ([]Event, error) {
	if s.Phase != PhaseInProgress {
		return nil, ErrNotInProgress
	}
	if !s.HasPlayer(id) {
		return nil, ErrUnknownPlayer
	}
	if s.Answered[id] {
		return nil, ErrDuplicateAnswer
	}
	if !s.QuestionOpen {
		return nil, ErrQuestionClosed
	}
	idx := s.CurrentIndex()
	if idx < 0 || idx >= len(s.Questions) {
		return nil, ErrInvalidQuestionIndex
	}

	q := s.Questions[idx]
	correct := answer == q.Name
	points := Points(correct, elapsedMs)
	s.Scores[id] += points
	s.Answered[id] = true

	events := []Event{
		{Type: EvtAnswerResult, To: id, Payload: types.AnswerResult{
			IsCorrect:     correct,
			CorrectAnswer: q.Name,
			Points:        points,
			TotalScore:    s.Scores[id],
		}},
		{Type: EvtScoresUpdated, Payload: s.Scoreboard()},
	}

	if everyoneAnswered(s) {
		events = append(events, resolveAllAnswered(s)...)
	}
	return events, nil
}

func everyoneAnswered(s *State) bool {
	for _, p := range s.Players {
		if !s.Answered[p.ID] {
			return false
		}
	}
	return len(s.Players) > 0
}

func resolveAllAnswered(s *State) []Event {
	events := cancelTimer(s)
	s.QuestionOpen = false
	q := s.Questions[s.CurrentIndex()]
	return append(events,
		Event{Type: EvtAllAnswered, Payload: types.Reveal{CorrectAnswer: q.Name}},
		Event{Type: EvtAllPlayersAnswered, To: s.HostID},
	)
}
