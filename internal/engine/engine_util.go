package engine

import (
	"maps"
	"slices"
	"sort"

	"github.com/DoyleJ11/quizrooms/pkg/types"
)

func NewState(code string, rules Rules) State {
	if rules.QuestionDuration <= 0 {
		rules.QuestionDuration = DefaultQuestionDuration
	}
	return State{
		Code:     code,
		Phase:    PhaseLobby,
		Rules:    rules,
		Scores:   map[string]int{},
		Answered: map[string]bool{},
	}
}

// Clone deep-copies everything Apply mutates.
func (s State) Clone() State {
	c := s
	c.Players = slices.Clone(s.Players)
	c.Scores = maps.Clone(s.Scores)
	c.Answered = maps.Clone(s.Answered)
	if c.Scores == nil {
		c.Scores = map[string]int{}
	}
	if c.Answered == nil {
		c.Answered = map[string]bool{}
	}
	return c
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// CurrentIndex is the zero-based index of the active question.
func (s State) CurrentIndex() int { return s.CurrentQuestion - 1 }

func (s State) PlayerIndex(id string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == id })
}

func (s State) HasPlayer(id string) bool { return s.PlayerIndex(id) >= 0 }

func (s State) Roster() []types.PlayerInfo {
	out := make([]types.PlayerInfo, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, types.PlayerInfo{
			ID:     p.ID,
			Name:   p.Name,
			Ready:  p.Ready,
			IsHost: p.ID == s.HostID,
			Score:  s.Scores[p.ID],
		})
	}
	return out
}

// Scoreboard lists scores in join order.
func (s State) Scoreboard() []types.Standing {
	out := make([]types.Standing, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, types.Standing{Name: p.Name, Score: s.Scores[p.ID]})
	}
	return out
}

// Standings sorts by score descending. Ties keep join order.
func (s State) Standings() []types.Standing {
	out := s.Scoreboard()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
