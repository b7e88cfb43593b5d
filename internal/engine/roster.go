package engine

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/DoyleJ11/quizrooms/pkg/types"
)

// NormalizeName trims and NFC-normalizes a display name, so visually equal
// names compare equal.
func NormalizeName(name string) (string, error) {
	n := norm.NFC.String(strings.TrimSpace(name))
	if n == "" || utf8.RuneCountInString(n) > MaxNameLength {
		return "", ErrInvalidName
	}
	return n, nil
}

func join(s *State, id, rawName string) ([]Event, error) {
	if id == "" {
		return nil, ErrUnknownPlayer
	}
	name, err := NormalizeName(rawName)
	if err != nil {
		return nil, err
	}
	if s.Phase == PhaseInProgress {
		return nil, ErrAlreadyStarted
	}
	if s.HasPlayer(id) {
		return nil, ErrAlreadyJoined
	}

	s.Players = append(s.Players, Player{ID: id, Name: name})
	s.Scores[id] = 0

	var events []Event
	if len(s.Players) == 1 {
		// First one in creates the room.
		s.HostID = id
		events = append(events, Event{
			Type:    EvtRoomCreated,
			To:      id,
			Payload: types.RoomJoined{RoomCode: s.Code, PlayerName: name, IsHost: true},
		})
	} else {
		events = append(events, Event{
			Type:    EvtRoomJoined,
			To:      id,
			Payload: types.RoomJoined{RoomCode: s.Code, PlayerName: name, IsHost: false},
		})
	}
	events = append(events, rosterEvent(s))
	return events, nil
}

func leave(s *State, id string) ([]Event, error) {
	idx := s.PlayerIndex(id)
	if idx < 0 {
		return nil, ErrUnknownPlayer
	}

	s.Players = append(s.Players[:idx], s.Players[idx+1:]...)
	delete(s.Scores, id)
	delete(s.Answered, id)

	var events []Event
	if len(s.Players) == 0 {
		events = append(events, cancelTimer(s)...)
		s.QuestionOpen = false
		s.HostID = ""
		return append(events, Event{Type: EvtRoomEmptied}), nil
	}

	if s.HostID == id {
		s.HostID = s.Players[0].ID
		events = append(events, Event{
			Type:    EvtPromotedToHost,
			To:      s.HostID,
			Payload: types.PromotedToHost{RoomCode: s.Code},
		})
	}
	events = append(events, rosterEvent(s))

	// The leaver no longer counts towards "everyone answered".
	if s.Phase == PhaseInProgress && s.QuestionOpen && everyoneAnswered(s) {
		events = append(events, resolveAllAnswered(s)...)
	}
	return events, nil
}

func setReady(s *State, id string) ([]Event, error) {
	idx := s.PlayerIndex(id)
	if idx < 0 {
		return nil, ErrUnknownPlayer
	}
	if s.Phase == PhaseInProgress {
		return nil, nil
	}
	s.Players[idx].Ready = true
	return []Event{rosterEvent(s)}, nil
}

func rosterEvent(s *State) Event {
	return Event{Type: EvtPlayerListUpdated, Payload: s.Roster()}
}
