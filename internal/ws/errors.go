package ws

import (
	"errors"

	"github.com/DoyleJ11/quizrooms/internal/engine"
)

// UserMessage maps an error to the text shown to the player.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, engine.ErrRoomClosed):
		return "Room not found"
	case errors.Is(err, engine.ErrAlreadyStarted):
		return "Game already in progress"
	case errors.Is(err, engine.ErrNotAuthorized):
		return "Only the host can start the game"
	case errors.Is(err, engine.ErrInvalidName):
		return "Please enter a valid name"
	case errors.Is(err, engine.ErrNoQuestions):
		return "No questions to play"
	case errors.Is(err, engine.ErrInvalidQuestion):
		return "Invalid question list"
	case errors.Is(err, errAlreadyInRoom), errors.Is(err, engine.ErrAlreadyJoined):
		return "Already in a room"
	default:
		return "Something went wrong"
	}
}
