// Package archive hands finished games to durable sinks.
package archive

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/DoyleJ11/quizrooms/pkg/types"
)

type GameResult struct {
	RoomCode       string           `json:"roomCode"`
	TotalQuestions int              `json:"totalQuestions"`
	FinishedAt     time.Time        `json:"finishedAt"`
	Standings      []types.Standing `json:"standings"`
}

type Recorder interface {
	Record(ctx context.Context, res GameResult) error
	Close() error
}

// Nop drops everything. Used when no sink is configured.
type Nop struct{}

func (Nop) Record(context.Context, GameResult) error { return nil }
func (Nop) Close() error { return nil }

// Multi records to every sink and reports all failures.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, res GameResult) error {
	var err error
	for _, r := range m {
		err = multierr.Append(err, r.Record(ctx, res))
	}
	return err
}

func (m Multi) Close() error {
	var err error
	for _, r := range m {
		err = multierr.Append(err, r.Close())
	}
	return err
}
