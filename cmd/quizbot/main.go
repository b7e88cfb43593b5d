// Command quizbot plays a room over the websocket, for load and smoke tests.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/quizrooms/internal/client"
	"github.com/DoyleJ11/quizrooms/internal/questions"
	"github.com/DoyleJ11/quizrooms/pkg/types"
)

type options struct {
	url        string
	name       string
	room       string
	pack       string
	rounds     int
	minPlayers int
	accuracy   float64
	latency    time.Duration
}

func main() {
	var o options

	cmd := &cobra.Command{
		Use:           "quizbot",
		Short:         "Join or host a quiz room and answer automatically",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.room == "" && o.pack == "" {
				return errors.New("hosting needs --pack")
			}
			log, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return play(cmd.Context(), o, log.With(zap.String("bot", o.name)))
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.url, "url", "ws://localhost:8080/ws", "server websocket url")
	f.StringVar(&o.name, "name", "quizbot", "player name")
	f.StringVar(&o.room, "room", "", "room code to join; empty creates a room")
	f.StringVar(&o.pack, "pack", "", "question pack YAML, used when hosting")
	f.IntVar(&o.rounds, "questions", 10, "questions per game when hosting")
	f.IntVar(&o.minPlayers, "min-players", 1, "players to wait for before starting")
	f.Float64Var(&o.accuracy, "accuracy", 0.7, "chance of picking the right answer")
	f.DurationVar(&o.latency, "latency", 2*time.Second, "think time before answering")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func play(ctx context.Context, o options, log *zap.Logger) error {
	var round []types.Question
	if o.pack != "" {
		pack, err := questions.Load(o.pack)
		if err != nil {
			return err
		}
		round = pack.Round(o.rounds, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, err := client.Dial(ctx, o.url, client.NewMirror(nil, 0))
	if err != nil {
		return err
	}
	defer conn.Close()

	if o.room == "" {
		err = conn.CreateRoom(o.name)
	} else {
		err = conn.JoinRoom(o.room, o.name)
	}
	if err != nil {
		return err
	}

	started := false
	err = conn.Run(ctx, func(msg types.ServerMessage) {
		v := conn.Mirror().View()
		switch msg.Type {
		case types.MsgRoomCreated, types.MsgRoomJoined:
			log.Info("seated", zap.String("room", v.RoomCode), zap.Bool("host", v.IsHost))
			if err := conn.Ready(); err != nil {
				log.Warn("ready failed", zap.Error(err))
			}

		case types.MsgPlayerListUpdated:
			if v.IsHost && !started && len(v.Players) >= o.minPlayers && len(round) > 0 {
				started = true
				if err := conn.StartGame(round); err != nil {
					log.Warn("start failed", zap.Error(err))
				}
			}

		case types.MsgNewQuestion:
			answer := pick(v, o.accuracy)
			go answerLater(ctx, conn, answer, o.latency, log)

		case types.MsgAllPlayersAnswered:
			if v.CanAdvance {
				if err := conn.NextQuestion(); err != nil {
					log.Warn("advance failed", zap.Error(err))
				}
			}

		case types.MsgGameOver:
			for i, s := range v.FinalStandings {
				log.Info("final", zap.Int("place", i+1), zap.String("name", s.Name), zap.Int("score", s.Score))
			}
			cancel()

		case types.MsgError:
			log.Warn("server error", zap.String("message", v.LastError))
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func pick(v client.View, accuracy float64) string {
	if rand.Float64() < accuracy || len(v.Options) == 0 {
		return v.CorrectAnswer
	}
	return v.Options[rand.IntN(len(v.Options))]
}

func answerLater(ctx context.Context, conn *client.Conn, answer string, latency time.Duration, log *zap.Logger) {
	start := time.Now()
	select {
	case <-ctx.Done():
		return
	case <-time.After(latency):
	}
	if err := conn.SubmitAnswer(answer, time.Since(start)); err != nil && !errors.Is(err, client.ErrAlreadyAnswered) {
		log.Warn("submit failed", zap.Error(err))
	}
}
