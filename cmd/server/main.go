package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/quizrooms/internal/archive"
	"github.com/DoyleJ11/quizrooms/internal/config"
	"github.com/DoyleJ11/quizrooms/internal/engine"
	"github.com/DoyleJ11/quizrooms/internal/httpapi"
	"github.com/DoyleJ11/quizrooms/internal/hub"
	"github.com/DoyleJ11/quizrooms/internal/ws"
)

func main() {
	var envFile, addr string

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Run the quiz room coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading QUIZ_* variables")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides QUIZ_HTTP_ADDR")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zc.Build()
}

func openRecorder(cfg *config.Config, log *zap.Logger) (archive.Recorder, httpapi.GameLister, error) {
	var recs archive.Multi
	var games httpapi.GameLister

	if cfg.ArchiveDSN != "" {
		store, err := archive.OpenGorm(cfg.ArchiveDSN)
		if err != nil {
			return nil, nil, err
		}
		recs = append(recs, store)
		games = store
		log.Info("archiving games to postgres")
	}
	if cfg.NATSURL != "" {
		pub, err := archive.ConnectNATS(cfg.NATSURL, cfg.NATSSubject, log)
		if err != nil {
			return nil, nil, multierr.Append(err, recs.Close())
		}
		recs = append(recs, pub)
		log.Info("publishing results", zap.String("subject", cfg.NATSSubject))
	}

	if len(recs) == 0 {
		return archive.Nop{}, nil, nil
	}
	return recs, games, nil
}

func run(ctx context.Context, cfg *config.Config) (err error) {
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	rec, games, err := openRecorder(cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, rec.Close()) }()

	h := hub.NewHub(ctx, hub.Config{
		Rules:    engine.Rules{QuestionDuration: cfg.QuestionDuration},
		Logger:   log,
		Recorder: rec,
	})

	handler := httpapi.SetupRoutes(h, httpapi.Deps{
		Logger: log,
		WS: ws.Options{
			OutboxSize:     cfg.OutboxSize,
			PingInterval:   cfg.PingInterval,
			OriginPatterns: cfg.AllowedOrigins,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		PublicURL:      cfg.PublicURL,
		Games:          games,
	})
	srv := httpapi.NewServer(cfg.HTTPAddr, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownErr := srv.Shutdown(context.Background())
		h.Shutdown()
		return shutdownErr
	})
	return g.Wait()
}
