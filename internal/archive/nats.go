package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const DefaultSubject = "quiz.games.finished"

type publisher interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher announces finished games on a subject as JSON.
type NATSPublisher struct {
	conn    publisher
	subject string
}

func ConnectNATS(url, subject string, log *zap.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("quizrooms"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return newNATSPublisher(nc, subject), nil
}

func newNATSPublisher(conn publisher, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: conn, subject: subject}
}

func (p *NATSPublisher) Record(ctx context.Context, res GameResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

func (p *NATSPublisher) Close() error { return p.conn.Drain() }
