package service

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/noah-isme/gema-grader-api/internal/dto"
)

// AnalysisPublisher announces completed analyses to interested consumers.
type AnalysisPublisher interface {
	PublishAnalysis(ctx context.Context, event dto.AnalysisEvent) error
}

type natsAnalysisPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSAnalysisPublisher publishes analysis events on the given subject.
// A nil connection or empty subject makes publishing a no-op.
func NewNATSAnalysisPublisher(conn *nats.Conn, subject string) AnalysisPublisher {
	return &natsAnalysisPublisher{conn: conn, subject: subject}
}

func (p *natsAnalysisPublisher) PublishAnalysis(_ context.Context, event dto.AnalysisEvent) error {
	if p.conn == nil || p.subject == "" {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, payload)
}
