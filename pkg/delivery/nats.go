// Package delivery publishes emitted coaching output to downstream
// consumers over NATS.
package delivery

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

const defaultPrefix = "gt3"

type Publisher struct {
	conn   *nats.Conn
	prefix string
	l      *log.Logger
}

type Option func(*Publisher)

func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.l = l
	}
}

func NewPublisher(conn *nats.Conn, opts ...Option) *Publisher {
	p := &Publisher{
		conn:   conn,
		prefix: defaultPrefix,
		l:      log.Default().Named("delivery"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishMessage sends one coaching message on <prefix>.coaching.<session>.
func (p *Publisher) PublishMessage(sessionID string, msg model.CoachingMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	return p.conn.Publish(fmt.Sprintf("%s.coaching.%s", p.prefix, sessionID), data)
}

// PublishSummary sends the session summary on <prefix>.summary.<session>.
func (p *Publisher) PublishSummary(summary model.SessionSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return p.conn.Publish(fmt.Sprintf("%s.summary.%s", p.prefix, summary.SessionID), data)
}
