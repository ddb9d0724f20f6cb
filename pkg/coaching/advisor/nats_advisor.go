package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
)

const defaultRequestTimeout = 2 * time.Second

// NatsAdvisor delegates to a generative advisory service over NATS
// request/reply. The situation is published as JSON; the reply payload
// is the coaching prose.
type NatsAdvisor struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	l       *log.Logger
}

type NatsOption func(*NatsAdvisor)

func WithTimeout(d time.Duration) NatsOption {
	return func(a *NatsAdvisor) {
		a.timeout = d
	}
}

func WithLogger(l *log.Logger) NatsOption {
	return func(a *NatsAdvisor) {
		a.l = l
	}
}

func NewNatsAdvisor(conn *nats.Conn, subject string, opts ...NatsOption) *NatsAdvisor {
	a := &NatsAdvisor{
		conn:    conn,
		subject: subject,
		timeout: defaultRequestTimeout,
		l:       log.Default().Named("advisor"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *NatsAdvisor) Source() string { return "advisory" }

// Advise requests prose from the remote service. Timeouts and transport
// errors are returned to the caller, which treats them as "no candidate
// message this cycle" rather than a pipeline failure.
func (a *NatsAdvisor) Advise(ctx context.Context, sit Situation) (string, error) {
	payload, err := json.Marshal(sit)
	if err != nil {
		return "", fmt.Errorf("encoding situation: %w", err)
	}
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	msg, err := a.conn.RequestWithContext(reqCtx, a.subject, payload)
	if err != nil {
		a.l.Debug("advisory request failed", log.ErrorField(err))
		return "", fmt.Errorf("advisory request: %w", err)
	}
	return string(msg.Data), nil
}
