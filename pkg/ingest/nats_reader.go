package ingest

import (
	"context"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

// NatsReader consumes live telemetry records published by the
// acquisition layer.
type NatsReader struct {
	conn    *nats.Conn
	subject string
	dropped atomic.Int64
	l       *log.Logger
}

func NewNatsReader(conn *nats.Conn, subject string) *NatsReader {
	return &NatsReader{
		conn:    conn,
		subject: subject,
		l:       log.Default().Named("ingest"),
	}
}

// Run subscribes and forwards complete samples to out until the context
// is cancelled.
func (r *NatsReader) Run(ctx context.Context, out chan<- model.TelemetrySample) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		sample, ok, err := Decode(msg.Data)
		if err != nil || !ok {
			r.dropped.Add(1)
			return
		}
		select {
		case out <- sample:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe() //nolint:errcheck // shutdown path

	<-ctx.Done()
	if n := r.dropped.Load(); n > 0 {
		r.l.Info("incomplete samples dropped", log.Int64("count", n))
	}
	return nil
}

// Dropped counts records discarded at the boundary.
func (r *NatsReader) Dropped() int64 { return r.dropped.Load() }
