// Package ingest normalizes raw telemetry records into
// model.TelemetrySample values. Records are validated once here;
// incomplete ones (missing lap or position) are dropped and counted,
// never surfaced as errors.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

// sampleDTO is the wire format. Pointer fields distinguish missing
// values from zero values.
type sampleDTO struct {
	Timestamp     *time.Time `json:"timestamp"`
	Lap           *int       `json:"lap"`
	LapDistPct    *float64   `json:"lapDistPct"`
	Speed         float64    `json:"speed"`
	Throttle      float64    `json:"throttle"`
	Brake         float64    `json:"brake"`
	SteeringAngle float64    `json:"steeringAngle"`
	Gear          int        `json:"gear"`
}

// Decode parses one raw record. ok is false for records missing lap or
// position information.
func Decode(data []byte) (sample model.TelemetrySample, ok bool, err error) {
	var dto sampleDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return model.TelemetrySample{}, false, fmt.Errorf("decoding sample: %w", err)
	}
	sample = model.TelemetrySample{
		Timestamp:     time.Now(),
		Lap:           model.LapUnknown,
		LapDistPct:    model.PosUnknown,
		Speed:         dto.Speed,
		Throttle:      dto.Throttle,
		Brake:         dto.Brake,
		SteeringAngle: dto.SteeringAngle,
		Gear:          dto.Gear,
	}
	if dto.Timestamp != nil {
		sample.Timestamp = *dto.Timestamp
	}
	if dto.Lap != nil {
		sample.Lap = *dto.Lap
	}
	if dto.LapDistPct != nil {
		sample.LapDistPct = *dto.LapDistPct
	}
	return sample, sample.Valid(), nil
}

// FileReader replays a JSON-lines telemetry file, e.g. a recorded
// session dump.
type FileReader struct {
	path    string
	dropped atomic.Int64
	l       *log.Logger
}

func NewFileReader(path string) *FileReader {
	return &FileReader{
		path: path,
		l:    log.Default().Named("ingest"),
	}
}

// Run reads the whole file, sending complete samples to out. It returns
// when the file is exhausted or the context is cancelled.
func (r *FileReader) Run(ctx context.Context, out chan<- model.TelemetrySample) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("opening telemetry file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		sample, ok, err := Decode(line)
		if err != nil || !ok {
			r.dropped.Add(1)
			continue
		}
		select {
		case out <- sample:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n := r.dropped.Load(); n > 0 {
		r.l.Info("incomplete samples dropped", log.Int64("count", n))
	}
	return scanner.Err()
}

// Dropped counts records discarded at the boundary.
func (r *FileReader) Dropped() int64 { return r.dropped.Load() }
