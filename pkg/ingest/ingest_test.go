//nolint:thelper,funlen,lll // ok for tests
package ingest

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		ok     bool
		err    bool
		checks func(t *testing.T, s model.TelemetrySample)
	}{
		{
			name: "complete record",
			data: `{"timestamp":"2026-08-01T14:00:00Z","lap":3,"lapDistPct":0.42,"speed":51.5,"throttle":80,"brake":0,"steeringAngle":0.12,"gear":4}`,
			ok:   true,
			checks: func(t *testing.T, s model.TelemetrySample) {
				assert.Equal(t, 3, s.Lap)
				assert.InDelta(t, 0.42, s.LapDistPct, 1e-9)
				assert.InDelta(t, 51.5, s.Speed, 1e-9)
				assert.Equal(t, 4, s.Gear)
			},
		},
		{
			name: "missing lap",
			data: `{"lapDistPct":0.42,"speed":51.5}`,
			ok:   false,
			checks: func(t *testing.T, s model.TelemetrySample) {
				assert.Equal(t, model.LapUnknown, s.Lap)
			},
		},
		{
			name: "missing position",
			data: `{"lap":3,"speed":51.5}`,
			ok:   false,
			checks: func(t *testing.T, s model.TelemetrySample) {
				assert.True(t, math.IsNaN(s.LapDistPct))
			},
		},
		{
			name: "position out of range",
			data: `{"lap":3,"lapDistPct":1.2}`,
			ok:   false,
		},
		{
			name: "garbage",
			data: `{nope`,
			err:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok, err := Decode([]byte(tt.data))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if tt.checks != nil {
				tt.checks(t, s)
			}
		})
	}
}

func TestFileReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.jsonl")
	content := `{"lap":1,"lapDistPct":0.1,"speed":50}
{"lap":1,"lapDistPct":0.2,"speed":52}

{"speed":60}
{"lap":1,"lapDistPct":0.3,"speed":55}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r := NewFileReader(path)
	out := make(chan model.TelemetrySample, 10)
	require.NoError(t, r.Run(context.Background(), out))
	close(out)

	var got []model.TelemetrySample
	for s := range out {
		got = append(got, s)
	}
	assert.Len(t, got, 3)
	assert.InDelta(t, 0.3, got[2].LapDistPct, 1e-9)
	assert.Equal(t, int64(1), r.Dropped())
}

func TestFileReader_MissingFile(t *testing.T) {
	r := NewFileReader(filepath.Join(t.TempDir(), "nope.jsonl"))
	out := make(chan model.TelemetrySample, 1)
	assert.Error(t, r.Run(context.Background(), out))
}
