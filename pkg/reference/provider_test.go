//nolint:thelper,funlen,lll // ok for tests
package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spaPack = `
track: spa
car: gt3
trackLength: 7004
segments:
  - id: s1
    name: Kemmel Straight
    type: straight
    startPct: 0.0
    endPct: 0.5
    sortOrder: 1
  - id: t1
    name: La Source
    type: corner
    startPct: 0.5
    endPct: 1.0
    sortOrder: 2
corners:
  - cornerId: t1
    brakePointPct: 0.52
    entrySpeed: 55
    apexSpeed: 18
    exitSpeed: 40
    throttlePointPct: 0.56
    steeringAngle: 0.4
    gear: 2
`

func writePackDir(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestPackProvider_Load(t *testing.T) {
	dir := writePackDir(t, map[string]string{"spa-gt3.yaml": spaPack})
	p, err := NewPackProvider(dir)
	require.NoError(t, err)

	pack, err := p.Pack(Key("spa", "gt3"))
	require.NoError(t, err)
	require.NotNil(t, pack)
	assert.Equal(t, "spa", pack.Track)
	assert.InDelta(t, 7004.0, pack.TrackLength, 1e-9)
	assert.Len(t, pack.Segments, 2)
	assert.Len(t, pack.Corners, 1)
	assert.Equal(t, "t1", pack.Corners[0].CornerID)
	assert.Equal(t, 2, pack.Corners[0].Gear)

	unknown, err := p.Pack(Key("monza", "gt3"))
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestPackProvider_SkipsBrokenFiles(t *testing.T) {
	dir := writePackDir(t, map[string]string{
		"spa-gt3.yaml": spaPack,
		"broken.yaml":  "{{{ not yaml",
		"no-key.yaml":  "trackLength: 1000",
		"notes.txt":    "ignored",
	})
	p, err := NewPackProvider(dir)
	require.NoError(t, err)

	pack, err := p.Pack(Key("spa", "gt3"))
	require.NoError(t, err)
	assert.NotNil(t, pack)
}

func TestPackProvider_MissingDir(t *testing.T) {
	_, err := NewPackProvider(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
