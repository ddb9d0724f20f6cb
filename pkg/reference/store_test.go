//nolint:thelper,funlen // ok for tests
package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

func spaStore(t *testing.T) *Store {
	dir := writePackDir(t, map[string]string{"spa-gt3.yaml": spaPack})
	p, err := NewPackProvider(dir)
	require.NoError(t, err)
	return NewStore(p)
}

func TestStore_SetTrackCar(t *testing.T) {
	s := spaStore(t)
	require.NoError(t, s.SetTrackCar("spa", "gt3"))
	assert.Equal(t, "spa|gt3", s.Key())
	assert.Len(t, s.Segments(), 2)
	assert.InDelta(t, 7004.0, s.TrackLength(), 1e-9)
	assert.NotNil(t, s.CornerRef("t1"))
	assert.Nil(t, s.CornerRef("t99"))
}

// an unknown combination empties the store without failing; analysis
// stays silent until a pack arrives
func TestStore_UnknownKey(t *testing.T) {
	s := spaStore(t)
	require.NoError(t, s.SetTrackCar("spa", "gt3"))
	require.NoError(t, s.SetTrackCar("monza", "gt3"))
	assert.Empty(t, s.Segments())
	assert.Nil(t, s.CornerRef("t1"))
	assert.InDelta(t, 0.0, s.TrackLength(), 1e-9)
}

func TestStore_CornerRefIsCopy(t *testing.T) {
	s := spaStore(t)
	require.NoError(t, s.SetTrackCar("spa", "gt3"))

	ref := s.CornerRef("t1")
	require.NotNil(t, ref)
	ref.ApexSpeed = 999
	assert.InDelta(t, 18.0, s.CornerRef("t1").ApexSpeed, 1e-9)
}

func TestStore_Supersede(t *testing.T) {
	s := spaStore(t)
	require.NoError(t, s.SetTrackCar("spa", "gt3"))

	s.Supersede(model.CornerReference{CornerID: "t1", ApexSpeed: 20, Gear: 3})
	ref := s.CornerRef("t1")
	require.NotNil(t, ref)
	assert.InDelta(t, 20.0, ref.ApexSpeed, 1e-9)
	assert.Equal(t, 3, ref.Gear)
}
