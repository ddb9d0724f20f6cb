package reference

import (
	"slices"
	"sync"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

// Store holds the active segment layout and corner references for the
// current track+car. Corner references are superseded atomically when a
// faster verified lap is adopted; readers always observe a complete set.
type Store struct {
	mu          sync.RWMutex
	provider    Provider
	key         string
	trackLength float64
	segments    []model.Segment
	corners     map[string]*model.CornerReference
	l           *log.Logger
}

type StoreOption func(*Store)

func WithStoreLogger(l *log.Logger) StoreOption {
	return func(s *Store) {
		s.l = l
	}
}

func NewStore(provider Provider, opts ...StoreOption) *Store {
	s := &Store{
		provider: provider,
		corners:  make(map[string]*model.CornerReference),
		l:        log.Default().Named("refstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTrackCar loads the pack for the given combination. An unknown key
// leaves the store empty, which suppresses segment and corner analysis
// until metadata arrives.
func (s *Store) SetTrackCar(track, car string) error {
	key := Key(track, car)
	pack, err := s.provider.Pack(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	s.segments = nil
	s.corners = make(map[string]*model.CornerReference)
	s.trackLength = 0
	if pack == nil {
		s.l.Warn("no reference pack for key", log.String("key", key))
		return nil
	}
	s.segments = slices.Clone(pack.Segments)
	s.trackLength = pack.TrackLength
	for i := range pack.Corners {
		ref := pack.Corners[i]
		s.corners[ref.CornerID] = &ref
	}
	s.l.Info("references loaded",
		log.String("key", key),
		log.Int("segments", len(s.segments)),
		log.Int("corners", len(s.corners)))
	return nil
}

func (s *Store) Key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

func (s *Store) Segments() []model.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.segments)
}

func (s *Store) TrackLength() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trackLength
}

// CornerRef returns a copy of the active reference for the corner, or
// nil when none exists. The copy keeps in-flight analyses isolated from
// later supersessions.
func (s *Store) CornerRef(cornerID string) *model.CornerReference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.corners[cornerID]
	if !ok {
		return nil
	}
	cp := *ref
	return &cp
}

// Supersede atomically replaces the references of the given corners,
// e.g. after a faster verified lap was adopted.
func (s *Store) Supersede(refs ...model.CornerReference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range refs {
		ref := refs[i]
		s.corners[ref.CornerID] = &ref
	}
}
