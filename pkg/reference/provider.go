// Package reference supplies segment and corner definitions per
// track+car key. Providers return nothing for unknown keys; the core
// degrades to "no feedback" instead of failing.
package reference

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

// Key builds the lookup key for a track+car combination.
func Key(track, car string) string {
	return track + "|" + car
}

// Pack is one reference file: the segment layout and corner baselines
// for a track+car combination.
type Pack struct {
	Track       string                  `yaml:"track"`
	Car         string                  `yaml:"car"`
	TrackLength float64                 `yaml:"trackLength"` // meters
	Segments    []model.Segment         `yaml:"segments"`
	Corners     []model.CornerReference `yaml:"corners"`
}

func (p *Pack) Key() string { return Key(p.Track, p.Car) }

// Provider resolves a reference pack for a key. Unknown keys yield
// (nil, nil).
type Provider interface {
	Pack(key string) (*Pack, error)
}

// PackProvider loads YAML reference packs from a directory.
type PackProvider struct {
	dir   string
	mu    sync.RWMutex
	packs map[string]*Pack
	l     *log.Logger
}

type PackProviderOption func(*PackProvider)

func WithLogger(l *log.Logger) PackProviderOption {
	return func(p *PackProvider) {
		p.l = l
	}
}

func NewPackProvider(dir string, opts ...PackProviderOption) (*PackProvider, error) {
	p := &PackProvider{
		dir:   dir,
		packs: make(map[string]*Pack),
		l:     log.Default().Named("reference"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PackProvider) Pack(key string) (*Pack, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.packs[key], nil
}

// Reload re-reads every pack file in the directory. Files that fail to
// parse are skipped with a warning so one broken pack cannot take down
// the rest.
func (p *PackProvider) Reload() error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("reading reference dir: %w", err)
	}
	packs := make(map[string]*Pack)
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(p.dir, entry.Name())
		pack, err := readPack(path)
		if err != nil {
			p.l.Warn("skipping reference pack",
				log.String("file", entry.Name()), log.ErrorField(err))
			continue
		}
		packs[pack.Key()] = pack
	}
	p.mu.Lock()
	p.packs = packs
	p.mu.Unlock()
	p.l.Info("reference packs loaded",
		log.String("dir", p.dir), log.Int("count", len(packs)))
	return nil
}

func readPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if pack.Track == "" || pack.Car == "" {
		return nil, fmt.Errorf("%s: track and car are required", filepath.Base(path))
	}
	return &pack, nil
}
