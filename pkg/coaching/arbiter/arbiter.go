package arbiter

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/config"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

// Arbiter turns candidate coaching messages from multiple concurrent
// producers into a single rate-limited output stream. Submissions are
// safe under concurrent calls; Next is non-blocking and polled by the
// delivery layer.
type Arbiter struct {
	mu  sync.Mutex
	cfg config.ArbiterConfig

	pending      []model.CoachingMessage
	lastPriority map[model.Priority]time.Time
	lastCategory map[string]time.Time

	rejected int
	evicted  int

	now func() time.Time
	l   *log.Logger
}

type Option func(*Arbiter)

func WithConfig(cfg config.ArbiterConfig) Option {
	return func(a *Arbiter) {
		a.cfg = cfg
	}
}

// WithClock injects the time source, used by tests to step cooldowns.
func WithClock(now func() time.Time) Option {
	return func(a *Arbiter) {
		a.now = now
	}
}

func WithLogger(l *log.Logger) Option {
	return func(a *Arbiter) {
		a.l = l
	}
}

func NewArbiter(opts ...Option) *Arbiter {
	a := &Arbiter{
		cfg:          config.DefaultCoachingConfig().Arbiter,
		pending:      make([]model.CoachingMessage, 0),
		lastPriority: make(map[model.Priority]time.Time),
		lastCategory: make(map[string]time.Time),
		now:          time.Now,
		l:            log.Default().Named("arbiter"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit admits a candidate message into the pending set and reports
// whether it was queued. Rejection happens on validation failure
// (missing category or content) or when the queue is full and the
// message cannot displace a lower-priority entry.
func (a *Arbiter) Submit(msg model.CoachingMessage) bool {
	if msg.Category == "" || msg.Content == "" {
		a.mu.Lock()
		a.rejected++
		a.mu.Unlock()
		return false
	}
	if msg.Priority.Rank() > model.PriorityLow.Rank() {
		msg.Priority = model.PriorityLow
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = a.now()
	}
	if len(a.pending) >= a.cfg.QueueSize {
		if !a.evictFor(&msg) {
			a.rejected++
			return false
		}
	}
	a.pending = append(a.pending, msg)
	return true
}

// evictFor drops one pending message of strictly lower priority to make
// room. Equal-priority overflow is rejected: admission control favors
// priority, not age.
func (a *Arbiter) evictFor(msg *model.CoachingMessage) bool {
	victim := -1
	for i := range a.pending {
		if a.pending[i].Priority.Rank() <= msg.Priority.Rank() {
			continue
		}
		if victim == -1 ||
			a.pending[i].Priority.Rank() > a.pending[victim].Priority.Rank() ||
			(a.pending[i].Priority.Rank() == a.pending[victim].Priority.Rank() &&
				a.pending[i].Timestamp.Before(a.pending[victim].Timestamp)) {
			victim = i
		}
	}
	if victim == -1 {
		return false
	}
	a.l.Debug("evicting pending message",
		log.String("id", a.pending[victim].ID),
		log.String("priority", string(a.pending[victim].Priority)))
	a.pending = slices.Delete(a.pending, victim, victim+1)
	a.evicted++
	return true
}

// Next returns the next message to deliver, or false when nothing is
// eligible. Near-duplicate eligible messages of the same category are
// combined into the returned message; emission resets both the priority
// and the category cooldown clock.
func (a *Arbiter) Next() (model.CoachingMessage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	eligible := make([]int, 0, len(a.pending))
	for i := range a.pending {
		if a.cooldownsElapsed(&a.pending[i], now) {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return model.CoachingMessage{}, false
	}

	best := eligible[0]
	for _, i := range eligible[1:] {
		if a.pending[i].Priority.Rank() < a.pending[best].Priority.Rank() ||
			(a.pending[i].Priority.Rank() == a.pending[best].Priority.Rank() &&
				a.pending[i].Timestamp.Before(a.pending[best].Timestamp)) {
			best = i
		}
	}

	group := []int{best}
	for _, i := range eligible {
		if i == best || a.pending[i].Category != a.pending[best].Category {
			continue
		}
		if similarity(a.pending[i].Content, a.pending[best].Content) >= a.cfg.SimilarityThreshold {
			group = append(group, i)
		}
	}

	emitted := a.combine(group)
	a.lastPriority[emitted.Priority] = now
	a.lastCategory[emitted.Category] = now

	slices.Sort(group)
	for n := len(group) - 1; n >= 0; n-- {
		a.pending = slices.Delete(a.pending, group[n], group[n]+1)
	}
	return emitted, true
}

// combine merges the group into a new message: primary content from the
// highest-confidence member, the rest carried as secondary content,
// confidence the maximum. The originals stay untouched.
func (a *Arbiter) combine(group []int) model.CoachingMessage {
	primary := group[0]
	for _, i := range group[1:] {
		if a.pending[i].Confidence > a.pending[primary].Confidence {
			primary = i
		}
	}
	emitted := a.pending[primary]
	emitted.Secondary = slices.Clone(emitted.Secondary)
	for _, i := range group {
		if i == primary {
			continue
		}
		emitted.Secondary = append(emitted.Secondary, a.pending[i].Content)
		if a.pending[i].Confidence > emitted.Confidence {
			emitted.Confidence = a.pending[i].Confidence
		}
	}
	return emitted
}

// Reset clears the pending set and all cooldown clocks (session end).
func (a *Arbiter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = a.pending[:0]
	a.lastPriority = make(map[model.Priority]time.Time)
	a.lastCategory = make(map[string]time.Time)
}

// Pending reports the current queue depth.
func (a *Arbiter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Rejected counts validation failures and full-queue rejections.
func (a *Arbiter) Rejected() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rejected
}

func (a *Arbiter) cooldownsElapsed(msg *model.CoachingMessage, now time.Time) bool {
	if last, ok := a.lastPriority[msg.Priority]; ok {
		if now.Sub(last) < a.priorityCooldown(msg.Priority) {
			return false
		}
	}
	if last, ok := a.lastCategory[msg.Category]; ok {
		if now.Sub(last) < a.categoryCooldown(msg.Category) {
			return false
		}
	}
	return true
}

func (a *Arbiter) priorityCooldown(p model.Priority) time.Duration {
	if d, ok := a.cfg.PriorityCooldowns[string(p)]; ok {
		return d.Std()
	}
	return 0
}

func (a *Arbiter) categoryCooldown(category string) time.Duration {
	if d, ok := a.cfg.CategoryCooldowns[category]; ok {
		return d.Std()
	}
	return a.cfg.CategoryCooldown.Std()
}

// similarity is the normalized token overlap of the two contents
// (intersection over union of lowercased words).
func similarity(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	common := 0
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			common++
		}
	}
	union := len(tokensA) + len(tokensB) - common
	return float64(common) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	ret := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		ret[strings.Trim(tok, ".,!?:;")] = struct{}{}
	}
	return ret
}
