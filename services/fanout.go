package services

import (
	"context"
	"sync"
	"tableside_server/bus"
	"tableside_server/lib"
	"tableside_server/structs/tables"
	"time"

	"github.com/MonkyMars/gecho"
)

const (
	TriggerInitial = "initial"
	TriggerEvent   = "event"
	TriggerPoll    = "poll"
	TriggerManual  = "manual"
)

// SurfaceSession is the per-device state a surface carries between refreshes.
type SurfaceSession struct {
	mu                sync.Mutex
	surface           string
	soundEnabled      bool
	lastSeenLateCount int
	lastSeen          time.Time
}

func NewSurfaceSession(surface string, soundEnabled bool) *SurfaceSession {
	return &SurfaceSession{surface: surface, soundEnabled: soundEnabled}
}

type SessionState struct {
	Surface           string    `json:"surface"`
	SoundEnabled      bool      `json:"sound_enabled"`
	LastSeenLateCount int       `json:"last_seen_late_count"`
	LastSeen          time.Time `json:"last_seen"`
}

func (s *SurfaceSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		Surface:           s.surface,
		SoundEnabled:      s.soundEnabled,
		LastSeenLateCount: s.lastSeenLateCount,
		LastSeen:          s.lastSeen,
	}
}

func (s *SurfaceSession) SetSoundEnabled(enabled bool) {
	s.mu.Lock()
	s.soundEnabled = enabled
	s.mu.Unlock()
}

// observe records the late count and reports whether an alert is due.
func (s *SurfaceSession) observe(lateCount int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rose := lateCount > s.lastSeenLateCount
	s.lastSeenLateCount = lateCount
	s.lastSeen = now
	return rose && s.soundEnabled
}

type OrderView struct {
	*tables.Order
	Urgency lib.Urgency `json:"urgency"`
}

type Snapshot struct {
	Surface    string      `json:"surface"`
	Orders     []OrderView `json:"orders"`
	Total      int         `json:"total"`
	LateCount  int         `json:"late_count"`
	FetchedAt  time.Time   `json:"fetched_at"`
	ComputedAt time.Time   `json:"computed_at"`
	LastError  string      `json:"last_error,omitempty"`
	Alert      bool        `json:"alert"` // late count rose with sound enabled
	Version    uint64      `json:"version"`
}

// FetchFunc runs a surface's full filtered query.
type FetchFunc func(ctx context.Context) ([]*tables.Order, int, error)

type SurfaceConfig struct {
	Name         string
	Tables       []string // change tables that trigger a refetch
	PollInterval time.Duration
	TickInterval time.Duration
	Debounce     time.Duration
	FetchTimeout time.Duration
	Thresholds   lib.UrgencyThresholds
}

// Surface keeps one consumer view in sync with the store. Events and polls
// only ever trigger a full refetch; the event payload is never applied.
type Surface struct {
	cfg     SurfaceConfig
	logger  *gecho.Logger
	session *SurfaceSession
	fetch   FetchFunc
	bus     bus.Bus
	now     func() time.Time

	refreshCh chan string

	mu        sync.RWMutex
	orders    []*tables.Order
	total     int
	fetchedAt time.Time
	lastErr   string
	snapshot  Snapshot
	version   uint64
	watchers  map[chan Snapshot]struct{}

	onLateAlert func(Snapshot)
}

func NewSurface(cfg SurfaceConfig, session *SurfaceSession, fetch FetchFunc, b bus.Bus, logger *gecho.Logger) *Surface {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	if len(cfg.Tables) == 0 {
		cfg.Tables = []string{"orders"}
	}

	return &Surface{
		cfg:       cfg,
		logger:    logger,
		session:   session,
		fetch:     fetch,
		bus:       b,
		now:       time.Now,
		refreshCh: make(chan string, 1),
		watchers:  make(map[chan Snapshot]struct{}),
		snapshot:  Snapshot{Surface: cfg.Name, Orders: []OrderView{}},
	}
}

func (s *Surface) Name() string { return s.cfg.Name }

func (s *Surface) Session() *SurfaceSession { return s.session }

// OnLateAlert registers the callback fired when the late count rises while
// sound is enabled.
func (s *Surface) OnLateAlert(fn func(Snapshot)) {
	s.mu.Lock()
	s.onLateAlert = fn
	s.mu.Unlock()
}

// RequestRefresh schedules a refetch. Requests made while one is already
// pending collapse into it.
func (s *Surface) RequestRefresh(trigger string) {
	select {
	case s.refreshCh <- trigger:
	default:
	}
}

// Run drives the surface until ctx is done. The subscription is released on
// return.
func (s *Surface) Run(ctx context.Context) {
	s.refresh(ctx, TriggerInitial)

	var subs []*bus.Subscription
	for _, table := range s.cfg.Tables {
		sub, err := s.bus.Subscribe(ctx, table, bus.EventAny)
		if err != nil {
			// The poll fallback keeps the view converging without events
			s.logger.Warn("Surface subscription failed",
				gecho.Field("surface", s.cfg.Name),
				gecho.Field("table", table),
				gecho.Field("error", err),
			)
			continue
		}
		subs = append(subs, sub)
		go s.pump(ctx, sub)
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	var pollC <-chan time.Time
	if s.cfg.PollInterval > 0 {
		poll := time.NewTicker(s.cfg.PollInterval)
		defer poll.Stop()
		pollC = poll.C
	}

	tick := time.NewTicker(s.cfg.TickInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollC:
			s.RequestRefresh(TriggerPoll)
		case <-tick.C:
			s.recompute()
		case trigger := <-s.refreshCh:
			if !s.debounce(ctx) {
				return
			}
			// Anything requested during the window is served by this fetch
			select {
			case <-s.refreshCh:
			default:
			}
			s.refresh(ctx, trigger)
		}
	}
}

func (s *Surface) pump(ctx context.Context, sub *bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			s.RequestRefresh(TriggerEvent)
		}
	}
}

func (s *Surface) debounce(ctx context.Context) bool {
	if s.cfg.Debounce <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(s.cfg.Debounce)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Surface) refresh(ctx context.Context, trigger string) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	orders, total, err := s.fetch(fetchCtx)
	cancel()

	SurfaceRefreshes.WithLabelValues(s.cfg.Name, trigger).Inc()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("Surface refresh failed",
			gecho.Field("surface", s.cfg.Name),
			gecho.Field("trigger", trigger),
			gecho.Field("error", err),
		)
		if trigger == TriggerEvent {
			return
		}
		// The last good orders stay visible
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.recompute()
		return
	}

	s.mu.Lock()
	s.orders = orders
	s.total = total
	s.fetchedAt = s.now()
	s.lastErr = ""
	s.mu.Unlock()

	s.recompute()
}

// recompute reclassifies urgency against the current time and publishes a
// new snapshot. It never touches the store.
func (s *Surface) recompute() {
	now := s.now()

	s.mu.Lock()
	views := make([]OrderView, 0, len(s.orders))
	urgencies := make([]lib.Urgency, 0, len(s.orders))
	for _, o := range s.orders {
		u := lib.Classify(o.CreatedAt, o.Status, now, s.cfg.Thresholds)
		views = append(views, OrderView{Order: o, Urgency: u})
		urgencies = append(urgencies, u)
	}
	lateCount := lib.LateCount(urgencies)
	alert := s.session.observe(lateCount, now)

	s.version++
	snap := Snapshot{
		Surface:    s.cfg.Name,
		Orders:     views,
		Total:      s.total,
		LateCount:  lateCount,
		FetchedAt:  s.fetchedAt,
		ComputedAt: now,
		LastError:  s.lastErr,
		Alert:      alert,
		Version:    s.version,
	}
	s.snapshot = snap
	alertFn := s.onLateAlert
	for ch := range s.watchers {
		offerLatest(ch, snap)
	}
	s.mu.Unlock()

	SurfaceLateOrders.WithLabelValues(s.cfg.Name).Set(float64(lateCount))

	if alert && alertFn != nil {
		alertFn(snap)
	}
}

// offerLatest replaces whatever the watcher has not read yet with snap.
func offerLatest(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func (s *Surface) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Watch streams snapshots, starting with the current one. Slow watchers only
// ever see the most recent snapshot.
func (s *Surface) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	ch <- s.snapshot
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, ch)
			s.mu.Unlock()
		})
	}
}

func (s *Surface) Watchers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}
