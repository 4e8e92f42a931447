package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"tableside_server/bus"
	"tableside_server/database"
	"tableside_server/lib"
	"tableside_server/structs"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

const (
	SurfaceKitchen = "kitchen"
	SurfaceAdmin   = "admin"
	SurfacePOS     = "pos"
)

// SurfaceHub owns the long-running surfaces of this process.
type SurfaceHub struct {
	logger   *gecho.Logger
	surfaces map[string]*Surface
	wg       sync.WaitGroup
}

func NewSurfaceHub(logger *gecho.Logger) *SurfaceHub {
	return &SurfaceHub{
		logger:   logger,
		surfaces: make(map[string]*Surface),
	}
}

// NewDefaultSurfaceHub wires the kitchen, admin and POS surfaces.
func NewDefaultSurfaceHub(logger *gecho.Logger, cfg *structs.Config, store OrderRepository, orders *OrderService, b bus.Bus) *SurfaceHub {
	hub := NewSurfaceHub(logger)
	rt := cfg.Realtime
	thresholds := lib.UrgencyThresholds{
		WarningAfter: cfg.Urgency.WarningAfter,
		LateAfter:    cfg.Urgency.LateAfter,
	}

	base := func(name string, poll time.Duration) SurfaceConfig {
		return SurfaceConfig{
			Name:         name,
			Tables:       []string{database.TableOrders, database.TableOrderItems},
			PollInterval: poll,
			TickInterval: rt.TickInterval,
			Debounce:     rt.Debounce,
			FetchTimeout: rt.FetchTimeout,
			Thresholds:   thresholds,
		}
	}

	var restaurantId *uuid.UUID
	if id, err := uuid.Parse(cfg.Ordering.DefaultRestaurantID); err == nil {
		restaurantId = &id
	}

	hub.Add(NewSurface(base(SurfaceKitchen, rt.KitchenPollInterval), NewSurfaceSession(SurfaceKitchen, true), KitchenFetch(store), b, logger))
	hub.Add(NewSurface(base(SurfaceAdmin, rt.AdminPollInterval), NewSurfaceSession(SurfaceAdmin, false), AdminFetch(store, rt.AdminViewLimit), b, logger))
	hub.Add(NewSurface(base(SurfacePOS, rt.POSPollInterval), NewSurfaceSession(SurfacePOS, false), POSFetch(orders, restaurantId, time.Now), b, logger))

	return hub
}

func (h *SurfaceHub) Add(s *Surface) {
	s.OnLateAlert(func(snap Snapshot) {
		h.logger.Info("Late orders on surface",
			gecho.Field("surface", snap.Surface),
			gecho.Field("late_count", snap.LateCount),
		)
	})
	h.surfaces[s.Name()] = s
}

func (h *SurfaceHub) Get(name string) (*Surface, error) {
	s, ok := h.surfaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: surface %q", lib.ErrNotFound, name)
	}
	return s, nil
}

func (h *SurfaceHub) Names() []string {
	names := make([]string, 0, len(h.surfaces))
	for name := range h.surfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start runs every surface until ctx is done.
func (h *SurfaceHub) Start(ctx context.Context) {
	for _, s := range h.surfaces {
		h.wg.Add(1)
		go func(s *Surface) {
			defer h.wg.Done()
			h.logger.Debug("Surface started", gecho.Field("surface", s.Name()))
			s.Run(ctx)
			h.logger.Debug("Surface stopped", gecho.Field("surface", s.Name()))
		}(s)
	}
}

// Wait blocks until every surface has released its subscriptions.
func (h *SurfaceHub) Wait() {
	h.wg.Wait()
}

func (h *SurfaceHub) RefreshAll(trigger string) {
	for _, s := range h.surfaces {
		s.RequestRefresh(trigger)
	}
}
