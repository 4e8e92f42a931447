package api

import (
	"tableside_server/api/clients"
	"tableside_server/api/debug"
	"tableside_server/api/health"
	"tableside_server/api/middleware"
	"tableside_server/api/orders"
	"tableside_server/api/pos"
	"tableside_server/api/surfaces"
	"tableside_server/services"
	"tableside_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type routerManager struct {
	healthRoutes  *health.HealthRoutesManager
	orderRoutes   *orders.OrderRoutesManager
	posRoutes     *pos.POSRoutesManager
	surfaceRoutes *surfaces.SurfaceRoutesManager
	clientRoutes  *clients.ClientRoutesManager
	debugRoutes   *debug.DebugRoutesManager
}

func NewRouterManager(logger *gecho.Logger, cfg *structs.Config, sm *services.ServiceManager, mw *middleware.Middleware) *routerManager {
	return &routerManager{
		healthRoutes:  health.NewHealthRoutesManager(sm.HealthService),
		orderRoutes:   orders.NewOrderRoutesManager(logger, cfg.Ordering, sm.OrderWriter, sm.OrderService, sm.StatusService, mw),
		posRoutes:     pos.NewPOSRoutesManager(logger, sm.OrderWriter, sm.Surfaces),
		surfaceRoutes: surfaces.NewSurfaceRoutesManager(logger, sm.Surfaces, cfg.Realtime.StreamKeepAlive),
		clientRoutes:  clients.NewClientRoutesManager(logger, cfg.Ordering, sm.OrderWriter),
		debugRoutes:   debug.NewDebugRoutesManager(sm.Surfaces),
	}
}

func (rm *routerManager) RegisterRoutes(r chi.Router) {
	rm.healthRoutes.RegisterRoutes(r)
	rm.orderRoutes.RegisterRoutes(r)
	rm.posRoutes.RegisterRoutes(r)
	rm.surfaceRoutes.RegisterRoutes(r)
	rm.clientRoutes.RegisterRoutes(r)
	rm.debugRoutes.RegisterRoutes(r)
}
