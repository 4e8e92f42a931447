package orders

import (
	"tableside_server/api/middleware"
	"tableside_server/services"
	"tableside_server/structs"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type OrderRoutesManager struct {
	logger        *gecho.Logger
	cfg           *structs.OrderingConfig
	orderWriter   *services.OrderWriter
	orderService  *services.OrderService
	statusService *services.StatusService
	mw            *middleware.Middleware
}

func NewOrderRoutesManager(
	logger *gecho.Logger,
	cfg *structs.OrderingConfig,
	orderWriter *services.OrderWriter,
	orderService *services.OrderService,
	statusService *services.StatusService,
	mw *middleware.Middleware,
) *OrderRoutesManager {
	return &OrderRoutesManager{
		logger:        logger,
		cfg:           cfg,
		orderWriter:   orderWriter,
		orderService:  orderService,
		statusService: statusService,
		mw:            mw,
	}
}

func (orm *OrderRoutesManager) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orm.CreateOrder)
		r.Get("/", orm.ListOrders)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", orm.GetOrder)
			r.Post("/advance", orm.AdvanceOrder)
			r.Post("/cancel", orm.CancelOrder)
			r.Post("/settle", orm.SettleOrder)

			// PIN attempts are limited even when the cache is down
			r.With(orm.mw.StrictRateLimitMiddleware(5, time.Minute)).Post("/override/intent", orm.OverrideIntent)
			r.Post("/override", orm.OverrideOrder)
		})
	})
}
