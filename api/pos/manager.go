package pos

import (
	"tableside_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type POSRoutesManager struct {
	logger      *gecho.Logger
	orderWriter *services.OrderWriter
	surfaces    *services.SurfaceHub
}

func NewPOSRoutesManager(logger *gecho.Logger, orderWriter *services.OrderWriter, surfaces *services.SurfaceHub) *POSRoutesManager {
	return &POSRoutesManager{
		logger:      logger,
		orderWriter: orderWriter,
		surfaces:    surfaces,
	}
}

func (prm *POSRoutesManager) RegisterRoutes(r chi.Router) {
	r.Route("/pos", func(r chi.Router) {
		r.Post("/orders", prm.CreateOrder)
		r.Get("/orders", prm.ListOrders)
	})
}
