package surfaces

import (
	"net/http"
	"tableside_server/services"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type SurfaceRoutesManager struct {
	logger    *gecho.Logger
	hub       *services.SurfaceHub
	keepAlive time.Duration
}

func NewSurfaceRoutesManager(logger *gecho.Logger, hub *services.SurfaceHub, keepAlive time.Duration) *SurfaceRoutesManager {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &SurfaceRoutesManager{
		logger:    logger,
		hub:       hub,
		keepAlive: keepAlive,
	}
}

func (srm *SurfaceRoutesManager) RegisterRoutes(r chi.Router) {
	r.Route("/surfaces", func(r chi.Router) {
		r.Get("/kitchen/board", srm.GetKitchenBoard)
		r.Get("/{surface}", srm.GetSnapshot)
		r.Get("/{surface}/stream", srm.StreamSnapshots)
		r.Put("/{surface}/session", srm.UpdateSession)
	})
}

func (srm *SurfaceRoutesManager) surface(w http.ResponseWriter, r *http.Request) (*services.Surface, bool) {
	name := chi.URLParam(r, "surface")
	s, err := srm.hub.Get(name)
	if err != nil {
		gecho.NotFound(w,
			gecho.WithMessage("Unknown surface"),
			gecho.WithData(map[string]any{"surface": name, "available": srm.hub.Names()}),
			gecho.Send(),
		)
		return nil, false
	}
	return s, true
}
