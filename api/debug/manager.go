package debug

import (
	"net/http"
	"tableside_server/config"
	"tableside_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type DebugRoutesManager struct {
	surfaces *services.SurfaceHub
}

func NewDebugRoutesManager(surfaces *services.SurfaceHub) *DebugRoutesManager {
	return &DebugRoutesManager{
		surfaces: surfaces,
	}
}

func (drm *DebugRoutesManager) RegisterRoutes(r chi.Router) {
	// Debug routes - only in non-production environments
	if !config.IsProduction() {
		r.Route("/debug", func(r chi.Router) {
			r.Post("/surfaces/refresh", drm.RefreshSurfaces)
		})
	}
}

// RefreshSurfaces forces every surface to refetch, bypassing the bus.
func (drm *DebugRoutesManager) RefreshSurfaces(w http.ResponseWriter, r *http.Request) {
	drm.surfaces.RefreshAll(services.TriggerManual)

	gecho.Success(w,
		gecho.WithMessage("Refresh requested"),
		gecho.WithData(map[string]any{"surfaces": drm.surfaces.Names()}),
		gecho.Send(),
	)
}
