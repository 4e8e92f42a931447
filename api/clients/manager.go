package clients

import (
	"net/http"
	"tableside_server/handling"
	"tableside_server/lib"
	"tableside_server/services"
	"tableside_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type ClientRoutesManager struct {
	logger      *gecho.Logger
	cfg         *structs.OrderingConfig
	orderWriter *services.OrderWriter
}

func NewClientRoutesManager(logger *gecho.Logger, cfg *structs.OrderingConfig, orderWriter *services.OrderWriter) *ClientRoutesManager {
	return &ClientRoutesManager{
		logger:      logger,
		cfg:         cfg,
		orderWriter: orderWriter,
	}
}

func (crm *ClientRoutesManager) RegisterRoutes(r chi.Router) {
	r.Get("/clients/me/history", crm.GetHistory)
}

// GetHistory returns the device's recent submissions, newest first.
func (crm *ClientRoutesManager) GetHistory(w http.ResponseWriter, r *http.Request) {
	clientId, err := lib.ClientIdFromRequest(w, r, crm.cfg.ClientCookieName, crm.cfg.ClientCookieExpiry)
	if err != nil {
		handling.HandleError(err, "failed to resolve client id", crm.logger, w)
		return
	}

	history, err := crm.orderWriter.History(r.Context(), clientId)
	if err != nil {
		handling.HandleError(err, "failed to read client history", crm.logger, w)
		return
	}
	if history == nil {
		history = []structs.HistoryEntry{}
	}

	gecho.Success(w,
		gecho.WithData(map[string]any{
			"client_id": clientId,
			"orders":    history,
		}),
		gecho.Send(),
	)
}
