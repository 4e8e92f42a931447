package pos

import (
	"net/http"
	"tableside_server/handling"
	"tableside_server/lib"
	"tableside_server/services"
	"tableside_server/structs"

	"github.com/MonkyMars/gecho"
)

// CreateOrder is the POS checkout. The terminal id takes the place of the
// customer device id.
func (prm *POSRoutesManager) CreateOrder(w http.ResponseWriter, r *http.Request) {
	terminalId := lib.SanitizeClientId(r.Header.Get("X-Terminal-Id"))
	if terminalId == "" {
		gecho.BadRequest(w, gecho.WithMessage("X-Terminal-Id header is required"), gecho.Send())
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.OrderRequest](r)
	if err != nil {
		handling.WriteBodyError(w, err)
		return
	}

	submitter := structs.Submitter{ClientId: terminalId, Source: structs.OrderSourcePOS}
	result, err := prm.orderWriter.Submit(r.Context(), submitter, body)
	if err != nil {
		handling.WriteOrderError(w, prm.logger, err)
		return
	}

	prm.logger.Info("POS order submitted",
		gecho.Field("order_id", result.Order.Id),
		gecho.Field("terminal", terminalId),
	)

	gecho.Success(w,
		gecho.WithMessage("Order sent to kitchen"),
		gecho.WithData(result),
		gecho.Send(),
	)
}

// ListOrders serves today's orders from the POS surface, narrowed by the
// usual list query parameters.
func (prm *POSRoutesManager) ListOrders(w http.ResponseWriter, r *http.Request) {
	opts, err := handling.ParseOrderListOptions(r)
	if err != nil {
		gecho.BadRequest(w,
			gecho.WithMessage("Invalid query parameters"),
			gecho.WithData(map[string]string{"error": err.Error()}),
			gecho.Send(),
		)
		return
	}

	surface, err := prm.surfaces.Get(services.SurfacePOS)
	if err != nil {
		handling.HandleError(err, "pos surface missing", prm.logger, w)
		return
	}

	snap := surface.Snapshot()
	views, pagination := services.FilterViews(snap.Orders, opts)

	gecho.Success(w,
		gecho.WithData(map[string]any{
			"orders":      views,
			"pagination":  pagination,
			"late_count":  snap.LateCount,
			"computed_at": snap.ComputedAt,
			"last_error":  snap.LastError,
		}),
		gecho.Send(),
	)
}
