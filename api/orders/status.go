package orders

import (
	"net/http"
	"tableside_server/handling"
	"tableside_server/lib"
	"tableside_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (orm *OrderRoutesManager) orderId(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderId, err := handling.ParseIdParam(r, "id")
	if err != nil {
		orm.logger.Debug("Invalid order ID format", gecho.Field("order_id", chi.URLParam(r, "id")))
		gecho.BadRequest(w, gecho.WithMessage("Invalid order id"), gecho.Send())
		return uuid.Nil, false
	}
	return orderId, true
}

func (orm *OrderRoutesManager) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	orderId, ok := orm.orderId(w, r)
	if !ok {
		return
	}

	order, err := orm.statusService.Advance(r.Context(), orderId, handling.Actor(r, "staff"))
	if err != nil {
		handling.WriteOrderError(w, orm.logger, err)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Order advanced to "+string(order.Status)),
		gecho.WithData(order),
		gecho.Send(),
	)
}

func (orm *OrderRoutesManager) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderId, ok := orm.orderId(w, r)
	if !ok {
		return
	}

	order, err := orm.statusService.Cancel(r.Context(), orderId, handling.Actor(r, "staff"))
	if err != nil {
		handling.WriteOrderError(w, orm.logger, err)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Order cancelled"),
		gecho.WithData(order),
		gecho.Send(),
	)
}

// SettleOrder is the cash-out: only a ready order is delivered and receipted.
func (orm *OrderRoutesManager) SettleOrder(w http.ResponseWriter, r *http.Request) {
	orderId, ok := orm.orderId(w, r)
	if !ok {
		return
	}

	receipt, err := orm.statusService.Settle(r.Context(), orderId, handling.Actor(r, "pos"))
	if err != nil {
		handling.WriteOrderError(w, orm.logger, err)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Order settled"),
		gecho.WithData(receipt),
		gecho.Send(),
	)
}

func (orm *OrderRoutesManager) OverrideIntent(w http.ResponseWriter, r *http.Request) {
	orderId, ok := orm.orderId(w, r)
	if !ok {
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.OverrideIntentRequest](r)
	if err != nil {
		handling.WriteBodyError(w, err)
		return
	}

	intent, err := orm.statusService.IssueOverride(r.Context(), orderId, body.Pin)
	if err != nil {
		handling.WriteOrderError(w, orm.logger, err)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Confirm the override to mark the order ready"),
		gecho.WithData(intent),
		gecho.Send(),
	)
}

func (orm *OrderRoutesManager) OverrideOrder(w http.ResponseWriter, r *http.Request) {
	orderId, ok := orm.orderId(w, r)
	if !ok {
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.OverrideRequest](r)
	if err != nil {
		handling.WriteBodyError(w, err)
		return
	}

	order, err := orm.statusService.Override(r.Context(), orderId, body.Confirmation, handling.Actor(r, "manager"))
	if err != nil {
		handling.WriteOrderError(w, orm.logger, err)
		return
	}

	orm.logger.Info("Manager override applied", gecho.Field("order_id", orderId))
	gecho.Success(w,
		gecho.WithMessage("Order marked ready"),
		gecho.WithData(order),
		gecho.Send(),
	)
}
