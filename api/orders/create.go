package orders

import (
	"net/http"
	"tableside_server/handling"
	"tableside_server/lib"
	"tableside_server/structs"

	"github.com/MonkyMars/gecho"
)

// CreateOrder submits a customer cart for the device identified by the
// X-Client-Id header or the client cookie.
func (orm *OrderRoutesManager) CreateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[structs.OrderRequest](r)
	if err != nil {
		handling.WriteBodyError(w, err)
		return
	}

	clientId, err := lib.ClientIdFromRequest(w, r, orm.cfg.ClientCookieName, orm.cfg.ClientCookieExpiry)
	if err != nil {
		handling.HandleError(err, "failed to resolve client id", orm.logger, w)
		return
	}

	submitter := structs.Submitter{ClientId: clientId, Source: structs.OrderSourceCustomer}
	result, err := orm.orderWriter.Submit(r.Context(), submitter, body)
	if err != nil {
		handling.WriteOrderError(w, orm.logger, err)
		return
	}

	orm.logger.Info("Order submitted",
		gecho.Field("order_id", result.Order.Id),
		gecho.Field("table", result.Order.TableNumber),
		gecho.Field("tier", result.Tier),
	)

	gecho.Success(w,
		gecho.WithMessage("Order sent"),
		gecho.WithData(result),
		gecho.Send(),
	)
}
