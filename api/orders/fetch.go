package orders

import (
	"net/http"
	"tableside_server/handling"

	"github.com/MonkyMars/gecho"
)

// ListOrders returns a filtered, paginated list of orders
func (orm *OrderRoutesManager) ListOrders(w http.ResponseWriter, r *http.Request) {
	opts, err := handling.ParseOrderListOptions(r)
	if err != nil {
		gecho.BadRequest(w,
			gecho.WithMessage("Invalid query parameters"),
			gecho.WithData(map[string]string{"error": err.Error()}),
			gecho.Send(),
		)
		return
	}

	orders, pagination, err := orm.orderService.ListOrders(r.Context(), opts)
	if err != nil {
		handling.HandleError(err, "failed to list orders", orm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(map[string]any{
			"orders":     orders,
			"pagination": pagination,
		}),
		gecho.Send(),
	)
}

func (orm *OrderRoutesManager) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderId, err := handling.ParseIdParam(r, "id")
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage("Invalid order id"), gecho.Send())
		return
	}

	order, err := orm.orderService.GetOrder(r.Context(), orderId)
	if err != nil {
		handling.WriteOrderError(w, orm.logger, err)
		return
	}

	gecho.Success(w,
		gecho.WithData(order),
		gecho.Send(),
	)
}
