package handling

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"tableside_server/lib"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// WriteOrderError translates submission and transition errors into responses.
func WriteOrderError(w http.ResponseWriter, logger *gecho.Logger, err error) {
	var (
		partial    *lib.PartialOrderError
		cooldown   *lib.CooldownError
		transition *lib.TransitionError
	)

	switch {
	case errors.As(err, &partial):
		lib.WriteStatus(w, http.StatusMultiStatus, lib.ErrItemsNotSaved.Error(), map[string]any{
			"order_id": partial.OrderId,
		})

	case errors.As(err, &cooldown):
		retryAfter := max(1, int(math.Ceil(cooldown.Remaining.Seconds())))
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		gecho.TooManyRequests(w,
			gecho.WithMessage(lib.ErrSubmissionCooldown.Error()),
			gecho.WithData(map[string]int{"retry_after": retryAfter}),
			gecho.Send(),
		)

	case errors.Is(err, lib.ErrEmptyCart), errors.Is(err, lib.ErrInvalidCart):
		gecho.BadRequest(w, gecho.WithMessage(err.Error()), gecho.Send())

	case errors.Is(err, lib.ErrNotFound):
		gecho.NotFound(w, gecho.WithMessage("Order not found"), gecho.Send())

	// Checked before the transition errors, a conflict is also a TransitionError
	case errors.Is(err, lib.ErrStatusConflict):
		data := map[string]any{}
		if errors.As(err, &transition) {
			data["current_status"] = transition.From
		}
		gecho.Conflict(w,
			gecho.WithMessage(lib.ErrStatusConflict.Error()),
			gecho.WithData(data),
			gecho.Send(),
		)

	case errors.Is(err, lib.ErrInvalidPin):
		gecho.Forbidden(w, gecho.WithMessage(lib.ErrInvalidPin.Error()), gecho.Send())

	case errors.Is(err, lib.ErrInvalidConfirmation):
		gecho.Unauthorized(w, gecho.WithMessage(err.Error()), gecho.Send())

	case errors.Is(err, lib.ErrInvalidTransition),
		errors.Is(err, lib.ErrTerminalStatus),
		errors.Is(err, lib.ErrOverrideNotAllowed),
		errors.Is(err, lib.ErrNotReady):
		var data map[string]any
		if errors.As(err, &transition) {
			data = map[string]any{"from": transition.From, "to": transition.To}
		}
		lib.WriteStatus(w, http.StatusUnprocessableEntity, err.Error(), data)

	case errors.Is(err, lib.ErrOrderNotSent):
		logger.Error("Order was not sent", gecho.Field("error", err))
		gecho.InternalServerError(w,
			gecho.WithMessage(lib.ErrOrderNotSent.Error()),
			gecho.WithData(map[string]string{"detail": strings.TrimPrefix(err.Error(), lib.ErrOrderNotSent.Error()+": ")}),
			gecho.Send(),
		)

	default:
		HandleError(err, "order request failed", logger, w)
	}
}

// ParseIdParam reads a UUID path parameter.
func ParseIdParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// Actor names who performed a transition, for the status log.
func Actor(r *http.Request, fallback string) string {
	actor := strings.TrimSpace(r.Header.Get("X-Actor"))
	if actor == "" {
		return fallback
	}
	if len(actor) > 64 {
		actor = actor[:64]
	}
	return actor
}

// WriteBodyError answers a request whose body could not be decoded or failed
// validation.
func WriteBodyError(w http.ResponseWriter, err error) {
	var validation *lib.ValidationError
	if errors.As(err, &validation) {
		gecho.BadRequest(w,
			gecho.WithMessage("Invalid request body"),
			gecho.WithData(validation),
			gecho.Send(),
		)
		return
	}
	gecho.BadRequest(w,
		gecho.WithMessage("Invalid request body"),
		gecho.WithData(map[string]string{"error": err.Error()}),
		gecho.Send(),
	)
}
