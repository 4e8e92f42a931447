package handling

import (
	"context"
	"errors"
	"net/http"

	"github.com/MonkyMars/gecho"
)

// HandleError logs an unexpected failure and answers 500. A client that went
// away gets nothing written back.
func HandleError(err error, msg string, logger *gecho.Logger, w http.ResponseWriter) error {
	if errors.Is(err, context.Canceled) {
		logger.Debug("Request abandoned by client", gecho.Field("msg", msg))
		return nil
	}

	logger.Error("Request failed", gecho.Field("error", err), gecho.Field("msg", msg), gecho.WithCallerSkip(3))
	return gecho.InternalServerError(w, gecho.WithMessage(msg)).Send()
}
