// Package controllers holds the HTTP handlers of the ops API. Handlers decode
// the request, call one service method and map its error onto a status.
package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/beanleaf/app/services"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
	"github.com/shashiranjanraj/beanleaf/pkg/response"
)

// fail writes the status that matches err.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *services.ValidationError
	switch {
	case errors.As(err, &invalid):
		response.ValidationError(w, invalid.Fields)
	case errors.Is(err, services.ErrInsufficientStock), errors.Is(err, services.ErrInvalidTransition):
		response.Conflict(w, err.Error())
	case errors.Is(err, services.ErrProductNotFound), errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, recordstore.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, services.ErrInvalidQuantity), errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrNegativePrice), errors.Is(err, services.ErrInvalidPrice),
		errors.Is(err, services.ErrNegativeStock), errors.Is(err, services.ErrInvalidStock):
		response.BadRequest(w, err.Error())
	case errors.Is(err, recordstore.ErrBackendUnavailable), errors.Is(err, recordstore.ErrSchemaMissing):
		logger.WithCtx(r.Context()).Warn("backend unavailable", "error", err)
		response.Unavailable(w, "record store unavailable")
	default:
		logger.WithCtx(r.Context()).Error("request failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// idParam parses the {id} URL parameter, answering 400 when it is not a
// positive integer.
func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		response.BadRequest(w, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
