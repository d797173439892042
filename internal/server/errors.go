package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meal-planner/internal/app"
	"meal-planner/internal/clipper"
	"meal-planner/internal/planner"
)

const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidDate    = "INVALID_DATE"
	CodeInvalidSlot    = "INVALID_SLOT"
	CodeMissingRecipe  = "MISSING_RECIPE"
	CodeNotFound       = "NOT_FOUND"
	CodeNoRecipe       = "NO_RECIPE"
	CodeSuperseded     = "SUPERSEDED"
	CodeUpstream       = "UPSTREAM_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message})
}

// abortWithError maps domain errors to a status and code. Anything unknown
// came from a collaborator.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, planner.ErrInvalidDate):
		abort(c, http.StatusBadRequest, CodeInvalidDate, err.Error())
	case errors.Is(err, planner.ErrInvalidSlot):
		abort(c, http.StatusBadRequest, CodeInvalidSlot, err.Error())
	case errors.Is(err, planner.ErrMissingRecipe):
		abort(c, http.StatusBadRequest, CodeMissingRecipe, err.Error())
	case errors.Is(err, clipper.ErrNoRecipe):
		abort(c, http.StatusUnprocessableEntity, CodeNoRecipe, err.Error())
	case errors.Is(err, app.ErrSuperseded):
		abort(c, http.StatusConflict, CodeSuperseded, err.Error())
	default:
		abort(c, http.StatusBadGateway, CodeUpstream, err.Error())
	}
}
