package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/monkedh/sentinel/internal/eventbus"
)

// writeError maps a sentinel error to an HTTP status and JSON body: a
// small table of errors.Is checks ending in a 500 fallback.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, eventbus.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, eventbus.ErrAlreadySubscribed):
		status = http.StatusConflict
	case errors.Is(err, eventbus.ErrSessionExists):
		status = http.StatusConflict
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}
