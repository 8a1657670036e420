// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/modules/call"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts UUIDs and other short opaque ids made of letters, digits and dashes.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeCallError maps each dispatch error kind to its own status so clients
// can tell a lost race from a missing call or a bad request.
func writeCallError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, call.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, call.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, call.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, call.ErrInvalidState):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// pathID reads and validates a path parameter; on failure it writes a 400 and returns false.
func pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return id, true
}
