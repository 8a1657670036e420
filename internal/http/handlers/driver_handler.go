// README: Driver handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/modules/call"
	"dispatch/internal/types"
)

type DriverHandler struct {
	call *call.Service
}

func NewDriverHandler(svc *call.Service) *DriverHandler {
	return &DriverHandler{call: svc}
}

func (h *DriverHandler) ActiveCall(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.call.ActiveForDriver(c.Request.Context(), types.ID(id))
	if err != nil {
		writeCallError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}
