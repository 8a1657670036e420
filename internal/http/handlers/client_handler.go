// README: Client handlers (call history and open calls).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/modules/call"
	"dispatch/internal/types"
)

type ClientHandler struct {
	call *call.Service
}

func NewClientHandler(svc *call.Service) *ClientHandler {
	return &ClientHandler{call: svc}
}

func (h *ClientHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	calls, err := h.call.ListByClient(c.Request.Context(), types.ID(id))
	if err != nil {
		writeCallError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"calls": nonNil(calls)})
}

func (h *ClientHandler) ActiveCalls(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	calls, err := h.call.ActiveForClient(c.Request.Context(), types.ID(id))
	if err != nil {
		writeCallError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"calls": nonNil(calls)})
}
