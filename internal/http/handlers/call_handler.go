// README: Call handlers for create, queries, accept, status and ambulance position.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/modules/call"
	"dispatch/internal/modules/tracking"
	"dispatch/internal/types"
)

// LivePositions reads the tracking mirror; nil when the mirror is disabled.
type LivePositions interface {
	Get(ctx context.Context, callID types.ID) (*tracking.Position, bool, error)
}

type CallHandler struct {
	call *call.Service
	live LivePositions
}

func NewCallHandler(svc *call.Service, live LivePositions) *CallHandler {
	return &CallHandler{call: svc, live: live}
}

type createCallReq struct {
	ClientID    string   `json:"client_id" binding:"required"`
	Latitude    *float64 `json:"latitude" binding:"required,latitude"`
	Longitude   *float64 `json:"longitude" binding:"required,longitude"`
	Priority    string   `json:"priority" binding:"required"`
	Description string   `json:"description"`
}

type positionReq struct {
	Latitude  *float64 `json:"latitude" binding:"required,latitude"`
	Longitude *float64 `json:"longitude" binding:"required,longitude"`
}

func (h *CallHandler) Create(c *gin.Context) {
	var req createCallReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !isValidID(req.ClientID) {
		writeError(c, http.StatusBadRequest, "invalid client_id")
		return
	}
	out, err := h.call.Create(c.Request.Context(), call.CreateCommand{
		ClientID:    types.ID(req.ClientID),
		Position:    types.Point{Lat: *req.Latitude, Lng: *req.Longitude},
		Priority:    req.Priority,
		Description: req.Description,
	})
	if err != nil {
		writeCallError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, out)
}

func (h *CallHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.call.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeCallError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *CallHandler) ListPending(c *gin.Context) {
	calls, err := h.call.ListPending(c.Request.Context())
	if err != nil {
		writeCallError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"calls": nonNil(calls)})
}

func (h *CallHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	driverID := c.Query("driver_id")
	if !isValidID(driverID) {
		writeError(c, http.StatusBadRequest, "missing or invalid driver_id")
		return
	}
	out, err := h.call.Accept(c.Request.Context(), call.AcceptCommand{
		CallID:   types.ID(id),
		DriverID: types.ID(driverID),
	})
	if err != nil {
		writeCallError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *CallHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.call.SetStatus(c.Request.Context(), call.SetStatusCommand{
		CallID: types.ID(id),
		Status: c.Query("status"),
	})
	if err != nil {
		writeCallError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *CallHandler) UpdateVehiclePosition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req positionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.call.UpdateVehiclePosition(c.Request.Context(), call.PositionCommand{
		CallID:   types.ID(id),
		Position: types.Point{Lat: *req.Latitude, Lng: *req.Longitude},
	})
	if err != nil {
		writeCallError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *CallHandler) Events(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	events, err := h.call.Events(c.Request.Context(), types.ID(id))
	if err != nil {
		writeCallError(c, err)
		return
	}
	if events == nil {
		events = []call.Event{}
	}
	writeJSON(c, http.StatusOK, gin.H{"events": events})
}

// LivePosition serves the mirrored ambulance position without touching the call store.
func (h *CallHandler) LivePosition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if h.live == nil {
		writeError(c, http.StatusServiceUnavailable, "live tracking disabled")
		return
	}
	pos, found, err := h.live.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeCallError(c, err)
		return
	}
	if !found {
		writeError(c, http.StatusNotFound, "no live position for call")
		return
	}
	writeJSON(c, http.StatusOK, pos)
}

func nonNil(calls []*call.Call) []*call.Call {
	if calls == nil {
		return []*call.Call{}
	}
	return calls
}
