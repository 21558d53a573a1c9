package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/slotswap_bot/internal/model"
	"github.com/Freeeeeet/slotswap_bot/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type handler struct {
	slots     SlotService
	exchanges ExchangeService
	db        Pinger
	logger    *zap.Logger
}

type createSlotRequest struct {
	Title        string    `json:"title" binding:"required"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	EndTime      time.Time `json:"end_time" binding:"required"`
	Exchangeable bool      `json:"exchangeable"`
}

type updateSlotRequest struct {
	Title     *string    `json:"title"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

type exchangeableRequest struct {
	Exchangeable *bool `json:"exchangeable" binding:"required"`
}

type proposeRequest struct {
	RequesterSlotID int64 `json:"requester_slot_id" binding:"required"`
	RecipientSlotID int64 `json:"recipient_slot_id" binding:"required"`
}

type respondRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

// pathID разбирает :id, при ошибке сразу отвечает 400
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortJSON(c, http.StatusBadRequest, string(model.KindValidation), "invalid id")
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortJSON(c, http.StatusBadRequest, string(model.KindValidation), err.Error())
		return false
	}
	return true
}

// nonNil чтобы пустой список сериализовался как [], а не null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (h *handler) Health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) CreateSlot(c *gin.Context) {
	userID, _ := callerID(c)

	var req createSlotRequest
	if !bindJSON(c, &req) {
		return
	}

	status := model.SlotStatusBusy
	if req.Exchangeable {
		status = model.SlotStatusExchangeable
	}

	slot, err := h.slots.CreateSlot(c.Request.Context(), service.CreateSlotParams{
		OwnerID:   userID,
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    status,
	})
	if err != nil {
		h.writeError(c, err, "create slot")
		return
	}
	c.JSON(http.StatusCreated, slot)
}

func (h *handler) UpdateSlot(c *gin.Context) {
	userID, _ := callerID(c)
	slotID, ok := pathID(c)
	if !ok {
		return
	}

	var req updateSlotRequest
	if !bindJSON(c, &req) {
		return
	}

	slot, err := h.slots.UpdateSlot(c.Request.Context(), slotID, userID, service.SlotUpdate{
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		h.writeError(c, err, "update slot")
		return
	}
	c.JSON(http.StatusOK, slot)
}

func (h *handler) DeleteSlot(c *gin.Context) {
	userID, _ := callerID(c)
	slotID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.slots.DeleteSlot(c.Request.Context(), slotID, userID); err != nil {
		h.writeError(c, err, "delete slot")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) SetExchangeable(c *gin.Context) {
	userID, _ := callerID(c)
	slotID, ok := pathID(c)
	if !ok {
		return
	}

	var req exchangeableRequest
	if !bindJSON(c, &req) {
		return
	}

	slot, err := h.slots.SetExchangeable(c.Request.Context(), slotID, userID, *req.Exchangeable)
	if err != nil {
		h.writeError(c, err, "set exchangeable")
		return
	}
	c.JSON(http.StatusOK, slot)
}

func (h *handler) ListMySlots(c *gin.Context) {
	userID, _ := callerID(c)

	slots, err := h.slots.ListMySlots(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "list my slots")
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": nonNil(slots)})
}

func (h *handler) Marketplace(c *gin.Context) {
	userID, _ := callerID(c)

	slots, err := h.slots.ListExchangeableSlots(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "list marketplace")
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": nonNil(slots)})
}

func (h *handler) ProposeExchange(c *gin.Context) {
	userID, _ := callerID(c)

	var req proposeRequest
	if !bindJSON(c, &req) {
		return
	}

	exchange, err := h.exchanges.ProposeExchange(c.Request.Context(), req.RequesterSlotID, req.RecipientSlotID, userID)
	if err != nil {
		h.writeError(c, err, "propose exchange")
		return
	}
	c.JSON(http.StatusCreated, exchange)
}

func (h *handler) RespondToExchange(c *gin.Context) {
	userID, _ := callerID(c)
	requestID, ok := pathID(c)
	if !ok {
		return
	}

	var req respondRequest
	if !bindJSON(c, &req) {
		return
	}

	exchange, err := h.exchanges.RespondToExchange(c.Request.Context(), requestID, userID, *req.Accept)
	if err != nil {
		h.writeError(c, err, "respond to exchange")
		return
	}
	c.JSON(http.StatusOK, exchange)
}

func (h *handler) GetRequest(c *gin.Context) {
	userID, _ := callerID(c)
	requestID, ok := pathID(c)
	if !ok {
		return
	}

	exchange, err := h.exchanges.GetRequest(c.Request.Context(), requestID, userID)
	if err != nil {
		h.writeError(c, err, "get exchange request")
		return
	}
	c.JSON(http.StatusOK, exchange)
}

func (h *handler) ListIncoming(c *gin.Context) {
	userID, _ := callerID(c)

	views, err := h.exchanges.ListIncoming(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "list incoming")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": nonNil(views)})
}

func (h *handler) ListOutgoing(c *gin.Context) {
	userID, _ := callerID(c)

	views, err := h.exchanges.ListOutgoing(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "list outgoing")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": nonNil(views)})
}
