// File: handlers/admin.go
package handlers

import (
	"errors"
	"net/http"

	"servicehub/models"
	"servicehub/services/booking"
	"servicehub/services/conversation"
	"servicehub/services/stats"
	"servicehub/services/tasks"
	"servicehub/store"
	"servicehub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler exposes the operator-only maintenance operations.
type AdminHandler struct {
	BookingService      booking.BookingService
	ConversationService conversation.ConversationService
	StatsService        stats.StatsService
	// Queue is optional; without it async requests are refused.
	Queue tasks.Enqueuer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(bs booking.BookingService, cs conversation.ConversationService, ss stats.StatsService, q tasks.Enqueuer) *AdminHandler {
	return &AdminHandler{
		BookingService:      bs,
		ConversationService: cs,
		StatsService:        ss,
		Queue:               q,
	}
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// TransitionBookingHandler moves a booking to the requested status.
func (ah *AdminHandler) TransitionBookingHandler(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	res, err := ah.BookingService.Transition(c.Request.Context(), c.Param("id"), models.BookingStatus(req.Status))
	if err != nil {
		ah.fail(c, "Failed to transition booking", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ResetBookingHandler puts a booking back to pending.
func (ah *AdminHandler) ResetBookingHandler(c *gin.Context) {
	id := c.Param("id")
	if err := ah.BookingService.Reset(c.Request.Context(), id); err != nil {
		ah.fail(c, "Failed to reset booking", err)
		return
	}
	getLogger(c).Info("booking reset by admin", zap.String("bookingId", id), zap.String("admin", c.GetString("adminID")))
	c.JSON(http.StatusOK, gin.H{"bookingId": id, "status": models.StatusPending})
}

// ReconcileConversationHandler repairs a conversation's participant list.
// ?dryRun=true reports without writing; ?async=true queues the work.
func (ah *AdminHandler) ReconcileConversationHandler(c *gin.Context) {
	id := c.Param("id")
	if c.Query("async") == "true" {
		ah.enqueue(c, func() error { return tasks.EnqueueConversationReconcile(c.Request.Context(), ah.Queue, id) })
		return
	}
	res, err := ah.ConversationService.Reconcile(c.Request.Context(), id, c.Query("dryRun") == "true")
	if err != nil {
		ah.fail(c, "Failed to reconcile conversation", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ClearDeletedFlagHandler clears deleted.<userId> on a conversation.
func (ah *AdminHandler) ClearDeletedFlagHandler(c *gin.Context) {
	id, userID := c.Param("id"), c.Param("userId")
	cleared, err := ah.ConversationService.ClearDeletedFlag(c.Request.Context(), id, userID)
	if err != nil {
		ah.fail(c, "Failed to clear deleted flag", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversationId": id, "userId": userID, "cleared": cleared})
}

// RecomputeProviderStatsHandler recomputes a provider's reputation fields.
func (ah *AdminHandler) RecomputeProviderStatsHandler(c *gin.Context) {
	id := c.Param("id")
	if c.Query("async") == "true" {
		ah.enqueue(c, func() error { return tasks.EnqueueStatsRecompute(c.Request.Context(), ah.Queue, id, "") })
		return
	}
	sum, err := ah.StatsService.Recompute(c.Request.Context(), id)
	if err != nil {
		ah.fail(c, "Failed to recompute provider stats", err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (ah *AdminHandler) enqueue(c *gin.Context, fn func() error) {
	if ah.Queue == nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "Task queue is not configured", "")
		return
	}
	if err := fn(); err != nil {
		ah.fail(c, "Failed to enqueue task", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

func (ah *AdminHandler) fail(c *gin.Context, message string, err error) {
	utils.JSONError(c, statusFor(err), message, err.Error())
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var notFound *utils.NotFoundError
	var invalid *booking.InvalidTransitionError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusConflict
	case errors.Is(err, store.ErrPreconditionFailed), errors.Is(err, utils.ErrLocked):
		return http.StatusConflict
	case store.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
