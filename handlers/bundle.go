// File: handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Booking maintenance.
	TransitionBookingHandler gin.HandlerFunc
	ResetBookingHandler      gin.HandlerFunc

	// Conversation maintenance.
	ReconcileConversationHandler gin.HandlerFunc
	ClearDeletedFlagHandler      gin.HandlerFunc

	// Provider statistics.
	RecomputeProviderStatsHandler gin.HandlerFunc

	// HealthCheck reports whether the record store answers.
	HealthCheck gin.HandlerFunc
}

// NewHandlerBundle assembles the bundle from an AdminHandler.
func NewHandlerBundle(ah *AdminHandler, health gin.HandlerFunc) *HandlerBundle {
	return &HandlerBundle{
		TransitionBookingHandler:      ah.TransitionBookingHandler,
		ResetBookingHandler:           ah.ResetBookingHandler,
		ReconcileConversationHandler:  ah.ReconcileConversationHandler,
		ClearDeletedFlagHandler:       ah.ClearDeletedFlagHandler,
		RecomputeProviderStatsHandler: ah.RecomputeProviderStatsHandler,
		HealthCheck:                   health,
	}
}
