// Package api implements the HTTP handlers for public submissions, admin
// record management and the payment gateway callback.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medibook-dev/medibook/internal/backup"
	"github.com/medibook-dev/medibook/internal/payment"
	"github.com/medibook-dev/medibook/internal/store"
	"github.com/medibook-dev/medibook/internal/undo"
	"github.com/medibook-dev/medibook/pkg/schema"
)

type Handler struct {
	Store    store.Store
	Engine   *undo.Engine
	Payments *payment.Verifier
}

// retryLater is the generic message shown to the public on storage trouble.
const retryLater = "could not save your submission, please try again later"

// submit appends one public submission to a collection. requiredField must
// be present and non-empty; defaults are merged in when absent.
func (h *Handler) submit(c *gin.Context, collection, kind, requiredField string, defaults map[string]any) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if s, _ := fields[requiredField].(string); strings.TrimSpace(s) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("%s is required", requiredField),
		})
		return
	}
	for k, v := range defaults {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}

	rec, err := h.Store.Append(collection, schema.NewRecord(fields))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": retryLater})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "type": kind, "data": rec})
}

// SubmitAppointment handles POST /api/appointment.
func (h *Handler) SubmitAppointment(c *gin.Context) {
	h.submit(c, store.Appointments, "appointment", "name", map[string]any{"status": "pending"})
}

// SubmitFeedback handles POST /api/feedback.
func (h *Handler) SubmitFeedback(c *gin.Context) {
	h.submit(c, store.Feedbacks, "feedback", "message", nil)
}

// List returns a handler serving GET /api/<collection>.
func (h *Handler) List(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := h.Store.List(collection)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, recs)
	}
}

// Clear returns a handler serving DELETE /api/<collection>. The engine
// snapshots first; if the snapshot fails nothing is removed.
func (h *Handler) Clear(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cleared, err := h.Engine.Clear(collection, "admin clear")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": fmt.Sprintf("cleared %d records from %s", cleared, collection),
		})
	}
}

// Undo returns a handler serving POST /api/<collection>/undo.
func (h *Handler) Undo(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := h.Engine.Undo(collection)
		if err != nil {
			if errors.Is(err, backup.ErrNoBackup) {
				c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "no backup available"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "success",
			"message":  fmt.Sprintf("restored %d records to %s", res.Restored, collection),
			"restored": res.Restored,
		})
	}
}

// UpdateAppointment handles PATCH /api/appointments/:id, used for status
// transitions like pending -> done.
func (h *Handler) UpdateAppointment(c *gin.Context) {
	id := c.Param("id")

	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	rec, err := h.Store.UpdateField(store.Appointments, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": rec})
}

// VerifyPayment handles the gateway callback. A valid signature records the
// payment; anything else is rejected without touching the store.
func (h *Handler) VerifyPayment(c *gin.Context) {
	var input struct {
		OrderID   string         `json:"order_id" binding:"required"`
		PaymentID string         `json:"payment_id" binding:"required"`
		Signature string         `json:"signature" binding:"required"`
		Notes     map[string]any `json:"notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "failure", "message": err.Error()})
		return
	}

	if !h.Payments.Verify(input.OrderID, input.PaymentID, input.Signature) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "failure", "message": "signature mismatch"})
		return
	}

	fields := map[string]any{
		"orderId":   input.OrderID,
		"paymentId": input.PaymentID,
		"status":    "paid",
	}
	for k, v := range input.Notes {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}

	rec, err := h.Store.Append(store.Payments, schema.NewRecord(fields))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": retryLater})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "type": "payment", "data": rec})
}
