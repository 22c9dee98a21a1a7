package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"affiliate-ledger/internal/models"
	"affiliate-ledger/internal/services"
)

type AdminHandler struct {
	db          *gorm.DB
	attribution *services.AttributionService
	conversions *services.ConversionService
	payouts     *services.PayoutService
	settings    *services.SettingsService
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{
		db:          db,
		attribution: services.NewAttributionService(db),
		conversions: services.NewConversionService(db),
		payouts:     services.NewPayoutService(db),
		settings:    services.NewSettingsService(db),
	}
}

// AdminMiddleware checks the authenticated account for the admin flag
func (h *AdminHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, exists := c.Get("account_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		var account models.Account
		if err := h.db.Where("id = ? AND is_admin = ?", accountID, true).First(&account).Error; err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not an admin"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ApproveConversion moves a pending conversion entry to APPROVED
func (h *AdminHandler) ApproveConversion(c *gin.Context) {
	entryID, ok := parseEntryID(c)
	if !ok {
		return
	}

	entry, err := h.conversions.Approve(entryID)
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entry,
	})
}

// RejectConversion moves a pending conversion entry to REJECTED
func (h *AdminHandler) RejectConversion(c *gin.Context) {
	entryID, ok := parseEntryID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.conversions.Reject(entryID, req.Reason)
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entry,
	})
}

// ApprovePayout acknowledges a pending settlement batch
func (h *AdminHandler) ApprovePayout(c *gin.Context) {
	payoutID, ok := parsePayoutID(c)
	if !ok {
		return
	}

	payout, err := h.payouts.ApprovePayout(payoutID)
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payout,
	})
}

// RejectPayout cancels a pending payout and releases its claimed entries
func (h *AdminHandler) RejectPayout(c *gin.Context) {
	payoutID, ok := parsePayoutID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payout, err := h.payouts.RejectPayout(payoutID, req.Reason)
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payout,
	})
}

// MarkPayoutPaid records that the money for an approved payout was sent
func (h *AdminHandler) MarkPayoutPaid(c *gin.Context) {
	payoutID, ok := parsePayoutID(c)
	if !ok {
		return
	}

	payout, err := h.payouts.MarkPayoutPaid(payoutID)
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payout,
	})
}

// GetSettings returns the ledger settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    settings,
	})
}

// UpdateSettings replaces the tunable ledger parameters
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		CommissionRatePercent string `json:"commission_rate_percent" binding:"required"`
		MinPayoutAmount       string `json:"min_payout_amount" binding:"required"`
		CookieDurationDays    int    `json:"cookie_duration_days" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rate, err := decimal.NewFromString(req.CommissionRatePercent)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid commission_rate_percent"})
		return
	}
	minPayout, err := decimal.NewFromString(req.MinPayoutAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_payout_amount"})
		return
	}

	settings, err := h.settings.Update(rate, minPayout, req.CookieDurationDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    settings,
	})
}

// DeactivateLink turns a referral link off
func (h *AdminHandler) DeactivateLink(c *gin.Context) {
	linkID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid link id"})
		return
	}

	if err := h.attribution.DeactivateLink(uint(linkID)); err != nil {
		if errors.Is(err, services.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

func parseEntryID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return 0, false
	}
	return uint(id), true
}

func parsePayoutID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payout id"})
		return uuid.Nil, false
	}
	return id, true
}

func respondTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEntryNotFound), errors.Is(err, services.ErrPayoutNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed"})
	}
}
