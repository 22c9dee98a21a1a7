package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"affiliate-ledger/internal/auth"
	"affiliate-ledger/internal/services"
)

type AffiliateHandler struct {
	db          *gorm.DB
	attribution *services.AttributionService
	ledger      *services.LedgerService
	payouts     *services.PayoutService
	settings    *services.SettingsService
}

func NewAffiliateHandler(db *gorm.DB) *AffiliateHandler {
	return &AffiliateHandler{
		db:          db,
		attribution: services.NewAttributionService(db),
		ledger:      services.NewLedgerService(db),
		payouts:     services.NewPayoutService(db),
		settings:    services.NewSettingsService(db),
	}
}

// GetLink returns the caller's referral link, creating it on first request
func (h *AffiliateHandler) GetLink(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	link, err := h.attribution.IssueToken(accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get referral link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    link,
	})
}

// RecordClick tracks a referral visit. It always succeeds from the caller's
// point of view: a dead code must never break the buyer's browsing flow.
func (h *AffiliateHandler) RecordClick(c *gin.Context) {
	code := c.Param("code")

	clientIP := c.ClientIP()
	userAgent := c.Request.UserAgent()

	var ipPtr, uaPtr *string
	if clientIP != "" {
		ipPtr = &clientIP
	}
	if userAgent != "" {
		uaPtr = &userAgent
	}

	// Errors are swallowed on purpose; clicks are a metric, not money
	_ = h.attribution.RecordClick(code, ipPtr, uaPtr)

	// The caller owns the client-side token; tell it how long to keep it
	cookieDays := 0
	if settings, err := h.settings.Get(); err == nil {
		cookieDays = settings.CookieDurationDays
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"code":                 code,
		"cookie_duration_days": cookieDays,
	})
}

// GetStats returns the ledger aggregates for the caller's link
func (h *AffiliateHandler) GetStats(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	stats, err := h.ledger.Stats(accountID)
	if err != nil {
		if err == services.ErrLinkNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "No referral link for this account"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// GetConversions returns the caller's conversion history
func (h *AffiliateHandler) GetConversions(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entries, err := h.ledger.History(accountID)
	if err != nil {
		if err == services.ErrLinkNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "No referral link for this account"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get conversions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entries,
		"count":   len(entries),
	})
}

// GetClicks returns recent click events for the caller's link
func (h *AffiliateHandler) GetClicks(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	clicks, err := h.ledger.Clicks(accountID, limit)
	if err != nil {
		if err == services.ErrLinkNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "No referral link for this account"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get clicks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    clicks,
		"count":   len(clicks),
	})
}

// GetPayouts returns the caller's payout history
func (h *AffiliateHandler) GetPayouts(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	payouts, err := h.payouts.ListPayouts(accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get payouts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payouts,
		"count":   len(payouts),
	})
}

// RequestPayout settles the caller's available balance into a payout
func (h *AffiliateHandler) RequestPayout(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Method string `json:"method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payout, err := h.payouts.RequestPayout(accountID, req.Method)
	if err != nil {
		var insufficient *services.InsufficientBalanceError
		switch {
		case errors.As(err, &insufficient):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":     "Insufficient balance",
				"available": insufficient.Available,
				"minimum":   insufficient.Minimum,
			})
		case err == services.ErrLinkNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "No referral link for this account"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to request payout"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    payout,
	})
}
