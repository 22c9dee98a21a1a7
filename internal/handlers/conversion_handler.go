package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"affiliate-ledger/internal/services"
)

type ConversionHandler struct {
	db          *gorm.DB
	conversions *services.ConversionService
}

func NewConversionHandler(db *gorm.DB) *ConversionHandler {
	return &ConversionHandler{
		db:          db,
		conversions: services.NewConversionService(db),
	}
}

// RecordConversion is the single entry point every order-completion trigger
// calls: checkout submission, receipt upload, manual admin action and bulk
// approve all post here. Re-posting the same order is safe.
func (h *ConversionHandler) RecordConversion(c *gin.Context) {
	var req struct {
		OrderID        string  `json:"order_id" binding:"required"`
		GrossAmount    string  `json:"gross_amount" binding:"required"`
		ReferralCode   string  `json:"referral_code"`
		BuyerAccountID *uint   `json:"buyer_account_id"`
		BuyerEmail     *string `json:"buyer_email"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gross, err := decimal.NewFromString(req.GrossAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid gross_amount"})
		return
	}

	entry, skipped, err := h.conversions.RecordConversion(services.ConversionInput{
		OrderID:        req.OrderID,
		GrossAmount:    gross,
		ReferralCode:   req.ReferralCode,
		BuyerAccountID: req.BuyerAccountID,
		BuyerEmail:     req.BuyerEmail,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record conversion"})
		return
	}

	if skipped {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"skipped": true,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entry,
	})
}
