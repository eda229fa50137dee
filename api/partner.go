package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BartoooMuch/irline-ticketing-system/internal/service/loyalty"
)

type PartnerHandler struct {
	service loyalty.LoyaltyUseCase
}

func NewPartnerHandler(service loyalty.LoyaltyUseCase) *PartnerHandler {
	return &PartnerHandler{service: service}
}

// Register mounts the partner credit route; the caller wraps it in
// PartnerAuth.
func (h *PartnerHandler) Register(router *gin.RouterGroup) {
	router.POST("/credits", h.credit)
}

type partnerCreditRequest struct {
	MemberNumber string `json:"member_number"`
	Miles        int64  `json:"miles"`
	Description  string `json:"description"`
}

func (h *PartnerHandler) credit(c *gin.Context) {
	partner := partnerFrom(c)
	if partner == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "partner credentials required"})
		return
	}

	var req partnerCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	credited, err := h.service.PartnerCredit(c.Request.Context(), partner, loyalty.PartnerCreditInput{
		MemberNumber: req.MemberNumber,
		Miles:        req.Miles,
		Description:  req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"transaction_id": credited.ID,
		"member_number":  req.MemberNumber,
		"miles":          credited.Miles,
		"source":         string(credited.Source),
		"created_at":     credited.CreatedAt.Format(time.RFC3339),
	})
}
