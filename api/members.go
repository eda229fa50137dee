package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
	"github.com/BartoooMuch/irline-ticketing-system/internal/service/loyalty"
)

type MemberHandler struct {
	service loyalty.LoyaltyUseCase
}

func NewMemberHandler(service loyalty.LoyaltyUseCase) *MemberHandler {
	return &MemberHandler{service: service}
}

func (h *MemberHandler) Register(router *gin.RouterGroup) {
	router.POST("/members", h.register)
	router.GET("/members/:number", h.get)
	router.GET("/members/:number/transactions", h.statement)
}

// RegisterAuthenticated mounts the identity-bound routes; the caller wraps
// them in RequireAuth. The profile route lives outside /members because
// "me" would collide with the :number wildcard.
func (h *MemberHandler) RegisterAuthenticated(router *gin.RouterGroup) {
	router.GET("/me", h.me)
}

type registerMemberRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type memberResponse struct {
	MemberNumber   string `json:"member_number"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	TotalMiles     int64  `json:"total_miles"`
	AvailableMiles int64  `json:"available_miles"`
	Tier           string `json:"tier"`
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Miles       int64  `json:"miles"`
	Description string `json:"description"`
	Source      string `json:"source"`
	TicketID    *int64 `json:"ticket_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func (h *MemberHandler) register(c *gin.Context) {
	var req registerMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.service.Register(c.Request.Context(), loyalty.RegisterInput{Email: req.Email, Name: req.Name})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMemberResponse(member))
}

func (h *MemberHandler) get(c *gin.Context) {
	member, err := h.service.MemberByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(member))
}

func (h *MemberHandler) me(c *gin.Context) {
	ident := identityFrom(c)
	if ident == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}

	member, err := h.service.ResolveIdentity(c.Request.Context(), *ident)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(member))
}

func (h *MemberHandler) statement(c *gin.Context) {
	statement, err := h.service.Statement(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}

	txs := make([]transactionResponse, 0, len(statement.Transactions))
	for _, pt := range statement.Transactions {
		txs = append(txs, transactionResponse{
			ID:          pt.ID,
			Type:        string(pt.Type),
			Miles:       pt.Miles,
			Description: pt.Description,
			Source:      string(pt.Source),
			TicketID:    pt.TicketID,
			CreatedAt:   pt.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"member":       toMemberResponse(statement.Member),
		"transactions": txs,
	})
}

func toMemberResponse(m *domain.Member) memberResponse {
	return memberResponse{
		MemberNumber:   m.MemberNumber,
		Email:          m.Email,
		Name:           m.Name,
		TotalMiles:     m.TotalMiles,
		AvailableMiles: m.AvailableMiles,
		Tier:           string(m.Tier),
	}
}
