package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
	"github.com/BartoooMuch/irline-ticketing-system/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings", h.purchase)
	router.GET("/bookings/:reference", h.byReference)
	router.DELETE("/tickets/:id", h.cancel)
}

type passengerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Title     string `json:"title"`
	BirthDate string `json:"birth_date"` // YYYY-MM-DD
	Email     string `json:"email"`
}

type purchaseRequest struct {
	FlightID     int64              `json:"flight_id"`
	Passengers   []passengerRequest `json:"passengers"`
	UseMiles     bool               `json:"use_miles"`
	MemberNumber string             `json:"member_number"`
}

type ticketResponse struct {
	ID               int64  `json:"id"`
	TicketNumber     string `json:"ticket_number"`
	BookingReference string `json:"booking_reference"`
	FlightID         int64  `json:"flight_id"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	ContactEmail     string `json:"contact_email"`
	PriceCents       int64  `json:"price_cents"`
	MilesUsed        int64  `json:"miles_used"`
	MilesEarned      int64  `json:"miles_earned"`
	PaymentMethod    string `json:"payment_method"`
	Status           string `json:"status"`
}

type purchaseResponse struct {
	BookingReference string           `json:"booking_reference"`
	Tickets          []ticketResponse `json:"tickets"`
	CashTotalCents   int64            `json:"cash_total_cents"`
	CashDueCents     int64            `json:"cash_due_cents"`
	MilesUsed        int64            `json:"miles_used"`
	MilesEarned      int64            `json:"miles_earned"`
	MemberNumber     string           `json:"member_number,omitempty"`
	AvailableMiles   *int64           `json:"available_miles,omitempty"`
}

func (h *BookingHandler) purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	passengers := make([]booking.PassengerInput, 0, len(req.Passengers))
	for i, p := range req.Passengers {
		birthDate, err := time.Parse("2006-01-02", p.BirthDate)
		if err != nil {
			respondError(c, &domain.ValidationError{
				Field:  "passengers[" + strconv.Itoa(i) + "].birth_date",
				Reason: "must be YYYY-MM-DD",
			})
			return
		}
		passengers = append(passengers, booking.PassengerInput{
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Title:     p.Title,
			BirthDate: birthDate,
			Email:     p.Email,
		})
	}

	result, err := h.service.Purchase(c.Request.Context(), booking.PurchaseInput{
		FlightID:     req.FlightID,
		Passengers:   passengers,
		UseMiles:     req.UseMiles,
		MemberNumber: req.MemberNumber,
		Identity:     identityFrom(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := purchaseResponse{
		BookingReference: result.BookingReference,
		Tickets:          ticketResponses(result.Tickets),
		CashTotalCents:   result.CashTotalCents,
		CashDueCents:     result.CashDueCents,
		MilesUsed:        result.MilesUsed,
		MilesEarned:      result.MilesEarned,
	}
	if result.Member != nil {
		resp.MemberNumber = result.Member.MemberNumber
		available := result.Member.AvailableMiles
		resp.AvailableMiles = &available
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *BookingHandler) byReference(c *gin.Context) {
	reference := c.Param("reference")
	tickets, err := h.service.TicketsByReference(c.Request.Context(), reference)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(tickets) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking_reference": reference,
		"tickets":           ticketResponses(tickets),
	})
}

func (h *BookingHandler) cancel(c *gin.Context) {
	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), ticketID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticket":            toTicketResponse(result.Ticket),
		"miles_refunded":    result.MilesRefunded,
		"already_cancelled": result.AlreadyCancelled,
	})
}

func ticketResponses(tickets []domain.Ticket) []ticketResponse {
	out := make([]ticketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, toTicketResponse(&tickets[i]))
	}
	return out
}

func toTicketResponse(t *domain.Ticket) ticketResponse {
	return ticketResponse{
		ID:               t.ID,
		TicketNumber:     t.TicketNumber,
		BookingReference: t.BookingReference,
		FlightID:         t.FlightID,
		FirstName:        t.FirstName,
		LastName:         t.LastName,
		ContactEmail:     t.ContactEmail,
		PriceCents:       t.PriceCents,
		MilesUsed:        t.MilesUsed,
		MilesEarned:      t.MilesEarned,
		PaymentMethod:    string(t.PaymentMethod),
		Status:           string(t.Status),
	}
}
