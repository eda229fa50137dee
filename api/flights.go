package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
	"github.com/BartoooMuch/irline-ticketing-system/internal/pricing"
	"github.com/BartoooMuch/irline-ticketing-system/internal/service/flights"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/flights", h.list)
	router.GET("/flights/:id", h.get)
	router.POST("/flights/quote", h.quote)
	router.GET("/airports", h.airports)
}

// RegisterAdmin mounts the mutating routes; the caller decides which
// middleware guards them.
func (h *FlightHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.POST("/flights", h.create)
	router.PATCH("/flights/:id", h.update)
}

type createFlightRequest struct {
	FromAirport     string `json:"from_airport"`
	ToAirport       string `json:"to_airport"`
	DepartureTime   string `json:"departure_time"` // RFC 3339
	DurationMinutes int    `json:"duration_minutes"`
	TotalSeats      int    `json:"total_seats"`
	PriceCents      int64  `json:"price_cents"` // zero asks the oracle
}

type updateFlightRequest struct {
	Status        *string `json:"status"`
	PriceCents    *int64  `json:"price_cents"`
	TotalSeats    *int    `json:"total_seats"`
	DepartureTime *string `json:"departure_time"` // RFC 3339
}

type quoteRequest struct {
	FromAirport     string `json:"from_airport"`
	ToAirport       string `json:"to_airport"`
	DepartureDate   string `json:"departure_date"` // YYYY-MM-DD
	DurationMinutes int    `json:"duration_minutes"`
}

type flightResponse struct {
	ID              int64  `json:"id"`
	FromAirport     string `json:"from_airport"`
	ToAirport       string `json:"to_airport"`
	DepartureTime   string `json:"departure_time"`
	DurationMinutes int    `json:"duration_minutes"`
	TotalSeats      int    `json:"total_seats"`
	AvailableSeats  int    `json:"available_seats"`
	PriceCents      int64  `json:"price_cents"`
	Status          string `json:"status"`
}

func (h *FlightHandler) list(c *gin.Context) {
	flightList, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]flightResponse, 0, len(flightList))
	for i := range flightList {
		out = append(out, toFlightResponse(&flightList[i]))
	}
	c.JSON(http.StatusOK, gin.H{"flights": out})
}

func (h *FlightHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flight id"})
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(flight))
}

func (h *FlightHandler) create(c *gin.Context) {
	var req createFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	departure, err := time.Parse(time.RFC3339, req.DepartureTime)
	if err != nil {
		respondError(c, &domain.ValidationError{Field: "departure_time", Reason: "must be RFC 3339"})
		return
	}

	flight, err := h.service.Create(c.Request.Context(), flights.CreateInput{
		FromAirport:     req.FromAirport,
		ToAirport:       req.ToAirport,
		DepartureTime:   departure,
		DurationMinutes: req.DurationMinutes,
		TotalSeats:      req.TotalSeats,
		PriceCents:      req.PriceCents,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toFlightResponse(flight))
}

func (h *FlightHandler) update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flight id"})
		return
	}
	var req updateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := flights.UpdateInput{
		PriceCents: req.PriceCents,
		TotalSeats: req.TotalSeats,
	}
	if req.Status != nil {
		status := domain.FlightStatus(*req.Status)
		input.Status = &status
	}
	if req.DepartureTime != nil {
		departure, err := time.Parse(time.RFC3339, *req.DepartureTime)
		if err != nil {
			respondError(c, &domain.ValidationError{Field: "departure_time", Reason: "must be RFC 3339"})
			return
		}
		input.DepartureTime = &departure
	}

	flight, err := h.service.Update(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(flight))
}

func (h *FlightHandler) quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	departureDate, err := time.Parse("2006-01-02", req.DepartureDate)
	if err != nil {
		respondError(c, &domain.ValidationError{Field: "departure_date", Reason: "must be YYYY-MM-DD"})
		return
	}

	price, err := h.service.Quote(c.Request.Context(), pricing.QuoteRequest{
		FromAirport:     req.FromAirport,
		ToAirport:       req.ToAirport,
		DepartureDate:   departureDate,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from_airport":    req.FromAirport,
		"to_airport":      req.ToAirport,
		"suggested_price": price.StringFixed(2),
	})
}

type airportResponse struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

func (h *FlightHandler) airports(c *gin.Context) {
	airports, err := h.service.ListAirports(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]airportResponse, 0, len(airports))
	for _, a := range airports {
		out = append(out, airportResponse{Code: a.Code, Name: a.Name, City: a.City, Country: a.Country})
	}
	c.JSON(http.StatusOK, gin.H{"airports": out})
}

func toFlightResponse(f *domain.Flight) flightResponse {
	return flightResponse{
		ID:              f.ID,
		FromAirport:     f.FromAirport,
		ToAirport:       f.ToAirport,
		DepartureTime:   f.DepartureTime.Format(time.RFC3339),
		DurationMinutes: f.DurationMinutes,
		TotalSeats:      f.TotalSeats,
		AvailableSeats:  f.AvailableSeats,
		PriceCents:      f.BasePriceCents,
		Status:          string(f.Status),
	}
}
