package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BartoooMuch/irline-ticketing-system/internal/identity"
)

// NewRouter assembles the public API surface: anonymous booking routes
// with optional identity, identity-bound member routes, and the partner
// credit interface behind key+secret auth.
func NewRouter(
	verifier *identity.Verifier,
	partners PartnerStore,
	bookings *BookingHandler,
	flightsHandler *FlightHandler,
	members *MemberHandler,
	partner *PartnerHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := router.Group("/api")
	public.Use(OptionalAuth(verifier))
	bookings.Register(public)
	flightsHandler.Register(public)
	members.Register(public)
	flightsHandler.RegisterAdmin(public)

	authed := router.Group("/api")
	authed.Use(RequireAuth(verifier))
	members.RegisterAuthenticated(authed)

	partnerGroup := router.Group("/api/partner")
	partnerGroup.Use(PartnerAuth(partners))
	partner.Register(partnerGroup)

	return router
}
