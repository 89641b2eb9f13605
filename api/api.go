package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ridepool/ridepool-backend/booking"
	"github.com/ridepool/ridepool-backend/internal/middleware"
	"github.com/ridepool/ridepool-backend/internal/o11y"
	"github.com/ridepool/ridepool-backend/places"
	"github.com/ridepool/ridepool-backend/ride"
	"github.com/ridepool/ridepool-backend/user"
)

type API struct {
	r   *gin.Engine
	ur  *user.Repository
	rr  *ride.Repository
	bkr *booking.Repository
	pc  *places.Client
}

func New(ur *user.Repository, rr *ride.Repository, bkr *booking.Repository,
	pc *places.Client, obs *o11y.Observability, metricsUsername, metricsPassword string) *API {
	a := &API{
		r:   gin.New(),
		ur:  ur,
		rr:  rr,
		bkr: bkr,
		pc:  pc,
	}

	obs.Registry.MustRegister(bookingsTotal)

	a.r.Use(gin.Recovery())
	a.r.Use(middleware.Tracing())
	a.r.Use(middleware.Logging(obs.Logger))
	a.r.Use(middleware.Metrics(obs.Registry))

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	metrics := promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{})
	if metricsUsername != "" {
		a.r.GET("/metrics", gin.BasicAuth(gin.Accounts{metricsUsername: metricsPassword}), gin.WrapH(metrics))
	} else {
		a.r.GET("/metrics", gin.WrapH(metrics))
	}

	a.r.POST("/users", a.resolveUserHandler)
	a.r.GET("/users/:phone/overview", a.userOverviewHandler)

	a.r.POST("/rides", a.createRideHandler)
	a.r.GET("/rides/latest", a.latestRidesHandler)
	a.r.GET("/rides/:id", a.getRideHandler)
	a.r.GET("/rides/:id/bookings", a.rideBookingsHandler)
	a.r.PATCH("/rides/:id/status", a.updateRideStatusHandler)
	a.r.POST("/rides/search", a.searchRidesHandler)

	a.r.POST("/bookings", a.createBookingHandler)
	a.r.PATCH("/bookings/:id/status", a.updateBookingStatusHandler)

	a.r.GET("/places/autocomplete", a.placesHandler)

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}

// Domain errors map to the public taxonomy; anything unrecognized is a
// transient store failure, reported without leaking driver detail.
var errorMappings = []struct {
	err    error
	status int
	code   string
}{
	{user.ErrInvalidPhone, http.StatusBadRequest, "INVALID_PHONE_FORMAT"},
	{user.ErrNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ride.ErrMissingFields, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ride.ErrPastDeparture, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ride.ErrSeatRange, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ride.ErrInvalidPrice, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ride.ErrInvalidSort, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ride.ErrNotFound, http.StatusNotFound, "RIDE_NOT_FOUND"},
	{ride.ErrDuplicateRide, http.StatusConflict, "DUPLICATE_ACTIVE_RIDE"},
	{ride.ErrInvalidTransition, http.StatusConflict, "INVALID_STATUS_TRANSITION"},
	{booking.ErrRideNotFound, http.StatusNotFound, "RIDE_NOT_FOUND"},
	{booking.ErrRideNotActive, http.StatusConflict, "RIDE_NOT_ACTIVE"},
	{booking.ErrSelfBooking, http.StatusConflict, "SELF_BOOKING_NOT_ALLOWED"},
	{booking.ErrDuplicateBooking, http.StatusConflict, "DUPLICATE_BOOKING"},
	{booking.ErrNoSeats, http.StatusConflict, "NO_SEATS_AVAILABLE"},
	{booking.ErrNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND"},
	{booking.ErrAlreadyCancelled, http.StatusConflict, "ALREADY_CANCELLED"},
	{booking.ErrInvalidTransition, http.StatusConflict, "INVALID_STATUS_TRANSITION"},
}

func writeError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"code": m.code, "message": err.Error()})
			return
		}
	}
	middleware.GetLogger(c).ErrorContext(c, "storage failure", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "STORE_UNAVAILABLE",
		"message": "temporary storage failure, retry the request",
	})
}

var bookingsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bookings_total",
		Help: "Booking attempts by outcome",
	},
	[]string{"result"},
)
