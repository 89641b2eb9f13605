package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ridepool/ridepool-backend/booking"
)

type bookingResponse struct {
	ID          uuid.UUID      `json:"id"`
	RideID      uuid.UUID      `json:"rideId"`
	PassengerID uuid.UUID      `json:"passengerId"`
	Status      booking.Status `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func toBookingResponse(b booking.Booking) bookingResponse {
	return bookingResponse{
		ID:          b.ID,
		RideID:      b.RideID,
		PassengerID: b.PassengerID,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
	}
}

type createBookingRequest struct {
	RideID         string `json:"rideId" binding:"required"`
	PassengerPhone string `json:"passengerPhone" binding:"required"`
	PassengerName  string `json:"passengerName" binding:"required"`
}

func (a *API) createBookingHandler(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	rideID, err := uuid.Parse(req.RideID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "invalid ride id"})
		return
	}

	result, err := a.bkr.Create(c.Request.Context(), rideID, req.PassengerPhone, req.PassengerName)
	if err != nil {
		bookingsTotal.WithLabelValues(bookingOutcome(err)).Inc()
		writeError(c, err)
		return
	}
	bookingsTotal.WithLabelValues("created").Inc()

	c.JSON(http.StatusCreated, gin.H{
		"booking": toBookingResponse(result.Booking),
		"ride":    toRideResponse(result.Ride),
		"passenger": gin.H{
			"id":    result.Passenger.ID,
			"name":  result.Passenger.Name,
			"phone": result.Passenger.Phone,
		},
	})
}

// bookingOutcome buckets a failed reservation for the bookings_total
// metric: business-rule rejections are not store faults.
func bookingOutcome(err error) string {
	switch {
	case errors.Is(err, booking.ErrRideNotFound),
		errors.Is(err, booking.ErrRideNotActive),
		errors.Is(err, booking.ErrSelfBooking),
		errors.Is(err, booking.ErrDuplicateBooking),
		errors.Is(err, booking.ErrNoSeats):
		return "rejected"
	default:
		return "error"
	}
}

type updateBookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (a *API) updateBookingStatusHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "invalid booking id"})
		return
	}

	var req updateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	b, err := a.bkr.UpdateStatus(c.Request.Context(), id, booking.Status(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": toBookingResponse(b)})
}

type ridePassengerResponse struct {
	bookingResponse
	PassengerName  string `json:"passengerName"`
	PassengerPhone string `json:"passengerPhone"`
}

func (a *API) rideBookingsHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "invalid ride id"})
		return
	}

	if _, err := a.rr.GetByID(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	bookings, err := a.bkr.ByRide(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]ridePassengerResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, ridePassengerResponse{
			bookingResponse: toBookingResponse(b.Booking),
			PassengerName:   b.PassengerName,
			PassengerPhone:  b.PassengerPhone,
		})
	}
	c.JSON(http.StatusOK, gin.H{"bookings": resp})
}
