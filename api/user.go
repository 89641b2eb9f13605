package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type resolveUserRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name" binding:"required"`
}

func (a *API) resolveUserHandler(c *gin.Context) {
	var req resolveUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	u, err := a.ur.ResolveOrCreate(c.Request.Context(), req.Phone, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": u})
}

type overviewBookingResponse struct {
	bookingResponse
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departureTime"`
	PricePerSeat  float64   `json:"pricePerSeat"`
	RideStatus    string    `json:"rideStatus"`
	DriverName    string    `json:"driverName"`
	DriverPhone   string    `json:"driverPhone"`
}

// userOverviewHandler backs the dashboard page: everything a user has
// offered and everything they have booked, in one response.
func (a *API) userOverviewHandler(c *gin.Context) {
	u, err := a.ur.GetByPhone(c.Request.Context(), c.Param("phone"))
	if err != nil {
		writeError(c, err)
		return
	}

	rides, err := a.rr.ByDriver(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	bookings, err := a.bkr.ByPassenger(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	rideResps := make([]rideResponse, 0, len(rides))
	for _, r := range rides {
		rideResps = append(rideResps, toRideResponse(r))
	}

	bookingResps := make([]overviewBookingResponse, 0, len(bookings))
	for _, b := range bookings {
		bookingResps = append(bookingResps, overviewBookingResponse{
			bookingResponse: toBookingResponse(b.Booking),
			Origin:          b.Origin,
			Destination:     b.Destination,
			DepartureTime:   b.DepartureTime,
			PricePerSeat:    b.PricePerSeat,
			RideStatus:      b.RideStatus,
			DriverName:      b.DriverName,
			DriverPhone:     b.DriverPhone,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     u,
		"rides":    rideResps,
		"bookings": bookingResps,
	})
}
