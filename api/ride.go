package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ridepool/ridepool-backend/ride"
)

type driverResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
}

type rideResponse struct {
	ID             uuid.UUID       `json:"id"`
	Origin         string          `json:"origin"`
	Destination    string          `json:"destination"`
	DepartureTime  time.Time       `json:"departureTime"`
	SeatsTotal     int             `json:"seatsTotal"`
	SeatsAvailable int             `json:"seatsAvailable"`
	PricePerSeat   float64         `json:"pricePerSeat"`
	Vehicle        string          `json:"vehicle,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Status         ride.Status     `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	Driver         *driverResponse `json:"driver,omitempty"`
}

func toRideResponse(r ride.Ride) rideResponse {
	return rideResponse{
		ID:             r.ID,
		Origin:         r.Origin,
		Destination:    r.Destination,
		DepartureTime:  r.DepartureTime,
		SeatsTotal:     r.SeatsTotal,
		SeatsAvailable: r.SeatsAvailable,
		PricePerSeat:   r.PricePerSeat,
		Vehicle:        r.Vehicle,
		Notes:          r.Notes,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
	}
}

func toRideWithDriverResponse(r ride.WithDriver) rideResponse {
	resp := toRideResponse(r.Ride)
	resp.Driver = &driverResponse{ID: r.DriverID, Name: r.DriverName, Phone: r.DriverPhone}
	return resp
}

type createRideRequest struct {
	DriverPhone   string  `json:"driverPhone" binding:"required"`
	DriverName    string  `json:"driverName" binding:"required"`
	Origin        string  `json:"origin" binding:"required"`
	Destination   string  `json:"destination" binding:"required"`
	DepartureTime string  `json:"departureTime" binding:"required"`
	Seats         int     `json:"seats" binding:"required"`
	PricePerSeat  float64 `json:"pricePerSeat" binding:"required"`
	Vehicle       string  `json:"vehicle"`
	Notes         string  `json:"notes"`
}

func (a *API) createRideHandler(c *gin.Context) {
	var req createRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	departure, err := time.Parse(time.RFC3339, req.DepartureTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "invalid departureTime format, want RFC3339"})
		return
	}

	rd, driver, err := a.rr.Create(c.Request.Context(), ride.Offer{
		DriverPhone:   req.DriverPhone,
		DriverName:    req.DriverName,
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureTime: departure,
		Seats:         req.Seats,
		PricePerSeat:  req.PricePerSeat,
		Vehicle:       req.Vehicle,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := toRideResponse(rd)
	resp.Driver = &driverResponse{ID: driver.ID, Name: driver.Name, Phone: driver.Phone}
	c.JSON(http.StatusCreated, gin.H{"ride": resp})
}

func (a *API) getRideHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "invalid ride id"})
		return
	}

	rd, err := a.rr.GetWithDriver(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRideWithDriverResponse(rd))
}

func (a *API) latestRidesHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	rides, err := a.rr.Latest(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]rideResponse, 0, len(rides))
	for _, r := range rides {
		resp = append(resp, toRideWithDriverResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"rides": resp})
}

type updateRideStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (a *API) updateRideStatusHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "invalid ride id"})
		return
	}

	var req updateRideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	rd, cancelled, err := a.rr.UpdateStatus(c.Request.Context(), id, ride.Status(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}

	if len(cancelled) > 0 {
		c.JSON(http.StatusOK, gin.H{"ride": toRideResponse(rd), "cancelledBookings": cancelled})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ride": toRideResponse(rd)})
}

type searchRidesRequest struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Date        string   `json:"date"` // YYYY-MM-DD
	Seats       int      `json:"seats"`
	PriceMin    *float64 `json:"priceMin"`
	PriceMax    *float64 `json:"priceMax"`
	TimeOfDay   string   `json:"timeOfDay"`
	Vehicle     string   `json:"vehicle"`
	SortBy      string   `json:"sortBy"`
}

func (a *API) searchRidesHandler(c *gin.Context) {
	var req searchRidesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	criteria := ride.SearchCriteria{
		Origin:      req.Origin,
		Destination: req.Destination,
		Seats:       req.Seats,
		PriceMin:    req.PriceMin,
		PriceMax:    req.PriceMax,
		TimeOfDay:   req.TimeOfDay,
		Vehicle:     req.Vehicle,
		SortBy:      req.SortBy,
	}
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "message": "invalid date format, want YYYY-MM-DD"})
			return
		}
		criteria.Date = &d
	}

	rides, err := a.rr.Search(c.Request.Context(), criteria)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]rideResponse, 0, len(rides))
	for _, r := range rides {
		resp = append(resp, toRideWithDriverResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"rides": resp})
}
