package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ridepool/ridepool-backend/internal/middleware"
	"github.com/ridepool/ridepool-backend/places"
)

// placesHandler proxies location autocomplete. Provider failures are
// non-fatal: users can always type locations by hand, so the handler
// degrades to an empty suggestion list instead of erroring.
func (a *API) placesHandler(c *gin.Context) {
	query := c.Query("q")

	if a.pc == nil {
		c.JSON(http.StatusOK, gin.H{"suggestions": []places.Suggestion{}})
		return
	}

	suggestions, err := a.pc.Autocomplete(c.Request.Context(), query)
	if err != nil {
		middleware.GetLogger(c).WarnContext(c, "places autocomplete unavailable", "error", err)
		suggestions = nil
	}
	if suggestions == nil {
		suggestions = []places.Suggestion{}
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
