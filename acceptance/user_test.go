package acceptance

import (
	"net/http"
	"testing"
	"time"
)

type userEnvelope struct {
	User userResponse `json:"user"`
}

func TestResolveUser(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	w := ts.POST("/users", map[string]string{"phone": "079-000-00-01", "name": "Dana"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	first := decode[userEnvelope](t, w).User
	if first.Phone != "0790000001" {
		t.Errorf("expected normalized phone, got %s", first.Phone)
	}

	// Same phone resolves to the same account and refreshes the name.
	w = ts.POST("/users", map[string]string{"phone": "079 000 00 01", "name": "Dana D."})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	second := decode[userEnvelope](t, w).User
	if second.ID != first.ID {
		t.Errorf("expected same account, got %s and %s", first.ID, second.ID)
	}
	if second.Name != "Dana D." {
		t.Errorf("expected refreshed name, got %s", second.Name)
	}

	assertErrorCode(t, ts.POST("/users", map[string]string{"phone": "12", "name": "X"}),
		http.StatusBadRequest, "INVALID_PHONE_FORMAT")
}

func TestUserOverview(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	driverID := ts.CreateTestUser(t, "Dana Driver", "+41790000001")
	rideID := ts.CreateTestRide(t, driverID, "Geneva", "Lausanne",
		time.Now().Add(24*time.Hour), 3, 12.50)

	w := ts.POST("/bookings", map[string]string{
		"rideId":         rideID.String(),
		"passengerPhone": "+41790000002",
		"passengerName":  "Pat Passenger",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("booking failed: %d %s", w.Code, w.Body.String())
	}

	type overview struct {
		User     userResponse `json:"user"`
		Rides    []rideResponse
		Bookings []struct {
			Status      string `json:"status"`
			Origin      string `json:"origin"`
			Destination string `json:"destination"`
			DriverName  string `json:"driverName"`
		} `json:"bookings"`
	}

	w = ts.GET("/users/+41790000001/overview")
	if w.Code != http.StatusOK {
		t.Fatalf("driver overview failed: %d %s", w.Code, w.Body.String())
	}
	d := decode[overview](t, w)
	if len(d.Rides) != 1 || len(d.Bookings) != 0 {
		t.Errorf("expected 1 offered ride and no bookings, got %d/%d", len(d.Rides), len(d.Bookings))
	}

	w = ts.GET("/users/+41790000002/overview")
	if w.Code != http.StatusOK {
		t.Fatalf("passenger overview failed: %d %s", w.Code, w.Body.String())
	}
	p := decode[overview](t, w)
	if len(p.Bookings) != 1 || len(p.Rides) != 0 {
		t.Errorf("expected 1 booking and no rides, got %d/%d", len(p.Bookings), len(p.Rides))
	}
	if p.Bookings[0].DriverName != "Dana Driver" {
		t.Errorf("expected driver details on booking, got %s", p.Bookings[0].DriverName)
	}

	assertErrorCode(t, ts.GET("/users/+41790009999/overview"), http.StatusNotFound, "USER_NOT_FOUND")
	assertErrorCode(t, ts.GET("/users/abc/overview"), http.StatusBadRequest, "INVALID_PHONE_FORMAT")
}
