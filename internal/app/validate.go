package app

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Seeyko/tomandrieu.com-sub000/internal/availability"
)

func atoiParam(c *gin.Context, name string) (int, error) {
	return strconv.Atoi(c.Param(name))
}

// parseDuration parses a duration query parameter and checks it against the
// policy's allowed meeting lengths.
func parseDuration(s string, pol availability.Policy) (int, bool) {
	d, err := strconv.Atoi(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	if !pol.DurationAllowed(d) {
		return 0, false
	}
	return d, true
}

// beyondAdvanceWindow reports whether date falls past the last day slots
// may be offered on, counted from today in the owner timezone.
func beyondAdvanceWindow(date string, owner *time.Location, now time.Time, maxAdvanceDays int) bool {
	day, err := time.ParseInLocation("2006-01-02", date, owner)
	if err != nil {
		return false
	}
	n := now.In(owner)
	horizon := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, owner).AddDate(0, 0, maxAdvanceDays)
	return day.After(horizon)
}
