package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Seeyko/tomandrieu.com-sub000/internal/availability"
)

// GET /api/booking/slots?date=YYYY-MM-DD&duration=30&timezone=Zone
//
// Duration and advance-window limits are enforced here, not in the engine:
// the engine computes, the boundary validates.
func (a *App) GetSlotsHandler(c *gin.Context) {
	ctx := c.Request.Context()

	date := c.Query("date")
	if _, err := time.ParseInLocation("2006-01-02", date, a.Owner); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required (YYYY-MM-DD)"})
		return
	}

	pol, err := a.Policy(ctx)
	if err != nil {
		a.Log.Error().Err(err).Msg("load settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	duration, ok := parseDuration(c.Query("duration"), pol)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration not allowed"})
		return
	}

	visitorTZ := c.Query("timezone")
	if visitorTZ != "" {
		if _, err := time.LoadLocation(visitorTZ); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timezone"})
			return
		}
	}

	if beyondAdvanceWindow(date, a.Owner, a.Engine.Now(), pol.MaxAdvanceDays) {
		c.JSON(http.StatusOK, []availability.Slot{})
		return
	}

	slots, err := a.Engine.AvailableSlots(ctx, date, duration, visitorTZ)
	if err != nil {
		a.Log.Error().Err(err).Str("date", date).Msg("compute slots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if slots == nil {
		slots = []availability.Slot{}
	}
	c.JSON(http.StatusOK, slots)
}

// GET /api/booking/dates?from=YYYY-MM-DD&to=YYYY-MM-DD&duration=30
func (a *App) GetAvailableDatesHandler(c *gin.Context) {
	ctx := c.Request.Context()

	from, to := c.Query("from"), c.Query("to")
	fromDay, err := time.ParseInLocation("2006-01-02", from, a.Owner)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from required (YYYY-MM-DD)"})
		return
	}
	toDay, err := time.ParseInLocation("2006-01-02", to, a.Owner)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to required (YYYY-MM-DD)"})
		return
	}
	if toDay.Before(fromDay) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must not be after to"})
		return
	}

	pol, err := a.Policy(ctx)
	if err != nil {
		a.Log.Error().Err(err).Msg("load settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	duration, ok := parseDuration(c.Query("duration"), pol)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration not allowed"})
		return
	}

	// Clamp the scan to the advance window rather than rejecting outright.
	if horizon := a.Engine.Now().In(a.Owner).AddDate(0, 0, pol.MaxAdvanceDays); toDay.After(horizon) {
		toDay = horizon
		to = toDay.Format("2006-01-02")
	}

	dates, err := a.Engine.AvailableDates(ctx, from, to, duration)
	if err != nil {
		a.Log.Error().Err(err).Str("from", from).Str("to", to).Msg("scan dates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if dates == nil {
		dates = []string{}
	}
	c.JSON(http.StatusOK, dates)
}

type createBookingReq struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	StartAtStr      string `json:"start_at" binding:"required"` // RFC3339
	DurationMinutes int    `json:"duration_minutes" binding:"required,gt=0"`
	Notes           string `json:"notes,omitempty"`
}

// POST /api/booking/bookings
//
// Write-time re-validation: the requested interval must still come out of
// the engine inside the same transaction that inserts the booking. The
// exact-start row lock closes the window between two racing validations.
func (a *App) CreateBookingHandler(c *gin.Context) {
	var req createBookingReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartAtStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_at"})
		return
	}
	start = start.UTC()

	ctx := c.Request.Context()

	pol, err := a.Policy(ctx)
	if err != nil {
		a.Log.Error().Err(err).Msg("load settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !pol.DurationAllowed(req.DurationMinutes) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration not allowed"})
		return
	}
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)

	tx, err := a.DB.Begin(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	defer tx.Rollback(ctx)

	checkQ := `SELECT id FROM bookings
	           WHERE status IN ('pending','confirmed') AND start_at_utc = $1
	           FOR UPDATE`
	var existingID string
	err = tx.QueryRow(ctx, checkQ, start).Scan(&existingID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		a.Log.Error().Err(err).Msg("booking conflict check")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if existingID != "" {
		c.JSON(http.StatusConflict, gin.H{"error": "slot no longer available"})
		return
	}

	ok, err := a.Engine.HasSlotAt(ctx, start, end)
	if err != nil {
		a.Log.Error().Err(err).Msg("booking re-validation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "slot no longer available"})
		return
	}

	booking := availability.Booking{
		ID:      uuid.NewString(),
		Name:    req.Name,
		Email:   req.Email,
		StartAt: start,
		EndAt:   end,
		Status:  availability.StatusPending,
		Notes:   req.Notes,
	}
	insertQ := `INSERT INTO bookings (id, name, email, start_at_utc, end_at_utc, status, notes, created_at)
	            VALUES ($1,$2,$3,$4,$5,$6,$7,now())`
	if _, err := tx.Exec(ctx, insertQ,
		booking.ID, booking.Name, booking.Email, booking.StartAt, booking.EndAt, booking.Status, booking.Notes); err != nil {
		a.Log.Error().Err(err).Msg("insert booking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := tx.Commit(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	a.Log.Info().Str("booking_id", booking.ID).Time("start", start).Msg("booking created")
	c.JSON(http.StatusCreated, booking)
}
