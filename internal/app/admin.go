package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/Seeyko/tomandrieu.com-sub000/internal/availability"
)

type ruleReq struct {
	DayOfWeek *int   `json:"day_of_week" binding:"required,min=0,max=6"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Timezone  string `json:"timezone,omitempty"`
	Active    *bool  `json:"active"`
}

// POST /api/admin/availability
func (a *App) CreateRuleHandler(c *gin.Context) {
	var req ruleReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule := availability.Rule{
		DayOfWeek: *req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Timezone:  req.Timezone,
		Active:    req.Active == nil || *req.Active,
	}
	if err := a.InsertRule(c.Request.Context(), &rule); err != nil {
		a.Log.Error().Err(err).Msg("insert rule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// GET /api/admin/availability
func (a *App) ListRulesHandler(c *gin.Context) {
	rules, err := a.ListRules(c.Request.Context())
	if err != nil {
		a.Log.Error().Err(err).Msg("list rules")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if rules == nil {
		rules = []availability.Rule{}
	}
	c.JSON(http.StatusOK, rules)
}

// PUT /api/admin/availability/:id
func (a *App) UpdateRuleHandler(c *gin.Context) {
	var req ruleReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := atoiParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	rule := availability.Rule{
		ID:        id,
		DayOfWeek: *req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Timezone:  req.Timezone,
		Active:    req.Active == nil || *req.Active,
	}
	err = a.UpdateRule(c.Request.Context(), &rule)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "availability rule not found"})
		return
	}
	if err != nil {
		a.Log.Error().Err(err).Msg("update rule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DELETE /api/admin/availability/:id
func (a *App) DeleteRuleHandler(c *gin.Context) {
	id, err := atoiParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	err = a.DeleteRule(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "availability rule not found"})
		return
	}
	if err != nil {
		a.Log.Error().Err(err).Msg("delete rule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type blockedDateReq struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// POST /api/admin/blocked-dates
func (a *App) CreateBlockedDateHandler(c *gin.Context) {
	var req blockedDateReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := time.ParseInLocation("2006-01-02", req.Date, a.Owner); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}
	// Either both times or neither: a half-specified range is ambiguous.
	if (req.StartTime == "") != (req.EndTime == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time and end_time must be set together"})
		return
	}
	block := availability.BlockedDate{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	}
	if err := a.InsertBlockedDate(c.Request.Context(), &block); err != nil {
		a.Log.Error().Err(err).Msg("insert blocked date")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, block)
}

// GET /api/admin/blocked-dates
func (a *App) ListBlockedDatesHandler(c *gin.Context) {
	blocks, err := a.ListBlockedDates(c.Request.Context())
	if err != nil {
		a.Log.Error().Err(err).Msg("list blocked dates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if blocks == nil {
		blocks = []availability.BlockedDate{}
	}
	c.JSON(http.StatusOK, blocks)
}

// DELETE /api/admin/blocked-dates/:id
func (a *App) DeleteBlockedDateHandler(c *gin.Context) {
	id, err := atoiParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	err = a.DeleteBlockedDate(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "blocked date not found"})
		return
	}
	if err != nil {
		a.Log.Error().Err(err).Msg("delete blocked date")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /api/admin/settings
func (a *App) GetSettingsHandler(c *gin.Context) {
	pol, err := a.Policy(c.Request.Context())
	if err != nil {
		a.Log.Error().Err(err).Msg("load settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, pol)
}

// PUT /api/admin/settings
func (a *App) UpdateSettingsHandler(c *gin.Context) {
	var req availability.Policy
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pol, err := a.UpsertPolicy(c.Request.Context(), req)
	if err != nil {
		a.Log.Error().Err(err).Msg("upsert settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, pol)
}

// GET /api/admin/bookings?from=ISO&to=ISO&status=pending
func (a *App) ListBookingsHandler(c *gin.Context) {
	fromStr, toStr := c.Query("from"), c.Query("to")
	status := c.Query("status")

	var from, to time.Time
	ranged := fromStr != "" && toStr != ""
	if ranged {
		var err error
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		if !from.Before(to) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
			return
		}
	}

	bookings, err := a.ListBookings(c.Request.Context(), from, to, status, ranged)
	if err != nil {
		a.Log.Error().Err(err).Msg("list bookings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if bookings == nil {
		bookings = []availability.Booking{}
	}
	c.JSON(http.StatusOK, bookings)
}

// POST /api/admin/bookings/:id/confirm
func (a *App) ConfirmBookingHandler(c *gin.Context) {
	a.transitionBooking(c, availability.StatusConfirmed, map[string]bool{
		availability.StatusPending: true,
	})
}

// POST /api/admin/bookings/:id/cancel — completed bookings stay completed.
func (a *App) CancelBookingHandler(c *gin.Context) {
	a.transitionBooking(c, availability.StatusCancelled, map[string]bool{
		availability.StatusPending:   true,
		availability.StatusConfirmed: true,
	})
}

// POST /api/admin/bookings/:id/complete
func (a *App) CompleteBookingHandler(c *gin.Context) {
	a.transitionBooking(c, availability.StatusCompleted, map[string]bool{
		availability.StatusConfirmed: true,
	})
}

func (a *App) transitionBooking(c *gin.Context, target string, allowedFrom map[string]bool) {
	id := c.Param("id")
	ctx := c.Request.Context()

	var current string
	err := a.DB.QueryRow(ctx, `SELECT status FROM bookings WHERE id=$1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	}
	if err != nil {
		a.Log.Error().Err(err).Msg("load booking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !allowedFrom[current] {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot " + target + " a " + current + " booking"})
		return
	}

	res, err := a.DB.Exec(ctx, `UPDATE bookings SET status=$1 WHERE id=$2 AND status=$3`, target, id, current)
	if err != nil {
		a.Log.Error().Err(err).Msg("update booking status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.RowsAffected() == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "booking changed concurrently"})
		return
	}

	a.Log.Info().Str("booking_id", id).Str("status", target).Msg("booking transitioned")
	c.JSON(http.StatusOK, gin.H{"id": id, "status": target})
}
