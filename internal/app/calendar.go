package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/Seeyko/tomandrieu.com-sub000/internal/availability"
)

// googleOAuthConfig builds the OAuth2 config for the owner's Google
// Calendar connection, or nil when the integration is not configured.
func (a *App) googleOAuthConfig() *oauth2.Config {
	if a.Cfg.GoogleClientID == "" || a.Cfg.GoogleClientSecret == "" || a.Cfg.GoogleRedirectURL == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     a.Cfg.GoogleClientID,
		ClientSecret: a.Cfg.GoogleClientSecret,
		RedirectURL:  a.Cfg.GoogleRedirectURL,
		Scopes: []string{
			calendar.CalendarReadonlyScope,
		},
		Endpoint: google.Endpoint,
	}
}

// GET /api/admin/calendar/auth — returns the consent URL to start the flow.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	cfg := a.googleOAuthConfig()
	if cfg == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google Calendar not configured"})
		return
	}
	state := fmt.Sprintf("owner_%d", time.Now().Unix())
	c.JSON(http.StatusOK, gin.H{
		"auth_url": cfg.AuthCodeURL(state, oauth2.AccessTypeOffline),
		"state":    state,
	})
}

// GET /oauth2callback — exchanges the authorization code and persists the
// token so availability queries can read the owner's busy times.
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	cfg := a.googleOAuthConfig()
	if cfg == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google Calendar not configured"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}

	token, err := cfg.Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}
	if err := a.saveCalendarToken(c.Request.Context(), token); err != nil {
		a.Log.Error().Err(err).Msg("persist calendar token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	a.Log.Info().Msg("google calendar connected")
	c.JSON(http.StatusOK, gin.H{"message": "calendar connected"})
}

// DELETE /api/admin/calendar
func (a *App) DisconnectCalendarHandler(c *gin.Context) {
	if _, err := a.DB.Exec(c.Request.Context(), `DELETE FROM calendar_connections WHERE provider='google'`); err != nil {
		a.Log.Error().Err(err).Msg("disconnect calendar")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *App) saveCalendarToken(ctx context.Context, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	q := `INSERT INTO calendar_connections (provider, token, created_at)
	      VALUES ('google', $1, now())
	      ON CONFLICT (provider) DO UPDATE SET token=$1, created_at=now()`
	_, err = a.DB.Exec(ctx, q, raw)
	return err
}

func (a *App) loadCalendarToken(ctx context.Context) (*oauth2.Token, error) {
	var raw []byte
	err := a.DB.QueryRow(ctx, `SELECT token FROM calendar_connections WHERE provider='google'`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// calendarBusy lists the connected calendar's events inside [from, to) as
// synthetic confirmed bookings. With no connection it returns nothing;
// all-day events block their whole day.
func (a *App) calendarBusy(ctx context.Context, from, to time.Time) ([]availability.Booking, error) {
	cfg := a.googleOAuthConfig()
	if cfg == nil {
		return nil, nil
	}
	token, err := a.loadCalendarToken(ctx)
	if err != nil || token == nil {
		return nil, err
	}

	client := cfg.Client(ctx, token)
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	events, err := srv.Events.List("primary").
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		MaxResults(250).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	var out []availability.Booking
	for _, item := range events.Items {
		if item.Status == "cancelled" || item.Transparency == "transparent" {
			continue
		}
		start, end, ok := eventInterval(item, a.Owner)
		if !ok {
			continue
		}
		out = append(out, availability.Booking{
			ID:      "gcal:" + item.Id,
			Name:    item.Summary,
			StartAt: start,
			EndAt:   end,
			Status:  availability.StatusConfirmed,
		})
	}
	return out, nil
}

func eventInterval(item *calendar.Event, owner *time.Location) (time.Time, time.Time, bool) {
	if item.Start == nil || item.End == nil {
		return time.Time{}, time.Time{}, false
	}
	if item.Start.DateTime != "" && item.End.DateTime != "" {
		start, err1 := time.Parse(time.RFC3339, item.Start.DateTime)
		end, err2 := time.Parse(time.RFC3339, item.End.DateTime)
		if err1 != nil || err2 != nil {
			return time.Time{}, time.Time{}, false
		}
		return start.UTC(), end.UTC(), true
	}
	if item.Start.Date != "" && item.End.Date != "" {
		start, err1 := time.ParseInLocation("2006-01-02", item.Start.Date, owner)
		end, err2 := time.ParseInLocation("2006-01-02", item.End.Date, owner)
		if err1 != nil || err2 != nil {
			return time.Time{}, time.Time{}, false
		}
		return start.UTC(), end.UTC(), true
	}
	return time.Time{}, time.Time{}, false
}
