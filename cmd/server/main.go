package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Seeyko/tomandrieu.com-sub000/internal/app"
	"github.com/Seeyko/tomandrieu.com-sub000/internal/config"
	"github.com/Seeyko/tomandrieu.com-sub000/internal/server"
)

func main() {
	ctx := context.Background()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	owner, err := cfg.OwnerLocation()
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve owner timezone")
	}

	pool, err := app.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer pool.Close()

	a := app.New(pool, cfg, owner, logger)

	router := gin.Default()

	// OAuth2 callback stays outside the admin middleware.
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := router.Group("/api")
	{
		booking := api.Group("/booking")
		{
			booking.GET("/slots", a.GetSlotsHandler)
			booking.GET("/dates", a.GetAvailableDatesHandler)
			booking.POST("/bookings", a.CreateBookingHandler)
		}

		admin := api.Group("/admin")
		admin.Use(app.AdminAuthMiddleware(cfg))
		{
			admin.GET("/availability", a.ListRulesHandler)
			admin.POST("/availability", a.CreateRuleHandler)
			admin.PUT("/availability/:id", a.UpdateRuleHandler)
			admin.DELETE("/availability/:id", a.DeleteRuleHandler)

			admin.GET("/blocked-dates", a.ListBlockedDatesHandler)
			admin.POST("/blocked-dates", a.CreateBlockedDateHandler)
			admin.DELETE("/blocked-dates/:id", a.DeleteBlockedDateHandler)

			admin.GET("/settings", a.GetSettingsHandler)
			admin.PUT("/settings", a.UpdateSettingsHandler)

			admin.GET("/bookings", a.ListBookingsHandler)
			admin.POST("/bookings/:id/confirm", a.ConfirmBookingHandler)
			admin.POST("/bookings/:id/cancel", a.CancelBookingHandler)
			admin.POST("/bookings/:id/complete", a.CompleteBookingHandler)

			admin.GET("/calendar/auth", a.GoogleAuthHandler)
			admin.DELETE("/calendar", a.DisconnectCalendarHandler)
		}
	}

	logger.Info().Str("port", cfg.Port).Str("owner_timezone", cfg.OwnerTimezone).Msg("starting server")
	server.Run(router, cfg.Port)
}
