package main

import (
	crypto_rand "crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/obstetric/obstetric/internal/config"
	"github.com/obstetric/obstetric/internal/domain/dashboard"
	"github.com/obstetric/obstetric/internal/domain/labor"
	"github.com/obstetric/obstetric/internal/domain/medication"
	"github.com/obstetric/obstetric/internal/domain/newborn"
	"github.com/obstetric/obstetric/internal/domain/obstetric"
	"github.com/obstetric/obstetric/internal/domain/patient"
	"github.com/obstetric/obstetric/internal/domain/rooms"
	"github.com/obstetric/obstetric/internal/domain/staff"
	"github.com/obstetric/obstetric/internal/domain/staffing"
	"github.com/obstetric/obstetric/internal/platform/auth"
	"github.com/obstetric/obstetric/internal/platform/db"
	"github.com/obstetric/obstetric/internal/platform/middleware"
	"github.com/obstetric/obstetric/internal/platform/notification"
	"github.com/obstetric/obstetric/internal/platform/signedid"
	"github.com/obstetric/obstetric/internal/platform/telegram"
	"github.com/obstetric/obstetric/internal/platform/websocket"
)

// app holds the wired services shared by the server and the CLI commands.
type app struct {
	ids     *signedid.Signer
	tokens  *auth.TokenIssuer
	revoked *auth.TokenRevocationStore

	staff      *staff.Service
	patients   *patient.Service
	records    *obstetric.Service
	rooms      *rooms.Service
	labor      *labor.Service
	newborns   *newborn.Service
	medication *medication.Service
	staffing   *staffing.Service
	dashboard  *dashboard.Service

	telegram *telegram.Client
	bot      *staffing.BotHandler
}

func newApp(cfg *config.Config, pool *pgxpool.Pool, events websocket.Publisher, logger zerolog.Logger) (*app, error) {
	signingKey := cfg.JWTSigningKey
	if signingKey == "" && cfg.IsDev() {
		buf := make([]byte, 32)
		if _, err := crypto_rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate dev signing key: %w", err)
		}
		signingKey = hex.EncodeToString(buf)
		logger.Warn().Msg("JWT_SIGNING_KEY not set, using an ephemeral key")
	}
	urlKey := cfg.URLSigningKey
	if urlKey == "" {
		urlKey = signingKey
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	a := &app{
		ids:     signedid.New(urlKey, cfg.IsDev()),
		tokens:  auth.NewTokenIssuer([]byte(signingKey), cfg.JWTTTL),
		revoked: auth.NewTokenRevocationStore(),
	}
	tx := db.NewTxRunner(pool)

	var sender notification.Sender
	if cfg.TelegramEnabled() {
		a.telegram = telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramAPIURL)
		sender = a.telegram
	} else {
		logger.Warn().Msg("TELEGRAM_BOT_TOKEN not set, notifications stay pending")
	}
	dispatcher := notification.NewDispatcher(sender, cfg.NotifyMaxAttempts, logger)

	a.staff = staff.NewService(staff.NewRepoPG(pool), a.tokens, cfg.TelegramBotUsername)
	a.patients = patient.NewService(patient.NewPersonRepoPG(pool), patient.NewPatientRepoPG(pool), tx)
	a.records = obstetric.NewService(obstetric.NewRepoPG(pool), a.patients, tx)
	a.rooms = rooms.NewService(rooms.NewRepoPG(pool), tx)
	a.labor = labor.NewService(labor.NewAdmissionRepoPG(pool), labor.NewDeliveryRepoPG(pool), a.records,
		a.rooms, tx, logger)
	a.newborns = newborn.NewService(newborn.NewRepoPG(pool), a.labor, tx)
	a.medication = medication.NewService(medication.NewMedicationRepoPG(pool), medication.NewOrderRepoPG(pool),
		medication.NewAdministrationRepoPG(pool), a.records, tx)

	a.staffing = staffing.NewService(staffing.NewShiftRepoPG(pool), staffing.NewTeamRepoPG(pool),
		staffing.NewAssignmentRepoPG(pool), staffing.NewNotificationRepoPG(pool), a.staff, dispatcher, tx, logger)
	a.staffing.SetMultipliers(staffing.Multipliers{
		auth.RoleMedico:      cfg.TeamMedicoPerBaby,
		auth.RoleMatrona:     cfg.TeamMatronaPerBaby,
		auth.RoleTENS:        cfg.TeamTENSPerBaby,
		auth.RoleNeonatologo: cfg.TeamNeonatologoPerBaby,
	})
	a.staffing.SetPINPolicy(staffing.PINPolicy{Period: cfg.PINPeriod, MaxAttempts: cfg.PINMaxAttempts})
	a.staffing.SetEvents(events, a.ids.Encode)
	a.staffing.SetRelayBudget(cfg.NotifyBudget)

	a.labor.SetTeamReleaser(a.staffing)
	a.labor.SetEvents(events, a.ids.Encode)

	a.dashboard = dashboard.NewService(dashboard.NewRepoPG(pool), a.medication, loc)

	if a.telegram != nil {
		a.bot = staffing.NewBotHandler(a.staffing, a.staff, a.telegram, logger)
	}
	return a, nil
}

func (a *app) registerRoutes(api *echo.Group, ws *websocket.Handler) {
	staffHandler := staff.NewHandler(a.staff, a.ids, a.revoked)
	staffHandler.RegisterAuthRoutes(api, middleware.RateLimit(middleware.LoginRateLimitConfig()))
	staffHandler.RegisterRoutes(api)

	patient.NewHandler(a.patients, a.ids).RegisterRoutes(api)
	obstetric.NewHandler(a.records, a.ids).RegisterRoutes(api)
	rooms.NewHandler(a.rooms, a.ids).RegisterRoutes(api)
	labor.NewHandler(a.labor, a.ids).RegisterRoutes(api)
	newborn.NewHandler(a.newborns, a.ids).RegisterRoutes(api)
	medication.NewHandler(a.medication, a.ids).RegisterRoutes(api)
	staffing.NewHandler(a.staffing, a.ids).RegisterRoutes(api)
	dashboard.NewHandler(a.dashboard, a.ids, ws).RegisterRoutes(api)
}
