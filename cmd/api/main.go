package main

import (
	"fmt"
	"net/http"

	"github.com/worklens/presence-backend-go/internal/config"
	appHTTP "github.com/worklens/presence-backend-go/internal/handler/http"
	"github.com/worklens/presence-backend-go/internal/pkg/cron"
	"github.com/worklens/presence-backend-go/internal/pkg/database"
	"github.com/worklens/presence-backend-go/internal/pkg/jwt"
	"github.com/worklens/presence-backend-go/internal/pkg/sse"
	"github.com/worklens/presence-backend-go/internal/repository/postgresql"
	presenceService "github.com/worklens/presence-backend-go/internal/service/presence"
	rosterService "github.com/worklens/presence-backend-go/internal/service/roster"
	sessionService "github.com/worklens/presence-backend-go/internal/service/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}

	sessionRepo := postgresql.NewSessionRepository(db)
	pauseRepo := postgresql.NewPauseRepository(db)
	minuteStatRepo := postgresql.NewMinuteStatRepository(db)
	eventRepo := postgresql.NewEventRepository(db)
	promptRepo := postgresql.NewPromptRepository(db)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db)
	employeeDirectory := postgresql.NewEmployeeDirectory(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	hub := sse.NewHub()

	scheduler := presenceService.NewScheduler(
		promptRepo,
		sessionRepo,
		pauseRepo,
		eventRepo,
		presenceService.Config{
			Cadence:        cfg.Presence.Cadence,
			ResponseWindow: cfg.Presence.ResponseWindow,
			DeferDelay:     cfg.Presence.DeferDelay,
		},
	)
	sessionSvc := sessionService.NewSessionService(
		db,
		sessionRepo,
		pauseRepo,
		minuteStatRepo,
		eventRepo,
		scheduler,
		hub,
	)
	rosterSvc := rosterService.NewRosterService(
		employeeDirectory,
		sessionRepo,
		pauseRepo,
		minuteStatRepo,
		eventRepo,
		leaveRequestRepo,
		cfg.Location(),
	)

	cronScheduler := cron.NewScheduler()
	presenceJobs := cron.NewPresenceJobs(sessionRepo, scheduler, hub)
	presenceJobs.RegisterJobs(cronScheduler, cfg.Presence.SweepInterval)
	cronScheduler.Start()
	defer cronScheduler.Stop()

	sessionHandler := appHTTP.NewSessionHandler(sessionSvc)
	presenceHandler := appHTTP.NewPresenceHandler(scheduler)
	rosterHandler := appHTTP.NewRosterHandler(rosterSvc, JWTService, hub)

	router := appHTTP.NewRouter(
		cfg,
		JWTService,
		sessionHandler,
		presenceHandler,
		rosterHandler,
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	fmt.Printf("Server running at http://localhost%s\n", port)
	if err := http.ListenAndServe(port, router); err != nil {
		fmt.Println("Server error:", err)
	}
}
