package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/worklens/presence-backend-go/internal/config"
	"github.com/worklens/presence-backend-go/internal/handler/http/middleware"
	"github.com/worklens/presence-backend-go/internal/pkg/jwt"
)

func NewRouter(
	cfg *config.Config,
	jwtService jwt.Service,
	sessionHandler SessionHandler,
	presenceHandler PresenceHandler,
	rosterHandler RosterHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "worklens-presence"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.App.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// SSE carries its token as a query parameter, outside the verifier.
		r.Get("/roster/stream", rosterHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired(jwtService.JWTAuth()))

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/start", sessionHandler.Start)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", sessionHandler.Get)
					r.Post("/end", sessionHandler.End)
					r.Post("/heartbeat", sessionHandler.Heartbeat)
					r.Get("/pauses", sessionHandler.ListPauses)
					r.Get("/events", sessionHandler.ListEvents)

					r.Route("/pauses/{kind}", func(r chi.Router) {
						r.Post("/start", sessionHandler.StartPause)
						r.Post("/end", sessionHandler.EndPause)
					})
				})
			})

			r.Route("/presence", func(r chi.Router) {
				r.Post("/{promptID}/confirm", presenceHandler.Confirm)
			})

			r.Get("/roster", rosterHandler.Get)
		})
	})

	// Quick liveness probe for load balancers
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	return r
}
