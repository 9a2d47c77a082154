package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/scrimverse/tournament-engine/handlers"
	"github.com/scrimverse/tournament-engine/middleware"
)

// SetupRoutes wires the HTTP surface. Mutating endpoints require a host
// token; standings, schedules, results and the leaderboard are public reads.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	tournamentHandler *handlers.TournamentHandler,
	scoreHandler *handlers.ScoreHandler,
	statsHandler *handlers.StatsHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.Get)
		r.Get("/{tournamentID}/entries", tournamentHandler.ListEntries)
		r.Get("/{tournamentID}/results", tournamentHandler.Results)
		r.Post("/{tournamentID}/entries", tournamentHandler.RegisterEntry)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", tournamentHandler.Create)
			r.Post("/{tournamentID}/registration/open", tournamentHandler.OpenRegistration)
			r.Post("/{tournamentID}/registration/close", tournamentHandler.CloseRegistration)
			r.Post("/{tournamentID}/cancel", tournamentHandler.Cancel)
			r.Put("/{tournamentID}/banner", tournamentHandler.UploadBanner)

			r.Post("/{tournamentID}/rounds", tournamentHandler.ConfigureRound)
			r.Post("/{tournamentID}/rounds/{roundNumber}/start", tournamentHandler.StartRound)
			r.Post("/{tournamentID}/rounds/{roundNumber}/close", tournamentHandler.CloseRound)
			r.Post("/{tournamentID}/rounds/{roundNumber}/abort", tournamentHandler.AbortRound)
		})
	})

	router.Route("/rounds/{roundID}", func(r chi.Router) {
		r.Get("/standings", scoreHandler.GetGroupStandings)
		r.Get("/schedule", scoreHandler.GetMatchSchedule)
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Use(authenticate)

		r.Put("/room", scoreHandler.SetMatchRoom)
		r.Post("/start", scoreHandler.StartMatch)
		r.Post("/scores", scoreHandler.SubmitScore)
		r.Post("/finalize", scoreHandler.FinalizeMatch)
		r.Post("/reopen", scoreHandler.ReopenMatch)
	})

	router.Get("/leaderboard", statsHandler.Leaderboard)
	router.Get("/teams/{teamID}/statistics", statsHandler.TeamStatistics)

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
