package handlers

import (
	"net/http"

	"pact-sync-client/internal/middleware"
	"pact-sync-client/internal/services"

	"github.com/go-chi/chi/v5"
)

// Routes builds the bridge API under /v1.
func Routes(engine *services.Engine, hub *services.WSHub, auth *services.BridgeAuth, poller Foregrounder) http.Handler {
	sessionHandler := NewSessionHandler(engine, poller)
	partnerHandler := NewPartnerHandler(engine.Partners)
	challengeHandler := NewChallengeHandler(engine.Challenges)
	activityHandler := NewActivityHandler(engine.Activities)
	wsHandler := NewWebSocketHandler(hub, auth, poller)

	r := chi.NewRouter()

	// WebSocket clients pass the token as a query parameter
	r.Get("/ws", wsHandler.HandleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(auth))

		r.Get("/state", sessionHandler.GetState)
		r.Post("/session", sessionHandler.Login)
		r.Delete("/session", sessionHandler.Logout)
		r.Post("/foreground", sessionHandler.Foreground)

		r.Get("/partners", partnerHandler.GetPartners)
		r.Put("/partners", partnerHandler.UpdatePartners)
		r.Post("/slot", partnerHandler.SwitchSlot)
		r.Post("/partner-invites", partnerHandler.SendInvite)
		r.Post("/partner-invites/{id}/accept", partnerHandler.AcceptInvite)
		r.Post("/partner-invites/{id}/refuse", partnerHandler.RefuseInvite)

		r.Route("/challenges", func(r chi.Router) {
			r.Get("/", challengeHandler.GetChallenges)
			r.Post("/", challengeHandler.CreateChallenge)
			r.Put("/current", challengeHandler.UpdateChallenge)
			r.Delete("/current", challengeHandler.DeleteChallenge)
			r.Post("/refresh-progress", challengeHandler.RefreshProgress)
			r.Get("/history", challengeHandler.GetHistory)
			r.Post("/{id}/accept", challengeHandler.AcceptInvitation)
			r.Post("/{id}/refuse", challengeHandler.RefuseInvitation)
		})

		r.Route("/activities", func(r chi.Router) {
			r.Get("/", activityHandler.GetActivities)
			r.Post("/", activityHandler.AddActivity)
			r.Get("/shared", activityHandler.GetShared)
			r.Get("/progress", activityHandler.GetProgress)
			r.Delete("/{id}", activityHandler.DeleteActivity)
		})
	})

	return r
}
