package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"homieplanner/internal/delivery/http/controllers"
	"homieplanner/internal/delivery/http/middleware"
	"homieplanner/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	webhookController *controllers.WebhookController,
	opsController *controllers.OpsController,
	verifier domain.TokenVerifier,
	webhookToken string,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()

	auth := middleware.RequireAuth(verifier, logger)
	gateway := middleware.RequireWebhookToken(webhookToken)

	// Gateway callback
	mux.HandleFunc("POST /webhook/sms", gateway(webhookController.HandleInboundSMS))

	// Ops API
	mux.HandleFunc("GET /events/{eventID}/roster", auth(opsController.GetRoster))
	mux.HandleFunc("POST /homies", auth(opsController.CreateHomie))
	mux.HandleFunc("GET /homies", auth(opsController.ListHomies))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
