package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/taqrir/reportbot/internal/bot"
	"github.com/taqrir/reportbot/pkg/utils"
)

// NewRouter wires the webhook and health routes. Updates dispatch against
// the application context rather than the request context: the webhook
// response returns immediately while queued dialogue work continues.
func NewRouter(appCtx context.Context, b *bot.Bot) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/telegram/webhook", handleWebhook(appCtx, b))
	})

	return r
}

func handleWebhook(appCtx context.Context, b *bot.Bot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid update payload")
			return
		}

		b.HandleTelegramUpdate(appCtx, update)
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
	}
}
