package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/nova-labs/nova-chat/server/internal/handler/chat"
	completionHandler "github.com/nova-labs/nova-chat/server/internal/handler/completion"
	middlewarePkg "github.com/nova-labs/nova-chat/server/internal/middleware"
	aiService "github.com/nova-labs/nova-chat/server/internal/service/ai"
	"github.com/nova-labs/nova-chat/server/internal/store"
)

// NewRouter wires HTTP routes to core services. aiSvc may be nil when no
// completion provider is configured; the completion routes then answer 503.
func NewRouter(st store.Store, aiSvc *aiService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	var completer completionHandler.Completer
	if aiSvc != nil {
		completer = aiSvc
	}

	r.Route("/api", func(api chi.Router) {
		chatHandler.New(st).RegisterRoutes(api)
		completionHandler.New(completer).RegisterRoutes(api)
	})

	return r
}
