package router

import "net/http"

type WebhookRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type ReconciliationRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

func New(
	webhookController WebhookRouteRegistrar,
	reconciliationController ReconciliationRouteRegistrar,
	authMiddleware func(http.Handler) http.Handler,
) *http.ServeMux {
	mux := http.NewServeMux()

	if webhookController != nil {
		webhookController.RegisterRoutes(mux, authMiddleware)
	}
	if reconciliationController != nil {
		reconciliationController.RegisterRoutes(mux, authMiddleware)
	}

	return mux
}
