// Package roster manages the members taking part in the gift exchange.
package roster

import (
	"log/slog"

	"giftexchange/internal/roster/handler"
	"giftexchange/internal/roster/service"
)

// Service exposes roster management.
type Service = service.Service

// Handler wires HTTP endpoints to the roster service.
type Handler = handler.Handler

// NewService constructs the roster service with required dependencies.
func NewService(store service.Store, opts ...service.Option) *Service {
	return service.New(store, opts...)
}

// NewHandler constructs an HTTP handler for the /members routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
