package web

import (
	"github.com/kozaktomas/photo-triage/internal/api"
	"github.com/kozaktomas/photo-triage/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.store)
	refsHandler := handlers.NewRefsHandler(s.store, s.logger)
	sortHandler := handlers.NewSortHandler(s.store, s.logger)

	s.router.Get(api.PathHealth, healthHandler.Get)
	s.router.Post(api.PathRegister, refsHandler.Register)
	s.router.Get(api.PathIdentity, refsHandler.Get)
	s.router.Post(api.PathSort, sortHandler.Sort)
}
