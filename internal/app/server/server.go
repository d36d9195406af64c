package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Team-Zemo/omninet-core-sub000/internal/app/registry"
	"github.com/Team-Zemo/omninet-core-sub000/internal/app/server/handlers"
	"github.com/Team-Zemo/omninet-core-sub000/internal/core/services"
	"github.com/Team-Zemo/omninet-core-sub000/pkg/middleware"
)

type Server struct {
	mux         *http.ServeMux
	addr        string
	name        string
	log         *slog.Logger
	authHandler *handlers.AuthHandler
	apiHandler  *handlers.APIHandler
	wsHandler   *handlers.WSHandler
	tokenSvc    *services.TokenService
}

func NewServer(
	log *slog.Logger,
	name, addr string,
	userSvc *services.UserService,
	tokenSvc *services.TokenService,
	msgSvc services.IMessageService,
	contactSvc services.IContactService,
	callSvc services.ICallService,
	hub *registry.Registry,
) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		addr:        addr,
		name:        name,
		log:         log,
		authHandler: handlers.NewAuthHandler(userSvc, tokenSvc),
		apiHandler:  handlers.NewAPIHandler(userSvc, msgSvc, contactSvc, callSvc),
		wsHandler:   handlers.NewWSHandler(hub, msgSvc, callSvc),
		tokenSvc:    tokenSvc,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)
	logged := middleware.RequestLogger(s.log)
	traced := middleware.TracerMiddleware(s.name)

	protected := func(h http.HandlerFunc) http.Handler {
		return traced(logged(auth(h)))
	}
	public := func(h http.HandlerFunc) http.Handler {
		return traced(logged(h))
	}

	// Identity collaborator surface
	s.mux.Handle("POST /auth/register", public(s.authHandler.RequestOTP))
	s.mux.Handle("POST /auth/verify", public(s.authHandler.VerifyOTP))

	// Synchronous request/response surface
	s.mux.Handle("GET /users/me", protected(s.apiHandler.Me))
	s.mux.Handle("DELETE /users/me", protected(s.apiHandler.DeleteMe))
	s.mux.Handle("GET /messages/history", protected(s.apiHandler.History))
	s.mux.Handle("POST /messages/read", protected(s.apiHandler.MarkRead))
	s.mux.Handle("GET /contacts", protected(s.apiHandler.ListContacts))
	s.mux.Handle("POST /contacts", protected(s.apiHandler.AddContact))
	s.mux.Handle("GET /calls/active", protected(s.apiHandler.ActiveCalls))
	s.mux.Handle("POST /calls/cleanup", protected(s.apiHandler.CleanupCalls))

	// Live surface
	s.mux.Handle("/ws", protected(s.wsHandler.Handler))
}

func (s *Server) Start() error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.log.Info("server - starting", "addr", s.addr)
	return server.ListenAndServe()
}
