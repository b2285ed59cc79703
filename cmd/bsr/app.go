// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegiv/bsr-go/internal/ai"
	"github.com/olegiv/bsr-go/internal/auth"
	"github.com/olegiv/bsr-go/internal/config"
	"github.com/olegiv/bsr-go/internal/handler"
	"github.com/olegiv/bsr-go/internal/imaging"
	"github.com/olegiv/bsr-go/internal/middleware"
	"github.com/olegiv/bsr-go/internal/store"
)

// appDeps are the long-lived services the HTTP layer is built from.
type appDeps struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	sessions *scs.SessionManager
	facade   *ai.Facade
	chats    *handler.ChatRegistry
	roles    *auth.RolePolicy
	images   *imaging.Processor
	version  string
}

// app holds the handlers and per-client limiters.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	sessions *scs.SessionManager
	chats    *handler.ChatRegistry

	auth    *handler.AuthHandler
	posts   *handler.PostsHandler
	gallery *handler.GalleryHandler
	contact *handler.ContactHandler
	users   *handler.UsersHandler
	ai      *handler.AIHandler
	chat    *handler.ChatHandler
	health  *handler.HealthHandler

	apiLimiter  *middleware.RateLimiter
	authLimiter *middleware.RateLimiter
	aiLimiter   *middleware.RateLimiter
}

func newApp(d appDeps) *app {
	text := handler.NewTextPolicy()
	return &app{
		cfg:      d.cfg,
		logger:   d.logger,
		sessions: d.sessions,
		chats:    d.chats,

		auth:    handler.NewAuthHandler(d.store, d.sessions, d.roles, text, d.logger),
		posts:   handler.NewPostsHandler(d.store, d.images, text, d.logger),
		gallery: handler.NewGalleryHandler(d.store, d.images, text, d.logger),
		contact: handler.NewContactHandler(d.store, d.roles, text, d.logger),
		users:   handler.NewUsersHandler(d.store, d.roles, text, d.logger),
		ai:      handler.NewAIHandler(d.facade, d.images, text, d.logger),
		chat:    handler.NewChatHandler(d.chats, text, d.logger),
		health:  handler.NewHealthHandler(d.store, d.facade, d.chats, d.version),

		apiLimiter:  middleware.NewRateLimiter("api", d.cfg.RateLimitRPS, d.cfg.RateLimitBurst),
		authLimiter: middleware.NewRateLimiter("auth", d.cfg.AuthRateLimitRPS, d.cfg.AuthRateLimitBurst),
		aiLimiter:   middleware.NewRateLimiter("ai", d.cfg.AIRequestsPerSecond, d.cfg.AIBurst),
	}
}

// router builds the HTTP routes.
func (a *app) router() http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5)) // text/event-stream is not in the default type list
	r.Use(chimw.GetHead)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(a.cfg.IsDevelopment())))
	r.Use(a.sessions.LoadAndSave)
	r.Use(middleware.LoadUser(a.sessions))

	// Health check routes (public, details for admins)
	r.Route(handler.RouteHealth, func(r chi.Router) {
		r.Get(handler.RouteRoot, a.health.Health)
		r.Get(handler.RouteLive, a.health.Liveness)
		r.Get(handler.RouteReady, a.health.Readiness)
	})
	r.Handle(handler.RouteMetrics, promhttp.Handler())

	csrfConfig := middleware.DefaultCSRFConfig([]byte(a.cfg.SessionSecret), a.cfg.IsDevelopment(), a.cfg.CSRFTrustedOrigins)

	r.Route(handler.RouteAPI, func(r chi.Router) {
		r.Use(middleware.SkipCSRF(a.cfg.CSRFSkipPaths...))
		r.Use(middleware.CSRF(csrfConfig))
		r.Use(a.apiLimiter.Middleware())
		r.Use(middleware.Language)

		// AI calls are bounded by the facade's own timeout and retries, and
		// streamed replies by the chat session, so they stay outside the
		// request timeout. Otherwise a 503 would race the fallback answer.
		r.Group(func(r chi.Router) {
			r.Use(a.aiLimiter.Middleware())

			r.Post(handler.RouteChatSessions+handler.RouteParamID+handler.RouteSuffixMessages, a.chat.Send)
			r.Get(handler.RoutePassage, a.ai.Passage)

			r.With(middleware.RequireAdmin).Post(handler.RouteAdmin+handler.RouteAIReflection, a.ai.Reflection)
			r.With(middleware.RequireAdmin).Post(handler.RouteAdmin+handler.RouteAIImage, a.ai.Image)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(a.cfg.RequestTimeout))

			r.Route(handler.RouteAuth, func(r chi.Router) {
				r.With(a.authLimiter.Middleware()).Post(handler.RouteSignup, a.auth.Signup)
				r.With(a.authLimiter.Middleware()).Post(handler.RouteLogin, a.auth.Login)
				r.With(middleware.RequireUser).Post(handler.RouteLogout, a.auth.Logout)
				r.Get(handler.RouteMe, a.auth.Me)
			})

			r.Get(handler.RoutePosts, a.posts.List)
			r.Get(handler.RoutePosts+handler.RouteParamID, a.posts.Get)
			r.Get(handler.RouteGallery, a.gallery.List)
			r.Post(handler.RouteContact, a.contact.Submit)

			r.Post(handler.RouteChatSessions, a.chat.Create)
			r.Delete(handler.RouteChatSessions+handler.RouteParamID, a.chat.Close)

			r.Route(handler.RouteAdmin, func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Post(handler.RoutePosts, a.posts.Create)
				r.Put(handler.RoutePosts+handler.RouteParamID, a.posts.Update)
				r.Delete(handler.RoutePosts+handler.RouteParamID, a.posts.Delete)

				r.Post(handler.RouteGallery, a.gallery.Create)
				r.Put(handler.RouteGallery+handler.RouteParamID, a.gallery.Update)
				r.Delete(handler.RouteGallery+handler.RouteParamID, a.gallery.Delete)

				r.Get(handler.RouteMessages, a.contact.List)
				r.Delete(handler.RouteMessages+handler.RouteParamID, a.contact.Delete)

				r.Get(handler.RouteUsers, a.users.List)
				r.Post(handler.RouteUsers, a.users.Register)
			})
		})
	})

	return r
}
