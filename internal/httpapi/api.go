// Package httpapi is the HTTP transport boundary: routing, middleware and
// handlers over the auth and registry services.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"obser.dev/internal/config"
	"obser.dev/internal/obs"
	"obser.dev/internal/registry"
	"obser.dev/internal/token"

	authsvc "obser.dev/internal/auth"
)

// ReadyProbe reports whether the backing database is reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	cfg        config.Settings
	auth       *authsvc.Service
	registry   *registry.Service
	validator  token.Validator
	readyProbe ReadyProbe
	version    string
}

// New wires the HTTP layer over the services.
func New(cfg config.Settings, auth *authsvc.Service, reg *registry.Service, validator token.Validator, rp ReadyProbe, version string) *API {
	return &API{
		cfg:        cfg,
		auth:       auth,
		registry:   reg,
		validator:  validator,
		readyProbe: rp,
		version:    version,
	}
}

// Handler builds the full middleware chain and route table.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(obs.Instrument)
	r.Use(RequestID)
	r.Use(Logging)
	r.Use(SecurityHeaders)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   a.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           600,
	}).Handler)
	r.Use(RateLimit(a.cfg.RateLimitPerSecond, a.cfg.RateLimitBurst))
	r.Use(MaxBodyBytes(a.cfg.MaxBodyBytes))

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", a.Login)
		r.Post("/auth/register", a.Register)
		r.Post("/auth/refresh", a.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(a.Authenticate)

			r.Get("/auth/me", a.Me)
			r.Post("/auth/logout", a.Logout)
			r.Post("/auth/impersonate", a.Impersonate)

			r.Get("/service-types", a.ListServiceTypes)
			r.Post("/service-types", a.CreateServiceType)
			r.Delete("/service-types/{typeID}", a.DeleteServiceType)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", a.ListProjects)
				r.Post("/", a.CreateProject)

				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", a.GetProject)
					r.Patch("/", a.UpdateProject)
					r.Delete("/", a.DeleteProject)

					r.Get("/members", a.ListMembers)
					r.Post("/members", a.AddMember)
					r.Delete("/members/{userID}", a.RemoveMember)

					r.Get("/environments", a.ListEnvironments)
					r.Post("/environments", a.CreateEnvironment)
					r.Get("/environments/{envID}", a.GetEnvironment)
					r.Patch("/environments/{envID}", a.UpdateEnvironment)
					r.Delete("/environments/{envID}", a.DeleteEnvironment)

					r.Get("/services", a.ListServiceInstances)
					r.Post("/services", a.CreateServiceInstance)
					r.Get("/services/{instanceID}", a.GetServiceInstance)
					r.Patch("/services/{instanceID}", a.UpdateServiceInstance)
					r.Delete("/services/{instanceID}", a.DeleteServiceInstance)
					r.Get("/services/{instanceID}/credentials", a.ListCredentialLinks)
					r.Post("/services/{instanceID}/credentials", a.AttachCredential)
					r.Delete("/services/{instanceID}/credentials/{credentialID}", a.DetachCredential)

					r.Get("/credentials", a.ListCredentials)
					r.Post("/credentials", a.CreateCredential)
					r.Get("/credentials/{credentialID}", a.GetCredential)
					r.Patch("/credentials/{credentialID}", a.UpdateCredential)
					r.Delete("/credentials/{credentialID}", a.DeleteCredential)
				})
			})
		})
	})

	return r
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "obser-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
