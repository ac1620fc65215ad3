package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/gatekeeper-api/internal/application/blocklist"
	"github.com/gatekeeper-api/internal/application/community"
	"github.com/gatekeeper-api/internal/application/member"
	"github.com/gatekeeper-api/internal/application/raid"
	"github.com/gatekeeper-api/internal/application/verification"
	"github.com/gatekeeper-api/internal/config"
	"github.com/gatekeeper-api/internal/domain"
	"github.com/gatekeeper-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/gatekeeper-api/internal/infrastructure/jwt"
	s3infra "github.com/gatekeeper-api/internal/infrastructure/s3"
	"github.com/gatekeeper-api/internal/infrastructure/smtp"
	"github.com/gatekeeper-api/internal/infrastructure/sns"
	"github.com/gatekeeper-api/internal/transport/http/handler"
	appmiddleware "github.com/gatekeeper-api/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	SessionRepo   *dynamo.SessionRepo
	VerifiedRepo  *dynamo.VerifiedMemberRepo
	SettingsRepo  *dynamo.SettingsRepo
	BlocklistRepo *dynamo.BlockedDomainRepo
	Templates     *s3infra.TemplateStore
	Mailer        smtp.Mailer
	Notifier      *sns.Notifier
	Grants        *sns.GrantPublisher
	JWTProvider   *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Owner-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to the public keypad endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	blocklistSvc := blocklist.NewService(deps.BlocklistRepo)
	verificationSvc := verification.NewService(verification.Deps{
		Sessions:       deps.SessionRepo,
		Verified:       deps.VerifiedRepo,
		Settings:       deps.SettingsRepo,
		Blocklist:      deps.BlocklistRepo,
		Mailer:         deps.Mailer,
		Templates:      deps.Templates,
		Notifier:       deps.Notifier,
		Grants:         deps.Grants,
		SessionTTL:     cfg.SessionTTL,
		ResendCooldown: cfg.ResendCooldown,
		MaxAttempts:    cfg.MaxAttempts,
		MinAccountAge:  cfg.MinAccountAge,
		TemplateKey:    cfg.EmailTemplateKey,
	})
	memberSvc := member.NewService(member.Deps{
		Sessions:   deps.SessionRepo,
		Verified:   deps.VerifiedRepo,
		Settings:   deps.SettingsRepo,
		Notifier:   deps.Notifier,
		Grants:     deps.Grants,
		Detector:   raid.NewDetector(cfg.RaidWindow, cfg.RaidThreshold),
		SessionTTL: cfg.SessionTTL,
	})
	communitySvc := community.NewService(community.Deps{
		Settings: deps.SettingsRepo,
		Notifier: deps.Notifier,
	})

	healthH := handler.NewHealthHandler()
	verificationH := handler.NewVerificationHandler(verificationSvc)
	memberH := handler.NewMemberHandler(memberSvc)
	communityH := handler.NewCommunityHandler(communitySvc)
	blocklistH := handler.NewBlocklistHandler(blocklistSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/verifications", verificationH.Start)
		r.With(sensitiveRL.Limit).Post("/verifications/{userID}/keys/{key}", verificationH.PressKey)
		r.With(sensitiveRL.Limit).Post("/verifications/{userID}/submit", verificationH.Submit)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			// Relay or admin
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleRelay, domain.RoleAdmin))

				r.Post("/joins", memberH.Join)
				r.Get("/communities/{communityID}/members/{userID}", memberH.Status)
			})

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/communities/{communityID}/settings", communityH.Get)
				r.Put("/communities/{communityID}/settings", communityH.Configure)
				r.Put("/communities/{communityID}/lockdown", communityH.SetLockdown)
				r.Post("/communities/{communityID}/members/{userID}/verify", memberH.Verify)
				r.Post("/communities/{communityID}/members/{userID}/unverify", memberH.Unverify)
			})
		})

		// ── Owner routes (instance-wide blocklist, keyed access) ─────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.OwnerKey(cfg.OwnerKeyHash))

			r.Get("/blocklist", blocklistH.List)
			r.Post("/blocklist", blocklistH.Add)
			r.Delete("/blocklist/{domain}", blocklistH.Remove)
		})
	})

	return r
}
