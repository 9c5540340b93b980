package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/robobook/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenValidator    middleware.TokenValidator
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	Logger            *slog.Logger

	// サービス
	AuthService    AuthServiceInterface
	ProfileService ProfileServiceInterface

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → (TokenAuth) → Logging
//
// レート制限はsignup/signinのみに適用する。認証前のエンドポイントを
// ブルートフォースから守るのが目的であり、認証済みルートには適用しない。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	profileHandler := NewProfileHandler(deps.ProfileService)

	logging := middleware.NewLoggingMiddleware(deps.Logger)
	tokenAuth := middleware.NewTokenAuthMiddleware(deps.TokenValidator)
	rateLimit := deps.RateLimiter.AuthMiddleware()

	// --- 認証不要のルート ---
	r.Group(func(r chi.Router) {
		r.Use(logging)

		r.Route("/api/auth", func(r chi.Router) {
			r.With(rateLimit).Post("/signup", authHandler.Signup)
			r.With(rateLimit).Post("/signin", authHandler.Signin)
		})

		// ヘルスチェック
		r.Get("/health", healthHandler(deps.HealthChecker))
	})

	// Prometheusメトリクス（アクセスログ不要）
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// TokenAuthを先に適用し、アクセスログにuser_idを含める
	r.Group(func(r chi.Router) {
		r.Use(tokenAuth)
		r.Use(logging)

		r.Post("/api/auth/signout", authHandler.Signout)
		r.Put("/api/auth/password", authHandler.ChangePassword)

		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/me", profileHandler.GetProfile)
			r.Put("/me", profileHandler.UpdateProfile)
		})
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.Ping(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
