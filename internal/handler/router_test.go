package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/robobook/internal/auth"
	"github.com/hitoshi/robobook/internal/middleware"
	"github.com/hitoshi/robobook/internal/model"
	"github.com/hitoshi/robobook/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubHealthChecker struct {
	err error
}

func (s *stubHealthChecker) Ping(ctx context.Context) error {
	return s.err
}

// newTestRouter は実トークン発行器とスタブサービスでルーターを組み立てる。
func newTestRouter(t *testing.T, requestsPerMinute int) (http.Handler, *token.Issuer) {
	t.Helper()

	issuer, err := token.NewIssuer(testSecret, 24*time.Hour)
	if err != nil {
		t.Fatalf("failed to create issuer: %v", err)
	}

	user := &model.User{ID: "u-1", Email: "a@x.com", Name: "A"}
	profile := &model.HardwareProfile{
		UserID:             "u-1",
		GPUType:            model.GPURTX4090,
		RAMCapacity:        model.RAM32Plus,
		CodingLanguages:    []model.CodingLanguage{model.LangPython},
		RoboticsExperience: model.ExperienceHobbyist,
	}

	issue := func() (*auth.Result, error) {
		tokenStr, err := issuer.Issue(user, profile)
		if err != nil {
			return nil, err
		}
		return &auth.Result{Token: tokenStr, User: user, Profile: profile}, nil
	}

	authService := &mockAuthService{
		signupFn: func(ctx context.Context, email, password, name string, p *model.HardwareProfile) (*auth.Result, error) {
			return issue()
		},
		signinFn: func(ctx context.Context, email, password string) (*auth.Result, error) {
			if email == "a@x.com" && password == "Abcdef1!" {
				return issue()
			}
			return nil, model.NewInvalidCredentialsError()
		},
	}

	profileService := &mockProfileService{
		updateProfileFn: func(ctx context.Context, userID string, update *model.ProfileUpdate) (*auth.Result, error) {
			return issue()
		},
	}

	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(requestsPerMinute))
	t.Cleanup(rl.Stop)

	router := NewRouter(&RouterDeps{
		TokenValidator:    issuer,
		RateLimiter:       rl,
		CORSAllowedOrigin: "http://localhost:3000",
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		AuthService:       authService,
		ProfileService:    profileService,
		HealthChecker:     &stubHealthChecker{},
	})

	return router, issuer
}

func doJSON(t *testing.T, router http.Handler, method, target, remoteAddr string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)
	return w
}

// サインインで得たトークンでプロフィールを参照できることを検証
func TestRouter_SigninThenGetProfile(t *testing.T) {
	router, _ := newTestRouter(t, 100)

	// サインイン
	w := doJSON(t, router, http.MethodPost, "/api/auth/signin", "10.0.0.1:1000", map[string]string{
		"email":    "a@x.com",
		"password": "Abcdef1!",
	}, "")

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("signin status = %d, want %d: %s", w.Result().StatusCode, http.StatusOK, w.Body.String())
	}

	var signinResp authResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&signinResp); err != nil {
		t.Fatalf("failed to decode signin response: %v", err)
	}

	// 取得したトークンでプロフィール参照
	w = doJSON(t, router, http.MethodGet, "/api/profile/me", "10.0.0.1:1000", nil, signinResp.Token)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("profile status = %d, want %d: %s", w.Result().StatusCode, http.StatusOK, w.Body.String())
	}

	var profileResp userResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&profileResp); err != nil {
		t.Fatalf("failed to decode profile response: %v", err)
	}
	if profileResp.Email != "a@x.com" {
		t.Errorf("email = %q", profileResp.Email)
	}
	if profileResp.GPUType != "NVIDIA RTX 4090" {
		t.Errorf("gpu_type = %q", profileResp.GPUType)
	}
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t, 100)

	targets := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/profile/me"},
		{http.MethodPut, "/api/profile/me"},
		{http.MethodPost, "/api/auth/signout"},
		{http.MethodPut, "/api/auth/password"},
	}

	for _, tt := range targets {
		w := doJSON(t, router, tt.method, tt.path, "10.0.0.1:1000", nil, "")
		if w.Result().StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, w.Result().StatusCode, http.StatusUnauthorized)
		}
	}
}

func TestRouter_TamperedToken_Returns401(t *testing.T) {
	router, issuer := newTestRouter(t, 100)

	user := &model.User{ID: "u-1", Email: "a@x.com", Name: "A"}
	profile := &model.HardwareProfile{
		GPUType:            model.GPUNone,
		RAMCapacity:        model.RAM8to16,
		CodingLanguages:    []model.CodingLanguage{model.LangPython},
		RoboticsExperience: model.ExperienceNone,
	}
	tokenStr, err := issuer.Issue(user, profile)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	// 署名部分の末尾を改ざん
	tampered := tokenStr[:len(tokenStr)-2] + "xx"

	w := doJSON(t, router, http.MethodGet, "/api/profile/me", "10.0.0.1:1000", nil, tampered)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// 認証レート制限: 上限を超えたIPのみが429になり、他のIPは影響を受けない
func TestRouter_AuthRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, 10)

	body := map[string]string{"email": "a@x.com", "password": "wrong"}

	// 10リクエストまでは429にならない
	for i := 0; i < 10; i++ {
		w := doJSON(t, router, http.MethodPost, "/api/auth/signin", "10.0.0.5:1000", body, "")
		if w.Result().StatusCode == http.StatusTooManyRequests {
			t.Fatalf("request %d: unexpected 429", i)
		}
	}

	// 11回目は429
	w := doJSON(t, router, http.MethodPost, "/api/auth/signin", "10.0.0.5:1000", body, "")
	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusTooManyRequests)
	}
	if w.Result().Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// 別IPは制限されない
	w = doJSON(t, router, http.MethodPost, "/api/auth/signin", "10.0.0.6:1000", body, "")
	if w.Result().StatusCode == http.StatusTooManyRequests {
		t.Error("other IPs must not be affected by the limited IP")
	}
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, 100)

	w := doJSON(t, router, http.MethodGet, "/health", "", nil, "")

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestRouter_PreflightAndSecurityHeaders(t *testing.T) {
	router, _ := newTestRouter(t, 100)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/signin", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

// サインアウトは204を返す（サーバー側状態は持たない）
func TestRouter_Signout(t *testing.T) {
	router, issuer := newTestRouter(t, 100)

	tokenStr, err := issuer.Issue(
		&model.User{ID: "u-1", Email: "a@x.com", Name: "A"},
		&model.HardwareProfile{
			GPUType:            model.GPUNone,
			RAMCapacity:        model.RAM8to16,
			CodingLanguages:    []model.CodingLanguage{model.LangPython},
			RoboticsExperience: model.ExperienceNone,
		},
	)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	w := doJSON(t, router, http.MethodPost, "/api/auth/signout", "10.0.0.1:1000", nil, tokenStr)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}

	// トークン自体は有効期限まで使える（ステートレス）
	w = doJSON(t, router, http.MethodGet, "/api/profile/me", "10.0.0.1:1000", nil, tokenStr)
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status after signout = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}
