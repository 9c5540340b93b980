// Package auth はサインアップ・サインイン・プロフィール更新のビジネスロジックを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/robobook/internal/model"
	"github.com/hitoshi/robobook/internal/repository"
)

// touchTimeout はlast_signin_at更新のバックグラウンドコンテキストの期限。
const touchTimeout = 5 * time.Second

// PasswordHasher はサービスが必要とするハッシャーのインターフェース。
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, hash string) (bool, error)
	DecoyHash() string
}

// TokenIssuer はサービスが必要とするトークン発行のインターフェース。
type TokenIssuer interface {
	Issue(user *model.User, profile *model.HardwareProfile) (string, error)
}

// MetricsRecorder はサービスが記録するメトリクスのインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordSignup()
	RecordSigninSuccess()
	RecordSigninFailure()
	RecordTokenIssued()
	RecordHashLatency(duration time.Duration)
}

// noopMetrics はメトリクス未設定時のデフォルト実装。
type noopMetrics struct{}

func (noopMetrics) RecordSignup()                     {}
func (noopMetrics) RecordSigninSuccess()              {}
func (noopMetrics) RecordSigninFailure()              {}
func (noopMetrics) RecordTokenIssued()                {}
func (noopMetrics) RecordHashLatency(_ time.Duration) {}

// Result は認証操作の成功結果。トークンとユーザー・プロフィールを返す。
type Result struct {
	Token   string
	User    *model.User
	Profile *model.HardwareProfile
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	repo    repository.UserRepository
	hasher  PasswordHasher
	issuer  TokenIssuer
	metrics MetricsRecorder
}

// NewService はServiceを生成する。
func NewService(repo repository.UserRepository, hasher PasswordHasher, issuer TokenIssuer) *Service {
	return &Service{
		repo:    repo,
		hasher:  hasher,
		issuer:  issuer,
		metrics: noopMetrics{},
	}
}

// WithMetrics はメトリクス収集を有効にしたServiceを返す。
func (s *Service) WithMetrics(m MetricsRecorder) *Service {
	s.metrics = m
	return s
}

// Signup は新規アカウントとプロフィールを作成し、トークンを発行する。
// email重複はmodel.APIError（DUPLICATE_EMAIL）として返す。
// バリデーション済みの入力を前提とする（ハンドラー層が形式検証を行う）。
func (s *Service) Signup(ctx context.Context, email, password, name string, profile *model.HardwareProfile) (*Result, error) {
	hashStart := time.Now()
	passwordHash, err := s.hasher.Hash(ctx, password)
	s.metrics.RecordHashLatency(time.Since(hashStart))
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		Name:         name,
		TokenVersion: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile.UserID = user.ID
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if err := s.repo.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError()
		}
		if errors.Is(err, repository.ErrInvalidProfile) {
			return nil, model.NewValidationError("profile", "profile field outside allowed values")
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	tokenStr, err := s.issuer.Issue(user, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.RecordSignup()
	s.metrics.RecordTokenIssued()

	slog.Info("new user signup",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &Result{Token: tokenStr, User: user, Profile: profile}, nil
}

// Signin はemailとパスワードでサインインし、トークンを発行する。
//
// メール列挙防御: アカウントの有無にかかわらず常に1回だけVerifyを実行する
// 単一のコードパスで実装する。アカウント不存在時はデコイハッシュに対して
// 照合するため、応答レイテンシがアカウントの存在を漏らさない。
// 失敗は常に同一の汎用エラー（INVALID_CREDENTIALS）を返す。
func (s *Service) Signin(ctx context.Context, email, password string) (*Result, error) {
	user, profile, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	hash := s.hasher.DecoyHash()
	if user != nil {
		hash = user.PasswordHash
	}

	verifyStart := time.Now()
	match, err := s.hasher.Verify(ctx, password, hash)
	s.metrics.RecordHashLatency(time.Since(verifyStart))
	if err != nil {
		// 保存ハッシュの破損は内部異常。認証失敗として扱わない。
		return nil, fmt.Errorf("password verification failed: %w", err)
	}

	if user == nil || !match {
		s.metrics.RecordSigninFailure()
		return nil, model.NewInvalidCredentialsError()
	}

	tokenStr, err := s.issuer.Issue(user, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	// last_signin_atの更新はベストエフォート。レスポンスをブロックしない。
	go func(userID string) {
		touchCtx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()
		if err := s.repo.TouchLastSignin(touchCtx, userID); err != nil {
			slog.Warn("failed to touch last signin",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}(user.ID)

	s.metrics.RecordSigninSuccess()
	s.metrics.RecordTokenIssued()

	slog.Info("user signin", slog.String("user_id", user.ID))

	return &Result{Token: tokenStr, User: user, Profile: profile}, nil
}

// UpdateProfile はプロフィールを部分更新し、更新後の内容でトークンを再発行する。
// 既発行トークンは自身の期限まで古いプロフィールのまま有効に残る。
func (s *Service) UpdateProfile(ctx context.Context, userID string, update *model.ProfileUpdate) (*Result, error) {
	if field := update.Validate(); field != "" {
		return nil, model.NewValidationError(field, fmt.Sprintf("%s is outside the allowed values", field))
	}

	profile, err := s.repo.UpdateProfile(ctx, userID, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewProfileNotFoundError()
		}
		if errors.Is(err, repository.ErrInvalidProfile) {
			return nil, model.NewValidationError("profile", "profile field outside allowed values")
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	user, _, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if user == nil {
		return nil, model.NewProfileNotFoundError()
	}

	tokenStr, err := s.issuer.Issue(user, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.RecordTokenIssued()

	slog.Info("profile updated", slog.String("user_id", userID))

	return &Result{Token: tokenStr, User: user, Profile: profile}, nil
}

// ChangePassword は現在のパスワードを検証し、新しいハッシュを保存して
// token_versionをインクリメントした上でトークンを再発行する。
// カウンターの更新により、発行済みのリセットクレデンシャルは無効になる。
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (*Result, error) {
	user, profile, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if user == nil {
		return nil, model.NewProfileNotFoundError()
	}

	match, err := s.hasher.Verify(ctx, currentPassword, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("password verification failed: %w", err)
	}
	if !match {
		return nil, model.NewInvalidCredentialsError()
	}

	newHash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewProfileNotFoundError()
		}
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	user.PasswordHash = newHash
	user.TokenVersion++

	tokenStr, err := s.issuer.Issue(user, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.RecordTokenIssued()

	slog.Info("password changed", slog.String("user_id", userID))

	return &Result{Token: tokenStr, User: user, Profile: profile}, nil
}

// normalizeEmail はemailを小文字へ正規化する。書き込み時と読み取り時の両方で使う。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
