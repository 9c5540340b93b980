// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"unicode"

	"github.com/hitoshi/robobook/internal/auth"
	"github.com/hitoshi/robobook/internal/middleware"
	"github.com/hitoshi/robobook/internal/model"
)

const (
	maxEmailLength    = 255
	maxNameLength     = 255
	minPasswordLength = 8
	maxRequestBody    = 64 << 10 // 64KB。認証リクエストのボディは小さい
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, email, password, name string, profile *model.HardwareProfile) (*auth.Result, error)
	Signin(ctx context.Context, email, password string) (*auth.Result, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (*auth.Result, error)
}

// AuthHandler はサインアップ・サインイン関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		service: service,
	}
}

// profilePayload はハードウェアプロフィールのリクエスト・レスポンス表現。
type profilePayload struct {
	GPUType            string   `json:"gpu_type"`
	RAMCapacity        string   `json:"ram_capacity"`
	CodingLanguages    []string `json:"coding_languages"`
	RoboticsExperience string   `json:"robotics_experience"`
}

// signupRequest はサインアップリクエストのボディ。
// プロフィールフィールドは認証フィールドと同じ階層に平坦に並ぶ。
type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	profilePayload
}

// signinRequest はサインインリクエストのボディ。
type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// changePasswordRequest はパスワード変更リクエストのボディ。
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含まない。
// プロフィールフィールドはユーザーオブジェクトに平坦化される。
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	profilePayload
}

// authResponse は認証成功時のAPIレスポンス。
type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Signup はアカウント作成を処理する。
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if apiErr := validateEmail(req.Email); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
		return
	}
	if apiErr := validatePassword(req.Password); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
		return
	}
	if req.Name == "" {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity,
			model.NewValidationError("name", "name must not be empty"))
		return
	}
	if len(req.Name) > maxNameLength {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity,
			model.NewValidationError("name", fmt.Sprintf("name must be at most %d characters", maxNameLength)))
		return
	}

	profile, apiErr := toHardwareProfile(req.profilePayload)
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
		return
	}

	result, err := h.service.Signup(r.Context(), req.Email, req.Password, req.Name, profile)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAuthResponse(result))
}

// Signin は既存アカウントの認証を処理する。
// POST /api/auth/signin
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	// サインインでは詳細なバリデーションを行わない。
	// 形式不正な入力もサービス層の照合不一致と同じ汎用エラーに集約する。
	if req.Email == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	result, err := h.service.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// Signout はサインアウトを処理する。
// トークンはステートレスなのでサーバー側の状態破棄はなく、
// クライアント側でのトークン破棄を促す応答のみ返す。
// POST /api/auth/signout
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	if claims, err := middleware.ClaimsFromContext(r.Context()); err == nil {
		slog.Info("user signed out", slog.String("user_id", claims.Subject))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword はパスワード変更を処理する。
// PUT /api/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.ClaimsFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMalformedError())
		return
	}

	var req changePasswordRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.CurrentPassword == "" {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity,
			model.NewValidationError("current_password", "current_password must not be empty"))
		return
	}
	if apiErr := validatePassword(req.NewPassword); apiErr != nil {
		apiErr.Field = "new_password"
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
		return
	}

	result, err := h.service.ChangePassword(r.Context(), claims.Subject, req.CurrentPassword, req.NewPassword)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// --- バリデーション ---

// validateEmail はemailの形式と長さを検証する。
func validateEmail(email string) *model.APIError {
	if email == "" {
		return model.NewValidationError("email", "email must not be empty")
	}
	if len(email) > maxEmailLength {
		return model.NewValidationError("email", fmt.Sprintf("email must be at most %d characters", maxEmailLength))
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return model.NewValidationError("email", "email format is invalid")
	}
	return nil
}

// validatePassword はパスワードポリシーを検証する。
// 最低8文字、大文字・数字・記号を各1文字以上含むこと。
func validatePassword(password string) *model.APIError {
	if len(password) < minPasswordLength {
		return model.NewValidationError("password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		return model.NewValidationError("password", "password must contain an uppercase letter")
	}
	if !hasDigit {
		return model.NewValidationError("password", "password must contain a digit")
	}
	if !hasSymbol {
		return model.NewValidationError("password", "password must contain a symbol")
	}
	return nil
}

// toHardwareProfile はリクエストのプロフィールをモデルへ変換し、語彙を検証する。
func toHardwareProfile(p profilePayload) (*model.HardwareProfile, *model.APIError) {
	languages := make([]model.CodingLanguage, 0, len(p.CodingLanguages))
	for _, lang := range p.CodingLanguages {
		languages = append(languages, model.CodingLanguage(lang))
	}

	profile := &model.HardwareProfile{
		GPUType:            model.GPUType(p.GPUType),
		RAMCapacity:        model.RAMCapacity(p.RAMCapacity),
		CodingLanguages:    languages,
		RoboticsExperience: model.RoboticsExperience(p.RoboticsExperience),
	}

	if field := profile.Validate(); field != "" {
		return nil, model.NewValidationError(field, fmt.Sprintf("%s is outside the allowed values", field))
	}
	return profile, nil
}

// --- レスポンス変換 ---

// toProfilePayload はモデルのプロフィールをレスポンス表現へ変換する。
func toProfilePayload(profile *model.HardwareProfile) profilePayload {
	languages := make([]string, 0, len(profile.CodingLanguages))
	for _, lang := range profile.CodingLanguages {
		languages = append(languages, string(lang))
	}

	return profilePayload{
		GPUType:            string(profile.GPUType),
		RAMCapacity:        string(profile.RAMCapacity),
		CodingLanguages:    languages,
		RoboticsExperience: string(profile.RoboticsExperience),
	}
}

// toAuthResponse は認証結果をAPIレスポンスへ変換する。
func toAuthResponse(result *auth.Result) authResponse {
	return authResponse{
		Token: result.Token,
		User: userResponse{
			ID:             result.User.ID,
			Email:          result.User.Email,
			Name:           result.User.Name,
			profilePayload: toProfilePayload(result.Profile),
		},
	}
}

// --- 共通ヘルパー ---

// decodeJSONBody はリクエストボディをJSONとして解析する。
// 失敗時は400レスポンスを書き込み、falseを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidationFailed,
			Message:  "request body could not be parsed",
			Category: "validation",
			Action:   "Send a valid JSON request body.",
		})
		return false
	}
	return true
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case model.ErrCodeDuplicateEmail:
		return http.StatusConflict
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeTokenExpired, model.ErrCodeInvalidSignature, model.ErrCodeTokenMalformed:
		return http.StatusUnauthorized
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeProfileNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
