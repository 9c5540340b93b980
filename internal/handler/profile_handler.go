package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/robobook/internal/auth"
	"github.com/hitoshi/robobook/internal/middleware"
	"github.com/hitoshi/robobook/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	UpdateProfile(ctx context.Context, userID string, update *model.ProfileUpdate) (*auth.Result, error)
}

// ProfileHandler はハードウェアプロフィールのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{
		service: service,
	}
}

// profileUpdateRequest はプロフィール更新リクエストのボディ。
// 省略されたフィールドは変更しない。ポインタ・nilスライスで省略を区別する。
type profileUpdateRequest struct {
	GPUType            *string  `json:"gpu_type"`
	RAMCapacity        *string  `json:"ram_capacity"`
	CodingLanguages    []string `json:"coding_languages"`
	RoboticsExperience *string  `json:"robotics_experience"`
}

// GetProfile は現在のユーザーのプロフィールを返す。
// プロフィールはトークンのクレームに埋め込まれているため、ストアには問い合わせない。
// GET /api/profile/me
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.ClaimsFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMalformedError())
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:             claims.Subject,
		Email:          claims.Email,
		Name:           claims.Name,
		profilePayload: toProfilePayload(claims.Profile()),
	})
}

// UpdateProfile はプロフィールの部分更新を処理し、更新後のクレームを持つ
// 新しいトークンを返す。
// PUT /api/profile/me
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.ClaimsFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMalformedError())
		return
	}

	var req profileUpdateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	update := toProfileUpdate(req)
	if update.Empty() {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity,
			model.NewValidationError("profile", "at least one profile field must be provided"))
		return
	}
	if field := update.Validate(); field != "" {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity,
			model.NewValidationError(field, fmt.Sprintf("%s is outside the allowed values", field)))
		return
	}

	result, err := h.service.UpdateProfile(r.Context(), claims.Subject, update)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// toProfileUpdate はリクエストを部分更新モデルへ変換する。
func toProfileUpdate(req profileUpdateRequest) *model.ProfileUpdate {
	update := &model.ProfileUpdate{}

	if req.GPUType != nil {
		gpu := model.GPUType(*req.GPUType)
		update.GPUType = &gpu
	}
	if req.RAMCapacity != nil {
		ram := model.RAMCapacity(*req.RAMCapacity)
		update.RAMCapacity = &ram
	}
	if req.CodingLanguages != nil {
		languages := make([]model.CodingLanguage, 0, len(req.CodingLanguages))
		for _, lang := range req.CodingLanguages {
			languages = append(languages, model.CodingLanguage(lang))
		}
		update.CodingLanguages = languages
	}
	if req.RoboticsExperience != nil {
		exp := model.RoboticsExperience(*req.RoboticsExperience)
		update.RoboticsExperience = &exp
	}

	return update
}
