package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, ratelimit, system
	Action   string // ユーザー向け対処方法
	Field    string // バリデーションエラーの対象フィールド（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
	ErrCodeTokenMalformed     = "TOKEN_MALFORMED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeProfileNotFound    = "PROFILE_NOT_FOUND"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationError はフィールド単位のバリデーションエラーを生成する。
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "Correct the highlighted field and resubmit.",
		Field:    field,
	}
}

// NewDuplicateEmailError は重複メールエラーを生成する。
// ハッシュ処理の有無など内部事情は一切含めない。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "email already exists",
		Category: "conflict",
		Action:   "Sign in instead, or use a different email address.",
	}
}

// NewInvalidCredentialsError はサインイン失敗エラーを生成する。
// メール不存在とパスワード不一致を区別しない単一の汎用メッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "invalid email or password",
		Category: "auth",
		Action:   "Check your email and password and try again.",
	}
}

// NewTokenExpiredError は期限切れトークンエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "token has expired",
		Category: "auth",
		Action:   "Sign in again to obtain a new token.",
	}
}

// NewInvalidSignatureError は署名検証失敗エラーを生成する。
func NewInvalidSignatureError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSignature,
		Message:  "token signature could not be verified",
		Category: "auth",
		Action:   "Sign in again to obtain a new token.",
	}
}

// NewTokenMalformedError は解析不能トークンエラーを生成する。
func NewTokenMalformedError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenMalformed,
		Message:  "token is malformed",
		Category: "auth",
		Action:   "Sign in again to obtain a new token.",
	}
}

// NewRateLimitedError はレート制限エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "ratelimit",
		Action:   "Please wait and retry after the specified time.",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "profile not found",
		Category: "auth",
		Action:   "Sign in again. If the problem persists, contact support.",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}
