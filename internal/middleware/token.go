// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/robobook/internal/model"
	"github.com/hitoshi/robobook/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// claimsContextKey はリクエストコンテキストに検証済みクレームを格納するためのキー。
var claimsContextKey = contextKey("claims")

// TokenValidator はトークン検証に必要なインターフェース。
// token.Issuerの部分集合として定義する。
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, *model.APIError)
}

// NewTokenAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 検証済みクレームをリクエストコンテキストに注入するミドルウェアを返す。
// ヘッダー欠落・形式不正・署名不正・期限切れはすべて401 Unauthorizedを返す。
// 理由の区別はレスポンスボディのcodeのみで行う。
func NewTokenAuthMiddleware(validator TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. AuthorizationヘッダーからBearerトークンを取得
			tokenString, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMalformedError())
				return
			}

			// 2. 署名・有効期限を検証
			claims, apiErr := validator.Validate(tokenString)
			if apiErr != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
				return
			}

			// 3. 検証済みクレームをコンテキストに注入
			ctx := ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// スキーム名は大文字小文字を区別しない。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tokenString := strings.TrimSpace(rest)
	if tokenString == "" {
		return "", false
	}
	return tokenString, true
}

// ClaimsFromContext はリクエストコンテキストから検証済みクレームを取得する。
// トークン認証ミドルウェアを通過したリクエストでのみ有効。
func ClaimsFromContext(ctx context.Context) (*token.Claims, error) {
	claims, ok := ctx.Value(claimsContextKey).(*token.Claims)
	if !ok || claims == nil {
		return nil, fmt.Errorf("claims not found in context")
	}
	return claims, nil
}

// ContextWithClaims はコンテキストに検証済みクレームを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}
