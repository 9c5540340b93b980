// Package token は署名付き・期限付きクレデンシャルの発行と検証を提供する。
// トークンにはプロフィール全体をクレームとして埋め込み、保護された
// リクエストごとのデータベース参照を不要にする。プロフィール変更は
// トークンの再発行まで既発行トークンには反映されない。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/robobook/internal/model"
)

// issuer はiss クレームに設定する発行者名。
const issuerName = "robobook"

// Claims はトークンに埋め込むクレーム。
// 標準クレーム（sub=ユーザーID、iat、exp）に加えて、
// パーソナライズに必要なプロフィール4項目を型付きで保持する。
type Claims struct {
	Email              string                   `json:"email"`
	Name               string                   `json:"name"`
	GPUType            model.GPUType            `json:"gpu_type"`
	RAMCapacity        model.RAMCapacity        `json:"ram_capacity"`
	CodingLanguages    []model.CodingLanguage   `json:"coding_languages"`
	RoboticsExperience model.RoboticsExperience `json:"robotics_experience"`
	TokenVersion       int                      `json:"ver"`
	jwt.RegisteredClaims
}

// Profile はクレームからHardwareProfileを再構成する。
func (c *Claims) Profile() *model.HardwareProfile {
	return &model.HardwareProfile{
		UserID:             c.Subject,
		GPUType:            c.GPUType,
		RAMCapacity:        c.RAMCapacity,
		CodingLanguages:    c.CodingLanguages,
		RoboticsExperience: c.RoboticsExperience,
	}
}

// Issuer はHS256署名のトークンを発行・検証する。
type Issuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewIssuer はIssuerを生成する。secretは32バイト以上であること。
func NewIssuer(secret string, expiry time.Duration) (*Issuer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("signing secret must be at least 32 bytes, got %d", len(secret))
	}
	return &Issuer{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// Issue はユーザーの識別情報とプロフィールを埋め込んだトークンを発行する。
// 有効期限は発行時刻＋固定ウィンドウ。
func (i *Issuer) Issue(user *model.User, profile *model.HardwareProfile) (string, error) {
	now := i.now()

	claims := Claims{
		Email:              user.Email,
		Name:               user.Name,
		GPUType:            profile.GPUType,
		RAMCapacity:        profile.RAMCapacity,
		CodingLanguages:    profile.CodingLanguages,
		RoboticsExperience: profile.RoboticsExperience,
		TokenVersion:       user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate は署名と有効期限を検証し、クレームを返す。
// 失敗はAPIErrorとして返す: 期限切れ、署名不一致、解析不能の3種。
func (i *Issuer) Validate(tokenString string) (*Claims, *model.APIError) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, model.NewTokenExpiredError()
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, model.NewInvalidSignatureError()
		default:
			return nil, model.NewTokenMalformedError()
		}
	}

	return claims, nil
}
