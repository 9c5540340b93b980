// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/robobook/internal/model"
)

// ストア操作の失敗種別。呼び出し側はerrors.Isで判定する。
var (
	// ErrDuplicateEmail は大文字小文字を区別しないemail一意制約への違反。
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrInvalidProfile はプロフィール列挙値が語彙外であることを示す。
	ErrInvalidProfile = errors.New("profile field outside allowed values")
	// ErrNotFound は対象レコードが存在しないことを示す。
	ErrNotFound = errors.New("record not found")
)

// UserRepository はアカウントとハードウェアプロフィールの永続化インターフェース。
type UserRepository interface {
	// CreateWithProfile はユーザーとプロフィールを同一トランザクションで作成する。
	// アカウントのみ・プロフィールのみの部分状態は観測されない。
	// email重複はErrDuplicateEmail、語彙外の列挙値はErrInvalidProfileを返す。
	CreateWithProfile(ctx context.Context, user *model.User, profile *model.HardwareProfile) error

	// FindByEmail はemail（大文字小文字を区別しない）でユーザーとプロフィールを取得する。
	// 見つからない場合は両方nilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, *model.HardwareProfile, error)

	// FindByID は指定IDのユーザーとプロフィールを取得する。見つからない場合は両方nilを返す。
	FindByID(ctx context.Context, id string) (*model.User, *model.HardwareProfile, error)

	// UpdateProfile は指定されたフィールドのみを更新し、更新後のプロフィールを返す。
	// プロフィールが存在しない場合はErrNotFound、語彙外の値はErrInvalidProfileを返す。
	// emailはこの操作では変更できない。
	UpdateProfile(ctx context.Context, userID string, update *model.ProfileUpdate) (*model.HardwareProfile, error)

	// TouchLastSignin は最終サインイン時刻を現在時刻に更新する。
	TouchLastSignin(ctx context.Context, userID string) error

	// UpdatePasswordHash はパスワードハッシュを差し替え、token_versionを
	// 同一文でインクリメントする。存在しない場合はErrNotFoundを返す。
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}
