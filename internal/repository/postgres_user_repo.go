package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/robobook/internal/model"
)

// PostgreSQLエラーコード
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// CreateWithProfile はユーザーとプロフィールを同一トランザクションで作成する。
// 列挙値の検証はCHECK制約とは独立にここでも行う。
func (r *PostgresUserRepo) CreateWithProfile(ctx context.Context, user *model.User, profile *model.HardwareProfile) error {
	if field := profile.Validate(); field != "" {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, field)
	}

	languages, err := json.Marshal(profile.CodingLanguages)
	if err != nil {
		return fmt.Errorf("failed to marshal coding languages: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ユーザーを作成（emailは小文字で保存する）
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, token_version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, strings.ToLower(user.Email), user.PasswordHash, user.Name,
		user.TokenVersion, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "failed to insert user")
	}

	// プロフィールを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, gpu_type, ram_capacity, coding_languages, robotics_experience, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		profile.UserID, profile.GPUType, profile.RAMCapacity, languages,
		profile.RoboticsExperience, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "failed to insert profile")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByEmail はemailでユーザーとプロフィールを取得する。見つからない場合は両方nilを返す。
// 検索前にemailを小文字化するため、大文字小文字を区別しない。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, *model.HardwareProfile, error) {
	return r.findOne(ctx, `u.email = $1`, strings.ToLower(email))
}

// FindByID は指定IDのユーザーとプロフィールを取得する。見つからない場合は両方nilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, *model.HardwareProfile, error) {
	return r.findOne(ctx, `u.id = $1`, id)
}

// findOne はusersとuser_profilesをJOINして1件取得する共通処理。
func (r *PostgresUserRepo) findOne(ctx context.Context, where string, arg any) (*model.User, *model.HardwareProfile, error) {
	user := &model.User{}
	profile := &model.HardwareProfile{}
	var languages []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.password_hash, u.name, u.token_version,
		        u.created_at, u.updated_at, u.last_signin_at,
		        p.gpu_type, p.ram_capacity, p.coding_languages, p.robotics_experience,
		        p.created_at, p.updated_at
		 FROM users u
		 JOIN user_profiles p ON p.user_id = u.id
		 WHERE `+where,
		arg,
	).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.TokenVersion,
		&user.CreatedAt, &user.UpdatedAt, &user.LastSigninAt,
		&profile.GPUType, &profile.RAMCapacity, &languages, &profile.RoboticsExperience,
		&profile.CreatedAt, &profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := json.Unmarshal(languages, &profile.CodingLanguages); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal coding languages: %w", err)
	}
	profile.UserID = user.ID

	return user, profile, nil
}

// UpdateProfile は指定されたフィールドのみを更新し、更新後のプロフィールを返す。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID string, update *model.ProfileUpdate) (*model.HardwareProfile, error) {
	if field := update.Validate(); field != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProfile, field)
	}

	set := []string{"updated_at = now()"}
	args := []any{userID}

	appendSet := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.GPUType != nil {
		appendSet("gpu_type", *update.GPUType)
	}
	if update.RAMCapacity != nil {
		appendSet("ram_capacity", *update.RAMCapacity)
	}
	if update.CodingLanguages != nil {
		languages, err := json.Marshal(update.CodingLanguages)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal coding languages: %w", err)
		}
		appendSet("coding_languages", languages)
	}
	if update.RoboticsExperience != nil {
		appendSet("robotics_experience", *update.RoboticsExperience)
	}

	profile := &model.HardwareProfile{UserID: userID}
	var languages []byte

	err := r.db.QueryRowContext(ctx,
		`UPDATE user_profiles SET `+strings.Join(set, ", ")+`
		 WHERE user_id = $1
		 RETURNING gpu_type, ram_capacity, coding_languages, robotics_experience, created_at, updated_at`,
		args...,
	).Scan(
		&profile.GPUType, &profile.RAMCapacity, &languages,
		&profile.RoboticsExperience, &profile.CreatedAt, &profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: profile for user %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, mapPgError(err, "failed to update profile")
	}

	if err := json.Unmarshal(languages, &profile.CodingLanguages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal coding languages: %w", err)
	}

	return profile, nil
}

// TouchLastSignin は最終サインイン時刻を現在時刻に更新する。
func (r *PostgresUserRepo) TouchLastSignin(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_signin_at = now() WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch last signin: %w", err)
	}
	return nil
}

// UpdatePasswordHash はパスワードハッシュを差し替え、token_versionをインクリメントする。
func (r *PostgresUserRepo) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET password_hash = $2, token_version = token_version + 1, updated_at = now()
		 WHERE id = $1`,
		userID, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return nil
}

// mapPgError はPostgreSQLのエラーコードをストアのエラー種別に変換する。
// email一意制約違反はErrDuplicateEmail、CHECK制約違反はErrInvalidProfileになる。
func mapPgError(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, pqErr.Constraint)
		case pgCheckViolation:
			return fmt.Errorf("%w: %s", ErrInvalidProfile, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
