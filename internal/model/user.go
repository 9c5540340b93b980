// Package model はドメインモデルを定義する。
package model

import "time"

// User は認証アカウントを表す。
// PasswordHashは平文パスワードを保持しない。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	// TokenVersion はパスワード変更ごとにインクリメントされるカウンター。
	// 発行済みリセットクレデンシャルの無効化に使用する。
	TokenVersion int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastSigninAt *time.Time
}

// HardwareProfile はサインアップ時に収集するハードウェア・経験プロフィールを表す。
// Userと1:1で紐付く。
type HardwareProfile struct {
	UserID             string
	GPUType            GPUType
	RAMCapacity        RAMCapacity
	CodingLanguages    []CodingLanguage
	RoboticsExperience RoboticsExperience
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate は全フィールドが語彙内であることを検証する。
// 違反フィールド名を返す。問題がなければ空文字を返す。
func (p *HardwareProfile) Validate() string {
	if !p.GPUType.Valid() {
		return "gpu_type"
	}
	if !p.RAMCapacity.Valid() {
		return "ram_capacity"
	}
	if len(p.CodingLanguages) == 0 {
		return "coding_languages"
	}
	for _, l := range p.CodingLanguages {
		if !l.Valid() {
			return "coding_languages"
		}
	}
	if !p.RoboticsExperience.Valid() {
		return "robotics_experience"
	}
	return ""
}

// ProfileUpdate はプロフィール部分更新を表す。nilフィールドは変更しない。
type ProfileUpdate struct {
	GPUType            *GPUType
	RAMCapacity        *RAMCapacity
	CodingLanguages    []CodingLanguage
	RoboticsExperience *RoboticsExperience
}

// Validate は指定されたフィールドが語彙内であることを検証する。
// 違反フィールド名を返す。問題がなければ空文字を返す。
func (u *ProfileUpdate) Validate() string {
	if u.GPUType != nil && !u.GPUType.Valid() {
		return "gpu_type"
	}
	if u.RAMCapacity != nil && !u.RAMCapacity.Valid() {
		return "ram_capacity"
	}
	if u.CodingLanguages != nil {
		if len(u.CodingLanguages) == 0 {
			return "coding_languages"
		}
		for _, l := range u.CodingLanguages {
			if !l.Valid() {
				return "coding_languages"
			}
		}
	}
	if u.RoboticsExperience != nil && !u.RoboticsExperience.Valid() {
		return "robotics_experience"
	}
	return ""
}

// Empty は更新対象フィールドが1つも指定されていない場合にtrueを返す。
func (u *ProfileUpdate) Empty() bool {
	return u.GPUType == nil && u.RAMCapacity == nil &&
		u.CodingLanguages == nil && u.RoboticsExperience == nil
}
