// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
	// RoleContributor はマンガを登録できる投稿者。
	RoleContributor Role = "contributor"
	// RoleAdmin は管理者。
	RoleAdmin Role = "admin"
)

// Valid はロールが定義済みの値かを判定する。
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleContributor, RoleAdmin:
		return true
	}
	return false
}

// User はサービス利用ユーザーを表す。
// PasswordHashはAPIレスポンスに含めないこと。
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate は管理者によるユーザー更新内容。nilのフィールドは変更しない。
type UserUpdate struct {
	Role     *Role
	IsActive *bool
}

// Actor は操作を行う認証済みユーザー。
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin は管理者かどうかを返す。
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
