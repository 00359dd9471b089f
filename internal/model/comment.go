package model

import "time"

// Comment はマンガに対するコメントを表す。
// ParentIDが空でない場合は返信コメント。
type Comment struct {
	ID        string
	MangaID   string
	UserID    string
	Username  string
	ParentID  string
	Content   string
	IsHidden  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
