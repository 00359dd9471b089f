package handler

import (
	"time"

	"github.com/hitoshi/mangashelf/internal/model"
)

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

func toUserResponses(users []*model.User) []userResponse {
	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	return out
}

// authResponse は登録・ログイン成功時のレスポンス。
type authResponse struct {
	AccessToken string       `json:"access_token"`
	User        userResponse `json:"user"`
}

type genreResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toGenreResponses(genres []model.Genre) []genreResponse {
	out := make([]genreResponse, len(genres))
	for i, g := range genres {
		out[i] = genreResponse{ID: g.ID, Name: g.Name}
	}
	return out
}

// mangaResponse はマンガ情報のAPIレスポンス。
type mangaResponse struct {
	ID            string            `json:"id"`
	ExternalID    string            `json:"externalId,omitempty"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	CoverFileName string            `json:"coverFileName"`
	Author        string            `json:"author"`
	Artist        string            `json:"artist"`
	Status        model.MangaStatus `json:"status"`
	Type          string            `json:"type"`
	Source        string            `json:"source"`
	UserID        string            `json:"userId,omitempty"`
	Genres        []genreResponse   `json:"genres"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func toMangaResponse(m *model.Manga) mangaResponse {
	return mangaResponse{
		ID:            m.ID,
		ExternalID:    m.ExternalID,
		Title:         m.Title,
		Description:   m.Description,
		CoverFileName: m.CoverFileName,
		Author:        m.Author,
		Artist:        m.Artist,
		Status:        m.Status,
		Type:          m.Type,
		Source:        m.Source,
		UserID:        m.UserID,
		Genres:        toGenreResponses(m.Genres),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toMangaResponses(mangas []*model.Manga) []mangaResponse {
	out := make([]mangaResponse, len(mangas))
	for i, m := range mangas {
		out[i] = toMangaResponse(m)
	}
	return out
}

// mangaRequest はマンガ作成・更新リクエストのボディ。省略したフィールドは更新しない。
type mangaRequest struct {
	Title         *string            `json:"title"`
	Description   *string            `json:"description"`
	CoverFileName *string            `json:"coverFileName"`
	Author        *string            `json:"author"`
	Artist        *string            `json:"artist"`
	Status        *model.MangaStatus `json:"status"`
	Type          *string            `json:"type"`
	Genres        []string           `json:"genres"`
}

func (req mangaRequest) toInput() model.MangaInput {
	return model.MangaInput{
		Title:         req.Title,
		Description:   req.Description,
		CoverFileName: req.CoverFileName,
		Author:        req.Author,
		Artist:        req.Artist,
		Status:        req.Status,
		Type:          req.Type,
		Genres:        req.Genres,
	}
}

// chapterResponse はチャプター情報のAPIレスポンス。
type chapterResponse struct {
	ID            string    `json:"id"`
	MangaID       string    `json:"mangaId"`
	ChapterNumber float64   `json:"chapterNumber"`
	Title         string    `json:"title"`
	VolumeNumber  *string   `json:"volumeNumber"`
	Pages         []string  `json:"pages"`
	Source        string    `json:"source"`
	SourceID      string    `json:"source_id"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toChapterResponse(c *model.Chapter) chapterResponse {
	pages := c.Pages
	if pages == nil {
		pages = []string{}
	}
	return chapterResponse{
		ID:            c.ID,
		MangaID:       c.MangaID,
		ChapterNumber: c.ChapterNumber,
		Title:         c.Title,
		VolumeNumber:  c.Volume,
		Pages:         pages,
		Source:        c.Source,
		SourceID:      c.SourceID,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toChapterResponses(chapters []*model.Chapter) []chapterResponse {
	out := make([]chapterResponse, len(chapters))
	for i, c := range chapters {
		out[i] = toChapterResponse(c)
	}
	return out
}

// chapterRequest はチャプター作成・更新リクエストのボディ。
type chapterRequest struct {
	ChapterNumber *float64 `json:"chapterNumber"`
	Title         *string  `json:"title"`
	VolumeNumber  *string  `json:"volumeNumber"`
	Pages         []string `json:"pages"`
	Source        *string  `json:"source"`
	SourceID      *string  `json:"source_id"`
}

func (req chapterRequest) toInput() model.ChapterInput {
	return model.ChapterInput{
		ChapterNumber: req.ChapterNumber,
		Title:         req.Title,
		Volume:        req.VolumeNumber,
		Pages:         req.Pages,
		Source:        req.Source,
		SourceID:      req.SourceID,
	}
}

// commentResponse はコメントのAPIレスポンス。
type commentResponse struct {
	ID        string    `json:"id"`
	MangaID   string    `json:"mangaId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	ParentID  string    `json:"parentId,omitempty"`
	Content   string    `json:"content"`
	IsHidden  bool      `json:"isHidden"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toCommentResponse(c *model.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		MangaID:   c.MangaID,
		UserID:    c.UserID,
		Username:  c.Username,
		ParentID:  c.ParentID,
		Content:   c.Content,
		IsHidden:  c.IsHidden,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toCommentResponses(comments []*model.Comment) []commentResponse {
	out := make([]commentResponse, len(comments))
	for i, c := range comments {
		out[i] = toCommentResponse(c)
	}
	return out
}

type bookmarkResponse struct {
	ID        string         `json:"id"`
	MangaID   string         `json:"mangaId"`
	Manga     *mangaResponse `json:"manga,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func toBookmarkResponse(b *model.Bookmark) bookmarkResponse {
	resp := bookmarkResponse{ID: b.ID, MangaID: b.MangaID, CreatedAt: b.CreatedAt}
	if b.Manga != nil {
		m := toMangaResponse(b.Manga)
		resp.Manga = &m
	}
	return resp
}

type historyResponse struct {
	ID            string         `json:"id"`
	MangaID       string         `json:"mangaId"`
	ChapterNumber float64        `json:"chapterNumber"`
	PageNumber    int            `json:"pageNumber"`
	Manga         *mangaResponse `json:"manga,omitempty"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func toHistoryResponse(h *model.History) historyResponse {
	resp := historyResponse{
		ID:            h.ID,
		MangaID:       h.MangaID,
		ChapterNumber: h.ChapterNumber,
		PageNumber:    h.PageNumber,
		UpdatedAt:     h.UpdatedAt,
	}
	if h.Manga != nil {
		m := toMangaResponse(h.Manga)
		resp.Manga = &m
	}
	return resp
}

type ratingResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username,omitempty"`
	MangaID   string    `json:"mangaId"`
	Score     int       `json:"score"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toRatingResponse(r *model.Rating) ratingResponse {
	return ratingResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		Username:  r.Username,
		MangaID:   r.MangaID,
		Score:     r.Score,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// pageResponse はページネーションされた一覧のレスポンス。
type pageResponse[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

func toPageResponse[S, T any](p model.Page[S], convert func(S) T) pageResponse[T] {
	items := make([]T, len(p.Items))
	for i, item := range p.Items {
		items[i] = convert(item)
	}
	return pageResponse[T]{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		TotalPages: p.TotalPages,
	}
}

// messageResponse は本文を持たない操作の結果メッセージ。
type messageResponse struct {
	Message string `json:"message"`
}
