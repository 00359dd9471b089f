// Package catalog は外部マンガカタログ（MangaDex）との連携を提供する。
// 読み取り専用APIの呼び出しと、プレースホルダーマンガのメタデータ同期ジョブを含む。
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/mangashelf/internal/model"
)

const (
	// DefaultBaseURL はMangaDex APIのベースURL。
	DefaultBaseURL = "https://api.mangadex.org"
	// coverBaseURL はカバー画像の配信元。
	coverBaseURL = "https://uploads.mangadex.org/covers"
	// MaxResponseSize はレスポンスボディの最大サイズ（5MB）。
	MaxResponseSize int64 = 5 << 20

	maxSearchLimit = 100
	userAgent      = "MangaShelf/1.0"
)

// 呼び出し結果のメトリクスラベル
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// errUpstreamNotFound はカタログが404を返した場合のエラー。
var errUpstreamNotFound = errors.New("カタログに対象が存在しません")

// Recorder はカタログ呼び出しのメトリクス記録インターフェース。
type Recorder interface {
	RecordCatalogRequest(result string)
	RecordCatalogLatency(duration time.Duration)
}

// Metadata はカタログから取得したマンガのメタデータ。
type Metadata struct {
	ExternalID  string
	Title       string
	Description string
	Author      string
	Artist      string
	Status      model.MangaStatus
	CoverURL    string
}

// Client はMangaDex APIのクライアント。
// すべての呼び出しはrate.Limiterで間隔を制御する。
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    Recorder
	logger     *slog.Logger
	baseURL    string // テスト用に差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// ratePerSecが0以下の場合は流量制限を行わない。metricsはnilでもよい。
func NewClient(httpClient *http.Client, baseURL string, ratePerSec float64, metrics Recorder, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		metrics:    metrics,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Search はタイトルでマンガを検索し、カタログのレスポンスをそのまま返す。
func (c *Client) Search(ctx context.Context, title string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if t := strings.TrimSpace(title); t != "" {
		q.Set("title", t)
	}
	if limit > 0 {
		if limit > maxSearchLimit {
			limit = maxSearchLimit
		}
		q.Set("limit", strconv.Itoa(limit))
	}
	q.Add("includes[]", "cover_art")
	return c.passthrough(ctx, "/manga", q, nil)
}

// GetManga は作者とカバー画像を含むマンガ詳細を返す。
func (c *Client) GetManga(ctx context.Context, id string) (json.RawMessage, error) {
	return c.passthrough(ctx, "/manga/"+url.PathEscape(id), mangaIncludes(), model.NewMangaNotFoundError(id))
}

// Aggregate は巻・チャプターの一覧を返す。langが空の場合は全言語を対象とする。
func (c *Client) Aggregate(ctx context.Context, id, lang string) (json.RawMessage, error) {
	q := url.Values{}
	if lang != "" {
		q.Add("translatedLanguage[]", lang)
	}
	return c.passthrough(ctx, "/manga/"+url.PathEscape(id)+"/aggregate", q, model.NewMangaNotFoundError(id))
}

// AtHomeServer はチャプター画像の配信サーバー情報を返す。
func (c *Client) AtHomeServer(ctx context.Context, chapterID string) (json.RawMessage, error) {
	return c.passthrough(ctx, "/at-home/server/"+url.PathEscape(chapterID), nil, model.NewChapterNotFoundError(chapterID))
}

// Tags はカタログのタグ一覧を返す。
func (c *Client) Tags(ctx context.Context) (json.RawMessage, error) {
	return c.passthrough(ctx, "/manga/tag", nil, nil)
}

// LookupTitle は外部IDに対応するマンガのタイトルを返す。
func (c *Client) LookupTitle(ctx context.Context, externalID string) (string, error) {
	md, err := c.FetchMetadata(ctx, externalID)
	if err != nil {
		return "", err
	}
	return md.Title, nil
}

// FetchMetadata はマンガ詳細を取得してMetadataに変換する。
func (c *Client) FetchMetadata(ctx context.Context, externalID string) (*Metadata, error) {
	body, err := c.get(ctx, "/manga/"+url.PathEscape(externalID), mangaIncludes())
	if err != nil {
		return nil, err
	}

	var payload mangaResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("カタログレスポンスのパースに失敗しました: %w", err)
	}
	return payload.Data.metadata(), nil
}

// passthrough はgetの結果を返し、失敗をAPIエラーに変換する。
func (c *Client) passthrough(ctx context.Context, path string, query url.Values, notFound *model.APIError) (json.RawMessage, error) {
	body, err := c.get(ctx, path, query)
	if err != nil {
		if errors.Is(err, errUpstreamNotFound) && notFound != nil {
			return nil, notFound
		}
		return nil, model.NewCatalogUnavailableError()
	}
	return body, nil
}

// get はカタログAPIを呼び出してレスポンスボディを返す。
func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("カタログ呼び出しの待機に失敗しました: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.recordLatency(time.Since(start))
	if err != nil {
		c.recordResult(ResultError)
		c.logger.Error("カタログAPIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("カタログAPIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.recordResult(ResultSuccess)
		return nil, errUpstreamNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.recordResult(ResultError)
		c.logger.Error("カタログAPIがエラーステータスを返しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("カタログAPIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		c.recordResult(ResultError)
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		c.recordResult(ResultError)
		return nil, fmt.Errorf("レスポンスサイズが上限を超えています: %d bytes", MaxResponseSize)
	}
	if !json.Valid(body) {
		c.recordResult(ResultError)
		c.logger.Error("カタログAPIのレスポンスがJSONではありません", slog.String("path", path))
		return nil, fmt.Errorf("カタログAPIのレスポンスがJSONではありません")
	}

	c.recordResult(ResultSuccess)
	return body, nil
}

func (c *Client) recordResult(result string) {
	if c.metrics != nil {
		c.metrics.RecordCatalogRequest(result)
	}
}

func (c *Client) recordLatency(d time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordCatalogLatency(d)
	}
}

func mangaIncludes() url.Values {
	q := url.Values{}
	q.Add("includes[]", "cover_art")
	q.Add("includes[]", "author")
	q.Add("includes[]", "artist")
	return q
}

type mangaResponse struct {
	Data mangaData `json:"data"`
}

type mangaData struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       map[string]string   `json:"title"`
		AltTitles   []map[string]string `json:"altTitles"`
		Description map[string]string   `json:"description"`
		Status      string              `json:"status"`
	} `json:"attributes"`
	Relationships []struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			Name     string `json:"name"`
			FileName string `json:"fileName"`
		} `json:"attributes"`
	} `json:"relationships"`
}

func (d mangaData) metadata() *Metadata {
	md := &Metadata{
		ExternalID:  d.ID,
		Title:       pickLocalized(d.Attributes.Title),
		Description: pickLocalized(d.Attributes.Description),
		Status:      model.MangaStatus(d.Attributes.Status),
	}
	if md.Title == "" {
		for _, alt := range d.Attributes.AltTitles {
			if t := pickLocalized(alt); t != "" {
				md.Title = t
				break
			}
		}
	}
	if !md.Status.Valid() {
		md.Status = ""
	}
	for _, rel := range d.Relationships {
		switch rel.Type {
		case "author":
			if md.Author == "" {
				md.Author = rel.Attributes.Name
			}
		case "artist":
			if md.Artist == "" {
				md.Artist = rel.Attributes.Name
			}
		case "cover_art":
			if rel.Attributes.FileName != "" {
				md.CoverURL = coverBaseURL + "/" + d.ID + "/" + rel.Attributes.FileName
			}
		}
	}
	return md
}

// pickLocalized は英語を優先して空でない値を返す。
func pickLocalized(values map[string]string) string {
	if values == nil {
		return ""
	}
	for _, key := range []string{"en", "ja-ro", "ja", "vi"} {
		if v := strings.TrimSpace(values[key]); v != "" {
			return v
		}
	}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
