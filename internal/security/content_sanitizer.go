// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は利用者が投稿したテキストをサニタイズし、
// 保存済みのコメントやマンガ説明文を通じたXSSを防ぐ。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は投稿テキストのサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// SanitizeComment はコメント本文から全てのHTMLタグを除去したテキストを返す。
	// script, styleタグは中身ごと除去される。前後の空白は取り除く。
	SanitizeComment(raw string) string

	// SanitizeDescription はマンガ説明文をサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, ul, ol, li, strong, em, a）のみを通過させる。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	SanitizeDescription(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	comment     *bluemonday.Policy
	description *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	d := bluemonday.NewPolicy()
	d.AllowElements("p", "br", "ul", "ol", "li", "strong", "em")
	d.AllowAttrs("href").OnElements("a")
	d.AllowStandardURLs()
	d.AllowRelativeURLs(false)
	d.AddTargetBlankToFullyQualifiedLinks(true)
	d.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		comment:     bluemonday.StrictPolicy(),
		description: d,
	}
}

// SanitizeComment はコメント本文から全てのHTMLタグを除去したテキストを返す。
func (s *contentSanitizer) SanitizeComment(raw string) string {
	return strings.TrimSpace(s.comment.Sanitize(raw))
}

// SanitizeDescription はマンガ説明文をサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizeDescription(raw string) string {
	return s.description.Sanitize(raw)
}
