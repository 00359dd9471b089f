// Package library はブックマーク・閲覧履歴・評価のドメインロジックを提供する。
//
// いずれも (ユーザー, マンガ) の組につき1件のみ存在する。
// マンガキーは内部IDまたは外部カタログIDを受け付け、
// 書き込み時は未登録の外部マンガに対してプレースホルダーを作成する。
package library

import (
	"context"

	"github.com/hitoshi/mangashelf/internal/model"
)

// MangaResolver はマンガキーを内部のマンガに変換する。
type MangaResolver interface {
	Resolve(ctx context.Context, key string, create bool) (*model.Manga, error)
}

// resolveExisting は登録済みのマンガのみを解決する。
// 未登録の場合はnilを返し、呼び出し側が各リソースのNotFoundに変換する。
func resolveExisting(ctx context.Context, resolver MangaResolver, key string) (*model.Manga, error) {
	m, err := resolver.Resolve(ctx, key, false)
	if model.IsCode(err, model.ErrCodeMangaNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}
