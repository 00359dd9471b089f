package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// pgUniqueViolation はPostgreSQLの一意制約違反エラーコード。
const pgUniqueViolation = "23505"

// isUniqueViolation はerrが一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

// nullString は空文字をNULLとして扱う。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// checkRowsAffected は更新・削除結果が0件の場合にErrNotFoundを返す。
func checkRowsAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// validUUID はidがUUID形式かを判定する。
// UUID列に不正な文字列を渡すとPostgreSQLが構文エラーを返すため、検索前に弾く。
func validUUID(id string) bool {
	return uuid.Validate(id) == nil
}

// likePattern はILIKE用に特殊文字をエスケープした部分一致パターンを返す。
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// prefixScanner は先頭の列を別の変数に読み込んだ上で残りを委譲するrowScanner。
// JOINした行からエンティティとマンガを同時に読み取るために使う。
type prefixScanner struct {
	row    rowScanner
	prefix []any
}

func (s prefixScanner) Scan(dest ...any) error {
	return s.row.Scan(append(s.prefix, dest...)...)
}
