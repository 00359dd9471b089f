package auth

import "github.com/hitoshi/mangashelf/internal/model"

// Authorize は呼び出し元のロールが必要ロールのいずれかに含まれるかを判定する。
// requiredが空の場合は常に許可する。
func Authorize(callerRole model.Role, required []model.Role) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if r == callerRole {
			return true
		}
	}
	return false
}

// AuthorizeOwnership は呼び出し元がリソースの所有者または管理者かを判定する。
func AuthorizeOwnership(callerID string, callerRole model.Role, ownerID string) bool {
	if callerRole == model.RoleAdmin {
		return true
	}
	return ownerID != "" && callerID == ownerID
}
