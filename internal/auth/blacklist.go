package auth

import (
	"context"
	"time"
)

// TokenBlacklist 定义了已吊销 Token 的存储接口。
// Entries expire on their own once the underlying token would have expired.
type TokenBlacklist interface {
	// Add 将 jti 加入黑名单，直到 Token 的原始过期时间点。
	Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error
	// IsBlacklisted 检查 jti 是否在黑名单中。
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}
