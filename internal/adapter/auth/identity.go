package auth

import (
	"context"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/aiverse-platform/publish-engine/internal/port"
)

type ctxKey struct{}

// WithUserID 把已认证的用户 ID 放入 ctx。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

var _ port.IdentityProvider = ContextIdentity{}

// ContextIdentity 从请求 ctx 读取当前用户，未认证时返回 domain.ErrPermissionDenied。
type ContextIdentity struct{}

func (ContextIdentity) CurrentUserID(ctx context.Context) (string, error) {
	if id, ok := UserIDFrom(ctx); ok {
		return id, nil
	}
	return "", domain.ErrPermissionDenied
}
