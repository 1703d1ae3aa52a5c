package usage

import "context"

type contextKey struct{}

var principalKey contextKey

// WithPrincipal 将主体写入上下文，由认证中间件调用。
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext 读取上下文中的主体。
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
