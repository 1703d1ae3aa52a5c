package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	traceIDKey             contextKey = "trace_id"
	requestIDKey           contextKey = "request_id"
	principalIDKey         contextKey = "principal_id"
	inferenceCredentialKey contextKey = "inference_credential"
)

// WithTraceID 设置 TraceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID 获取 TraceID
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithRequestID 设置请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID 获取请求 ID
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithPrincipalID 设置请求主体 ID
func WithPrincipalID(ctx context.Context, principalID string) context.Context {
	return context.WithValue(ctx, principalIDKey, principalID)
}

// PrincipalID 获取请求主体 ID
func PrincipalID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(principalIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithInferenceCredential 设置主体自带的推理凭证（仅请求内传递，从不落盘）
func WithInferenceCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, inferenceCredentialKey, credential)
}

// InferenceCredential 获取主体自带的推理凭证
func InferenceCredential(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(inferenceCredentialKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
