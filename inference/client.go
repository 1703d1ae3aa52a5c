// Package inference 封装对远端文本生 3D / 文本生图推理端点的 HTTP 调用。
//
// 客户端只负责把 HTTP 语义翻译成统一的错误分类与负载类型；
// 模型加载中（503）等可回退错误由上层编排器通过推进到下一策略处理，
// 而不是在此原地重试。
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shapeflow/shapeflow/internal/tlsutil"
	"github.com/shapeflow/shapeflow/types"
)

// PayloadKind 推理响应负载类别
type PayloadKind string

const (
	PayloadMesh  PayloadKind = "mesh"  // 二进制网格（OBJ 等）
	PayloadImage PayloadKind = "image" // 栅格图像，交给 vision 转换
)

// Payload 推理响应的解码产物
type Payload struct {
	Kind        PayloadKind `json:"kind"`
	Data        []byte      `json:"-"`
	ContentType string      `json:"content_type"`
}

// Config 推理客户端配置
type Config struct {
	// 推理端点基地址
	BaseURL string `yaml:"base_url" json:"base_url"`

	// 默认模型标识
	Model string `yaml:"model" json:"model"`

	// 共享兜底凭证：已登录但未配置自有凭证的用户使用
	SharedAPIKey string `yaml:"shared_api_key" json:"shared_api_key"`

	// 单次请求超时
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// 全进程最小请求间隔
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval"`

	// 滚动单日请求上限；超限在发起网络调用前快速失败
	DailyLimit int `yaml:"daily_limit" json:"daily_limit"`
}

// DefaultConfig 返回默认推理配置
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api-inference.huggingface.co",
		Model:       "shap-e",
		Timeout:     30 * time.Second,
		MinInterval: time.Second,
		DailyLimit:  200,
	}
}

// modelEndpoints 模型标识到端点路径的映射
var modelEndpoints = map[string]string{
	"shap-e":           "/models/openai/shap-e",
	"point-e":          "/models/openai/point-e",
	"stable-diffusion": "/models/stabilityai/stable-diffusion-2",
}

// Client 推理客户端。跨调用共享请求间隔限速与单日计数。
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	tok     *promptTokenizer
	logger  *zap.Logger

	mu       sync.Mutex
	dayStart time.Time
	dayCount int
}

// NewClient 创建推理客户端
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.MinInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Client{
		cfg:      cfg,
		client:   tlsutil.SecureHTTPClient(cfg.Timeout),
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		tok:      newPromptTokenizer(),
		logger:   logger.With(zap.String("component", "inference")),
		dayStart: time.Now().Truncate(24 * time.Hour),
	}
}

// Infer 发起一次推理调用。credential 为空时回落到共享兜底凭证。
func (c *Client) Infer(ctx context.Context, prompt string, credential string) (*Payload, error) {
	if err := c.admit(); err != nil {
		return nil, err
	}

	endpoint, ok := modelEndpoints[c.cfg.Model]
	if !ok {
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("unknown model %q", c.cfg.Model))
	}

	token := credential
	if token == "" {
		token = c.cfg.SharedAPIKey
	}
	if token == "" {
		return nil, types.NewError(types.ErrAuthError, "no inference credential available").WithHTTPStatus(http.StatusUnauthorized)
	}

	body, _ := json.Marshal(map[string]string{"inputs": prompt})
	url := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewError(types.ErrNetworkError, "failed to create request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("inference request",
		zap.String("model", c.cfg.Model),
		zap.Int("prompt_tokens", c.tok.estimate(prompt)),
	)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrNetworkError, "inference request failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, types.NewError(types.ErrNetworkError, "failed to read inference response").WithCause(err)
	}

	c.logger.Debug("inference response",
		zap.Int("bytes", len(data)),
		zap.String("content_type", resp.Header.Get("Content-Type")),
		zap.Duration("elapsed", time.Since(start)),
	)

	return decodePayload(resp.Header.Get("Content-Type"), data)
}

// admit 网络调用前的本地准入：请求间隔与单日上限
func (c *Client) admit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 跨天翻转
	today := time.Now().Truncate(24 * time.Hour)
	if today.After(c.dayStart) {
		c.dayStart = today
		c.dayCount = 0
	}
	if c.cfg.DailyLimit > 0 && c.dayCount >= c.cfg.DailyLimit {
		return types.NewError(types.ErrRateLimited,
			fmt.Sprintf("daily inference ceiling of %d requests reached", c.cfg.DailyLimit)).
			WithHTTPStatus(http.StatusTooManyRequests)
	}
	if !c.limiter.Allow() {
		return types.NewError(types.ErrRateLimited, "minimum inter-request spacing not elapsed").
			WithHTTPStatus(http.StatusTooManyRequests).
			WithRetryable(true)
	}
	c.dayCount++
	return nil
}

// classifyStatus HTTP 状态码到错误分类的映射
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.NewError(types.ErrAuthError, "inference endpoint rejected credentials").WithHTTPStatus(status)
	case status == http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimited, "inference endpoint rate limit").WithHTTPStatus(status).WithRetryable(true)
	case status == http.StatusServiceUnavailable:
		return types.NewError(types.ErrModelWarmingUp, "model is loading").WithHTTPStatus(status).WithRetryable(true)
	default:
		return types.NewError(types.ErrNetworkError, fmt.Sprintf("inference endpoint status %d", status)).WithHTTPStatus(status)
	}
}

// decodePayload 按内容类型分派负载：
// 图像 → PayloadImage；JSON → 检查嵌套字段；其余二进制视为网格。
func decodePayload(contentType string, data []byte) (*Payload, error) {
	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return &Payload{Kind: PayloadImage, Data: data, ContentType: mediaType}, nil
	case mediaType == "application/json":
		return decodeJSONPayload(data)
	default:
		if len(data) == 0 {
			return nil, types.NewError(types.ErrParseError, "empty inference payload")
		}
		return &Payload{Kind: PayloadMesh, Data: data, ContentType: mediaType}, nil
	}
}

// jsonPayload 推理端点 JSON 响应的已知嵌套字段
type jsonPayload struct {
	Image  string   `json:"image"`
	Images []string `json:"images"`
	Mesh   string   `json:"mesh"`
	Error  string   `json:"error"`
}

func decodeJSONPayload(data []byte) (*Payload, error) {
	var p jsonPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, types.NewError(types.ErrParseError, "malformed inference json").WithCause(err)
	}

	if p.Error != "" {
		return nil, types.NewError(types.ErrNetworkError, "inference error: "+p.Error)
	}

	if p.Mesh != "" {
		raw, err := base64.StdEncoding.DecodeString(p.Mesh)
		if err != nil {
			return nil, types.NewError(types.ErrParseError, "bad base64 mesh field").WithCause(err)
		}
		return &Payload{Kind: PayloadMesh, Data: raw, ContentType: "model/obj"}, nil
	}

	image := p.Image
	if image == "" && len(p.Images) > 0 {
		image = p.Images[0]
	}
	if image != "" {
		raw, err := base64.StdEncoding.DecodeString(image)
		if err != nil {
			return nil, types.NewError(types.ErrParseError, "bad base64 image field").WithCause(err)
		}
		return &Payload{Kind: PayloadImage, Data: raw, ContentType: "image/png"}, nil
	}

	return nil, types.NewError(types.ErrParseError, "inference json carries no usable payload")
}
