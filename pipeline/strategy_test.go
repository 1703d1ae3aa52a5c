package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/assets"
	"github.com/shapeflow/shapeflow/inference"
	"github.com/shapeflow/shapeflow/internal/ctxkeys"
	"github.com/shapeflow/shapeflow/lexicon"
	"github.com/shapeflow/shapeflow/procedural"
	"github.com/shapeflow/shapeflow/types"
	"github.com/shapeflow/shapeflow/vision"
)

// fakeCaller 可编程的推理调用方
type fakeCaller struct {
	payload    *inference.Payload
	err        error
	credential string
}

func (f *fakeCaller) Infer(ctx context.Context, prompt string, credential string) (*inference.Payload, error) {
	f.credential = credential
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func mustPrompt(t *testing.T, raw string) *types.Prompt {
	t.Helper()
	p, ok := types.NormalizePrompt(raw)
	require.True(t, ok)
	return p
}

func newConverter() *vision.Converter {
	synth := procedural.NewSynthesizer(lexicon.NewDefault(), procedural.DefaultConfig(), zap.NewNop())
	return vision.NewConverter(synth, zap.NewNop())
}

const objTetra = "v 0 0 0\nv 1 0 0\nv 0 1 0\nv 0 0 1\nf 1 2 3\nf 1 2 4\nf 1 3 4\nf 2 3 4\n"

// TestInferenceStrategyMeshPayload 网格负载解码并归一化
func TestInferenceStrategyMeshPayload(t *testing.T) {
	caller := &fakeCaller{payload: &inference.Payload{
		Kind:        inference.PayloadMesh,
		Data:        []byte(objTetra),
		ContentType: "model/obj",
	}}
	s := NewInferenceStrategy(caller, newConverter(), zap.NewNop())

	result, err := s.Attempt(context.Background(), mustPrompt(t, "a crystal"))
	require.NoError(t, err)
	assert.Equal(t, types.StrategyInference, result.Strategy)

	bounds, ok := result.Object.Bounds()
	require.True(t, ok)
	assert.InDelta(t, 3.0, bounds.MaxDimension(), 1e-9)
	assert.InDelta(t, 0.0, bounds.Min.Y, 1e-9)
}

// TestInferenceStrategyImagePayload 图像负载走视觉转换，仍标记为推理产出
func TestInferenceStrategyImagePayload(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 60, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	caller := &fakeCaller{payload: &inference.Payload{
		Kind:        inference.PayloadImage,
		Data:        buf.Bytes(),
		ContentType: "image/png",
	}}
	s := NewInferenceStrategy(caller, newConverter(), zap.NewNop())

	result, err := s.Attempt(context.Background(), mustPrompt(t, "a dog"))
	require.NoError(t, err)
	assert.Equal(t, types.StrategyInference, result.Strategy)
	assert.NotNil(t, result.Object)
}

// TestInferenceStrategyCredentialFromContext 自带凭证经 context 透传
func TestInferenceStrategyCredentialFromContext(t *testing.T) {
	caller := &fakeCaller{payload: &inference.Payload{
		Kind: inference.PayloadMesh,
		Data: []byte(objTetra),
	}}
	s := NewInferenceStrategy(caller, newConverter(), zap.NewNop())

	ctx := ctxkeys.WithInferenceCredential(context.Background(), "own-key")
	_, err := s.Attempt(ctx, mustPrompt(t, "a crystal"))
	require.NoError(t, err)
	assert.Equal(t, "own-key", caller.credential)
}

// TestInferenceStrategyErrorPassthrough 调用错误原样上抛
func TestInferenceStrategyErrorPassthrough(t *testing.T) {
	caller := &fakeCaller{err: types.NewError(types.ErrModelWarmingUp, "loading")}
	s := NewInferenceStrategy(caller, newConverter(), zap.NewNop())

	_, err := s.Attempt(context.Background(), mustPrompt(t, "a crystal"))
	require.Error(t, err)
	assert.Equal(t, types.ErrModelWarmingUp, types.GetErrorCode(err))
}

// TestAssetStrategyResolvesAndLoads 关键词解析到资产并加载
func TestAssetStrategyResolvesAndLoads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(objTetra))
	}))
	defer srv.Close()

	catalog := assets.NewDefaultCatalog()
	cfg := assets.DefaultConfig()
	cfg.BaseURL = srv.URL
	loader := assets.NewLoader(catalog, cfg, zap.NewNop())

	s := NewAssetStrategy(assets.NewResolver(catalog, lexicon.NewDefault()), loader)

	result, err := s.Attempt(context.Background(), mustPrompt(t, "a fast car"))
	require.NoError(t, err)
	assert.Equal(t, types.StrategyAsset, result.Strategy)
}

// TestProceduralStrategyTotal 程序化策略对任意提示词总能产出
func TestProceduralStrategyTotal(t *testing.T) {
	synth := procedural.NewSynthesizer(lexicon.NewDefault(), procedural.DefaultConfig(), zap.NewNop())
	s := NewProceduralStrategy(synth)

	for _, raw := range []string{"a red cube", "qwzx blorp", "vehicle of dreams"} {
		result, err := s.Attempt(context.Background(), mustPrompt(t, raw))
		require.NoError(t, err, raw)
		assert.Equal(t, types.StrategyProcedural, result.Strategy)
	}
}
