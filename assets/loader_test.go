package assets

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/types"
)

// assetServer 返回固定 OBJ 的测试服务器，并统计请求次数
func assetServer(t *testing.T, hits *atomic.Int64, delay time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}
		// 一个 10x2x4 的细长盒子，用于验证归一化
		_, _ = w.Write([]byte(`
v -5 -1 -2
v 5 -1 -2
v 5 1 -2
v -5 1 -2
v -5 -1 2
v 5 -1 2
v 5 1 2
v -5 1 2
f 1 3 2
f 1 4 3
f 5 6 7
f 5 7 8
f 1 2 6 5
f 4 8 7 3
`))
	}))
}

func newTestLoader(url string) *Loader {
	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.CacheTTL = time.Minute
	return NewLoader(NewDefaultCatalog(), cfg, zap.NewNop())
}

func TestLoader_NormalizesToTargetDimension(t *testing.T) {
	var hits atomic.Int64
	srv := assetServer(t, &hits, 0)
	defer srv.Close()

	l := newTestLoader(srv.URL)
	result, err := l.Load(context.Background(), "vehicle-sedan")
	if err != nil {
		t.Fatal(err)
	}
	if result.Strategy != types.StrategyAsset {
		t.Errorf("strategy = %s", result.Strategy)
	}

	box, ok := result.Object.Bounds()
	if !ok {
		t.Fatal("no bounds")
	}
	// 归一化：最大尺寸 = 3.0，底面落地
	if d := math.Abs(box.MaxDimension() - 3.0); d > 1e-9 {
		t.Errorf("max dimension = %g, want 3.0", box.MaxDimension())
	}
	if math.Abs(box.Min.Y) > 1e-9 {
		t.Errorf("min.Y = %g, want 0", box.Min.Y)
	}
}

func TestLoader_CachesCompletedLoads(t *testing.T) {
	var hits atomic.Int64
	srv := assetServer(t, &hits, 0)
	defer srv.Close()

	l := newTestLoader(srv.URL)
	ctx := context.Background()

	first, err := l.Load(ctx, "animal-dog")
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.Load(ctx, "animal-dog")
	if err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", hits.Load())
	}

	// 独立克隆：修改一份不影响另一份
	first.Object.Mesh.Vertices[0].X = 999
	if second.Object.Mesh.Vertices[0].X == 999 {
		t.Error("cached clones alias the same geometry")
	}

	// 清空缓存后重新拉取
	l.ClearCache()
	if _, err := l.Load(ctx, "animal-dog"); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 upstream fetches after clear, got %d", hits.Load())
	}
}

func TestLoader_CoalescesConcurrentLoads(t *testing.T) {
	var hits atomic.Int64
	srv := assetServer(t, &hits, 50*time.Millisecond)
	defer srv.Close()

	l := newTestLoader(srv.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Load(ctx, "building-house"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if hits.Load() != 1 {
		t.Errorf("concurrent loads issued %d fetches, want 1", hits.Load())
	}
}

func TestLoader_FetchAndParseErrors(t *testing.T) {
	// 404 → FETCH_ERROR
	srv404 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv404.Close()

	l := newTestLoader(srv404.URL)
	_, err := l.Load(context.Background(), "animal-cat")
	if types.GetErrorCode(err) != types.ErrFetchError {
		t.Errorf("code = %s, want FETCH_ERROR", types.GetErrorCode(err))
	}

	// 垃圾响应体 → PARSE_ERROR
	srvBad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not obj data"))
	}))
	defer srvBad.Close()

	l2 := newTestLoader(srvBad.URL)
	_, err = l2.Load(context.Background(), "animal-cat")
	if types.GetErrorCode(err) != types.ErrParseError {
		t.Errorf("code = %s, want PARSE_ERROR", types.GetErrorCode(err))
	}

	// 未知资产标识
	_, err = l2.Load(context.Background(), "no-such-asset")
	if types.GetErrorCode(err) != types.ErrFetchError {
		t.Errorf("code = %s, want FETCH_ERROR", types.GetErrorCode(err))
	}
}

func TestLoader_EvictsOldestWhenFull(t *testing.T) {
	var hits atomic.Int64
	srv := assetServer(t, &hits, 0)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.MaxCacheEntries = 2
	l := NewLoader(NewDefaultCatalog(), cfg, zap.NewNop())
	ctx := context.Background()

	mustLoad := func(id string) {
		t.Helper()
		if _, err := l.Load(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	mustLoad("animal-dog")
	time.Sleep(2 * time.Millisecond)
	mustLoad("animal-cat")
	time.Sleep(2 * time.Millisecond)
	mustLoad("animal-dog") // 刷新 dog 的使用时间
	time.Sleep(2 * time.Millisecond)
	mustLoad("animal-horse") // 容量 2：应淘汰 cat，而非 dog

	before := hits.Load()
	mustLoad("animal-dog") // 仍在缓存
	if hits.Load() != before {
		t.Error("dog should still be cached")
	}
	mustLoad("animal-cat") // 已被淘汰，需要重新拉取
	if hits.Load() != before+1 {
		t.Error("cat should have been evicted")
	}
}

func TestLoader_PrewarmFillsCache(t *testing.T) {
	var hits atomic.Int64
	srv := assetServer(t, &hits, 0)
	defer srv.Close()

	l := newTestLoader(srv.URL)
	l.Prewarm(context.Background(), 4)

	ids := l.catalog.IDs()
	if got := hits.Load(); got != int64(len(ids)) {
		t.Fatalf("expected %d fetches, got %d", len(ids), got)
	}

	// 预热后加载全部命中缓存，不再发起拉取
	hits.Store(0)
	for _, id := range ids {
		if _, err := l.Load(context.Background(), id); err != nil {
			t.Fatalf("load %s after prewarm: %v", id, err)
		}
	}
	if got := hits.Load(); got != 0 {
		t.Fatalf("expected all loads cached, got %d fetches", got)
	}
}

func TestLoader_PrewarmToleratesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := newTestLoader(srv.URL)
	// 不应 panic，也不应阻塞
	l.Prewarm(context.Background(), 2)

	if _, err := l.Load(context.Background(), "animal-dog"); err == nil {
		t.Fatal("expected load to fail against erroring server")
	}
}

func TestLoader_SharedFetchSurvivesCallerCancel(t *testing.T) {
	var hits atomic.Int64
	srv := assetServer(t, &hits, 200*time.Millisecond)
	defer srv.Close()

	l := newTestLoader(srv.URL)

	// 先到的调用方发起共享拉取后立即断开
	ctx1, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := l.Load(ctx1, "vehicle-sedan")
		if err == nil {
			t.Error("cancelled caller should get an error")
		}
	}()

	time.Sleep(50 * time.Millisecond)
	wg.Add(1)
	go func() {
		defer wg.Done()
		// 后到的调用方共享同一在途拉取，不受先行方断开影响
		result, err := l.Load(context.Background(), "vehicle-sedan")
		if err != nil {
			t.Errorf("surviving caller failed: %v", err)
			return
		}
		if result.Object == nil {
			t.Error("expected a decoded object")
		}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	wg.Wait()

	if got := hits.Load(); got != 1 {
		t.Errorf("expected 1 coalesced fetch, got %d", got)
	}
}

func TestLoader_ClearCacheReleasesGeometry(t *testing.T) {
	var hits atomic.Int64
	srv := assetServer(t, &hits, 0)
	defer srv.Close()

	l := newTestLoader(srv.URL)
	clone, err := l.Load(context.Background(), "vehicle-sedan")
	if err != nil {
		t.Fatal(err)
	}

	l.mu.Lock()
	original := l.cache["vehicle-sedan"].result
	l.mu.Unlock()

	l.ClearCache()

	if original.Object.Mesh.Vertices != nil {
		t.Error("cached original should be released on clear")
	}
	if clone.Object.Mesh.Vertices == nil {
		t.Error("delivered clone must stay usable after clear")
	}
}

func TestLoader_EvictionReleasesGeometry(t *testing.T) {
	var hits atomic.Int64
	srv := assetServer(t, &hits, 0)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.MaxCacheEntries = 1
	l := NewLoader(NewDefaultCatalog(), cfg, zap.NewNop())

	if _, err := l.Load(context.Background(), "vehicle-sedan"); err != nil {
		t.Fatal(err)
	}
	l.mu.Lock()
	first := l.cache["vehicle-sedan"].result
	l.mu.Unlock()

	if _, err := l.Load(context.Background(), "animal-dog"); err != nil {
		t.Fatal(err)
	}

	if first.Object.Mesh.Vertices != nil {
		t.Error("evicted entry should be released")
	}
}
