package assets

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/shapeflow/shapeflow/lexicon"
)

func newTestResolver() *Resolver {
	return NewResolver(NewDefaultCatalog(), lexicon.NewDefault())
}

func TestResolver_ExactMatch(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		tokens []string
		want   string
	}{
		{[]string{"a", "red", "car"}, "vehicle-sedan"},
		{[]string{"cute", "dog"}, "animal-dog"},
		{[]string{"big", "castle"}, "building-castle"},
		{[]string{"wooden", "chair"}, "furniture-chair"},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.tokens); got != tt.want {
			t.Errorf("Resolve(%v) = %q, want %q", tt.tokens, got, tt.want)
		}
	}
}

func TestResolver_SubstringMatch(t *testing.T) {
	r := newTestResolver()

	// "racecar" 包含目录关键词 "car"
	if got := r.Resolve([]string{"racecar"}); got != "vehicle-sedan" {
		t.Errorf("Resolve(racecar) = %q", got)
	}
	// "hous" 是 "house" 的前缀（关键词包含查询词）
	if got := r.Resolve([]string{"hous"}); got != "building-house" {
		t.Errorf("Resolve(hous) = %q", got)
	}
}

func TestResolver_CategoryFallback(t *testing.T) {
	r := newTestResolver()

	// "puppy" 不在目录中，但词典归为 animal 类 → 类别代表资产
	got := r.Resolve([]string{"puppy"})
	if !strings.HasPrefix(got, "animal-") {
		t.Errorf("Resolve(puppy) = %q, want animal-*", got)
	}
}

func TestResolver_DefaultFallback(t *testing.T) {
	r := newTestResolver()

	if got := r.Resolve([]string{"zzz", "qqq"}); got != DefaultAssetID {
		t.Errorf("Resolve(garbage) = %q, want %q", got, DefaultAssetID)
	}
	if got := r.Resolve(nil); got != DefaultAssetID {
		t.Errorf("Resolve(nil) = %q, want %q", got, DefaultAssetID)
	}
}

// 性质：解析永不返回空串，且返回的标识总能在目录中找到条目
func TestProperty_ResolveNeverEmpty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	catalog := NewDefaultCatalog()
	r := NewResolver(catalog, lexicon.NewDefault())

	properties.Property("resolve always yields a catalogued asset", prop.ForAll(
		func(tokens []string) bool {
			id := r.Resolve(tokens)
			if id == "" {
				return false
			}
			_, ok := catalog.Entry(id)
			return ok
		},
		gen.SliceOf(gen.RegexMatch(`[a-z]{0,10}`)),
	))

	// 性质：解析是确定性的
	properties.Property("resolve is deterministic", prop.ForAll(
		func(tokens []string) bool {
			return r.Resolve(tokens) == r.Resolve(tokens)
		},
		gen.SliceOf(gen.RegexMatch(`[a-z]{1,8}`)),
	))

	properties.TestingRun(t)
}

func TestCatalog_EntryLookup(t *testing.T) {
	c := NewDefaultCatalog()

	if _, ok := c.Entry("vehicle-sedan"); !ok {
		t.Error("expected sedan entry")
	}
	if _, ok := c.Entry(DefaultAssetID); !ok {
		t.Error("expected default entry")
	}
	if _, ok := c.Entry("nope"); ok {
		t.Error("unexpected entry")
	}
}
