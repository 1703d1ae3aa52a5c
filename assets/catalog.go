// Package assets 实现预置资产目录的解析、拉取、缓存与归一化。
//
// 解析器的"最佳匹配"是有损的关键词启发式（精确 → 子串 → 类别 → 默认），
// 对未预料的提示词可能选中语义无关的资产；这是继承自源系统的既定行为，
// 回退顺序本身即为契约。
package assets

import (
	"sort"
	"strings"

	"github.com/shapeflow/shapeflow/lexicon"
)

// DefaultAssetID 兜底资产标识：解析永不返回"无匹配"
const DefaultAssetID = "primitive-cube"

// CatalogEntry 资产目录条目，只读
type CatalogEntry struct {
	ID       string           `json:"id"`
	Path     string           `json:"path"` // 相对目录端点的文件路径
	Category lexicon.Category `json:"category"`
}

// Catalog 关键词到资产条目的静态目录。构建后只读。
type Catalog struct {
	byKeyword  map[string]CatalogEntry
	byCategory map[lexicon.Category]CatalogEntry
	byID       map[string]CatalogEntry
	defaultID  string
}

// NewDefaultCatalog 构建内置目录
func NewDefaultCatalog() *Catalog {
	entries := map[string]CatalogEntry{
		"car":      {ID: "vehicle-sedan", Path: "models/sedan.obj", Category: lexicon.CategoryVehicle},
		"truck":    {ID: "vehicle-truck", Path: "models/truck.obj", Category: lexicon.CategoryVehicle},
		"bus":      {ID: "vehicle-bus", Path: "models/bus.obj", Category: lexicon.CategoryVehicle},
		"dog":      {ID: "animal-dog", Path: "models/dog.obj", Category: lexicon.CategoryAnimal},
		"cat":      {ID: "animal-cat", Path: "models/cat.obj", Category: lexicon.CategoryAnimal},
		"horse":    {ID: "animal-horse", Path: "models/horse.obj", Category: lexicon.CategoryAnimal},
		"bird":     {ID: "animal-bird", Path: "models/bird.obj", Category: lexicon.CategoryAnimal},
		"house":    {ID: "building-house", Path: "models/house.obj", Category: lexicon.CategoryBuilding},
		"tower":    {ID: "building-tower", Path: "models/tower.obj", Category: lexicon.CategoryBuilding},
		"castle":   {ID: "building-castle", Path: "models/castle.obj", Category: lexicon.CategoryBuilding},
		"chair":    {ID: "furniture-chair", Path: "models/chair.obj", Category: lexicon.CategoryFurniture},
		"table":    {ID: "furniture-table", Path: "models/table.obj", Category: lexicon.CategoryFurniture},
		"sofa":     {ID: "furniture-sofa", Path: "models/sofa.obj", Category: lexicon.CategoryFurniture},
		"tree":     {ID: "nature-tree", Path: "models/tree.obj", Category: lexicon.CategoryAbstract},
		"rocket":   {ID: "vehicle-rocket", Path: "models/rocket.obj", Category: lexicon.CategoryVehicle},
		"robot":    {ID: "abstract-robot", Path: "models/robot.obj", Category: lexicon.CategoryAbstract},
		"statue":   {ID: "abstract-statue", Path: "models/statue.obj", Category: lexicon.CategoryAbstract},
	}

	c := &Catalog{
		byKeyword:  entries,
		byCategory: make(map[lexicon.Category]CatalogEntry),
		byID:       make(map[string]CatalogEntry),
		defaultID:  DefaultAssetID,
	}

	// 每个类别的代表资产：按关键词字典序取第一个，保证确定性
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := entries[k]
		c.byID[e.ID] = e
		if _, ok := c.byCategory[e.Category]; !ok {
			c.byCategory[e.Category] = e
		}
	}
	c.byID[DefaultAssetID] = CatalogEntry{
		ID: DefaultAssetID, Path: "models/cube.obj", Category: lexicon.CategoryAbstract,
	}
	return c
}

// Entry 按资产标识取条目
func (c *Catalog) Entry(id string) (CatalogEntry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// IDs 返回目录内全部资产标识，字典序
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolver 确定性最佳匹配解析器
type Resolver struct {
	catalog *Catalog
	lex     *lexicon.Lexicon
}

// NewResolver 创建解析器
func NewResolver(catalog *Catalog, lex *lexicon.Lexicon) *Resolver {
	return &Resolver{catalog: catalog, lex: lex}
}

// Resolve 解析词序列到资产标识：精确匹配 → 子串匹配 → 类别回退 → 默认资产。
// 永不返回空串。
func (r *Resolver) Resolve(tokens []string) string {
	// 1. 精确匹配
	for _, tok := range tokens {
		if e, ok := r.catalog.byKeyword[tok]; ok {
			return e.ID
		}
	}

	// 2. 子串匹配（双向；短词跳过，避免噪音命中）
	for _, tok := range tokens {
		if len(tok) < 3 {
			continue
		}
		for _, e := range r.sortedKeywordEntries() {
			if strings.Contains(tok, e.keyword) || strings.Contains(e.keyword, tok) {
				return e.entry.ID
			}
		}
	}

	// 3. 类别回退
	if cat := r.lex.DetectCategory(tokens); cat != lexicon.CategoryAbstract {
		if e, ok := r.catalog.byCategory[cat]; ok {
			return e.ID
		}
	}

	// 4. 固定默认
	return r.catalog.defaultID
}

type keywordEntry struct {
	keyword string
	entry   CatalogEntry
}

// sortedKeywordEntries 字典序遍历，保证子串匹配的确定性
func (r *Resolver) sortedKeywordEntries() []keywordEntry {
	keys := make([]string, 0, len(r.catalog.byKeyword))
	for k := range r.catalog.byKeyword {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]keywordEntry, len(keys))
	for i, k := range keys {
		out[i] = keywordEntry{keyword: k, entry: r.catalog.byKeyword[k]}
	}
	return out
}
