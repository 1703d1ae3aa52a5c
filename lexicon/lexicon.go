// Package lexicon 提供关键词到形状、颜色与语义类别的静态映射表。
// 纯数据，进程启动时构建一次，之后只读。
package lexicon

import "github.com/shapeflow/shapeflow/geometry"

// ShapeKind 基本图元类别
type ShapeKind string

const (
	ShapeBox      ShapeKind = "box"
	ShapeSphere   ShapeKind = "sphere"
	ShapeCylinder ShapeKind = "cylinder"
	ShapeCone     ShapeKind = "cone"
	ShapePyramid  ShapeKind = "pyramid"
	ShapeTorus    ShapeKind = "torus"
)

// Category 语义类别。类别决定程序化合成使用的模板。
type Category string

const (
	CategoryVehicle   Category = "vehicle"
	CategoryAnimal    Category = "animal"
	CategoryBuilding  Category = "building"
	CategoryFurniture Category = "furniture"
	CategoryAbstract  Category = "abstract"
)

// Lexicon 不可变的关键词词典。所有查询都基于小写单词的精确匹配，
// 与源系统一致：不做任何词形还原或语义理解。
type Lexicon struct {
	shapes     map[string]ShapeKind
	colors     map[string]geometry.Color
	categories map[string]Category
}

// NewDefault 构建内置词典
func NewDefault() *Lexicon {
	return &Lexicon{
		shapes: map[string]ShapeKind{
			"cube": ShapeBox, "box": ShapeBox, "block": ShapeBox, "brick": ShapeBox,
			"sphere": ShapeSphere, "ball": ShapeSphere, "orb": ShapeSphere, "globe": ShapeSphere,
			"cylinder": ShapeCylinder, "tube": ShapeCylinder, "can": ShapeCylinder, "barrel": ShapeCylinder,
			"cone": ShapeCone,
			"pyramid": ShapePyramid,
			"torus": ShapeTorus, "ring": ShapeTorus, "donut": ShapeTorus, "doughnut": ShapeTorus,
		},
		colors: map[string]geometry.Color{
			"red":     geometry.MustColorHex("#e74c3c"),
			"green":   geometry.MustColorHex("#2ecc71"),
			"blue":    geometry.MustColorHex("#3498db"),
			"yellow":  geometry.MustColorHex("#f1c40f"),
			"orange":  geometry.MustColorHex("#e67e22"),
			"purple":  geometry.MustColorHex("#9b59b6"),
			"violet":  geometry.MustColorHex("#8e44ad"),
			"pink":    geometry.MustColorHex("#fd79a8"),
			"white":   geometry.MustColorHex("#ecf0f1"),
			"black":   geometry.MustColorHex("#2d3436"),
			"gray":    geometry.MustColorHex("#95a5a6"),
			"grey":    geometry.MustColorHex("#95a5a6"),
			"brown":   geometry.MustColorHex("#8d6e63"),
			"gold":    geometry.MustColorHex("#f9ca24"),
			"golden":  geometry.MustColorHex("#f9ca24"),
			"silver":  geometry.MustColorHex("#bdc3c7"),
			"cyan":    geometry.MustColorHex("#00cec9"),
			"magenta": geometry.MustColorHex("#e84393"),
			"teal":    geometry.MustColorHex("#16a085"),
			"navy":    geometry.MustColorHex("#2c3e50"),
		},
		categories: map[string]Category{
			// 交通工具
			"car": CategoryVehicle, "truck": CategoryVehicle, "bus": CategoryVehicle,
			"vehicle": CategoryVehicle, "van": CategoryVehicle, "jeep": CategoryVehicle,
			"taxi": CategoryVehicle, "racecar": CategoryVehicle, "tank": CategoryVehicle,

			// 动物
			"dog": CategoryAnimal, "cat": CategoryAnimal, "horse": CategoryAnimal,
			"cow": CategoryAnimal, "pig": CategoryAnimal, "sheep": CategoryAnimal,
			"animal": CategoryAnimal, "puppy": CategoryAnimal, "kitten": CategoryAnimal,
			"lion": CategoryAnimal, "tiger": CategoryAnimal, "bear": CategoryAnimal,
			"elephant": CategoryAnimal, "fox": CategoryAnimal, "wolf": CategoryAnimal,

			// 建筑
			"house": CategoryBuilding, "home": CategoryBuilding, "building": CategoryBuilding,
			"tower": CategoryBuilding, "castle": CategoryBuilding, "skyscraper": CategoryBuilding,
			"hut": CategoryBuilding, "cabin": CategoryBuilding, "church": CategoryBuilding,
			"temple": CategoryBuilding, "barn": CategoryBuilding,

			// 家具
			"chair": CategoryFurniture, "table": CategoryFurniture, "desk": CategoryFurniture,
			"sofa": CategoryFurniture, "couch": CategoryFurniture, "bed": CategoryFurniture,
			"shelf": CategoryFurniture, "bench": CategoryFurniture, "stool": CategoryFurniture,

			// 显式抽象
			"abstract": CategoryAbstract, "sculpture": CategoryAbstract, "art": CategoryAbstract,
		},
	}
}

// Shape 查询形状关键词
func (l *Lexicon) Shape(word string) (ShapeKind, bool) {
	k, ok := l.shapes[word]
	return k, ok
}

// Color 查询颜色关键词
func (l *Lexicon) Color(word string) (geometry.Color, bool) {
	c, ok := l.colors[word]
	return c, ok
}

// Category 查询单词的语义类别
func (l *Lexicon) Category(word string) (Category, bool) {
	c, ok := l.categories[word]
	return c, ok
}

// DetectCategory 按词序返回第一个命中的类别，零命中时回落到 abstract
func (l *Lexicon) DetectCategory(tokens []string) Category {
	for _, tok := range tokens {
		if c, ok := l.categories[tok]; ok {
			return c
		}
	}
	return CategoryAbstract
}

// CategoryKeywords 返回归属某类别的全部关键词，供资产目录的类别回退使用
func (l *Lexicon) CategoryKeywords(cat Category) []string {
	var words []string
	for w, c := range l.categories {
		if c == cat {
			words = append(words, w)
		}
	}
	return words
}
