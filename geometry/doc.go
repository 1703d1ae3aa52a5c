// Copyright (c) ShapeFlow Authors.
// Licensed under the MIT License.

/*
Package geometry 提供 ShapeFlow 引擎的基础三维几何类型。

# 概述

geometry 是引擎最底层的公共包，不依赖任何内部包，为 procedural、assets、
vision、pipeline 等上层模块提供统一的几何契约。所有策略产出的可渲染对象
最终都表达为本包的 Node 树。

# 核心类型

  - Vec3        — 三维向量（加减、缩放、分量最值、欧拉旋转）
  - Color       — RGB 颜色（0-1 分量，HSL 构造，十六进制解析）
  - Material    — 渲染材质（颜色、不透明度、金属度）
  - Mesh        — 三角网格（顶点 + 面索引 + 材质）
  - Node        — 场景对象树（位置/旋转/缩放 + 子节点）
  - BoundingBox — 轴对齐包围盒

# 主要能力

  - 基本图元构造：Box / Sphere / Cylinder / Cone / Pyramid / Torus / Plane
  - 包围盒计算：对整棵 Node 树应用变换后求轴对齐包围盒
  - 资产归一化：NormalizeMaxDimension 统一最大尺寸，RestOnGround 落地
  - 深拷贝：Clone 保证缓存原件与展示副本互不别名
*/
package geometry
