// Copyright (c) ShapeFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 ShapeFlow 引擎的全局共享类型定义。

# 概述

types 是引擎最底层的公共包之一（仅依赖 geometry），为 pipeline、inference、
assets、usage、api 等上层模块提供统一的类型契约，以避免循环依赖。

# 核心类型

  - Prompt           — 归一化后的用户提示词（小写、去空白、分词）
  - GenerationResult — 任一策略产出的可渲染对象，携带来源策略与命中计数
  - StrategyOutcome  — 单次策略尝试的结果（成功 / 失败 / 超时）
  - Animation        — 入场动画元数据（纯装饰，由渲染端调度）
  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码与 Retryable 标记

# 主要能力

  - NormalizePrompt：提示词归一化，生成稳定的缓存键
  - GenerationResult.Clone：深拷贝，保证缓存原件与展示副本互不别名
  - GenerationResult.Dispose：确定性释放几何资源
  - 错误工具链：IsRetryable / GetErrorCode / errors.Is 兼容的 Unwrap
*/
package types
