// Copyright (c) ShapeFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 ShapeFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 ShapeFlow 所有 HTTP 端点的请求处理逻辑，
包括文本生成 3D、进度事件推送、缓存管理、健康检查以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口，通过 Swagger 注解生成 API 文档。

# 核心类型

  - GenerateHandler  — 文本生成 3D 处理器，串联配额检查、生成编排与计量
  - EventsHandler    — WebSocket 进度事件推送（策略尝试、成功、失败、超时）
  - AdminHandler     — 结果缓存管理（清空本地与 Redis 缓存）
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口（Redis、数据库、推理端点）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - WebSocket 事件流：EventsHandler 实时推送各生成策略的进度
  - 配额联动：生成前检查权限，生成成功后记录消耗
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
