// 版权所有 2024 ShapeFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的全链路指标采集能力，覆盖
HTTP、生成流水线、远端推理、缓存、用量与数据库六大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 向量指标，按业务域分组管理。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 生成指标：端到端生成总数与耗时、按策略的尝试计数与耗时，
    按 strategy/status 分组。
  - 推理指标：远端推理请求总数、耗时与提示词 Token 用量，
    按 model 分组。
  - 缓存指标：命中与未命中计数，按 cache_type 分组。
  - 用量指标：门控拒绝计数，按 tier 分组。
  - 资产指标：预置资产拉取总数与耗时，按 asset_id 分组。
  - 数据库指标：活跃/空闲连接数 Gauge、查询耗时 Histogram，
    按 database/operation 分组。
*/
package metrics
