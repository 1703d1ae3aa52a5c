// 版权所有 2024 ShapeFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 usage 提供生成请求的用量门控：主体分层、每日配额计数与消费留痕。

# 概述

每个请求携带一个 Principal（匿名或账号，可选自带推理凭证）。门控把
主体映射到层级（仅本地程序化 / 共享凭证受限推理 / 自带凭证不限量），
在任何生成策略运行之前做一次 CheckPermission，成功生成后由调用方
RecordConsumption。两步之间不保证原子性：并发请求可能短暂超出配额，
这是记录在案的取舍。

# 核心类型

  - Gate：许可检查与消费记录的接口。
  - Principal / Tier / Permission：主体、层级与许可结果。
  - RedisGate：Redis 按日计数 + GORM 持久化留痕的实现。
  - Store：GORM 主体档案与消费记录存储。
*/
package usage
