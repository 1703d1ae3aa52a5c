// 版权所有 2024 ShapeFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 pipeline 实现多策略生成编排：远端推理 → 预置资产 → 程序化合成。

# 概述

Orchestrator 按固定优先级依次尝试各 GenerationStrategy，每个策略有
独立的截止时间；失败或超时被吸收并记录，随即推进到下一策略。程序化
合成是全函数，保证链条的收尾产出。归一化提示词同时作为结果缓存键与
singleflight 合并键：重复提交命中缓存，重叠提交合并为一次执行。

# 核心类型

  - GenerationStrategy：策略接口，Name + Attempt。
  - Orchestrator：编排器，唯一的缓存写入方。
  - ResultCache：本地 LRU + 可选 Redis 二级的结果缓存。
  - Notifier / Hub：策略尝试进度事件的发布与订阅。

# 并发语义

被放弃尝试的迟到结果一律丢弃并释放；缓存只保存编排器实际等到的
产出。对外交付的永远是缓存原件的深拷贝。
*/
package pipeline
