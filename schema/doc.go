// Package schema 提供 schema 语言文档的权威状态管理。
//
// 本包包含文档调度器（Scheduler）、共享符号索引（Index）以及
// 轻量级的 schema 扫描器。调度器负责每个 URI 的生命周期状态机
// （Unopened → Open → Closed），按顺序应用编辑，并在每次变更后
// 以不可变快照的形式发布文档与索引，读取方永远不会看到部分更新。
package schema
