// 版权所有 2024 Schemals Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 lsp 实现 schema 语言服务器的请求编排层。

# 概述

Dispatcher 是所有协议方法的唯一入口：生命周期通知（didOpen/didChange/
didClose）在传输路径上同步送入 schema.Scheduler，保证同一文档的事件
按到达顺序完整生效；查询类请求被包装成 Task，在 goroutine 池中执行
"构造 RequestContext → 调用特性函数" 的流程，并在边界处统一应用
取消与错误隔离策略。

# 核心类型

  - Task / Outcome：单次查询的异步执行单元与三态结果
    （Succeeded / Failed / Cancelled），每个 Task 恰好完成一次。
  - RequestContext：请求级的不可变快照，持有文档与索引的一致视图、
    消息通道和解析后的请求参数。
  - Routines：按能力划分的特性函数集合，每个函数是
    RequestContext 到协议结果的纯函数。
  - MessageChannel：向客户端发送带严重级别的日志消息。
  - Server：基于 go.lsp.dev/jsonrpc2 的连接绑定，负责 $/cancelRequest、
    初始化握手与结果编码。
  - Client：类型化的 jsonrpc2 客户端，用于端到端测试与命令行探测。

# 错误策略

被取消的请求静默结束：不写日志、不返回值。其余失败（包括 panic 与
请求超时）对受保护的方法只产生一条 Error 级别的通道消息并返回该方法的
安全默认值；references、prepareRename、rename 以 JSON-RPC 错误响应，
连接始终保持可用。
*/
package lsp
