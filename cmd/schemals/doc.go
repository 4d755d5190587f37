// Copyright (c) Schemals Authors.
// Licensed under the MIT License.

/*
Package main 提供 schemals 语言服务器的程序入口。

# 概述

cmd/schemals 把 lsp.Server 接到具体传输上，提供 serve、ping、version
三个子命令。程序支持 YAML 配置文件加载、结构化日志（zap）、
Prometheus 指标、OpenTelemetry 追踪以及日志级别热重载。

# 主要能力

  - 传输：stdio（默认）、tcp、websocket，tcp/websocket 可选 TLS
  - 请求执行：查询请求进入 internal/pool 的有界 worker 池
  - Metrics 服务器：独立地址暴露 /metrics（Prometheus）
  - 配置热重载：Reloader 轮询配置文件，变更后调整日志级别
  - 优雅关闭：信号监听 → 取消所有会话 → 关闭 HTTP → 排空 worker → 刷新遥测
  - ping：以 LSP 客户端身份完成握手，打印服务端信息
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
