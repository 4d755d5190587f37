// 版权所有 2024 Schemals Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供语言服务器网络传输与 HTTP 服务器生命周期管理。

# 概述

stdio 之外的传输都在这里：tcp 监听与 websocket 升级都把连接
适配为 io.ReadWriteCloser，交给 ConnHandler（通常是 lsp.Server.ServeConn）。
Manager 封装 net/http.Server，承载 /metrics 端点和 websocket 升级路径。

# 核心类型

  - Manager：HTTP 服务器管理器，提供 Start/Run/Shutdown 生命周期方法。
  - Config：监听地址、请求头超时、空闲超时、优雅关闭超时与可选 TLS。
  - ConnHandler：处理一条双向字节流的回调签名。

# 主要能力

  - ServeTCP：接受 tcp 连接，每条连接一个 goroutine，ctx 结束后等待全部退出。
  - WebSocketHandler：基于 coder/websocket 的 NetConn 适配。
  - WithReadLimit：基于 golang.org/x/time/rate 的每连接入站字节限速，
    一个会话的突发输入不会挤占其他会话。
  - 优雅关闭：Run 在 ctx 结束后于配置的超时内完成请求排空。
*/
package server
