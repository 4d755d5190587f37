// 版权所有 2024 Schemals Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的语言服务器指标采集能力。

# 概述

Collector 在构造时向调用方提供的 Registerer 注册全部指标（未提供时使用
默认注册表），所有指标按 namespace 隔离。调度器与请求分发器通过
Collector 的方法记录事件，HTTP 暴露由 cmd/schemals 负责。

# 主要指标

  - 请求：按 method/outcome 计数的请求总数与按 method 分组的耗时直方图，
    outcome 取值 succeeded/failed/cancelled/unsupported。
  - 生命周期：按 event/result 计数的 open/change/close 通知，
    result 取值 applied/rejected。
  - 文档：当前打开文档数 Gauge。
  - 消息通道：按 severity 计数的客户端日志消息。
*/
package metrics
