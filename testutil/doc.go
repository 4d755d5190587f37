// Copyright 2026 Schemals Authors. All rights reserved.
// Use of this source code is governed by a MIT-style license.

/*
Package testutil 提供 schemals 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual，比较两个值的 JSON 编码
  - 异步断言: AssertEventuallyTrue / AssertNever / WaitFor / WaitForChannel，
    支持超时轮询
  - 位置工具: Pos / Range

# 子包

  - testutil/mocks: RecordingChannel（消息通道）、RecordingPublisher
    （诊断发布）、RecordingRecorder（指标）与可注入错误的 Executor
  - testutil/fixtures: schema 源文本样例

# 使用示例

	ctx := testutil.TestContext(t)
	channel := mocks.NewRecordingChannel()
	testutil.AssertEventuallyTrue(t, func() bool { return channel.Len() == 1 }, time.Second)
*/
package testutil
