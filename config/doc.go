// Package config 提供语言服务器的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，
// 并支持对配置文件的轮询重载（用于在运行中调整日志级别）。
package config
