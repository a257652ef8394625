// Package config 站点配置信息
//
// 每个配置项一个文件，通过 init() 注册到 pkg/config 中。
// Initialize 本身不做事，引入本包即触发各文件的注册。
package config

func Initialize() {
	// 触发本包下各配置文件的 init() 注册
}
