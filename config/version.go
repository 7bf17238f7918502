package config

import "fmt"

// 构建时通过 -ldflags 注入
var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

// IsProduction 生产环境：Version 为 "release" 且 CommitHash 不为空
func IsProduction() bool {
	return Version == "release" && CommitHash != ""
}

// IsDevelopment 判断是否为开发环境
func IsDevelopment() bool {
	return Version == "dev"
}

// VersionString 版本摘要
func VersionString() string {
	commit := CommitHash
	if commit == "" {
		commit = "n/a"
	}
	if BuildTime == "" {
		return fmt.Sprintf("%s (%s)", Version, commit)
	}
	return fmt.Sprintf("%s (%s, built %s)", Version, commit, BuildTime)
}
