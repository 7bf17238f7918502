package storage

import (
	"path/filepath"
	"strings"
)

// IsValidStoragePath 校验存储键是否合法
func IsValidStoragePath(key string) bool {
	if key == "" || len(key) > 1024 {
		return false
	}

	// 不允许绝对路径
	if filepath.IsAbs(key) || strings.HasPrefix(key, "/") {
		return false
	}

	// 防止目录遍历
	if strings.Contains(key, "..") {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." {
			return false
		}
	}

	// 只允许安全字符
	for _, r := range key {
		if (r < 'a' || r > 'z') &&
			(r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') &&
			r != '-' && r != '_' && r != '.' && r != '/' {
			return false
		}
	}

	return true
}
