package utils

import (
	"log"
	"strings"
	"unicode"

	"github.com/anoixa/image-store/config"
)

// SanitizeLogMessage 过滤不可打印字符，防止日志注入
func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == '\n' || r == '\r' {
			sb.WriteRune(' ')
			continue
		}
		if r == '\t' || unicode.IsPrint(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SanitizeLogValue 截断并清洗用户输入
func SanitizeLogValue(value string, max int) string {
	if max > 0 && len(value) > max {
		value = value[:max] + "..."
	}
	return SanitizeLogMessage(value)
}

// LogIfDevf 仅在开发版本输出日志
func LogIfDevf(format string, v ...any) {
	if config.IsDevelopment() {
		log.Printf(format, v...)
	}
}
