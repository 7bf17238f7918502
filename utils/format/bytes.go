package format

import (
	"fmt"
)

const byteUnit = 1024

var units = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// HumanReadableSize 将字节数转换为人类可读的格式
func HumanReadableSize(bytes int64) string {
	if bytes < byteUnit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(byteUnit), 0
	for n := bytes / byteUnit; n >= byteUnit && exp < len(units)-2; n /= byteUnit {
		div *= byteUnit
		exp++
	}

	value := float64(bytes) / float64(div)
	if value == float64(int64(value)) {
		return fmt.Sprintf("%d %s", int64(value), units[exp+1])
	}
	return fmt.Sprintf("%.2f %s", value, units[exp+1])
}
