package storage

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// contentETag 为不提供原生 ETag 的后端生成内容摘要
func contentETag(data []byte) string {
	sum := blake2b.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
