package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/anoixa/image-store/api/common"
)

// CodeUnauthorized 缺少或无效的调用方身份
const CodeUnauthorized = "UNAUTHORIZED"

// IdentityConfig 调用方身份来源
type IdentityConfig struct {
	// JWTSecret 非空时要求 HS256 Bearer token，sub 为用户 ID
	JWTSecret string
	// UserHeader 未配置 JWTSecret 时信任的用户 ID 请求头
	UserHeader string
}

// Identity 解析调用方身份并写入上下文
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	header := cfg.UserHeader
	if header == "" {
		header = "X-User-Id"
	}
	secret := []byte(cfg.JWTSecret)

	return func(c *gin.Context) {
		var (
			userID string
			err    error
		)
		if len(secret) > 0 {
			userID, err = userFromBearer(c.GetHeader("Authorization"), secret)
		} else {
			userID = strings.TrimSpace(c.GetHeader(header))
			if userID == "" {
				err = fmt.Errorf("missing %s header", header)
			}
		}
		if err != nil {
			common.RespondErrorAbort(c, http.StatusUnauthorized, CodeUnauthorized, err.Error())
			return
		}

		c.Set(common.UserIDKey, userID)
		c.Next()
	}
}

func userFromBearer(authHeader string, secret []byte) (string, error) {
	if authHeader == "" {
		return "", errors.New("no Authorization request header")
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errors.New("authorization field format error")
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", errors.New("invalid or expired token")
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("sub not found in token claims")
	}
	return sub, nil
}

// CurrentUserID 读取 Identity 写入的用户 ID
func CurrentUserID(c *gin.Context) string {
	return c.GetString(common.UserIDKey)
}
