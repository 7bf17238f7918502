package core

import (
	"context"
	"sort"
	"time"
)

// healthTimeout 单项健康检查超时
const healthTimeout = 3 * time.Second

// HealthCheck 单项健康检查
type HealthCheck func(ctx context.Context) error

// runHealthChecks 依次执行检查，返回各项结果与整体是否健康
func runHealthChecks(ctx context.Context, checks map[string]HealthCheck) (map[string]string, bool) {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(checks))
	healthy := true
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, healthTimeout)
		err := checks[name](checkCtx)
		cancel()
		if err != nil {
			results[name] = "unavailable: " + err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}
	return results, healthy
}
