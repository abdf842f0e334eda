package redis

import "fmt"

// DefaultScanStream is the outbox stream for scan events.
const DefaultScanStream = "order_video:scan_events"

// RateLimitKey is the sliding-window key for one client within a route scope.
func RateLimitKey(scope, clientIP string) string {
	return fmt.Sprintf("order_video:rate_limit:%s:ip:%s", scope, clientIP)
}
