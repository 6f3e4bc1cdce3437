package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// BuildReadinessChecks returns the db and redis readiness checks. Redis is optional, so a nil
// client yields a nil check that the readiness handler skips.
func BuildReadinessChecks(pool Pinger, rdb goredis.UniversalClient) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	dbCheck := func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	if rdb == nil {
		return dbCheck, nil
	}
	redisCheck := func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
	return dbCheck, redisCheck
}
