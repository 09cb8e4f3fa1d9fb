package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sigtrap/shaderstrip/internal/observability"
)

// ReadinessCheck reports the report cache usable when Redis answers and
// accepts writes. A replica answers PING but rejects every RPUSH, so the
// node's role is checked too.
func ReadinessCheck(client *redis.Client) observability.Checker {
	return observability.CheckerFunc{
		Component: "redis",
		Fn: func(ctx context.Context) error {
			if client == nil {
				return errors.New("redis client is nil")
			}
			role, err := client.Do(ctx, "ROLE").Slice()
			if err != nil {
				return fmt.Errorf("role: %w", err)
			}
			if len(role) == 0 {
				return errors.New("redis returned an empty ROLE reply")
			}
			if r, _ := role[0].(string); r != "master" {
				return fmt.Errorf("redis node is a %s, reports need a writable primary", r)
			}
			return nil
		},
	}
}
