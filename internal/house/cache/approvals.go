package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Approvals guarda no Redis o resultado de IsGameApproved por tipo de jogo
type Approvals struct {
	R   *redis.Client
	TTL time.Duration
}

func NewApprovals(r *redis.Client, ttl time.Duration) *Approvals { return &Approvals{R: r, TTL: ttl} }

func keyApproval(gameType string) string { return "house:game:approved:" + gameType }

func (c *Approvals) Get(ctx context.Context, gameType string) (approved bool, found bool, err error) {
	v, err := c.R.Get(ctx, keyApproval(gameType)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return v == "1", true, nil
}

func (c *Approvals) Set(ctx context.Context, gameType string, approved bool) error {
	v := "0"
	if approved {
		v = "1"
	}
	return c.R.Set(ctx, keyApproval(gameType), v, c.TTL).Err()
}

func (c *Approvals) Invalidate(ctx context.Context, gameType string) error {
	return c.R.Del(ctx, keyApproval(gameType)).Err()
}
