package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// RedisLedger keeps one integer key per product. Deductions run in a
// WATCH/MULTI transaction over the product keys, so a concurrent change
// aborts the transaction instead of overselling.
type RedisLedger struct {
	Redis *redis.Client
}

func (l *RedisLedger) Get(ctx context.Context, codes []string) (map[string]int, error) {
	return readStock(ctx, l.Redis, codes)
}

func (l *RedisLedger) CompareAndDeduct(ctx context.Context, observed, requested map[string]int) (bool, error) {
	codes := sortedCodes(requested)
	if len(codes) == 0 {
		return true, nil
	}
	keys := redisx.StockKeys(codes)

	err := l.Redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readStock(ctx, tx, codes)
		if err != nil {
			return err
		}
		for _, c := range codes {
			if current[c] != observed[c] {
				return redis.TxFailedErr
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, c := range codes {
				pipe.DecrBy(ctx, redisx.StockKey(c), int64(requested[c]))
			}
			return nil
		})
		return err
	}, keys...)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("redis deduct: %w", err)
	}
}

func (l *RedisLedger) Seed(ctx context.Context, stock map[string]int) error {
	_, err := l.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for code, qty := range stock {
			pipe.Set(ctx, redisx.StockKey(code), qty, 0)
			pipe.SAdd(ctx, redisx.KeyStockCodes, code)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis seed: %w", err)
	}
	return nil
}

func (l *RedisLedger) Snapshot(ctx context.Context) (map[string]int, error) {
	codes, err := l.Redis.SMembers(ctx, redisx.KeyStockCodes).Result()
	if err != nil {
		return nil, fmt.Errorf("redis snapshot: %w", err)
	}
	return readStock(ctx, l.Redis, codes)
}

func readStock(ctx context.Context, c redis.Cmdable, codes []string) (map[string]int, error) {
	out := make(map[string]int, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	vals, err := c.MGet(ctx, redisx.StockKeys(codes)...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read stock: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			out[codes[i]] = 0
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("stock %s: %w", codes[i], err)
		}
		out[codes[i]] = n
	}
	return out, nil
}

func sortedCodes(m map[string]int) []string {
	codes := make([]string, 0, len(m))
	for c := range m {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
