// AngelaMos | 2026
// redis.go

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
)

const maxCASRetries = 16

// Redis stores each license as a JSON string under <prefix>license:<code>
// and tracks codes in the <prefix>licenses set. Updates are optimistic
// WATCH/MULTI compare-and-sets, retried on conflict.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedis(rdb redis.UniversalClient, prefix string) *Redis {
	return &Redis{
		rdb:    rdb,
		prefix: prefix,
		now:    time.Now,
	}
}

func (r *Redis) key(code string) string {
	return r.prefix + "license:" + code
}

func (r *Redis) indexKey() string {
	return r.prefix + "licenses"
}

func (r *Redis) Get(ctx context.Context, code string) (*license.License, error) {
	data, err := r.rdb.Get(ctx, r.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get license: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get license: %w", err)
	}

	return decode(data)
}

// Create sets the value and indexes the code in one MULTI, so a record is
// never stored without being listed. Indexing an existing code is a no-op.
func (r *Redis) Create(ctx context.Context, l *license.License) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("create license: %w", err)
	}

	var created *redis.BoolCmd
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.SetNX(ctx, r.key(l.Code), data, 0)
		pipe.SAdd(ctx, r.indexKey(), l.Code)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create license: %w", err)
	}
	if !created.Val() {
		return fmt.Errorf("create license: %w", core.ErrDuplicateKey)
	}
	return nil
}

func (r *Redis) Put(ctx context.Context, l *license.License) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("put license: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(l.Code), data, 0)
		pipe.SAdd(ctx, r.indexKey(), l.Code)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put license: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, code string) error {
	var removed *redis.IntCmd

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, r.key(code))
		pipe.SRem(ctx, r.indexKey(), code)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete license: %w", err)
	}
	if removed.Val() == 0 {
		return fmt.Errorf("delete license: %w", core.ErrNotFound)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]license.License, error) {
	codes, err := r.rdb.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	if len(codes) == 0 {
		return []license.License{}, nil
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = r.key(code)
	}

	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}

	out := make([]license.License, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		l, err := decode([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("list licenses: %w", err)
		}
		out = append(out, *l)
	}

	sortLicenses(out)
	return out, nil
}

func (r *Redis) AddUsage(
	ctx context.Context,
	code string,
	delta int,
) (*license.License, error) {
	l, _, err := r.update(ctx, code, func(l *license.License) bool {
		l.QuestionsUsed = clampUsage(l.QuestionsUsed + delta)
		l.UpdatedAt = r.now().UTC()
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("add usage: %w", err)
	}
	return l, nil
}

func (r *Redis) MarkActivated(
	ctx context.Context,
	code string,
	at time.Time,
) (*license.License, bool, error) {
	l, stamped, err := r.update(ctx, code, func(l *license.License) bool {
		return l.StampActivation(at)
	})
	if err != nil {
		return nil, false, fmt.Errorf("mark activated: %w", err)
	}
	return l, stamped, nil
}

func (r *Redis) SetStatus(
	ctx context.Context,
	code string,
	status license.RecordStatus,
) (*license.License, bool, error) {
	l, changed, err := r.update(ctx, code, func(l *license.License) bool {
		return l.ChangeStatus(status, r.now())
	})
	if err != nil {
		return nil, false, fmt.Errorf("set status: %w", err)
	}
	return l, changed, nil
}

// update is an optimistic WATCH/MULTI read-modify-write of one record,
// retried when another writer touches the key first. fn reports whether it
// changed the record; unchanged records are not written.
func (r *Redis) update(
	ctx context.Context,
	code string,
	fn func(l *license.License) bool,
) (*license.License, bool, error) {
	key := r.key(code)

	var (
		updated *license.License
		changed bool
	)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return core.ErrNotFound
		}
		if err != nil {
			return err
		}

		l, err := decode(data)
		if err != nil {
			return err
		}

		if !fn(l) {
			updated, changed = l, false
			return nil
		}

		out, err := json.Marshal(l)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}

		updated, changed = l, true
		return nil
	}

	for range maxCASRetries {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return updated, changed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, false, err
	}

	return nil, false, fmt.Errorf("too much contention on %s: %w",
		code, core.ErrConflict)
}

func decode(data []byte) (*license.License, error) {
	var l license.License
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode license: %w", err)
	}
	return &l, nil
}
