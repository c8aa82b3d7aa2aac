package methods

import (
	"context"
	"errors"

	"github.com/akyaiy/rdata-node/internal/server/registry"
	"github.com/akyaiy/rdata-node/internal/server/rpc"
	"github.com/akyaiy/rdata-node/internal/server/session"
	"github.com/akyaiy/rdata-node/internal/storage"
	"github.com/mitchellh/mapstructure"
)

// KV is the part of the store the kv.* methods need.
type KV interface {
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type keyParams struct {
	Key string `mapstructure:"key"`
}

type setParams struct {
	Key   string `mapstructure:"key"`
	Value any    `mapstructure:"value"`
}

type keysParams struct {
	Prefix string `mapstructure:"prefix"`
}

func decodeParams(params any, target any) error {
	if params == nil {
		return nil
	}
	if err := mapstructure.Decode(params, target); err != nil {
		return rpc.InvalidParams(err.Error())
	}
	return nil
}

func decodeKey(params any) (string, error) {
	var p keyParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if p.Key == "" {
		return "", rpc.InvalidParams("key is required")
	}
	return p.Key, nil
}

func RegisterKV(b *registry.Builder, kv KV) error {
	handlers := map[string]registry.HandlerFunc{
		"kv.get": func(ctx context.Context, _ *session.Client, params any) (any, error) {
			key, err := decodeKey(params)
			if err != nil {
				return nil, err
			}
			v, err := kv.Get(ctx, key)
			if errors.Is(err, storage.ErrNotFound) {
				return nil, nil
			}
			return v, err
		},
		"kv.set": func(ctx context.Context, _ *session.Client, params any) (any, error) {
			var p setParams
			if err := decodeParams(params, &p); err != nil {
				return nil, err
			}
			if p.Key == "" {
				return nil, rpc.InvalidParams("key is required")
			}
			if err := kv.Set(ctx, p.Key, p.Value); err != nil {
				return nil, err
			}
			return true, nil
		},
		"kv.delete": func(ctx context.Context, _ *session.Client, params any) (any, error) {
			key, err := decodeKey(params)
			if err != nil {
				return nil, err
			}
			return kv.Delete(ctx, key)
		},
		"kv.keys": func(ctx context.Context, _ *session.Client, params any) (any, error) {
			var p keysParams
			if err := decodeParams(params, &p); err != nil {
				return nil, err
			}
			return kv.Keys(ctx, p.Prefix)
		},
	}
	for name, h := range handlers {
		if err := b.RegisterFunc(name, h); err != nil {
			return err
		}
	}
	return nil
}
