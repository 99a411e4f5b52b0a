package cache

import (
	"context"
	"errors"
)

var ErrCacheMiss = errors.New("cache miss")

// カート表示キャッシュ。値はJSONで出し入れする。
type CartViewCache interface {
	Get(ctx context.Context, cartID string, dest any) error
	Set(ctx context.Context, cartID string, value any) error
	Delete(ctx context.Context, cartID string) error
}
