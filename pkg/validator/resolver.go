package validator

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"

	"github.com/boogy/aws-cognito-warden/pkg/cache"
	"github.com/boogy/aws-cognito-warden/pkg/jwks"
	"github.com/boogy/aws-cognito-warden/pkg/types"
)

type KeyResolverInterface interface {
	Resolve(ctx context.Context, kid string, provider types.Provider) (*rsa.PublicKey, error)
}

// KeyResolver serves verification keys from the shared slot and refetches the key set on a miss.
// Concurrent misses may each fetch; the last snapshot stored wins.
type KeyResolver struct {
	Cache   cache.Cache
	Fetcher jwks.Fetcher
}

func NewKeyResolver(c cache.Cache, fetcher jwks.Fetcher) *KeyResolver {
	return &KeyResolver{
		Cache:   c,
		Fetcher: fetcher,
	}
}

func (r *KeyResolver) Resolve(ctx context.Context, kid string, provider types.Provider) (*rsa.PublicKey, error) {
	if snapshot, ok := r.Cache.Load(); ok {
		if key, found := snapshot.Lookup(kid); found {
			return RSAPublicKey(key)
		}
	}

	slog.Debug("Key id not cached, fetching key set", "kid", kid, "provider", provider.String())

	fresh, err := r.Fetcher.Fetch(ctx, provider)
	if err != nil {
		if !errors.Is(err, ErrFetch) {
			err = fmt.Errorf("%w: %w", ErrFetch, err)
		}
		return nil, err
	}

	r.Cache.Store(fresh)

	key, found := fresh.Lookup(kid)
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrMissingKey, kid)
	}
	return RSAPublicKey(key)
}
