package port

import "context"

type CacheRepository interface {
	// SetIdempotency claims key for token, returns false if the key is already held
	SetIdempotency(ctx context.Context, key, token string) (bool, error)

	// ReleaseIdempotency frees key if it is still held by token (for retry after a failed request)
	ReleaseIdempotency(ctx context.Context, key, token string) error
}
