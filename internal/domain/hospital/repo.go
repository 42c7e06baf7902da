package hospital

import (
	"context"
	"errors"
)

// ErrNotFound is returned before the hospital record has been set up.
var ErrNotFound = errors.New("hospital info not set")

// Repository stores the single hospital record.
type Repository interface {
	Get(ctx context.Context) (*Info, error)
	Upsert(ctx context.Context, info *Info) error
}
