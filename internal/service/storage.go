package service

import (
	"context"
	"io"
)

// AudioStorage abstracts the blob store holding student recordings.
// Implementations must return locators that are stable, globally unique and
// resolvable as absolute URLs.
type AudioStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
	Delete(ctx context.Context, locator string) error
	Exists(ctx context.Context, locator string) (bool, error)
}
