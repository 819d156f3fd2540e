// Package storage holds uploaded media (avatars, product posters) in an
// S3-compatible object store and hands back public URLs.
package storage

import (
	"context"
	"io"
)

// Object identifies one stored media file. Key is what Destroy needs, URL is
// what clients render.
type Object struct {
	Key string `json:"public_id"`
	URL string `json:"url"`
}

type Storage interface {
	Upload(ctx context.Context, folder, filename string, r io.Reader) (Object, error)
	Destroy(ctx context.Context, key string) error
}
