package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// BlobStore uploads files and hands out expiring download links served by
// the /files route.
type BlobStore struct {
	files   FileStorage
	signer  *URLSigner
	baseURL string
}

func NewBlobStore(files FileStorage, signer *URLSigner, baseURL string) *BlobStore {
	return &BlobStore{
		files:   files,
		signer:  signer,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (b *BlobStore) Upload(ctx context.Context, path string, r io.Reader) (int64, error) {
	return b.files.Save(ctx, path, r)
}

// SignedURL returns a link to path that stops working at the returned time.
func (b *BlobStore) SignedURL(path string) (string, time.Time, error) {
	token, expires, err := b.signer.Sign(path)
	if err != nil {
		return "", time.Time{}, err
	}
	return fmt.Sprintf("%s/files/%s?token=%s", b.baseURL, escapePath(path), url.QueryEscape(token)), expires, nil
}

func (b *BlobStore) Delete(path string) error {
	return b.files.Delete(path)
}

// Open checks that token grants path and opens it for reading.
func (b *BlobStore) Open(path, token string) (io.ReadCloser, error) {
	granted, err := b.signer.Verify(token)
	if err != nil {
		return nil, err
	}
	if granted != strings.TrimPrefix(path, "/") {
		return nil, ErrInvalidToken
	}
	return b.files.Get(granted)
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
