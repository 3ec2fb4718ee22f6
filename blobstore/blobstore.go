// Package blobstore abstracts the object storage that holds raw uploads
// (documents, images, recordings). Keys follow the
// {projectID}/{entityID}/{filename} convention.
//
// Local is a filesystem-backed implementation used by the server and tests;
// a hosted object store slots in behind the same interface.
package blobstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store is the object-storage surface the pipeline consumes.
type Store interface {
	// Download returns the bytes stored at bucket/path.
	Download(ctx context.Context, bucket, path string) ([]byte, error)

	// Upload stores data at bucket/path, replacing any prior object.
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error

	// Remove deletes the listed paths from bucket. Missing paths are ignored.
	Remove(ctx context.Context, bucket string, paths []string) error

	// SignedURL returns a time-limited URL for direct access to bucket/path.
	SignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error)
}

// Key builds the canonical object key for an entity's file.
func Key(projectID, entityID, filename string) string {
	return projectID + "/" + entityID + "/" + filename
}

// Local is a filesystem-backed Store rooted at a directory. Buckets are
// top-level subdirectories; signed URLs are HMAC tokens over path+expiry.
type Local struct {
	root    string
	baseURL string
	secret  []byte
}

// NewLocal creates a Local store rooted at dir. baseURL prefixes signed URLs
// (e.g. "http://localhost:8085/files"); secret signs them.
func NewLocal(dir, baseURL string, secret []byte) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: mkdir root: %w", err)
	}
	return &Local{
		root:    dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
	}, nil
}

func (l *Local) resolve(bucket, path string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, "/\\") {
		return "", fmt.Errorf("blobstore: invalid bucket %q", bucket)
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("blobstore: invalid path %q", path)
	}
	return filepath.Join(l.root, bucket, clean), nil
}

func (l *Local) Download(_ context.Context, bucket, path string) ([]byte, error) {
	fp, err := l.resolve(bucket, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fp)
	if err != nil {
		return nil, fmt.Errorf("blobstore: download %s/%s: %w", bucket, path, err)
	}
	return data, nil
}

func (l *Local) Upload(_ context.Context, bucket, path string, data []byte, contentType string) error {
	fp, err := l.resolve(bucket, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return fmt.Errorf("blobstore: mkdir: %w", err)
	}
	if err := os.WriteFile(fp, data, 0o644); err != nil {
		return fmt.Errorf("blobstore: upload %s/%s: %w", bucket, path, err)
	}
	// Content type is recorded alongside the object so downloads can echo it.
	if contentType != "" {
		if err := os.WriteFile(fp+".mime", []byte(contentType), 0o644); err != nil {
			return fmt.Errorf("blobstore: record content type: %w", err)
		}
	}
	return nil
}

// ContentType returns the recorded content type for an object, or "".
func (l *Local) ContentType(bucket, path string) string {
	fp, err := l.resolve(bucket, path)
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(fp + ".mime")
	if err != nil {
		return ""
	}
	return string(data)
}

func (l *Local) Remove(_ context.Context, bucket string, paths []string) error {
	var firstErr error
	for _, p := range paths {
		fp, err := l.resolve(bucket, p)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := os.Remove(fp); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("blobstore: remove %s/%s: %w", bucket, p, err)
			}
		}
		os.Remove(fp + ".mime")
	}
	return firstErr
}

func (l *Local) SignedURL(_ context.Context, bucket, path string, ttl time.Duration) (string, error) {
	if _, err := l.resolve(bucket, path); err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	expires := time.Now().Add(ttl).Unix()
	sig := l.sign(bucket, path, expires)
	return fmt.Sprintf("%s/%s/%s?expires=%d&sig=%s", l.baseURL, bucket, path, expires, sig), nil
}

// VerifySignature checks a signed-URL token. Used by the file-serving handler.
func (l *Local) VerifySignature(bucket, path string, expires int64, sig string) bool {
	if time.Now().Unix() > expires {
		return false
	}
	return hmac.Equal([]byte(l.sign(bucket, path, expires)), []byte(sig))
}

func (l *Local) sign(bucket, path string, expires int64) string {
	mac := hmac.New(sha256.New, l.secret)
	mac.Write([]byte(bucket + "\x00" + path + "\x00" + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
