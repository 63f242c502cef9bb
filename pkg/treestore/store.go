// Package treestore loads and saves tree documents on the local filesystem
// or in S3.
//
// Documents are addressed by reference: a plain path for the filesystem, or
// s3://bucket/key for an object. Open resolves a reference to a Store and
// the key inside it.
//
//	store, key, err := treestore.Open("s3://trees/home/v2.yaml", cfg.Storage.S3)
//	data, err := store.Get(ctx, key)
package treestore

import (
	"context"
	"errors"
	"strings"

	"github.com/vango-dev/viewdiff/internal/config"
	vderrors "github.com/vango-dev/viewdiff/internal/errors"
	"github.com/vango-dev/viewdiff/pkg/shadow"
	"github.com/vango-dev/viewdiff/pkg/treedoc"
)

// ErrNotFound is returned when a document doesn't exist.
var ErrNotFound = errors.New("treestore: document not found")

// ErrTooLarge is returned when a document exceeds the size limit.
var ErrTooLarge = errors.New("treestore: document too large")

// ErrInvalidKey is returned for keys that escape the store.
var ErrInvalidKey = errors.New("treestore: invalid key")

// DefaultMaxSize bounds documents read by stores created with a zero limit.
const DefaultMaxSize = 16 << 20

// Store is the interface for document storage backends.
type Store interface {
	// Get returns the document stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data under key, replacing any previous document.
	Put(ctx context.Context, key string, data []byte) error

	// List returns the keys that start with prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Ref is a parsed document reference.
type Ref struct {
	// Bucket is set for s3:// references.
	Bucket string
	// Key is the object key, or the file path for local references.
	Key string
}

// IsS3 reports whether the reference names an S3 object.
func (r Ref) IsS3() bool {
	return r.Bucket != ""
}

// String returns the reference in the form ParseRef accepts.
func (r Ref) String() string {
	if r.IsS3() {
		return "s3://" + r.Bucket + "/" + r.Key
	}
	return r.Key
}

// ParseRef parses a file path or an s3://bucket/key reference.
func ParseRef(ref string) (Ref, error) {
	if ref == "" {
		return Ref{}, vderrors.New("E221").WithDetail("empty reference")
	}
	rest, ok := strings.CutPrefix(ref, "s3://")
	if !ok {
		if strings.Contains(ref, "://") {
			return Ref{}, vderrors.New("E221").WithDetailf("unsupported scheme in %q", ref)
		}
		return Ref{Key: ref}, nil
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return Ref{}, vderrors.New("E221").WithDetailf("%q needs a bucket and a key", ref)
	}
	return Ref{Bucket: bucket, Key: key}, nil
}

// Open resolves ref to a store and the key to use with it. File references
// are served by a FileStore rooted at the current directory.
func Open(ref string, cfg config.S3Config) (Store, string, error) {
	r, err := ParseRef(ref)
	if err != nil {
		return nil, "", err
	}
	if !r.IsS3() {
		return NewFileStore("", 0), r.Key, nil
	}
	return NewS3Store(NewS3Client(cfg), r.Bucket, "", 0), r.Key, nil
}

// LoadTree reads and decodes the tree document at ref.
func LoadTree(ctx context.Context, ref string, cfg config.S3Config) (*shadow.Element, error) {
	store, key, err := Open(ref, cfg)
	if err != nil {
		return nil, err
	}
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, storageError(ref, err)
	}
	return treedoc.DecodeFile(key, data)
}

// SaveTree encodes root in the format implied by ref and stores it there.
func SaveTree(ctx context.Context, ref string, cfg config.S3Config, root shadow.Node) error {
	store, key, err := Open(ref, cfg)
	if err != nil {
		return err
	}
	f, err := treedoc.FormatFor(key)
	if err != nil {
		return err
	}
	data, err := treedoc.Encode(root, f)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, key, data); err != nil {
		return storageError(ref, err)
	}
	return nil
}

func storageError(ref string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return vderrors.New("E220").WithDetail(ref).Wrap(err)
	}
	return vderrors.New("E222").WithDetail(ref).Wrap(err)
}
