// Package source opens dataset inputs from the local filesystem or from an
// S3 compatible object store.
package source

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Schemes understood by Open
const (
	SchemeFile = "file"
	SchemeS3   = "s3"
)

// ErrEmptyLocation is returned for an empty input location
var ErrEmptyLocation = errors.New("empty input location")

// ErrUnsupportedScheme is returned for a URI scheme other than file or s3
type ErrUnsupportedScheme struct {
	Scheme string
}

func (e ErrUnsupportedScheme) Error() string {
	return fmt.Sprintf("unsupported input scheme: %s", e.Scheme)
}

// Location is a parsed input location
type Location struct {
	Scheme string // "file" or "s3"
	Path   string // Local path, for file locations
	Bucket string // Bucket name, for s3 locations
	Key    string // Object key, for s3 locations
}

// String renders the location back into URI form
func (l Location) String() string {
	if l.Scheme == SchemeS3 {
		return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
	}
	return l.Path
}

// Compressed reports whether the input is gzip compressed, judged by its name
func (l Location) Compressed() bool {
	name := l.Path
	if l.Scheme == SchemeS3 {
		name = l.Key
	}
	return strings.HasSuffix(name, ".gz")
}

// ParseLocation parses a plain path, a file:// URI or an s3://bucket/key URI
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, ErrEmptyLocation
	}

	if !strings.Contains(raw, "://") {
		return Location{Scheme: SchemeFile, Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parsing input location %q: %w", raw, err)
	}

	switch u.Scheme {
	case SchemeFile:
		path := u.Path
		if u.Host != "" {
			// file://relative/path
			path = u.Host + u.Path
		}
		if path == "" {
			return Location{}, ErrEmptyLocation
		}
		return Location{Scheme: SchemeFile, Path: path}, nil
	case SchemeS3:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("s3 location %q needs a bucket and a key", raw)
		}
		return Location{Scheme: SchemeS3, Bucket: u.Host, Key: key}, nil
	default:
		return Location{}, ErrUnsupportedScheme{Scheme: u.Scheme}
	}
}

// S3Config holds the object store settings
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// ObjectGetter is the part of the S3 client that Opener needs
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener opens input locations. The S3 client is created on first use.
type Opener struct {
	s3Config S3Config

	mu     sync.Mutex
	client ObjectGetter
}

// NewOpener creates an Opener using the given object store settings
func NewOpener(cfg S3Config) *Opener {
	return &Opener{s3Config: cfg}
}

// NewOpenerWithClient creates an Opener that reads s3 locations through client
func NewOpenerWithClient(client ObjectGetter) *Opener {
	return &Opener{client: client}
}

// Open returns a reader for the location. Gzip inputs are decompressed.
func (o *Opener) Open(ctx context.Context, raw string) (io.ReadCloser, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}

	var rc io.ReadCloser
	switch loc.Scheme {
	case SchemeS3:
		rc, err = o.openObject(ctx, loc)
	default:
		rc, err = os.Open(loc.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", loc, err)
	}

	if !loc.Compressed() {
		return rc, nil
	}
	zr, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("opening %s: %w", loc, err)
	}
	return &gzipReadCloser{Reader: zr, underlying: rc}, nil
}

func (o *Opener) openObject(ctx context.Context, loc Location) (io.ReadCloser, error) {
	client, err := o.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	return result.Body, nil
}

func (o *Opener) s3Client(ctx context.Context) (ObjectGetter, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.client != nil {
		return o.client, nil
	}
	client, err := NewS3Client(ctx, o.s3Config)
	if err != nil {
		return nil, err
	}
	o.client = client
	return client, nil
}

// NewS3Client builds a path-style S3 client. Static credentials are used when
// an access key is configured, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(cfg.Endpoint))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func (g *gzipReadCloser) Close() error {
	zerr := g.Reader.Close()
	if err := g.underlying.Close(); err != nil {
		return err
	}
	return zerr
}
