package s3publish

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eunmann/ssurgo-agg-db/internal/logctx"
)

// PublishConfig configures an artifact publish operation.
type PublishConfig struct {
	// DestURI is the s3://bucket/prefix destination. Files land under the
	// prefix keyed by their base name.
	DestURI string
	// Concurrency is the number of parallel uploads (default: 4).
	Concurrency int
}

// Uploaded describes one published artifact.
type Uploaded struct {
	LocalPath string
	URI       string
	Bytes     int64
}

// Publisher uploads a set of local artifact files to a destination prefix.
type Publisher struct {
	client *Client
	cfg    PublishConfig
}

// NewPublisher creates an artifact publisher.
func NewPublisher(client *Client, cfg PublishConfig) *Publisher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Publisher{
		client: client,
		cfg:    cfg,
	}
}

// Publish uploads each file, bounded to the configured concurrency. On any
// failure the remaining uploads are cancelled; already-uploaded objects are
// left in place.
func (p *Publisher) Publish(ctx context.Context, files []string) ([]Uploaded, error) {
	bucket, prefix, err := ParseS3URI(p.cfg.DestURI)
	if err != nil {
		return nil, fmt.Errorf("parse destination URI: %w", err)
	}

	log := logctx.FromContext(ctx).With().Str("phase", "publish").Logger()
	start := time.Now()

	uploaded := make([]Uploaded, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, file := range files {
		g.Go(func() error {
			key := ObjectKey(prefix, file)
			n, err := p.client.PutFile(ctx, bucket, key, file)
			if err != nil {
				return fmt.Errorf("upload %s: %w", file, err)
			}

			mu.Lock()
			uploaded[i] = Uploaded{
				LocalPath: file,
				URI:       fmt.Sprintf("s3://%s/%s", bucket, key),
				Bytes:     n,
			}
			mu.Unlock()

			log.Debug().
				Str("file", file).
				Str("key", key).
				Int64("bytes", n).
				Msg("uploaded artifact")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int64
	for _, u := range uploaded {
		total += u.Bytes
	}
	log.Info().
		Int("files", len(uploaded)).
		Int64("bytes", total).
		Dur("elapsed", time.Since(start)).
		Msg("publish complete")

	return uploaded, nil
}

// ObjectKey joins a destination prefix with a local file's base name.
func ObjectKey(prefix, file string) string {
	base := filepath.Base(file)
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}
