package cli

import (
	"context"
	"errors"
	"flag"

	"github.com/eunmann/ssurgo-agg-db/internal/config"
	"github.com/eunmann/ssurgo-agg-db/pkg/s3publish"
)

func runPublish(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	dest := fs.String("dest", "", "destination S3 URI (s3://bucket/prefix)")
	concurrency := fs.Int("concurrency", 4, "concurrent uploads")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dest == "" {
		return errors.New("-dest is required")
	}
	files := fs.Args()
	if len(files) == 0 {
		return errors.New("at least one artifact file is required")
	}

	client, err := s3publish.NewClient(ctx)
	if err != nil {
		return err
	}

	p := s3publish.NewPublisher(client, s3publish.PublishConfig{
		DestURI:     *dest,
		Concurrency: *concurrency,
	})
	_, err = p.Publish(ctx, files)
	return err
}
