package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kilianp07/parkcast/core/artifact"
	"github.com/kilianp07/parkcast/core/logger"
	"github.com/kilianp07/parkcast/pkg/export"
)

// ObjectPutter is the subset of the S3 client used by S3Publisher.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads the artifacts under a key prefix. Objects use the
// same names as the file publisher; the manifest is uploaded last.
type S3Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
	log    logger.Logger
}

// NewS3Publisher builds an S3 client from the default AWS configuration.
// A non-empty endpoint targets an S3 compatible store with path-style
// addressing.
func NewS3Publisher(ctx context.Context, bucket, prefix, region, endpoint string, log logger.Logger) (*S3Publisher, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3PublisherWithClient(client, bucket, prefix, log), nil
}

// NewS3PublisherWithClient returns a publisher using client.
func NewS3PublisherWithClient(client ObjectPutter, bucket, prefix string, log logger.Logger) *S3Publisher {
	return &S3Publisher{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), log: logger.OrNop(log)}
}

// Key returns the object key of name.
func (p *S3Publisher) Key(name string) string {
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Publish uploads b.
func (p *S3Publisher) Publish(ctx context.Context, b *artifact.Bundle) error {
	var buf bytes.Buffer
	if err := export.WriteZoneMapCSV(&buf, b.Bays); err != nil {
		return err
	}
	if err := p.put(ctx, ZoneMapFile, "text/csv", &buf); err != nil {
		return err
	}
	buf.Reset()
	if err := export.WriteCentroidsJSON(&buf, b.Centroids); err != nil {
		return err
	}
	if err := p.put(ctx, CentroidsFile, "application/json", &buf); err != nil {
		return err
	}
	objects := 2
	if b.HasForecast() {
		buf.Reset()
		if err := export.WriteCombinedJSON(&buf, b.Forecast.Combined()); err != nil {
			return err
		}
		if err := p.put(ctx, CombinedFile, "application/json", &buf); err != nil {
			return err
		}
		for _, s := range b.Forecast.Series {
			buf.Reset()
			if err := export.WriteSeriesJSON(&buf, s); err != nil {
				return err
			}
			if err := p.put(ctx, SeriesDir+"/"+SafeName(string(s.BayID))+".json", "application/json", &buf); err != nil {
				return err
			}
		}
		objects += 1 + len(b.Forecast.Series)
	}
	m := Manifest{RunID: b.RunID, GeneratedAt: b.GeneratedAt, Bays: len(b.Bays), Zones: len(b.Centroids), Forecast: b.HasForecast()}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := p.put(ctx, ManifestFile, "application/json", bytes.NewReader(data)); err != nil {
		return err
	}
	p.log.Infof("run %s uploaded to s3://%s/%s (%d objects)", b.RunID, p.bucket, p.prefix, objects+1)
	return nil
}

func (p *S3Publisher) put(ctx context.Context, name, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	key := p.Key(name)
	if _, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Close is a no-op.
func (p *S3Publisher) Close() error { return nil }
