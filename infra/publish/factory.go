package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/parkcast/core/artifact"
	"github.com/kilianp07/parkcast/core/factory"
	"github.com/kilianp07/parkcast/infra/logger"
	"github.com/kilianp07/parkcast/infra/mqtt"
)

// connectTimeout bounds the network handshake of the remote publishers.
const connectTimeout = 10 * time.Second

// init registers built-in publishers.
func init() {
	_ = artifact.RegisterPublisher("file", func(conf map[string]any) (artifact.Publisher, error) {
		var c struct {
			Dir string `json:"dir"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Dir == "" {
			c.Dir = "out"
		}
		return NewFilePublisher(c.Dir, logger.New("publish_file")), nil
	})

	_ = artifact.RegisterPublisher("sqlite", func(conf map[string]any) (artifact.Publisher, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		return NewSQLitePublisher(c.Path, logger.New("publish_sqlite"))
	})

	_ = artifact.RegisterPublisher("postgres", func(conf map[string]any) (artifact.Publisher, error) {
		var c struct {
			DSN string `json:"dsn"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.DSN == "" {
			return nil, fmt.Errorf("postgres dsn is required")
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return NewPostgresPublisher(ctx, c.DSN, logger.New("publish_postgres"))
	})

	_ = artifact.RegisterPublisher("redis", func(conf map[string]any) (artifact.Publisher, error) {
		c := struct {
			URL     string        `json:"url"`
			Prefix  string        `json:"prefix"`
			Channel string        `json:"channel"`
			TTL     time.Duration `json:"ttl"`
		}{Prefix: "parkcast", Channel: "parkcast:runs"}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.URL == "" {
			return nil, fmt.Errorf("redis url is required")
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return NewRedisPublisher(ctx, c.URL, c.Prefix, c.Channel, c.TTL, logger.New("publish_redis"))
	})

	_ = artifact.RegisterPublisher("mqtt", func(conf map[string]any) (artifact.Publisher, error) {
		var c struct {
			mqtt.Config `json:",squash"`
			Prefix      string `json:"prefix"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMQTTPublisher(c.Config, c.Prefix, logger.New("publish_mqtt"))
	})

	_ = artifact.RegisterPublisher("s3", func(conf map[string]any) (artifact.Publisher, error) {
		var c struct {
			Bucket   string `json:"bucket"`
			Prefix   string `json:"prefix"`
			Region   string `json:"region"`
			Endpoint string `json:"endpoint"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return NewS3Publisher(ctx, c.Bucket, c.Prefix, c.Region, c.Endpoint, logger.New("publish_s3"))
	})
}
