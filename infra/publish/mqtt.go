package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kilianp07/parkcast/core/artifact"
	"github.com/kilianp07/parkcast/core/logger"
	"github.com/kilianp07/parkcast/infra/mqtt"
)

// MessageClient publishes raw MQTT messages.
type MessageClient interface {
	Publish(ctx context.Context, topic string, retained bool, payload []byte) error
	Disconnect()
}

// MQTTPublisher sends each bay's forecast as a retained message on
// <prefix>/bays/<id>/forecast, the centroids on <prefix>/zones/centroids
// and a RunNotice on <prefix>/runs.
type MQTTPublisher struct {
	client MessageClient
	prefix string
	log    logger.Logger
}

// NewMQTTPublisher connects with the Paho client.
func NewMQTTPublisher(cfg mqtt.Config, prefix string, log logger.Logger) (*MQTTPublisher, error) {
	cli, err := mqtt.NewPahoClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return NewMQTTPublisherWithClient(cli, prefix, log), nil
}

// NewMQTTPublisherWithClient returns a publisher using cli.
func NewMQTTPublisherWithClient(cli MessageClient, prefix string, log logger.Logger) *MQTTPublisher {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = "parkcast"
	}
	return &MQTTPublisher{client: cli, prefix: prefix, log: logger.OrNop(log)}
}

// BayTopic returns the forecast topic of a bay.
func (p *MQTTPublisher) BayTopic(id string) string {
	return p.prefix + "/bays/" + topicLevel(id) + "/forecast"
}

// Publish sends the run's messages. The run notice goes last.
func (p *MQTTPublisher) Publish(ctx context.Context, b *artifact.Bundle) error {
	if err := p.send(ctx, p.prefix+"/zones/centroids", true, b.Centroids); err != nil {
		return err
	}
	if b.HasForecast() {
		for _, s := range b.Forecast.Series {
			if err := p.send(ctx, p.BayTopic(string(s.BayID)), true, s); err != nil {
				return err
			}
		}
	}
	notice := RunNotice{
		RunID:       b.RunID,
		GeneratedAt: b.GeneratedAt,
		Bays:        len(b.Bays),
		Zones:       len(b.Centroids),
		Forecast:    b.HasForecast(),
	}
	if err := p.send(ctx, p.prefix+"/runs", false, notice); err != nil {
		return err
	}
	p.log.Infof("run %s published on %s", b.RunID, p.prefix)
	return nil
}

func (p *MQTTPublisher) send(ctx context.Context, topic string, retained bool, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	return p.client.Publish(ctx, topic, retained, data)
}

// Close disconnects the client.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect()
	return nil
}

// topicLevel replaces the MQTT separators and wildcards in a topic level.
func topicLevel(s string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
