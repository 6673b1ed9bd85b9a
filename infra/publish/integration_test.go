package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/parkcast/core/forecast"
	"github.com/kilianp07/parkcast/infra/mqtt"
)

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode")
	}
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
}

func startContainer(t *testing.T, req tc.ContainerRequest) tc.Container {
	t.Helper()
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})
	return container
}

func TestRedisPublisher_Integration(t *testing.T) {
	requireDocker(t)
	ctx := context.Background()
	c := startContainer(t, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	endpoint, err := c.PortEndpoint(ctx, "6379/tcp", "redis")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}

	p, err := NewRedisPublisher(ctx, endpoint+"/0", "parkcast", "parkcast:runs", time.Hour, nil)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	defer func() { _ = p.Close() }()

	opts, _ := redis.ParseURL(endpoint + "/0")
	sub := redis.NewClient(opts)
	defer func() { _ = sub.Close() }()
	ps := sub.Subscribe(ctx, "parkcast:runs")
	defer func() { _ = ps.Close() }()
	if _, err := ps.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := p.Publish(ctx, testBundle("run-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	data, err := sub.Get(ctx, p.BayKey("101")).Bytes()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var s forecast.Series
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.BayID != "101" || len(s.Points) != 2 {
		t.Fatalf("unexpected series %+v", s)
	}
	ttl, err := sub.TTL(ctx, p.Key("forecast:all")).Result()
	if err != nil || ttl <= 0 || ttl > time.Hour {
		t.Fatalf("ttl %v err %v", ttl, err)
	}

	select {
	case msg := <-ps.Channel():
		var n RunNotice
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil || n.RunID != "run-1" {
			t.Fatalf("notice %s err %v", msg.Payload, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no run notice received")
	}
}

func TestPostgresPublisher_Integration(t *testing.T) {
	requireDocker(t)
	ctx := context.Background()
	c := startContainer(t, tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "parkcast",
			"POSTGRES_PASSWORD": "parkcast",
			"POSTGRES_DB":       "parkcast",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	})
	endpoint, err := c.PortEndpoint(ctx, "5432/tcp", "")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	dsn := fmt.Sprintf("postgres://parkcast:parkcast@%s/parkcast?sslmode=disable", endpoint)

	p, err := NewPostgresPublisher(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	defer func() { _ = p.Close() }()

	if err := p.Publish(ctx, testBundle("run-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	b := testBundle("run-2")
	b.Bays = b.Bays[:1]
	b.Forecast.Series = b.Forecast.Series[:1]
	if err := p.Publish(ctx, b); err != nil {
		t.Fatalf("publish again: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()
	for table, want := range map[string]int{"zone_map": 1, "forecast_points": 2, "zone_model": 2, "runs": 2} {
		var n int
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != want {
			t.Fatalf("%s has %d rows, want %d", table, n, want)
		}
	}
	var runID string
	if err := pool.QueryRow(ctx, "SELECT run_id FROM zone_map WHERE bay_id = $1", "101").Scan(&runID); err != nil {
		t.Fatalf("query: %v", err)
	}
	if runID != "run-2" {
		t.Fatalf("run id %s", runID)
	}
}

func TestMQTTPublisher_Integration(t *testing.T) {
	requireDocker(t)
	ctx := context.Background()
	c := startContainer(t, tc.ContainerRequest{
		Image:        "eclipse-mosquitto:1.6",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	})
	endpoint, err := c.PortEndpoint(ctx, "1883/tcp", "tcp")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	// give broker time to fully start
	time.Sleep(500 * time.Millisecond)

	p, err := NewMQTTPublisher(mqtt.Config{Broker: endpoint, QoS: 1}, "parkcast", nil)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	defer func() { _ = p.Close() }()
	if err := p.Publish(ctx, testBundle("run-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	received := make(chan []byte, 1)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(endpoint).SetClientID("sub"))
	if tok := sub.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("connect: %v", tok.Error())
	}
	defer sub.Disconnect(250)
	if tok := sub.Subscribe(p.BayTopic("101"), 1, func(_ paho.Client, m paho.Message) {
		select {
		case received <- m.Payload():
		default:
		}
	}); tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscribe: %v", tok.Error())
	}

	select {
	case data := <-received:
		var s forecast.Series
		if err := json.Unmarshal(data, &s); err != nil || s.BayID != "101" {
			t.Fatalf("retained message %s err %v", data, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("retained forecast not delivered")
	}
}
