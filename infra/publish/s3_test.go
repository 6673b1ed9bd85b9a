package publish

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	keys    []string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	f.keys = append(f.keys, key)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Publisher(t *testing.T) {
	fs := &fakeS3{}
	p := NewS3PublisherWithClient(fs, "artifacts", "/parkcast/latest/", nil)
	require.NoError(t, p.Publish(context.Background(), testBundle("run-1")))

	for _, key := range []string{
		"artifacts/parkcast/latest/zone_map.csv",
		"artifacts/parkcast/latest/zone_centroids.json",
		"artifacts/parkcast/latest/bay_forecasts.json",
		"artifacts/parkcast/latest/bay_forecasts/101.json",
		"artifacts/parkcast/latest/bay_forecasts/a_7.json",
		"artifacts/parkcast/latest/run.json",
	} {
		assert.Contains(t, fs.objects, key)
	}
	assert.Equal(t, "text/csv", fs.types["artifacts/parkcast/latest/zone_map.csv"])
	assert.Equal(t, "artifacts/parkcast/latest/run.json", fs.keys[len(fs.keys)-1])
	assert.Contains(t, string(fs.objects["artifacts/parkcast/latest/bay_forecasts.json"]), `"stepHours": 1`)
}

func TestS3Publisher_ZoneOnly(t *testing.T) {
	fs := &fakeS3{}
	p := NewS3PublisherWithClient(fs, "b", "", nil)
	require.NoError(t, p.Publish(context.Background(), zoneOnly(testBundle("run-1"))))
	assert.ElementsMatch(t, []string{"b/zone_map.csv", "b/zone_centroids.json", "b/run.json"}, fs.keys)
}

func TestS3Publisher_Error(t *testing.T) {
	fs := &fakeS3{err: errors.New("denied")}
	p := NewS3PublisherWithClient(fs, "b", "", nil)
	err := p.Publish(context.Background(), testBundle("run-1"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "zone_map.csv")
}
