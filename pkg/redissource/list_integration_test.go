//go:build integration

package redissource

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/Sternrassler/pagestream/internal/testutil"
	"github.com/Sternrassler/pagestream/pkg/cache"
	"github.com/Sternrassler/pagestream/pkg/httpsource"
	"github.com/Sternrassler/pagestream/pkg/stream"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		container.Terminate(ctx)
	}

	return client, cleanup
}

func TestListSource_Integration_ReadAndStats(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	src := NewListSource[order](client, "orders")
	want := orders(101)
	if _, err := src.Append(ctx, want...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	s, err := stream.Connect[order](cache.PrefetchConfig(10, 4), src)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	got, err := stream.CollectSlice(ctx, s)
	if err != nil {
		t.Fatalf("CollectSlice() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectSlice() returned %d orders, want %d in order", len(got), len(want))
	}

	stats, err := src.ReadStats(ctx)
	if err != nil {
		t.Fatalf("ReadStats() error = %v", err)
	}
	if stats.Count != 101 || stats.Pages != 11 || stats.PageSize != 10 {
		t.Errorf("ReadStats() = %+v, want count=101 pages=11 page_size=10", stats)
	}
}

// TestMixedSources streams an HTTP endpoint followed by a Redis list and
// groups the result into batches.
func TestMixedSources(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockPager()
	defer mock.Close()
	fromHTTP := mock.SetData("/ids", 17)

	ctx := context.Background()
	list := NewListSource[json.RawMessage](client, "ids")
	for i := 17; i < 30; i++ {
		if _, err := list.Append(ctx, json.RawMessage(mustJSON(t, i))); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	web, err := httpsource.New[json.RawMessage](httpsource.DefaultConfig(mock.URL()+"/ids", "pagestream-it/1.0"))
	if err != nil {
		t.Fatalf("httpsource.New() error = %v", err)
	}

	s, err := stream.Connect[json.RawMessage](cache.Config{PageSize: 5, WindowSize: 2, Concurrency: 1}, web, list)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	batches, err := stream.GroupBy(s, 8, stream.ToSlice[json.RawMessage]())
	if err != nil {
		t.Fatalf("GroupBy() error = %v", err)
	}

	var sizes []int
	var ids []int
	for batch, err := range batches.All(ctx) {
		if err != nil {
			t.Fatalf("batch error = %v", err)
		}
		sizes = append(sizes, len(batch))
		for _, raw := range batch {
			var id int
			if err := json.Unmarshal(raw, &id); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", raw, err)
			}
			ids = append(ids, id)
		}
	}

	if want := []int{8, 8, 8, 6}; !reflect.DeepEqual(sizes, want) {
		t.Errorf("batch sizes = %v, want %v", sizes, want)
	}
	for i, id := range ids {
		if id != i {
			t.Fatalf("ids[%d] = %d, want %d (http part %v)", i, id, i, fromHTTP)
		}
	}
	if len(ids) != 30 {
		t.Errorf("got %d ids, want 30", len(ids))
	}

	stats, err := list.ReadStats(ctx)
	if err != nil {
		t.Fatalf("ReadStats() error = %v", err)
	}
	if stats.Count != 13 {
		t.Errorf("stats.Count = %d, want 13", stats.Count)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return data
}
