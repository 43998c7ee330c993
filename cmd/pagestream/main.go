// Command pagestream streams the elements of paged HTTP endpoints and Redis
// lists, in configured order, and writes them as JSON batches to stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Sternrassler/pagestream/pkg/httpsource"
	"github.com/Sternrassler/pagestream/pkg/logging"
	"github.com/Sternrassler/pagestream/pkg/metrics"
	"github.com/Sternrassler/pagestream/pkg/redissource"
	"github.com/Sternrassler/pagestream/pkg/source"
	"github.com/Sternrassler/pagestream/pkg/stream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := loadConfig(os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pagestream: %v\n", err)
		os.Exit(2)
	}

	logging.Setup(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("Metrics server failed")
			}
		}()
	}

	if err := run(ctx, cfg, os.Stdout); err != nil {
		log.Error().Err(err).Msg("Stream failed")
		os.Exit(1)
	}
}

// run streams every configured source and writes one JSON array per batch.
func run(ctx context.Context, cfg Config, out io.Writer) error {
	logger := logging.NewLogger("pagestream")

	sources, closeSources, err := openSources(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSources()

	s, err := stream.Connect(cfg.Cache, sources...)
	if err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}

	var batches *stream.Batches[json.RawMessage, []json.RawMessage, []json.RawMessage]
	if cfg.BatchSize == 0 {
		batches, err = stream.GroupByPage(s, stream.ToSlice[json.RawMessage]())
	} else {
		batches, err = stream.GroupBy(s, cfg.BatchSize, stream.ToSlice[json.RawMessage]())
	}
	if err != nil {
		return err
	}

	logger.Info().
		Str("stream_id", s.ID()).
		Int("sources", s.Sources()).
		Int("page_size", cfg.Cache.PageSize).
		Int("window_size", cfg.Cache.WindowSize).
		Int("concurrency", cfg.Cache.Concurrency).
		Int("batch_size", batches.Size()).
		Msg("Streaming")

	enc := json.NewEncoder(out)
	written := 0
	for batch, err := range batches.All(ctx) {
		if err != nil {
			return err
		}
		if err := enc.Encode(batch); err != nil {
			return fmt.Errorf("write batch %d: %w", written, err)
		}
		written++
	}

	logger.Info().
		Int("batches", written).
		Int("elements", s.Position()).
		Msg("Done")
	return nil
}

// openSources builds the HTTP sources followed by the Redis list sources.
func openSources(ctx context.Context, cfg Config) ([]source.Source[json.RawMessage], func(), error) {
	var sources []source.Source[json.RawMessage]
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	for _, url := range cfg.URLs {
		hcfg := httpsource.DefaultConfig(url, cfg.UserAgent)
		src, err := httpsource.New[json.RawMessage](hcfg)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("source %s: %w", url, err)
		}
		closers = append(closers, func() { src.Close() })
		sources = append(sources, src)
	}

	if len(cfg.RedisLists) > 0 {
		redisClient, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { redisClient.Close() })

		if err := redisClient.Ping(ctx).Err(); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Info().Str("component", "pagestream").Msg("Connected to Redis")

		for _, key := range cfg.RedisLists {
			sources = append(sources, redissource.NewListSource[json.RawMessage](redisClient, key))
		}
	}

	return sources, closeAll, nil
}

// newRedisClient accepts a redis:// URL or a plain host:port address.
func newRedisClient(redisURL string) (*redis.Client, error) {
	if !strings.Contains(redisURL, "://") {
		return redis.NewClient(&redis.Options{Addr: redisURL}), nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
