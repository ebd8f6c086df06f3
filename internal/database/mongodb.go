package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gogotex/gogoblog/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Retry controls ConnectWithRetry.
type Retry struct {
	Attempts int
	Backoff  time.Duration
	// Sleep is replaceable in tests.
	Sleep func(time.Duration)
}

// DefaultRetry tolerates startup races with the database container.
var DefaultRetry = Retry{Attempts: 5, Backoff: time.Second, Sleep: time.Sleep}

// ConnectWithRetry calls connect up to r.Attempts times, doubling the wait
// between attempts. It stops early when ctx is done.
func ConnectWithRetry[T any](ctx context.Context, r Retry, connect func(context.Context) (T, error)) (T, error) {
	if r.Attempts <= 0 {
		r.Attempts = 1
	}
	if r.Sleep == nil {
		r.Sleep = time.Sleep
	}
	backoff := r.Backoff
	var zero T
	var err error
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		var v T
		v, err = connect(ctx)
		if err == nil {
			return v, nil
		}
		logger.Warnf("attempt %d/%d: connect failed: %v", attempt, r.Attempts, err)
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt < r.Attempts {
			r.Sleep(backoff)
			backoff *= 2
		}
	}
	return zero, fmt.Errorf("giving up after %d attempts: %w", r.Attempts, err)
}
