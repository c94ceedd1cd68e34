package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
)

const (
	defaultDialTimeout = 5 * time.Second
	// Revocation checks sit on every authenticated request.
	defaultIOTimeout = 500 * time.Millisecond
)

// Config captures the settings for the token blocklist connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds dialing and the initial ping.
	Timeout time.Duration
	// IOTimeout bounds each read and write.
	IOTimeout time.Duration
}

// Connect builds a client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	dial := cfg.Timeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}
	ioTimeout := cfg.IOTimeout
	if ioTimeout <= 0 {
		ioTimeout = defaultIOTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dial,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Pinger reports Redis reachability for the readiness probe.
type Pinger struct {
	client *redis.Client
}

func NewPinger(client *redis.Client) *Pinger {
	return &Pinger{client: client}
}

func (p *Pinger) Name() string { return "redis" }

func (p *Pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// classify maps client errors onto the domain taxonomy. Anything that is not
// a timeout counts as unavailable: a blocklist that cannot answer leaves the
// resolver unable to decide.
func classify(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTimeout, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
	}
}
