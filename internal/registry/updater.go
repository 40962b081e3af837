package registry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

type Fetcher interface {
	FetchSnapshot(ctx context.Context) (*Snapshot, error)
}

type Config struct {
	Interval       time.Duration // base refresh interval
	InitialBackoff time.Duration // initial backoff delay
	MaxBackoff     time.Duration // maximum backoff delay
	Timeout        time.Duration // per-refresh deadline
}

// Start refreshes the holder from src until the context stops.
func Start(ctx context.Context, cfg Config, src Fetcher, holder *Holder, log *zap.Logger) error {
	if cfg.Interval <= 0 {
		return nil // config should already be validated
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 5 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	log = log.Named("refresher")

	// Perform the first refresh immediately on startup
	if err := updateOnce(ctx, cfg.Timeout, src, holder); err != nil {
		log.Warn("initial refresh failed", zap.Error(err))
	} else {
		log.Info("initial refresh succeeded", zap.Int("records", len(holder.Get().Records)))
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	var consecutiveFailures int

	for {
		select {
		case <-ctx.Done():
			log.Info("refresher stopped", zap.Error(ctx.Err()))
			return ctx.Err()

		case <-ticker.C:
			if err := updateOnce(ctx, cfg.Timeout, src, holder); err != nil {
				consecutiveFailures++
				backoff := calcBackoff(cfg.InitialBackoff, cfg.MaxBackoff, consecutiveFailures)

				log.Warn("refresh failed",
					zap.Int("attempt", consecutiveFailures),
					zap.Duration("backoff", backoff),
					zap.Error(err))

				timer := time.NewTimer(backoff)
				select {
				case <-ctx.Done():
					timer.Stop()
					log.Info("refresher stopped during backoff", zap.Error(ctx.Err()))
					return ctx.Err()
				case <-timer.C:
				}
				continue
			}

			if consecutiveFailures > 0 {
				log.Info("refresh recovered", zap.Int("failures", consecutiveFailures))
			}
			consecutiveFailures = 0
		}
	}
}

func calcBackoff(initial, max time.Duration, failures int) time.Duration {
	pow := math.Pow(2, float64(failures-1))
	backoff := time.Duration(float64(initial) * pow)
	if backoff > max {
		backoff = max
	}

	// ±20% jitter
	jitterFrac := 0.2
	jitter := time.Duration(rand.Float64()*2*jitterFrac*float64(backoff)) -
		time.Duration(jitterFrac*float64(backoff))

	return backoff + jitter
}

// updateOnce fetches a snapshot and publishes it.
func updateOnce(ctx context.Context, timeout time.Duration, src Fetcher, holder *Holder) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snap, err := src.FetchSnapshot(ctx)
	if err != nil {
		return err
	}

	holder.Set(snap)
	return nil
}

// Looker resolves a single name; *Client implements it.
type Looker interface {
	Lookup(ctx context.Context, name string) (Record, error)
}

// Watcher builds snapshots of a fixed list of normalized names.
type Watcher struct {
	looker Looker
	names  []string
	now    func() time.Time
}

func NewWatcher(looker Looker, names []string) *Watcher {
	return &Watcher{looker: looker, names: names, now: time.Now}
}

var errAllFailed = errors.New("every watched name failed")

// FetchSnapshot implements Fetcher. Individual failures are kept in
// Snapshot.Failed; the refresh only fails when no name could be resolved.
func (w *Watcher) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Records: make(map[string]Record, len(w.names)),
		Failed:  make(map[string]string),
	}

	var lastErr error
	for _, name := range w.names {
		rec, err := w.looker.Lookup(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			snap.Failed[name] = err.Error()
			lastErr = err
			continue
		}
		snap.Records[name] = rec
	}

	if len(w.names) > 0 && len(snap.Records) == 0 {
		return nil, fmt.Errorf("%w: %w", errAllFailed, lastErr)
	}

	snap.LastUpdated = w.now()
	return snap, nil
}
