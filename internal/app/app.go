package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ensname/internal/cache"
	"ensname/internal/config"
	"ensname/internal/domain"
	"ensname/internal/metrics"
	"ensname/internal/names"
	"ensname/internal/registry"
	"ensname/internal/transport/grpc"
	httpgw "ensname/internal/transport/http"
)

// Run builds the service from cfg and serves gRPC and HTTP until ctx is
// canceled or a server fails.
func Run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	enc := domain.NewKeccakEncoder()
	val := domain.NewValidator(cfg.ReservedWords)

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	deps := names.Deps{
		Encoder:   enc,
		Validator: val,
		Cache:     store,
		Observer:  m,
		Logger:    log.Named("names"),
		TLD:       cfg.TLD,
		LookupTTL: cfg.CacheTTL,
		Tx:        registry.NewTxBuilder(common.HexToAddress(cfg.RegistryAddress)),
	}

	var (
		client  *registry.Client
		watcher *registry.Watcher
		holder  *registry.Holder
	)
	if cfg.RPCURL != "" {
		eth, err := registry.Dial(ctx, cfg.RPCURL)
		if err != nil {
			return err
		}
		defer eth.Close()

		client = registry.NewClient(eth, enc, registry.Options{
			Registry:      common.HexToAddress(cfg.RegistryAddress),
			BaseRegistrar: common.HexToAddress(cfg.BaseRegistrarAddress),
			TextKeys:      cfg.TextKeys,
			Limiter:       registry.NewLimiter(cfg.RPCRate, cfg.RPCBurst),
			Observer:      m,
			Logger:        log.Named("registry"),
		})
		deps.Registry = client
		log.Info("registry lookups enabled", zap.String("registry", cfg.RegistryAddress))
	} else {
		log.Info("registry lookups disabled, no rpc_url configured")
	}

	if len(cfg.WatchNames) > 0 {
		if client == nil {
			return fmt.Errorf("watch_names requires rpc_url")
		}
		watched, err := normalizeAll(cfg.WatchNames)
		if err != nil {
			return err
		}
		holder = registry.NewHolder()
		watcher = registry.NewWatcher(client, watched)
		deps.Watched = holder
		m.TrackSnapshotAge(reg, func() time.Time { return holder.Get().LastUpdated })
	}

	svc, err := names.NewService(deps)
	if err != nil {
		return err
	}

	httpOpts := httpgw.Options{
		Logger:   log.Named("http"),
		Observer: m,
		Gatherer: reg,
	}
	if holder != nil {
		httpOpts.Ready = httpgw.SnapshotReady(holder, 3*cfg.UpdateInterval)
	}
	handler, err := httpgw.NewHandler(grpc.NewServer(svc), httpOpts)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if watcher != nil {
		updCfg := registry.Config{
			Interval:       cfg.UpdateInterval,
			InitialBackoff: 5 * time.Second,
			MaxBackoff:     5 * time.Minute,
			Timeout:        time.Minute,
		}
		g.Go(func() error {
			return registry.Start(ctx, updCfg, watcher, holder, log)
		})
	}

	g.Go(func() error {
		return grpc.RunGRPCServer(ctx, cfg.GRPCAddr, svc, log.Named("grpc"), m)
	})

	g.Go(func() error {
		return httpgw.RunHTTPGatewayServer(ctx, cfg.HTTPAddr, handler, log.Named("http"))
	})

	if err := g.Wait(); err != nil {
		log.Error("servers stopped with error", zap.Error(err))
		return err
	}

	log.Info("servers stopped gracefully")
	return nil
}

func newStore(ctx context.Context, cfg config.Config) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case "redis":
		client, err := cache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedis(client, "ensname:"), func() { _ = client.Close() }, nil
	default:
		mem, err := cache.NewMemory(cfg.CacheSize)
		if err != nil {
			return nil, nil, err
		}
		return mem, func() {}, nil
	}
}

func normalizeAll(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		name, err := domain.NormalizeName(r)
		if err != nil {
			return nil, fmt.Errorf("watch_names %q: %w", r, err)
		}
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}
