package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/medpredict/internal/cache"
	"github.com/abhisek/medpredict/internal/config"
	"github.com/abhisek/medpredict/internal/diagnosis"
	"github.com/abhisek/medpredict/internal/eventbus"
	"github.com/abhisek/medpredict/internal/store"
)

// env bundles the dependencies a command needs.
type env struct {
	cfg       config.Config
	store     *store.Store
	predictor *diagnosis.Predictor
	closers   []func() error
}

// openEnv opens the store and builds a predictor. Redis and NATS are
// optional: when configured but unreachable, the command continues
// without them.
func openEnv(cmd *cobra.Command) (*env, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	e := &env{cfg: cfg, store: st}
	e.closers = append(e.closers, st.Close)

	opts := []diagnosis.Option{
		diagnosis.WithModelKey(cfg.Model.Key),
		diagnosis.WithHistoryLimit(cfg.Model.HistoryLimit),
		diagnosis.WithRunLog(st.TrainingRunRepo()),
	}

	if cfg.CacheEnabled() {
		rc, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "warning: artifact cache unavailable:", err)
		} else {
			opts = append(opts, diagnosis.WithCache(rc))
			e.closers = append(e.closers, rc.Close)
		}
	}

	if cfg.EventsEnabled() {
		pub, err := eventbus.Connect(eventbus.NATSConfig{URL: cfg.NATS.URL, Subject: cfg.NATS.Subject})
		if err != nil {
			fmt.Fprintln(os.Stderr, "warning: event publishing disabled:", err)
		} else {
			opts = append(opts, diagnosis.WithNotifier(pub))
			e.closers = append(e.closers, pub.Close)
		}
	}

	e.predictor = diagnosis.NewPredictor(st, st.ArtifactRepo(), opts...)
	return e, nil
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			fmt.Fprintln(os.Stderr, "warning: close:", err)
		}
	}
}
