package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/marco/recofilms/internal/app"
	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/config"
	"github.com/marco/recofilms/internal/logging"
	"github.com/marco/recofilms/internal/storage"
	"github.com/marco/recofilms/internal/watchlater"
)

// session is everything a command needs, built from the global flags.
type session struct {
	cfg     *config.Config
	store   storage.Store
	catalog *catalog.Cached
	app     *app.App
}

func openSession(ctx context.Context, cmd *cli.Command, opts app.Options) (*session, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if v := cmd.String("api-url"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if cmd.Bool("json-logs") {
		cfg.Log.Format = "json"
	}
	logging.Init(cfg.LoggingConfig())

	client := catalog.NewClientWithConfig(cfg.ClientConfig())
	cached := catalog.NewCached(client, cfg.CacheConfig())

	store, err := storage.Open(ctx, cfg.Storage.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	wl, err := watchlater.Open(ctx, storage.NewSlot(store, cfg.Storage.SlotKey), cached)
	if err != nil {
		store.Close()
		return nil, err
	}

	if opts.TopK == 0 {
		opts.TopK = cfg.Recommend.TopK
	}
	if opts.MovieSearchDelay == 0 {
		opts.MovieSearchDelay = cfg.MovieSearchDelay()
	}
	if opts.ActorSearchDelay == 0 {
		opts.ActorSearchDelay = cfg.ActorSearchDelay()
	}

	return &session{
		cfg:     cfg,
		store:   store,
		catalog: cached,
		app:     app.New(ctx, cached, wl, opts),
	}, nil
}

// ready checks the backend and fails with a readable hint when browsing is
// blocked.
func (s *session) ready(ctx context.Context) error {
	state, _ := s.app.Gate.Check(ctx)
	err := state.Err()
	if catalog.IsUnreachable(err) {
		return fmt.Errorf("%w (is the backend running at %s?)", err, s.cfg.API.BaseURL)
	}
	return err
}

func (s *session) Close() error {
	s.app.Close()
	s.app.Wait()
	return s.store.Close()
}

// withSession opens a session for the duration of fn.
func withSession(ctx context.Context, cmd *cli.Command, fn func(*session) error) error {
	s, err := openSession(ctx, cmd, app.Options{})
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
