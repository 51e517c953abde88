package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jpalmerr/railpulse"
	"github.com/jpalmerr/railpulse/internal/tokenstore"
)

// BuildTokenStore creates the token store selected by token_store.type.
//
// A static store is seeded with cfg.Token. The returned closer releases any
// connection the store holds and is never nil.
func BuildTokenStore(cfg *Config, logger *slog.Logger) (railpulse.TokenStore, io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ts := cfg.TokenStore
	switch ts.Type {
	case TokenStoreStatic:
		return tokenstore.NewStaticStore(cfg.Token), nopCloser{}, nil

	case TokenStoreFile, "":
		path := ts.Path
		if path == "" {
			path = DefaultTokenPath
		}
		fs, err := tokenstore.NewFileStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("token_store: %w", err)
		}
		return fs, nopCloser{}, nil

	case TokenStoreRedis:
		key := ts.Key
		if key == "" {
			key = DefaultRedisKey
		}
		rs, err := tokenstore.NewRedisStore(ts.Addr, ts.Password, ts.DB, key, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("token_store: %w", err)
		}
		return rs, rs, nil

	default:
		return nil, nil, fmt.Errorf("token_store: unknown type %q", ts.Type)
	}
}

// BuildOptions converts a Config into monitor options.
//
// The token store is built with [BuildTokenStore]; the returned closer must
// be closed once the monitor is done with it.
func BuildOptions(cfg *Config, logger *slog.Logger) ([]railpulse.Option, io.Closer, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}

	store, closer, err := BuildTokenStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []railpulse.Option{
		railpulse.WithTokenStore(store),
		railpulse.WithPort(cfg.Port),
		railpulse.WithAPIURL(cfg.APIURL),
		railpulse.WithRequestTimeout(cfg.RequestTimeout.Duration()),
	}
	if cfg.Title != "" {
		opts = append(opts, railpulse.WithTitle(cfg.Title))
	}
	if cfg.Token != "" && cfg.TokenStore.Type != TokenStoreStatic {
		// an explicit token overrides whatever the store holds
		opts = append(opts, railpulse.WithToken(cfg.Token))
	}
	if logger != nil {
		opts = append(opts, railpulse.WithLogger(logger))
	}

	return opts, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
