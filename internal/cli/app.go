package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/me/storefront/internal/apiclient"
	"github.com/me/storefront/internal/auth"
	"github.com/me/storefront/internal/config"
	"github.com/me/storefront/internal/guard"
	"github.com/me/storefront/internal/notify"
	"github.com/me/storefront/internal/store"
	"github.com/me/storefront/internal/tokenstore"
	"github.com/me/storefront/pkg/model"
)

// app holds the components shared by all commands of one invocation.
type app struct {
	cfg    config.ClientConfig
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer

	stores []store.Store
	flash  *notify.Recorder
	tokens *tokenstore.TokenStore
	client *apiclient.Client
	auth   *auth.Service
	table  *guard.Table
	guard  *guard.Guard
}

// wire opens both session scopes and builds the client stack on top.
// Stores opened before a failure are closed again.
func (a *app) wire(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	durable, err := a.openStore(ctx, model.ScopeDurable, a.cfg.DurableBackend)
	if err != nil {
		return fmt.Errorf("open durable session store: %w", err)
	}
	a.stores = append(a.stores, durable)

	ephemeral, err := a.openStore(ctx, model.ScopeEphemeral, a.cfg.EphemeralBackend)
	if err != nil {
		return fmt.Errorf("open terminal session store: %w", err)
	}
	a.stores = append(a.stores, ephemeral)

	a.flash = &notify.Recorder{}
	notifier := notify.Multi(notify.NewWriter(a.errOut), a.flash)

	a.tokens = tokenstore.New(durable, ephemeral,
		tokenstore.WithNotifier(notifier),
		tokenstore.WithLogger(a.logger),
	)
	a.client = apiclient.New(a.cfg.BaseURL, a.tokens,
		apiclient.WithTimeout(a.cfg.Timeout),
		apiclient.WithLogger(a.logger),
		apiclient.WithNotifier(notifier),
	)
	a.auth = auth.NewService(a.client, a.tokens,
		auth.WithNotifier(notifier),
		auth.WithLogger(a.logger),
		auth.WithDefaultTTL(a.cfg.DefaultSessionTTL),
	)

	if err := a.loadTable(); err != nil {
		return err
	}
	a.guard = guard.New(a.auth, guard.WithLogger(a.logger))
	return nil
}

// loadTable loads the configured route table, or the built-in one.
func (a *app) loadTable() error {
	if a.cfg.RoutesFile == "" {
		a.table = guard.DefaultTable()
		return nil
	}
	t, err := guard.LoadTable(a.cfg.RoutesFile)
	if err != nil {
		return err
	}
	a.table = t
	return nil
}

func (a *app) openStore(ctx context.Context, scope model.Scope, backend string) (store.Store, error) {
	switch backend {
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	case config.BackendRedis:
		// Only the durable scope may use redis; config validation enforces it.
		rs, err := store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
			Prefix:   a.cfg.Redis.KeyPrefix + ":" + string(scope),
		}, a.logger)
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		path := a.cfg.DurablePath()
		if scope == model.ScopeEphemeral {
			path = a.cfg.EphemeralPath()
		}
		ss, err := store.OpenSQLiteStore(ctx, path, a.logger)
		if err != nil {
			return nil, err
		}
		return ss, nil
	}
}

func (a *app) close() error {
	var errs []error
	for _, st := range a.stores {
		errs = append(errs, st.Close())
	}
	a.stores = nil
	return errors.Join(errs...)
}
