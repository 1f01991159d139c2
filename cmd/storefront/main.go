package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/internal/catalog"
	"github.com/angelmondragon/packfinderz-storefront/internal/cli"
	"github.com/angelmondragon/packfinderz-storefront/internal/localcart"
	"github.com/angelmondragon/packfinderz-storefront/internal/merge"
	"github.com/angelmondragon/packfinderz-storefront/internal/session"
	"github.com/angelmondragon/packfinderz-storefront/pkg/boltstore"
	"github.com/angelmondragon/packfinderz-storefront/pkg/config"
	"github.com/angelmondragon/packfinderz-storefront/pkg/httpclient"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	store, err := boltstore.Open(cfg.State.DBPath())
	if err != nil {
		logg.Error(context.Background(), "failed to open state store", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing state store", err)
		}
	}()

	jar, err := httpclient.NewJar(store, cfg.API.BaseURL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cookie jar", err)
		os.Exit(1)
	}
	httpClient := &http.Client{Timeout: cfg.API.Timeout, Jar: jar}

	sessionStore, err := session.NewStore(store, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create session store", err)
		os.Exit(1)
	}
	markerStore, err := merge.NewMarkerStore(store)
	if err != nil {
		logg.Error(context.Background(), "failed to create merge marker store", err)
		os.Exit(1)
	}

	refresh, err := httpclient.NewRefreshManager(httpclient.RefreshManagerParams{
		Refresh:     httpclient.RefreshRequest(httpClient, cfg.API.BaseURL),
		Logger:      logg,
		MaxAttempts: cfg.Refresh.MaxAttempts,
		BaseDelay:   cfg.Refresh.BaseDelay,
		MaxDelay:    cfg.Refresh.MaxDelay,
		OnSessionExpired: func(ctx context.Context) {
			if err := sessionStore.Delete(ctx); err != nil {
				logg.Warn(ctx, "failed to drop session record after expiry")
			}
			if err := markerStore.Clear(ctx); err != nil {
				logg.Warn(ctx, "failed to drop merge marker after expiry")
			}
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refresh manager", err)
		os.Exit(1)
	}

	client, err := httpclient.New(httpclient.Params{
		BaseURL:    cfg.API.BaseURL,
		Logger:     logg,
		HTTPClient: httpClient,
		Jar:        jar,
		Refresh:    refresh,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create api client", err)
		os.Exit(1)
	}

	localStore, err := localcart.NewStore(store, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create local cart store", err)
		os.Exit(1)
	}
	localCart, err := localcart.NewService(localStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create local cart service", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(client, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	catalogService, err := catalog.NewService(client, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	sessionService, err := session.NewService(session.ServiceParams{
		Client: client,
		Store:  sessionStore,
		Marker: markerStore,
		Jar:    jar,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session service", err)
		os.Exit(1)
	}
	guard, err := merge.NewGuard(merge.GuardParams{
		Local:   localCart,
		Server:  cartService,
		Session: sessionService,
		Marker:  markerStore,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create merge guard", err)
		os.Exit(1)
	}

	app, err := cli.New(cli.Params{
		Logger:  logg,
		Local:   localCart,
		Cart:    cartService,
		Catalog: catalogService,
		Session: sessionService,
		Guard:   guard,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build cli", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Root().ExecuteContext(ctx); err != nil {
		// Cobra already printed the error.
		stop()
		if closeErr := store.Close(); closeErr != nil {
			logg.Error(context.Background(), "error closing state store", closeErr)
		}
		os.Exit(1)
	}
}
