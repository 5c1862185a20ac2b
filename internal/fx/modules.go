package fx

import (
	"faceit-tracker/internal/api"
	"faceit-tracker/internal/config"
	"faceit-tracker/internal/database"
	"faceit-tracker/internal/fetch"
	"faceit-tracker/internal/logger"
	"faceit-tracker/internal/notify"
	"faceit-tracker/internal/server"
	"faceit-tracker/internal/store"
	"faceit-tracker/internal/tracker"

	"go.uber.org/fx"
)

func provideProvider(f *fetch.Fetcher) tracker.StatsProvider {
	return f
}

func provideStore(s *store.Store) tracker.Store {
	return s
}

func provideSink(d *notify.DiscordWebhook) notify.Sink {
	return d
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(store.New),
	// provider client + retry wrapper
	fx.Provide(api.NewFaceitClient),
	fx.Provide(fetch.NewFetcher),
	// notification sink
	fx.Provide(notify.NewDiscordWebhook),
	// engine
	fx.Provide(tracker.NewRecapScheduler),
	fx.Provide(tracker.NewEngine),
	fx.Provide(tracker.NewLoop),
	// admin surface
	fx.Provide(server.NewAdminServer),
	// interface bindings
	fx.Provide(provideProvider),
	fx.Provide(provideStore),
	fx.Provide(provideSink),
)
