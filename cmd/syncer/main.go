package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"flex_reviews/internal/adapters/hostaway"
	"flex_reviews/internal/adapters/observability"
	redisad "flex_reviews/internal/adapters/redis"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/shared"
	"flex_reviews/internal/storage"
)

func main() {
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "syncer", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("base", cfg.HostawayURL).
		Int("workers", cfg.SyncWorkers).
		Int("listings", len(cfg.SyncListingIDs)).
		Str("schedule", cfg.SyncSchedule).
		Msg("syncer starting")

	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	repo, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer closeStore()

	client, err := hostaway.New(cfg.HostawayURL, cfg.HostawayAccountID, cfg.HostawayKey, cfg.HostawayRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Hostaway client")
	}

	// readers in the API see fresh data only if the generation is bumped here too
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}

	svc := app.NewSyncService(client, repo, cache).WithMetrics(observability.SyncMetrics{})
	run := func() { runOnce(ctx, svc, cfg.SyncListingIDs, cfg.SyncWorkers) }

	if cfg.SyncSchedule == "" {
		run()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.SyncSchedule, run); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SyncSchedule).Msg("invalid SYNC_SCHEDULE")
	}
	c.Start()
	log.Info().Str("schedule", cfg.SyncSchedule).Msg("sync scheduled")

	<-ctx.Done()
	// wait for a running sync to finish
	<-c.Stop().Done()
	log.Info().Msg("syncer stopped")
}

// runOnce syncs the whole account, or each configured listing with at most
// workers syncs in flight.
func runOnce(ctx context.Context, svc *app.SyncService, listings []string, workers int) {
	if len(listings) == 0 {
		n, err := svc.Sync(ctx)
		if err != nil {
			log.Error().Err(err).Int("synced", n).Msg("sync failed")
			return
		}
		log.Info().Int("synced", n).Msg("sync completed")
		return
	}

	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for _, id := range listings {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("sync interrupted")
			break
		}
		wg.Add(1)
		go func(listingID string) {
			defer wg.Done()
			defer sem.Release(1)

			n, err := svc.SyncListing(ctx, listingID)
			mu.Lock()
			total += n
			mu.Unlock()
			if err != nil {
				log.Warn().Str("listing", listingID).Int("synced", n).Err(err).Msg("listing sync failed")
				return
			}
			log.Info().Str("listing", listingID).Int("synced", n).Msg("listing sync ok")
		}(id)
	}
	wg.Wait()
	log.Info().Int("synced", total).Int("listings", len(listings)).Msg("sync completed")
}
