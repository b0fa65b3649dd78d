package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/voyago/tripbooking/config"
	"github.com/voyago/tripbooking/internal/domain"
	"github.com/voyago/tripbooking/internal/email"
	"github.com/voyago/tripbooking/internal/itinerary"
	"github.com/voyago/tripbooking/internal/kafka"
	"github.com/voyago/tripbooking/internal/store"
)

func main() {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := itinerary.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}
	log.Info().Msg("migrations applied")

	sessionStore := store.NewRedisStore(cfg.Redis, cfg.Booking.SearchCacheTTL(), log.Logger)
	defer sessionStore.Close()

	filer := itinerary.NewFiler(itinerary.NewRepository(pool), log.Logger)
	itineraryConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ItineraryTopic, log.Logger)
	defer itineraryConsumer.Close()

	go func() {
		err := itineraryConsumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			return filer.File(ctx, msg.Value)
		})
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("itinerary consumer stopped")
		}
	}()

	sender := email.NewSender("", log.Logger)
	notificationsConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, log.Logger)
	defer notificationsConsumer.Close()

	go func() {
		err := notificationsConsumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var b domain.ItineraryBooking
			if err := json.Unmarshal(msg.Value, &b); err != nil {
				log.Error().Err(err).Msg("failed to decode notification")
				return nil
			}
			return sender.SendVoucher(ctx, b)
		})
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("notifications consumer stopped")
		}
	}()

	sweepTicker := time.NewTicker(cfg.Worker.SweepInterval())
	defer sweepTicker.Stop()

	log.Info().Msg("worker started")
	for {
		select {
		case <-sweepTicker.C:
			removed, err := sessionStore.SweepExpiredSessions(ctx, time.Now())
			if err != nil {
				log.Error().Err(err).Msg("session sweep failed")
				continue
			}
			if removed > 0 {
				log.Info().Int("removed", removed).Msg("swept expired sessions")
			}
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		}
	}
}

func setupLogging(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch cfg.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
