package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voyago/tripbooking/api"
	"github.com/voyago/tripbooking/config"
	"github.com/voyago/tripbooking/internal/bootstrap"
	"github.com/voyago/tripbooking/internal/itinerary"
	"github.com/voyago/tripbooking/internal/kafka"
	"github.com/voyago/tripbooking/internal/provider/fallback"
	"github.com/voyago/tripbooking/internal/provider/flightapi"
	"github.com/voyago/tripbooking/internal/provider/hotelapi"
	"github.com/voyago/tripbooking/internal/service/booking"
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

	sessionStore := store.NewRedisStore(cfg.Redis, cfg.Booking.SearchCacheTTL(), log.Logger)
	defer sessionStore.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log.Logger)
	defer producer.Close()
	if err := producer.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("kafka not reachable, itinerary publishing will retry per booking")
	}

	recorder := itinerary.NewKafkaRecorder(producer, cfg.Kafka.ItineraryTopic, cfg.Kafka.NotificationsTopic, log.Logger)

	events := booking.NewEvents(cfg.Booking.EventBuffer)
	go drainEvents(events)

	synth := fallback.NewSynthesizer(cfg.Providers.SynthSeed)

	var flightProvider booking.FlightProvider
	var hotelProvider booking.HotelProvider
	if cfg.Providers.Offline {
		log.Info().Msg("providers offline, running on synthesized inventory")
		flightProvider = fallback.NewFlightGateway(synth)
		hotelProvider = fallback.NewHotelGateway(synth)
	} else {
		flightProvider = flightapi.NewClient(cfg.Providers.Flight.BaseURL, cfg.Providers.Flight.APIKey, cfg.Providers.Flight.Timeout(), log.Logger)
		hotelProvider = hotelapi.NewClient(cfg.Providers.Hotel.BaseURL, cfg.Providers.Hotel.APIKey, cfg.Providers.Hotel.Timeout(), log.Logger)
	}

	ttl := booking.WithTTL(cfg.Booking.SessionTTL())
	flightSessions := booking.NewFlightSessionManager(flightProvider, synth, sessionStore, sessionStore, recorder, events, log.Logger, ttl)
	hotelSessions := booking.NewHotelSessionManager(hotelProvider, synth, sessionStore, sessionStore, recorder, events, log.Logger, ttl)
	combinedSessions := booking.NewCombinedOrchestrator(flightSessions, hotelSessions, sessionStore, events, log.Logger, ttl)

	handlers := bootstrap.Handlers{
		Search:       api.NewSearchHandler(flightSessions, hotelSessions),
		Flights:      api.NewFlightSessionHandler(flightSessions),
		Hotels:       api.NewHotelSessionHandler(hotelSessions),
		Combined:     api.NewCombinedSessionHandler(combinedSessions),
		Reservations: api.NewReservationHandler(flightSessions, hotelSessions),
		Itinerary:    api.NewItineraryHandler(itinerary.NewRepository(pool)),
	}

	if err := bootstrap.Run(ctx, cfg, handlers, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}

func drainEvents(events *booking.Events) {
	for ev := range events.C() {
		log.Info().
			Str("kind", string(ev.Kind)).
			Str("resource", string(ev.Resource)).
			Str("trip_key", ev.TripKey).
			Str("session_id", ev.SessionID).
			Str("ref", ev.Ref).
			Str("err", ev.Err).
			Msg("booking event")
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
