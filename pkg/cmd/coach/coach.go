package coach

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/coaching/advisor"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/config"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/delivery"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/ingest"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/reference"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/session"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/sessionstore"
)

const (
	telemetrySubject = "gt3.telemetry"
	advisorySubject  = "gt3.advisory"
)

func NewCoachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coach",
		Short: "runs the coaching pipeline for one session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoach()
		},
	}
	cmd.Flags().StringVar(&config.Track, "track", "", "track key of the session")
	cmd.Flags().StringVar(&config.Car, "car", "", "car key of the session")
	cmd.Flags().StringVar(&config.ReferenceDir, "refs", "./refs",
		"directory containing reference packs")
	cmd.Flags().BoolVar(&config.WatchRefs, "watch-refs", false,
		"reload reference packs on file changes")
	cmd.Flags().StringVar(&config.TelemetryFile, "telemetry-file", "",
		"replay telemetry from this JSON-lines file instead of NATS")
	cmd.Flags().StringVar(&config.CoachingFile, "coaching-config", "",
		"coaching thresholds/cooldowns file (defaults apply when empty)")
	cmd.Flags().StringVar(&config.SessionDB, "session-db", "",
		"sqlite file for session persistence (disabled when empty)")
	cmd.Flags().StringVar(&config.PollInterval, "poll-interval", "500ms",
		"cadence at which the arbiter is polled")
	return cmd
}

//nolint:funlen,cyclop // wiring happens in one place
func runCoach() error {
	logger := setupLogger()
	log.ResetDefault(logger)

	coachingCfg, err := config.LoadCoachingConfig(config.CoachingFile)
	if err != nil {
		return err
	}
	pollInterval, err := time.ParseDuration(config.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid poll interval: %w", err)
	}

	provider, err := reference.NewPackProvider(config.ReferenceDir)
	if err != nil {
		return err
	}
	if config.WatchRefs {
		watcher, err := reference.NewWatcher(provider)
		if err != nil {
			return err
		}
		defer watcher.Close() //nolint:errcheck // shutdown path
	}
	store := reference.NewStore(provider)
	if err := store.SetTrackCar(config.Track, config.Car); err != nil {
		return err
	}

	var conn *nats.Conn
	var publisher *delivery.Publisher
	advisors := []advisor.Advisor{advisor.NewTemplateAdvisor()}
	if config.NatsURL != "" {
		conn, err = nats.Connect(config.NatsURL)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer conn.Close()
		publisher = delivery.NewPublisher(conn)
		advisors = append(advisors, advisor.NewNatsAdvisor(conn, advisorySubject))
	}

	sess := session.NewSession(store, coachingCfg, session.WithAdvisors(advisors...))
	defer sess.Close()
	logger.Info("session started",
		log.String("id", sess.ID()),
		log.String("track", config.Track), log.String("car", config.Car))

	var db *sessionstore.Store
	if config.SessionDB != "" {
		db, err = sessionstore.New(config.SessionDB)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck // shutdown path
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	samples := make(chan model.TelemetrySample, 256)
	ingestErr := make(chan error, 1)
	go func() {
		switch {
		case config.TelemetryFile != "":
			r := ingest.NewFileReader(config.TelemetryFile)
			ingestErr <- r.Run(ctx, samples)
		case conn != nil:
			r := ingest.NewNatsReader(conn, telemetrySubject)
			ingestErr <- r.Run(ctx, samples)
		default:
			ingestErr <- fmt.Errorf("no telemetry source: set --telemetry-file or --nats")
		}
		close(samples)
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	persisted := 0
	drainMessages := func() {
		for {
			msg, ok := sess.Poll()
			if !ok {
				return
			}
			logger.Info("coaching",
				log.String("category", msg.Category),
				log.String("priority", string(msg.Priority)),
				log.String("content", msg.Content))
			if publisher != nil {
				if err := publisher.PublishMessage(sess.ID(), msg); err != nil {
					logger.Warn("publish failed", log.ErrorField(err))
				}
			}
		}
	}
	persistNewRecords := func() {
		if db == nil {
			return
		}
		records := sess.MistakeRecords()
		for ; persisted < len(records); persisted++ {
			if err := db.AppendRecord(sess.ID(), records[persisted]); err != nil {
				logger.Warn("record persist failed", log.ErrorField(err))
			}
		}
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case sample, ok := <-samples:
			if !ok {
				break loop
			}
			sess.Observe(sample)
		case <-ticker.C:
			drainMessages()
			persistNewRecords()
		}
	}
	drainMessages()
	persistNewRecords()

	summary := sess.Summary()
	logger.Info("session summary",
		log.Int("mistakes", summary.TotalMistakes),
		log.Float64("timeLost", summary.TotalTimeLoss),
		log.Float64("score", summary.Score))
	if db != nil {
		if err := db.SaveSummary(summary); err != nil {
			logger.Warn("summary persist failed", log.ErrorField(err))
		}
		if lap, metrics, ok := sess.BestLap(); ok {
			if err := db.SaveBestLap(sess.ID(), lap, metrics); err != nil {
				logger.Warn("best lap persist failed", log.ErrorField(err))
			}
		}
	}
	if publisher != nil {
		if err := publisher.PublishSummary(summary); err != nil {
			logger.Warn("summary publish failed", log.ErrorField(err))
		}
	}

	select {
	case err := <-ingestErr:
		if err != nil && ctx.Err() == nil {
			return err
		}
	default:
	}
	return nil
}

func setupLogger() *log.Logger {
	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger, err := log.New(config.LogFormat, level, config.LogFilter)
	if err != nil {
		return log.Default()
	}
	return logger
}
