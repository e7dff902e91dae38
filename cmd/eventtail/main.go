// Command eventtail follows the map events mirrored to NATS and logs each
// one. With -durable it resumes where it left off after a restart.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/samirrijal/osmmap/internal/adapters/nats"
	"github.com/samirrijal/osmmap/internal/core/domain"
	"github.com/samirrijal/osmmap/internal/pkg/config"
	"github.com/samirrijal/osmmap/internal/pkg/logging"
)

func main() {
	durable := flag.String("durable", "", "durable consumer name; empty follows new events only")
	flag.Parse()

	cfg, err := config.Load("osmmap-eventtail")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	if cfg.NATS.URL == "" {
		log.Error("nats.url is not set (OSMMAP_NATS_URL)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.NATS.Subject, *durable)
	if err != nil {
		log.Error("nats connect failed", "error", err)
		os.Exit(1)
	}
	defer sub.Close()

	err = sub.SubscribeMapEvents(ctx, func(ctx context.Context, ev *domain.Event) error {
		log.Info("map event",
			"seq", ev.Seq,
			"kind", ev.Kind,
			"time", ev.Time,
			"data", ev.Data,
		)
		return nil
	})
	if err != nil {
		log.Error("subscribe failed", "error", err)
		os.Exit(1)
	}

	log.Info("following map events", "subject", cfg.NATS.Subject+".>", "durable", *durable)
	<-ctx.Done()
}
