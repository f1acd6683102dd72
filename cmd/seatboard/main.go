package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ymurata/seatboard/internal/app"
	"github.com/ymurata/seatboard/internal/config"
	"github.com/ymurata/seatboard/internal/dashboard"
	"github.com/ymurata/seatboard/internal/logger"
	"github.com/ymurata/seatboard/pkg/redmine"
	"github.com/ymurata/seatboard/web"
)

func main() {
	logLevel := flag.String("loglevel", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	watch := flag.Bool("watch", false, "Log seat highlight changes to the console")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	appLog := logger.NewWithLevel(logger.ParseLevel(level))

	client := redmine.NewHTTPClient(cfg.RedmineURL, cfg.APIKey, appLog)

	a, err := app.New(appLog, cfg, client, web.GetTemplatesFS(), web.GetStaticFS())
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	appLog.Info("Redmine upstream", "url", cfg.RedmineURL,
		"tracker_id", cfg.TrackerID,
		"pending_status_id", cfg.PendingStatusID,
		"approved_status_id", cfg.ApprovedStatusID)

	if *watch {
		go watchHighlights(appLog, fmt.Sprintf("http://localhost:%d", cfg.Port), cfg.UpdateInterval)
	}

	if err := a.Run(addr); err != nil {
		log.Fatal(err)
	}
}

// watchHighlights runs the dashboard poller against the local server and
// logs every change to the set of highlighted seats.
func watchHighlights(appLog logger.Logger, baseURL string, interval time.Duration) {
	// Let the HTTP server come up before the first poll.
	time.Sleep(500 * time.Millisecond)

	var last string
	poller := dashboard.New(appLog, baseURL, interval,
		dashboard.WithOnChange(func(snap dashboard.Snapshot) {
			if snap.State != dashboard.StateSuccess {
				return
			}
			current := formatSeats(snap)
			if current != last {
				appLog.Info("Highlighted seats changed", "seats", current, "tickets", snap.TicketCount)
				last = current
			}
		}))
	poller.Run(context.Background())
}

func formatSeats(snap dashboard.Snapshot) string {
	seats := snap.HighlightedSeats()
	if len(seats) == 0 {
		return "none"
	}
	parts := make([]string, len(seats))
	for i, n := range seats {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ",")
}
