package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aeolun/mpvremote/pkg/client"
	"github.com/aeolun/mpvremote/pkg/player"
	"github.com/aeolun/mpvremote/pkg/ui"
)

func main() {
	// Command line flags
	configPath := flag.String("config", player.DefaultConfigPath(), "Path to config file")
	target := flag.String("target", "", "mpv IPC target (overrides config): host:port, unix:///path or ssh://user@host/path")
	metricsAddr := flag.String("metrics", "", "Prometheus listen address (overrides config), empty to disable")
	headless := flag.Bool("headless", false, "Run without the TUI, logging state changes to stderr")
	verbose := flag.Bool("verbose", false, "Log connection activity to stderr")
	flag.Parse()

	config, err := player.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *target != "" {
		config.Connection.Target = *target
	}
	if *metricsAddr != "" {
		config.Metrics.Listen = *metricsAddr
	}

	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)

	var metrics *client.Metrics
	if config.Metrics.Listen != "" {
		metrics = client.NewMetrics()
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(config.Metrics.Listen, nil); err != nil {
				logger.Printf("Metrics listener failed: %v", err)
			}
		}()
	}

	var history *player.History
	if config.History.Enabled {
		history, err = player.OpenHistory(config.GetHistoryPath())
		if err != nil {
			log.Fatalf("Failed to open history database: %v", err)
		}
		defer history.Close()
	}

	opts := player.Options{
		Target:       config.Connection.Target,
		Metrics:      metrics,
		PollInterval: time.Duration(config.Player.PollIntervalSeconds) * time.Second,
		BackoffBase:  time.Duration(config.Connection.BackoffBaseSeconds) * time.Second,
		BackoffMax:   time.Duration(config.Connection.BackoffMaxSeconds) * time.Second,
		History:      history,
		Notify:       config.Player.NotifyTrackChange,
	}
	if *headless || *verbose {
		opts.Logger = logger
	}

	p, err := player.New(opts)
	if err != nil {
		log.Fatalf("Invalid target %q: %v", opts.Target, err)
	}
	p.Start()
	defer p.Close()

	if *headless {
		runHeadless(p, logger)
		return
	}

	program := tea.NewProgram(ui.New(p), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}

// runHeadless logs every state or track change until the process is killed.
// Useful for supervising a remote player from scripts or a service unit.
func runHeadless(p *player.Player, logger *log.Logger) {
	var last player.Status
	for status := range p.Subscribe() {
		if status.State != last.State {
			logger.Printf("State: %s", status.State)
		}
		if status.Title != last.Title && status.Title != "" {
			logger.Printf("Now playing: %s", status.Title)
		}
		last = status
	}
}
