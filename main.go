// ABOUTME: Entry point for the SqueezeGo SlimProto player
// ABOUTME: Loads config, applies CLI flags, sets up logging and discovery, and runs the player
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/squeeze-go/internal/config"
	"github.com/Resonate-Protocol/squeeze-go/internal/discovery"
	"github.com/Resonate-Protocol/squeeze-go/internal/logging"
	"github.com/Resonate-Protocol/squeeze-go/internal/player"
	"github.com/Resonate-Protocol/squeeze-go/internal/ui"
	"github.com/Resonate-Protocol/squeeze-go/internal/version"
	"github.com/Resonate-Protocol/squeeze-go/pkg/audio/output"
	"github.com/Resonate-Protocol/squeeze-go/pkg/slimproto"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

var (
	configPath  = flag.StringP("config", "c", "", "TOML configuration file")
	serverAddr  = flag.StringP("server", "s", "", "Controller host[:port] (default: discover)")
	name        = flag.StringP("name", "n", "", "Player name")
	mac         = flag.StringP("mac", "m", "", "Player MAC address (default: derived from UUID)")
	playerUUID  = flag.String("uuid", "", "Player UUID (default: random)")
	maxRate     = flag.Int("max-sample-rate", 0, "Advertised maximum and device sample rate")
	device      = flag.StringP("output", "o", "", "Audio output: oto or null")
	logLevel    = flag.StringP("log-level", "d", "", "Log level: trace, debug, info, warn, error")
	logFile     = flag.String("log-file", "", "Append logs to this file")
	logJSON     = flag.Bool("log-json", false, "Write JSON logs")
	useTUI      = flag.Bool("tui", false, "Show the terminal UI")
	useMDNS     = flag.Bool("mdns", false, "Discover the controller via mDNS instead of UDP broadcast")
	advertise   = flag.Bool("advertise", false, "Advertise this player via mDNS")
	showVersion = flag.BoolP("version", "V", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	logger, closer, err := logging.Setup(logging.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
		JSON:  cfg.LogJSON,
		Quiet: cfg.TUI,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	defer closer.Close()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("player stopped")
		closer.Close()
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies explicitly set flags
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	changed := flag.CommandLine.Changed
	if changed("server") {
		cfg.Server = *serverAddr
	}
	if changed("name") {
		cfg.Name = *name
	}
	if changed("mac") {
		if err := cfg.SetMAC(*mac); err != nil {
			return config.Config{}, err
		}
	}
	if changed("uuid") {
		if err := cfg.SetUUID(*playerUUID); err != nil {
			return config.Config{}, err
		}
	}
	if changed("max-sample-rate") {
		cfg.MaxSampleRate = *maxRate
	}
	if changed("output") {
		cfg.Output = *device
	}
	if changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if changed("log-file") {
		cfg.LogFile = *logFile
	}
	if changed("log-json") {
		cfg.LogJSON = *logJSON
	}
	if changed("tui") {
		cfg.TUI = *useTUI
	}
	if changed("mdns") {
		cfg.MDNS = *useMDNS
	}

	return cfg, cfg.Resolve()
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("name", cfg.Name).
		Str("mac", cfg.MAC.String()).
		Str("uuid", cfg.UUID.String()).
		Str("version", version.Version).
		Msg("starting")

	discover := (&discovery.Broadcaster{Logger: &logger}).Discover
	var mdnsManager *discovery.Manager
	if cfg.MDNS || *advertise {
		mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName:   cfg.Name,
			Port:          slimproto.Port,
			BrowseService: cfg.MDNSService,
			TXT:           []string{"mac=" + cfg.MAC.String(), "version=" + version.Version},
			Logger:        &logger,
		})
		defer mdnsManager.Stop()

		if *advertise {
			if err := mdnsManager.Advertise(); err != nil {
				logger.Warn().Err(err).Msg("mdns advertisement failed")
			}
		}
		if cfg.MDNS {
			discover = mdnsManager.Discover
		}
	}

	var dev output.Output
	switch cfg.Output {
	case "null":
		dev = output.NewNull()
	default:
		dev = output.NewOto()
	}

	p, err := player.New(player.Config{
		Server:           cfg.Server,
		Discover:         discover,
		Model:            version.Model,
		ModelName:        version.Product,
		MAC:              cfg.MACBytes(),
		UUID:             cfg.UUIDBytes(),
		SampleRate:       cfg.MaxSampleRate,
		StreamBufferSize: cfg.StreamBufferSize,
		OutputBufferSize: cfg.OutputBufferSize,
		Device:           dev,
		Logger:           &logger,
		OnStateChange: func(state slimproto.ConnState, controller string) {
			logger.Debug().Str("state", state.String()).Str("controller", controller).Msg("connection state")
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	if cfg.TUI {
		ctx = runTUI(ctx, cfg.Name, p, logger)
	}

	return p.Run(ctx)
}

// runTUI starts the terminal UI and returns a context cancelled when the UI exits
func runTUI(ctx context.Context, name string, p *player.Player, logger zerolog.Logger) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	prog := ui.Run(name)

	go func() {
		defer cancel()
		if _, err := prog.Run(); err != nil {
			logger.Error().Err(err).Msg("tui failed")
		}
	}()
	go ui.Feed(ctx, prog, p.Status)
	go func() {
		<-ctx.Done()
		prog.Quit()
	}()

	return ctx
}
