package command

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/zonemesh-go/internal/infra/buildinfo"
	"github.com/yndnr/zonemesh-go/internal/infra/confloader"
	"github.com/yndnr/zonemesh-go/internal/infra/shutdown"
	"github.com/yndnr/zonemesh-go/internal/server/config"
	"github.com/yndnr/zonemesh-go/internal/server/node"
	"github.com/yndnr/zonemesh-go/internal/telemetry/logger"
)

// shutdownTimeout bounds the whole shutdown sequence.
const shutdownTimeout = 30 * time.Second

// ParticipantCommand runs a participant node.
func ParticipantCommand() *cli.Command {
	return &cli.Command{
		Name:   "participant",
		Usage:  "Run a participant runtime",
		Flags:  runFlags(),
		Action: runNode("participant"),
	}
}

// ControllerCommand runs a controller node.
func ControllerCommand() *cli.Command {
	return &cli.Command{
		Name:   "controller",
		Usage:  "Run the domain controller",
		Flags:  runFlags(),
		Action: runNode("controller"),
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "domain",
			Usage: "Override runtime.domain",
		},
		&cli.StringFlag{
			Name:  "zone",
			Usage: "Override runtime.zone",
		},
		&cli.StringFlag{
			Name:  "instance-id",
			Usage: "Override runtime.instance_id",
		},
	}
}

// flagOverrides maps command line flags onto configuration keys. Only flags
// that were set are returned, nested the way koanf stores them.
func flagOverrides(c *cli.Context, role string) map[string]any {
	runtime := map[string]any{"role": role}
	for flag, key := range map[string]string{
		"domain":      "domain",
		"zone":        "zone",
		"instance-id": "instance_id",
	} {
		if c.IsSet(flag) {
			runtime[key] = c.String(flag)
		}
	}

	out := map[string]any{"runtime": runtime}
	if level := c.String("log-level"); level != "" {
		out["log"] = map[string]any{"level": level}
	}
	return out
}

// loadConfig builds the node configuration from defaults, the optional file,
// the environment and the command line, in that order.
func loadConfig(c *cli.Context, role string) (*confloader.Loader, *config.Config, error) {
	var opts []confloader.Option
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := loader.LoadMap(flagOverrides(c, role)); err != nil {
		return nil, nil, err
	}
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return loader, cfg, nil
}

func runNode(role string) cli.ActionFunc {
	return func(c *cli.Context) error {
		loader, cfg, err := loadConfig(c, role)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log, err := logger.New(logger.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: c.App.ErrWriter,
		})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger.SetDefault(log)
		sl := logger.Slog(log)

		sl.Info("starting zonemesh", append([]any{"role", role, "config", loader.FilePath()}, buildinfo.Get().LogAttrs()...)...)
		sl.Debug("effective configuration", "config", config.Sanitize(cfg))

		n, err := node.New(cfg, node.Options{Logger: sl})
		if err != nil {
			return fmt.Errorf("init node: %w", err)
		}

		ctx := c.Context
		if ctx == nil {
			ctx = context.Background()
		}
		startCtx, cancel := context.WithTimeout(ctx, startTimeout(cfg))
		err = n.Start(startCtx)
		cancel()
		if err != nil {
			_ = n.Stop(context.Background())
			return fmt.Errorf("start node: %w", err)
		}
		sl.Info("node started", "name", n.Name(), "ops_addr", n.OpsAddr())

		sh := shutdown.NewHandler(shutdownTimeout, shutdown.WithLogger(sl))
		sh.OnShutdown("node", n.Stop)

		var reloadMu sync.Mutex
		reload := func() {
			reloadMu.Lock()
			defer reloadMu.Unlock()
			reloadLogLevel(loader, sl)
		}
		sh.OnReload(reload)
		if path := loader.FilePath(); path != "" {
			w, err := watchConfig(path, sl, reload)
			if err != nil {
				sl.Warn("config watcher disabled", "path", path, "error", err)
			} else {
				sh.OnShutdown("config watcher", func(context.Context) error { return w.Stop() })
			}
		}

		if err := sh.Wait(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		sl.Info("node stopped")
		return nil
	}
}

// startTimeout covers the join wait of a participant plus its first
// synchronization call.
func startTimeout(cfg *config.Config) time.Duration {
	return cfg.Federation.DefaultTimeout * time.Duration(cfg.Federation.JoinAttempts+1)
}

func watchConfig(path string, logger *slog.Logger, onChange func()) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}
	w.OnChange(func(string) { onChange() })
	w.StartAsync()
	return w, nil
}

// reloadLogLevel re-reads the configuration and applies its log level. Other
// settings only take effect on restart.
func reloadLogLevel(loader *confloader.Loader, sl *slog.Logger) {
	cfg := config.Default()
	if err := loader.Reload(cfg); err != nil {
		sl.Error("config reload failed", "error", err)
		return
	}
	if !logger.ValidLevel(cfg.Log.Level) {
		sl.Error("config reload ignored", "error", fmt.Sprintf("invalid log level %q", cfg.Log.Level))
		return
	}
	if cfg.Log.Level != logger.GetLevel() {
		logger.SetLevel(cfg.Log.Level)
		sl.Info("log level changed", "level", cfg.Log.Level)
	}
}
