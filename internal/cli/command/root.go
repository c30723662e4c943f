package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/zonemesh-go/internal/cli/connection"
	"github.com/yndnr/zonemesh-go/internal/cli/output"
	"github.com/yndnr/zonemesh-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "zonemesh",
		Usage:   "Zone-aware group communication for runtimes of one domain",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ParticipantCommand(),
			ControllerCommand(),
			StatusCommand(),
			HealthCommand(),
			DeploymentsCommand(),
		},
		Before: func(c *cli.Context) error {
			if _, err := output.ParseFormat(c.String("output")); err != nil {
				return cli.Exit(err.Error(), 2)
			}
			return nil
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the node configuration file (YAML)",
			EnvVars: []string{"ZONEMESH_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Override log.level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "Operations endpoint of the node to query",
			EnvVars: []string{"ZONEMESH_ADDR"},
			Value:   "127.0.0.1:9464",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Timeout for requests to the operations endpoint",
			Value: connection.DefaultTimeout,
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config   string
	LogLevel string

	Addr    string
	Timeout time.Duration

	Output string
	Wide   bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:   c.String("config"),
		LogLevel: c.String("log-level"),
		Addr:     c.String("addr"),
		Timeout:  c.Duration("timeout"),
		Output:   c.String("output"),
		Wide:     c.Bool("wide"),
	}
}

// newClient returns a client for --addr and a context bounded by --timeout.
func newClient(c *cli.Context) (*connection.HTTPClient, context.Context, context.CancelFunc) {
	flags := ParseGlobalFlags(c)
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	return connection.NewHTTPClient(flags.Addr), ctx, cancel
}

// render writes data in the format chosen by --output.
func render(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, flags.Wide).Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
