package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"entropy-ci/internal/config"
	"entropy-ci/internal/core"
	"entropy-ci/internal/log"
	"entropy-ci/internal/server"
	"entropy-ci/internal/storage"
	"entropy-ci/pkg/utils"
)

func main() {
	ctx := log.NewContext(context.Background(), "entropy-ci")
	if err := run(ctx, os.Stdout, os.Args); err != nil {
		log.FromContext(ctx).Error(err.Error())
		os.Exit(1)
	}
}

// run is main without the process exit, so it can be driven from tests.
func run(ctx context.Context, out io.Writer, args []string) error {
	cmd := &cli.Command{
		Name:   "entropy-ci",
		Usage:  "generate the entropy benchmark CI pipeline",
		Writer: out,
		Commands: []*cli.Command{
			generateCommand(out),
			planCommand(out),
			verifyCommand(out),
			serveCommand(),
		},
	}
	return cmd.Run(ctx, args)
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a YAML config file",
			Sources: cli.EnvVars(config.EnvPrefix + "CONFIG"),
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (debug, info, warn, error); overrides the config",
		},
		&cli.StringSliceFlag{
			Name:  "instance",
			Usage: "instance type to build and test on, repeatable; replaces the configured list",
		},
		&cli.StringSliceFlag{
			Name:  "kernel",
			Usage: "kernel version to test on, repeatable; replaces the configured list",
		},
	}
}

// setup loads the config, applies flag overrides and installs the
// configured logger into ctx.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, *config.Config, error) {
	cfg, err := config.Load(ctx, cmd.String("config"))
	if err != nil {
		return ctx, nil, err
	}

	if v := cmd.StringSlice("instance"); len(v) > 0 {
		cfg.Instances = v
	}
	if v := cmd.StringSlice("kernel"); len(v) > 0 {
		cfg.Kernels = v
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return ctx, nil, err
	}

	l, err := log.NewWithLevel("entropy-ci", cfg.LogLevel)
	if err != nil {
		return ctx, nil, err
	}
	ctx = log.IntoContext(ctx, l.With("command", cmd.Name))
	return ctx, cfg, nil
}

func newGenerator(cfg *config.Config) (*core.Generator, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	return core.NewGenerator(settings), nil
}

func generateCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "write the pipeline document to stdout",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output format (json, yaml)",
				Value:   string(core.FormatJSON),
			},
			&cli.StringFlag{
				Name:  "out-dir",
				Usage: "also store the document in this directory",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, cfg, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			format, err := core.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			g, err := newGenerator(cfg)
			if err != nil {
				return err
			}

			var store *storage.FileStore
			if dir := cmd.String("out-dir"); dir != "" {
				store = storage.NewFileStore(dir)
			}
			_, err = core.NewRunner(g, store).Run(ctx, cfg.Matrix(), format, out)
			return err
		},
	}
}

func planCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "show the groups and the order the orchestrator may run them in",
		Flags: append(commonFlags(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the plan as JSON",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, cfg, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			g, err := newGenerator(cfg)
			if err != nil {
				return err
			}
			p, err := g.Assemble(cfg.Matrix())
			if err != nil {
				return err
			}
			plan, err := core.NewScheduler().Plan(p)
			if err != nil {
				return err
			}
			log.FromContext(ctx).Debug("planned pipeline", "waves", len(plan.Waves))

			if cmd.Bool("json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}
			printPlan(out, plan)
			return nil
		},
	}
}

func printPlan(out io.Writer, plan *core.PlanResult) {
	fmt.Fprintf(out, "queue:  %s\n", plan.Queue)
	fmt.Fprintf(out, "groups: %d\n", plan.TotalGroups)
	fmt.Fprintf(out, "steps:  %d\n", plan.TotalSteps)
	for i, wave := range plan.Waves {
		fmt.Fprintf(out, "\nwave %d:\n", i+1)
		for _, name := range wave {
			fmt.Fprintf(out, "  %s\n", name)
		}
	}
}

func verifyCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "check a pipeline document for duplicate keys and dangling dependencies",
		ArgsUsage: "<pipeline.json|pipeline.yaml>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			l := log.FromContext(ctx)
			path := cmd.Args().First()
			if path == "" {
				return errors.New("verify: missing pipeline file")
			}

			p, err := core.LoadPipeline(path)
			if err != nil {
				return err
			}
			if err := core.Validate(p); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			digest, err := utils.DigestFile(path)
			if err != nil {
				return err
			}
			l.Debug("verified pipeline", "path", path, "elements", len(p.Steps))
			fmt.Fprintf(out, "%s: ok (sha256 %s)\n", path, digest)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the pipeline over HTTP",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:  "listen",
				Usage: "listen address; overrides the config",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, cfg, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			g, err := newGenerator(cfg)
			if err != nil {
				return err
			}
			addr := cfg.Server.ListenAddr
			if v := cmd.String("listen"); v != "" {
				addr = v
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			l := log.SubLogger(log.FromContext(ctx), "server")
			srv := server.New(g, cfg.Matrix(), l)
			return server.Run(ctx, addr, srv.Router(), l)
		},
	}
}
