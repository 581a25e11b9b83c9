// Package intercept is the command line interface of the intercepting host.
package intercept

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"go.minekube.com/intercept/internal/util/console"
	"go.minekube.com/intercept/pkg/config"
	"go.minekube.com/intercept/pkg/configs"
	"go.minekube.com/intercept/pkg/protocol"
	logrutil "go.minekube.com/intercept/pkg/runtime/logr"
	"go.minekube.com/intercept/pkg/server"
	"go.minekube.com/intercept/pkg/telemetry"
	"go.minekube.com/intercept/pkg/util/componentutil"
	"go.minekube.com/intercept/pkg/util/interrupt"
	buildversion "go.minekube.com/intercept/pkg/version"
)

const (
	envPrefix         = "INTERCEPT"
	defaultConfigFile = "config.yml"
)

// App returns the command line application.
func App() *cli.App {
	app := cli.NewApp()
	app.Name = "intercept"
	app.Usage = "Minecraft host with packet interception"
	app.Version = buildversion.String()
	app.Description = `A Minecraft host server whose packets pass through an interception
pipeline before they reach the session or the wire.

Visit the README for configuration details.`
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage: `config file (default: ./config.yml)
Supports: yaml/yml, json, toml, hcl, ini, prop/properties/props, env/dotenv`,
			EnvVars: []string{envPrefix + "_CONFIG"},
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "Enable debug mode and highest log verbosity",
			EnvVars: []string{envPrefix + "_DEBUG"},
		},
		&cli.IntFlag{
			Name:    "verbosity",
			Aliases: []string{"v"},
			Usage:   "The higher the verbosity the more logs are shown",
			EnvVars: []string{envPrefix + "_VERBOSITY"},
		},
	}
	app.Action = func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return cli.Exit(err, 1)
		}
		if err := run(c, cfg); err != nil {
			return cli.Exit(err, 1)
		}
		return nil
	}
	app.Commands = []*cli.Command{
		configCommand(),
		registryCommand(),
	}
	return app
}

// loadConfig reads the config file, environment variables and flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	config.SetDefaults(v)

	file := c.String("config")
	if file == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			file = defaultConfigFile
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %q: %w", file, err)
		}
	} else {
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewReader(configs.DefaultConfigBytes)); err != nil {
			return nil, fmt.Errorf("error reading default config: %w", err)
		}
	}

	if c.IsSet("debug") {
		v.Set("debug", c.Bool("debug"))
	}
	if c.IsSet("verbosity") {
		v.Set("verbosity", c.Int("verbosity"))
	}

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return &cfg, nil
}

func run(c *cli.Context, cfg *config.Config) error {
	log, err := logrutil.New(cfg.Debug, cfg.Verbosity)
	if err != nil {
		return fmt.Errorf("error creating logger: %w", err)
	}

	warns, errs := cfg.Validate()
	for _, w := range warns {
		log.Info("config validation warn", "warn", w.Error())
	}
	if len(errs) != 0 {
		for _, e := range errs {
			log.Info("config validation error", "error", e.Error())
		}
		return fmt.Errorf("config validation failed with %d error(s)", len(errs))
	}

	termCtx, stop := interrupt.TerminationContext(logr.NewContext(c.Context, log))
	defer stop()
	ctx := termCtx

	v, err := cfg.Version()
	if err != nil {
		return err
	}

	mgr := event.New()
	metrics, cleanup, err := telemetry.Init(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	if metrics != nil {
		defer metrics.Instrument(mgr)()
	}

	rt, err := protocol.New(ctx, protocol.Options{Protocol: v.Protocol, Events: mgr})
	if err != nil {
		return err
	}
	srv, err := server.New(cfg, rt)
	if err != nil {
		return err
	}

	if motd, err := componentutil.ParseTextComponent(cfg.Motd); err == nil {
		_, _ = fmt.Fprintln(c.App.Writer, console.Ansi(motd))
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return rt.Scheduler().Start(ctx) })
	eg.Go(func() error { return srv.Serve(ctx) })
	err = eg.Wait()
	if sig, ok := interrupt.Signal(termCtx); ok {
		log.Info("shut down", "signal", sig.String())
	}
	return err
}
