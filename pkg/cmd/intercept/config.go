package intercept

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"go.minekube.com/intercept/pkg/configs"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Output default configuration file",
		Description: `Output the default configuration file to stdout or a file.
You can redirect to a file or use the --write flag:

	intercept config > config.yml
	intercept config --write              # Writes to config.yml`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "Write config to " + defaultConfigFile + " instead of stdout",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("write") {
				if err := os.WriteFile(defaultConfigFile, configs.DefaultConfigBytes, 0644); err != nil {
					return cli.Exit(fmt.Errorf("error writing config to %q: %w", defaultConfigFile, err), 1)
				}
				_, _ = fmt.Fprintf(c.App.Writer, "Configuration written to %s\n", defaultConfigFile)
				return nil
			}
			if _, err := c.App.Writer.Write(configs.DefaultConfigBytes); err != nil {
				return cli.Exit(fmt.Errorf("error writing config: %w", err), 1)
			}
			return nil
		},
	}
}
