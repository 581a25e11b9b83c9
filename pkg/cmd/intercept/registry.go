package intercept

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/gookit/color"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"go.minekube.com/intercept/pkg/packettype"
	"go.minekube.com/intercept/pkg/protocol"
	"go.minekube.com/intercept/pkg/proto/version"
)

// typeEntry is the printed form of a packet type.
type typeEntry struct {
	Phase     string `yaml:"phase"`
	Direction string `yaml:"direction"`
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Class     string `yaml:"class,omitempty"`
	Dynamic   bool   `yaml:"dynamic,omitempty"`
}

func newTypeEntry(t *packettype.PacketType) typeEntry {
	e := typeEntry{
		Phase:     t.Phase().String(),
		Direction: t.Direction().String(),
		ID:        t.ID().String(),
		Name:      t.Name(),
		Dynamic:   t.Dynamic(),
	}
	if class, ok := t.Class(); ok {
		e.Class = class.String()
	}
	return e
}

func registryCommand() *cli.Command {
	return &cli.Command{
		Name:  "registry",
		Usage: "Print the packet type registry of a protocol version",
		Description: `Bootstraps the packet type registry against the host packet tables
and prints every packet type with the packet struct it is bound to.

	intercept registry --protocol 1.20.5
	intercept registry --lookup KeepAlive
	intercept registry --format yaml`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "protocol",
				Aliases: []string{"p"},
				Usage:   "The Minecraft version name or protocol number",
				Value:   version.MaximumVersion.FirstName(),
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: table or yaml",
				Value:   "table",
			},
			&cli.StringFlag{
				Name:    "lookup",
				Aliases: []string{"l"},
				Usage:   "Only print packet types with this name",
			},
		},
		Action: func(c *cli.Context) error {
			v, err := version.Parse(c.String("protocol"))
			if err != nil {
				return cli.Exit(err, 1)
			}
			ctx := logr.NewContext(c.Context, logr.Discard())
			rt, err := protocol.New(ctx, protocol.Options{Protocol: v.Protocol})
			if err != nil {
				return cli.Exit(err, 1)
			}

			types := rt.Registry().Types()
			if name := c.String("lookup"); name != "" {
				types = filterByName(types, name)
				if len(types) == 0 {
					msg := fmt.Sprintf("no packet type named %q", name)
					if s := rt.Registry().Catalogue().Suggest(name, 3); len(s) != 0 {
						msg += fmt.Sprintf(", did you mean %s?", strings.Join(s, ", "))
					}
					return cli.Exit(msg, 1)
				}
			}

			entries := make([]typeEntry, len(types))
			for i, t := range types {
				entries[i] = newTypeEntry(t)
			}
			switch c.String("format") {
			case "yaml":
				enc := yaml.NewEncoder(c.App.Writer)
				defer enc.Close()
				return enc.Encode(entries)
			case "table":
				printTable(c.App.Writer, v.String(), entries)
				return nil
			default:
				return cli.Exit(fmt.Sprintf("unknown format: %s (valid formats: table, yaml)", c.String("format")), 1)
			}
		},
	}
}

func filterByName(types []*packettype.PacketType, name string) []*packettype.PacketType {
	var out []*packettype.PacketType
	for _, t := range types {
		if strings.EqualFold(t.Name(), name) {
			out = append(out, t)
		}
	}
	return out
}

func printTable(w io.Writer, versionName string, entries []typeEntry) {
	_, _ = fmt.Fprintf(w, "%s %s\n", color.Bold.Sprint("Minecraft"), color.LightGreen.Sprint(versionName))
	_, _ = fmt.Fprintf(w, "%s\n", color.Bold.Sprintf("%-10s %-9s %-6s %-28s %s", "PHASE", "DIRECTION", "ID", "NAME", "CLASS"))
	for _, e := range entries {
		class := e.Class
		if e.Dynamic {
			class = color.Gray.Sprint("(dynamic)")
		}
		_, _ = fmt.Fprintf(w, "%-10s %-9s %-6s %-28s %s\n", e.Phase, e.Direction, e.ID, e.Name, class)
	}
}
