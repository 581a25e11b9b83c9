// Package config contains the configuration of the intercepting host server.
package config

import (
	"fmt"
	"time"

	"go.minekube.com/intercept/pkg/proto"
	"go.minekube.com/intercept/pkg/proto/version"
	"go.minekube.com/intercept/pkg/util/componentutil"
	"go.minekube.com/intercept/pkg/util/configutil"
	"go.minekube.com/intercept/pkg/util/favicon"
	"go.minekube.com/intercept/pkg/util/validation"
)

// Config is the configuration for reading in files and environment variables with Viper.
type Config struct {
	Bind string // The address to listen for connections.
	// Protocol is the version name the host speaks, e.g. "1.20.5".
	// Clients of other versions are disconnected at login.
	Protocol string
	// Offline mode is the only mode the host supports.
	OnlineMode bool

	Compression   Compression
	ProxyProtocol bool // Whether the listener expects PROXY protocol headers.
	Quota         Quota

	ConnectionTimeout time.Duration // Write timeout
	ReadTimeout       time.Duration
	KeepAliveInterval time.Duration

	Motd       string // Legacy '&' codes or a JSON text component.
	Favicon    string // Image file or data uri shown in the server list, optional.
	MaxPlayers int

	Debug     bool
	Verbosity int // Logger V level, used when Debug is set.

	Telemetry Telemetry
}

type Compression struct {
	Threshold int // Packets larger than this many bytes are compressed, -1 disables.
	Level     int // zlib level
}

// Quota is the config for rate limiting.
type Quota struct {
	Connections QuotaSettings // Limits new connections per second, per IP block.
	Logins      QuotaSettings // Limits logins per second, per IP block.
}

type QuotaSettings struct {
	Enabled    bool    // If false, there is no such limiting.
	OPS        float32 // Allowed operations/events per second, per IP block
	Burst      int     // The maximum events per second, per block; the size of the token bucket
	MaxEntries int     // Maximum number of IP blocks to keep track of in cache
}

// Telemetry configures metrics and tracing.
type Telemetry struct {
	Metrics struct {
		Enabled bool
		Bind    string
		Path    string
	}
	Tracing struct {
		Enabled bool
	}
}

// SetDefaults sets Config defaults to use with Viper.
func SetDefaults(i configutil.SetDefault) {
	i.SetDefault("bind", "0.0.0.0:25565")
	i.SetDefault("protocol", version.MaximumVersion.FirstName())
	i.SetDefault("onlineMode", false)

	i.SetDefault("compression.threshold", 256)
	i.SetDefault("compression.level", -1)
	i.SetDefault("proxyProtocol", false)

	quotaDefaults(configutil.Prefix(i, "quota.connections"), 5, 10)
	quotaDefaults(configutil.Prefix(i, "quota.logins"), 0.4, 3)

	i.SetDefault("connectionTimeout", 5*time.Second)
	i.SetDefault("readTimeout", 30*time.Second)
	i.SetDefault("keepAliveInterval", 10*time.Second)

	i.SetDefault("motd", "&bAn intercepting Minecraft host")
	i.SetDefault("favicon", "")
	i.SetDefault("maxPlayers", 20)

	i.SetDefault("debug", false)
	i.SetDefault("verbosity", 1)

	telemetry := configutil.Prefix(i, "telemetry")
	configutil.Defaults{
		"enabled": false,
		"bind":    "0.0.0.0:9464",
		"path":    "/metrics",
	}.Apply(configutil.Prefix(telemetry, "metrics"))
	telemetry.SetDefault("tracing.enabled", false)
}

func quotaDefaults(d configutil.SetDefault, ops float32, burst int) {
	configutil.Defaults{
		"enabled":    true,
		"ops":        ops,
		"burst":      burst,
		"maxEntries": 1000,
	}.Apply(d)
}

// Version returns the protocol version of Protocol.
func (c *Config) Version() (*proto.Version, error) {
	return version.Parse(c.Protocol)
}

// Validate validates Config and returns warnings and errors.
func (c *Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	w := func(m string, args ...any) { warns = append(warns, fmt.Errorf(m, args...)) }

	if c == nil {
		e("config must not be nil")
		return
	}

	if len(c.Bind) == 0 {
		e("Bind is empty")
	} else if err := validation.ValidHostPort(c.Bind); err != nil {
		e("Invalid bind %q: %v", c.Bind, err)
	}

	if _, err := c.Version(); err != nil {
		e("Invalid protocol: %v", err)
	}

	if c.OnlineMode {
		w("Online mode is not supported, players join in offline mode")
	}

	if c.Compression.Level < -1 || c.Compression.Level > 9 {
		e("Unsupported compression level %d: must be -1..9", c.Compression.Level)
	}
	if c.Compression.Threshold == 0 {
		w("All packets are compressed since the compression threshold is 0")
	}

	for name, quota := range map[string]QuotaSettings{
		"connections": c.Quota.Connections,
		"logins":      c.Quota.Logins,
	} {
		if !quota.Enabled {
			continue
		}
		if quota.OPS <= 0 {
			e("Invalid %s quota ops %v, use a number > 0", name, quota.OPS)
		}
		if quota.Burst < 1 {
			e("Invalid %s quota burst %d, use a number >= 1", name, quota.Burst)
		}
		if quota.MaxEntries < 1 {
			e("Invalid %s quota max entries %d, use a number >= 1", name, quota.MaxEntries)
		}
	}

	if c.ConnectionTimeout <= 0 {
		e("Connection timeout must be positive: %s", c.ConnectionTimeout)
	} else if c.ConnectionTimeout < time.Second {
		w("Connection timeout %s is very low", c.ConnectionTimeout)
	}
	if c.ReadTimeout <= 0 {
		e("Read timeout must be positive: %s", c.ReadTimeout)
	}
	if c.KeepAliveInterval <= 0 {
		e("Keep alive interval must be positive: %s", c.KeepAliveInterval)
	} else if c.ReadTimeout > 0 && c.KeepAliveInterval >= c.ReadTimeout {
		w("Keep alive interval %s is not below the read timeout %s, clients may time out",
			c.KeepAliveInterval, c.ReadTimeout)
	}

	if _, err := componentutil.ParseTextComponent(c.Motd); err != nil {
		e("Invalid motd %q: %v", c.Motd, err)
	}
	if c.Favicon != "" {
		if _, err := favicon.Parse(c.Favicon); err != nil {
			e("Invalid favicon: %v", err)
		}
	}
	if c.MaxPlayers < 0 {
		e("Max players must not be negative: %d", c.MaxPlayers)
	}

	if c.Verbosity < 0 {
		e("Verbosity must not be negative: %d", c.Verbosity)
	}

	if c.Telemetry.Metrics.Enabled {
		if err := validation.ValidHostPort(c.Telemetry.Metrics.Bind); err != nil {
			e("Invalid metrics bind %q: %v", c.Telemetry.Metrics.Bind, err)
		}
		if err := validation.ValidPath(c.Telemetry.Metrics.Path); err != nil {
			e("Invalid metrics path %q: %v", c.Telemetry.Metrics.Path, err)
		}
	}
	return
}
