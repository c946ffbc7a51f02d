package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	LogLevel   string        `mapstructure:"log_level"`
	// ReadLimit caps one inbound frame in bytes. It is a transport limit:
	// an oversize frame closes the connection (1009) rather than being skipped.
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`

	// shared: extra joiners of a taken role become extra peers; exclusive: they are refused.
	Admission    string `mapstructure:"admission"`
	Backpressure string `mapstructure:"backpressure"`

	ConnectLimit    int           `mapstructure:"connect_limit"`
	ConnectInterval time.Duration `mapstructure:"connect_interval"`

	// Cross-site origins allowed to open the signaling socket.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	ICEServers []ICEServer `mapstructure:"ice_servers"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.SetEnvPrefix("TELEMED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 262144)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "change-me")
	v.SetDefault("admission", "shared")
	v.SetDefault("backpressure", "drop")
	v.SetDefault("connect_limit", 30)
	v.SetDefault("connect_interval", "1m")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("admission", cfg.Admission).
		Str("backpressure", cfg.Backpressure).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Admission {
	case "shared", "exclusive":
	default:
		return fmt.Errorf("invalid admission %q", c.Admission)
	}
	switch c.Backpressure {
	case "drop", "kick":
	default:
		return fmt.Errorf("invalid backpressure %q", c.Backpressure)
	}
	if c.ConnectLimit > 0 && c.ConnectInterval <= 0 {
		return fmt.Errorf("connect_interval must be positive when connect_limit is set")
	}
	for _, s := range c.ICEServers {
		if len(s.URLs) == 0 {
			return errors.New("ice server without urls")
		}
		for _, raw := range s.URLs {
			if _, err := stun.ParseURI(raw); err != nil {
				return fmt.Errorf("invalid ice url %q: %w", raw, err)
			}
		}
	}
	return nil
}

// WebRTCICEServers renders the configured servers the way browsers expect them.
func (c *Config) WebRTCICEServers() []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(c.ICEServers))
	for _, s := range c.ICEServers {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}
