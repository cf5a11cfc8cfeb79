package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ReactionType pairs a stable name with the glyph rendered on keyboard
// buttons.
type ReactionType struct {
	Name  string `yaml:"name"`
	Glyph string `yaml:"glyph"`
}

type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		// CallbackPort, when non-zero, enables the dedicated fasthttp
		// listener for the callback hot path.
		CallbackPort int `yaml:"callback_port"`
	} `yaml:"server"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	Reactions struct {
		// Types is the fixed reaction set. Empty means DefaultReactionTypes.
		Types []ReactionType `yaml:"types"`
		// AckMaxLen bounds acknowledgement strings sent back to the
		// transport. Zero means the built-in default.
		AckMaxLen int `yaml:"ack_max_len"`
	} `yaml:"reactions"`
	Dedup struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"dedup"`
	Writer struct {
		MaxAttempts     int           `yaml:"max_attempts"`
		InitialInterval time.Duration `yaml:"initial_interval"`
		MaxInterval     time.Duration `yaml:"max_interval"`
	} `yaml:"writer"`
	Reconciler struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
		// DeleteRPS throttles row deletions per run; zero means unthrottled.
		DeleteRPS   float64 `yaml:"delete_rps"`
		DeleteBurst int     `yaml:"delete_burst"`
	} `yaml:"reconciler"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text|json
	} `yaml:"logging"`
	Security struct {
		APIKeys struct {
			Backend     []string `yaml:"backend"`
			AllowUnauth bool     `yaml:"allow_unauth"`
		} `yaml:"api_keys"`
	} `yaml:"security"`
}

// DefaultReactionTypes is the built-in emoji set used when the config
// names none.
var DefaultReactionTypes = []ReactionType{
	{Name: "like", Glyph: "👍"},
	{Name: "love", Glyph: "❤️"},
	{Name: "fire", Glyph: "🔥"},
	{Name: "clap", Glyph: "👏"},
	{Name: "sad", Glyph: "😢"},
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// CallbackAddr returns host:port for the fasthttp callback listener,
// or "" when it is disabled.
func (c *Config) CallbackAddr() string {
	if c.Server.CallbackPort == 0 {
		return ""
	}
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", addr, c.Server.CallbackPort)
}

// Types returns the effective reaction set.
func (c *Config) Types() []ReactionType {
	if len(c.Reactions.Types) > 0 {
		return c.Reactions.Types
	}
	return DefaultReactionTypes
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found %s: %w", path, err)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// ParseCommandFlags defines and parses command-line flags and returns
// their values along with a map indicating which flags were explicitly
// set.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *dbPtr, *cfgPtr, setFlags
}

// LoadEnvOverrides applies environment overrides onto the provided cfg
// and reports whether any env var was used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false
	parseList := func(v string) []string {
		if v == "" {
			return nil
		}
		var parts []string
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("REACTDB_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("REACTDB_CALLBACK_PORT"); v != "" {
		if pi, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Server.CallbackPort = pi
		}
	}
	if v := os.Getenv("REACTDB_DB_PATH"); v != "" {
		envUsed = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("REACTDB_REACTION_TYPES"); v != "" {
		// comma-separated name=glyph pairs, e.g. "like=👍,fire=🔥"
		envUsed = true
		cfg.Reactions.Types = nil
		for _, item := range parseList(v) {
			name, glyph, ok := strings.Cut(item, "=")
			if !ok || name == "" {
				continue
			}
			cfg.Reactions.Types = append(cfg.Reactions.Types, ReactionType{Name: name, Glyph: glyph})
		}
	}
	if v := os.Getenv("REACTDB_DEDUP_TTL"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Dedup.TTL = d
		}
	}
	if v := os.Getenv("REACTDB_WRITER_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Writer.MaxAttempts = n
		}
	}
	if v := os.Getenv("REACTDB_RECONCILER_ENABLED"); v != "" {
		envUsed = true
		vl := strings.ToLower(strings.TrimSpace(v))
		cfg.Reconciler.Enabled = vl == "1" || vl == "true" || vl == "yes"
	}
	if v := os.Getenv("REACTDB_RECONCILER_CRON"); v != "" {
		envUsed = true
		cfg.Reconciler.Cron = v
	}
	if v := os.Getenv("REACTDB_RECONCILER_DELETE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Reconciler.DeleteRPS = f
		}
	}
	if v := os.Getenv("REACTDB_API_BACKEND_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Backend = parseList(v)
	}
	if v := os.Getenv("REACTDB_API_ALLOW_UNAUTH"); v != "" {
		envUsed = true
		vl := strings.ToLower(strings.TrimSpace(v))
		cfg.Security.APIKeys.AllowUnauth = vl == "1" || vl == "true" || vl == "yes"
	}
	if v := os.Getenv("REACTDB_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REACTDB_LOG_FORMAT"); v != "" {
		envUsed = true
		cfg.Logging.Format = v
	}
	return envUsed
}

// LoadEffective loads config from the given path (file) and applies
// environment overrides. A missing file is not fatal; env and defaults
// still apply. An unreadable or unparsable file is an error so a typo
// cannot silently revert the service to defaults.
func LoadEffective(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, false, err
		}
		cfg = &Config{}
	}
	envUsed := LoadEnvOverrides(cfg)
	return cfg, envUsed, nil
}

// ResolveConfigPath decides the config file path using the
// flag-provided value and REACTDB_CONFIG when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("REACTDB_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
