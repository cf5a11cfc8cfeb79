package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
server:
  address: "127.0.0.1"
  port: 9090
  callback_port: 9091
storage:
  db_path: "/tmp/reactdb-test"
reactions:
  types:
    - name: like
      glyph: "👍"
    - name: fire
      glyph: "🔥"
  ack_max_len: 120
dedup:
  ttl: 2s
writer:
  max_attempts: 5
  initial_interval: 10ms
  max_interval: 100ms
reconciler:
  enabled: true
  cron: "*/10 * * * *"
  delete_rps: 50
  delete_burst: 5
logging:
  level: debug
  format: json
security:
  api_keys:
    backend: ["k1", "k2"]
    allow_unauth: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Addr(); got != "127.0.0.1:9090" {
		t.Fatalf("Addr = %q", got)
	}
	if got := cfg.CallbackAddr(); got != "127.0.0.1:9091" {
		t.Fatalf("CallbackAddr = %q", got)
	}
	if cfg.Storage.DBPath != "/tmp/reactdb-test" {
		t.Fatalf("DBPath = %q", cfg.Storage.DBPath)
	}
	if len(cfg.Reactions.Types) != 2 || cfg.Reactions.Types[1].Name != "fire" {
		t.Fatalf("Types = %+v", cfg.Reactions.Types)
	}
	if cfg.Dedup.TTL != 2*time.Second {
		t.Fatalf("Dedup.TTL = %v", cfg.Dedup.TTL)
	}
	if cfg.Writer.MaxAttempts != 5 || cfg.Writer.InitialInterval != 10*time.Millisecond {
		t.Fatalf("Writer = %+v", cfg.Writer)
	}
	if !cfg.Reconciler.Enabled || cfg.Reconciler.Cron != "*/10 * * * *" || cfg.Reconciler.DeleteRPS != 50 {
		t.Fatalf("Reconciler = %+v", cfg.Reconciler)
	}
	if len(cfg.Security.APIKeys.Backend) != 2 {
		t.Fatalf("Backend keys = %+v", cfg.Security.APIKeys.Backend)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	var cfg Config
	if got := cfg.Addr(); got != "0.0.0.0:8080" {
		t.Fatalf("default Addr = %q", got)
	}
	if got := cfg.CallbackAddr(); got != "" {
		t.Fatalf("callback listener should be off by default, got %q", got)
	}
	types := cfg.Types()
	if len(types) != len(DefaultReactionTypes) || types[0].Name != "like" {
		t.Fatalf("default Types = %+v", types)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REACTDB_ADDR", "10.0.0.5:7070")
	t.Setenv("REACTDB_CALLBACK_PORT", "7071")
	t.Setenv("REACTDB_DB_PATH", "/data/reactions")
	t.Setenv("REACTDB_REACTION_TYPES", "up=⬆️,down=⬇️")
	t.Setenv("REACTDB_DEDUP_TTL", "750ms")
	t.Setenv("REACTDB_WRITER_MAX_ATTEMPTS", "7")
	t.Setenv("REACTDB_RECONCILER_ENABLED", "true")
	t.Setenv("REACTDB_RECONCILER_CRON", "0 * * * *")
	t.Setenv("REACTDB_RECONCILER_DELETE_RPS", "25")
	t.Setenv("REACTDB_API_BACKEND_KEYS", "a,b,c")
	t.Setenv("REACTDB_API_ALLOW_UNAUTH", "false")
	t.Setenv("REACTDB_LOG_LEVEL", "warn")
	t.Setenv("REACTDB_LOG_FORMAT", "json")

	var cfg Config
	if !LoadEnvOverrides(&cfg) {
		t.Fatal("env overrides not detected")
	}
	if got := cfg.Addr(); got != "10.0.0.5:7070" {
		t.Fatalf("Addr = %q", got)
	}
	if cfg.Server.CallbackPort != 7071 {
		t.Fatalf("CallbackPort = %d", cfg.Server.CallbackPort)
	}
	if cfg.Storage.DBPath != "/data/reactions" {
		t.Fatalf("DBPath = %q", cfg.Storage.DBPath)
	}
	if len(cfg.Reactions.Types) != 2 || cfg.Reactions.Types[0].Name != "up" || cfg.Reactions.Types[1].Glyph != "⬇️" {
		t.Fatalf("Types = %+v", cfg.Reactions.Types)
	}
	if cfg.Dedup.TTL != 750*time.Millisecond {
		t.Fatalf("TTL = %v", cfg.Dedup.TTL)
	}
	if cfg.Writer.MaxAttempts != 7 {
		t.Fatalf("MaxAttempts = %d", cfg.Writer.MaxAttempts)
	}
	if !cfg.Reconciler.Enabled || cfg.Reconciler.Cron != "0 * * * *" || cfg.Reconciler.DeleteRPS != 25 {
		t.Fatalf("Reconciler = %+v", cfg.Reconciler)
	}
	if len(cfg.Security.APIKeys.Backend) != 3 || cfg.Security.APIKeys.AllowUnauth {
		t.Fatalf("Security = %+v", cfg.Security.APIKeys)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Fatalf("Logging = %+v", cfg.Logging)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("REACTDB_DB_PATH", "/env/wins")
	cfg, envUsed, err := LoadEffective(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadEffective: %v", err)
	}
	if !envUsed {
		t.Fatal("env use not reported")
	}
	if cfg.Storage.DBPath != "/env/wins" {
		t.Fatalf("DBPath = %q, want env value", cfg.Storage.DBPath)
	}
	// file values untouched by env remain in force
	if cfg.Server.Port != 9090 {
		t.Fatalf("Port = %d", cfg.Server.Port)
	}
}

func TestLoadEffectiveRejectsBadYAML(t *testing.T) {
	p := writeConfig(t, "server:\n  port: [not a port\n")
	if _, _, err := LoadEffective(p); err == nil {
		t.Fatal("expected parse error for malformed yaml")
	}
}

func TestLoadEffectiveMissingFile(t *testing.T) {
	cfg, _, err := LoadEffective(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadEffective: %v", err)
	}
	if got := cfg.Addr(); got != "0.0.0.0:8080" {
		t.Fatalf("Addr = %q", got)
	}
}

func TestResolveConfigPath(t *testing.T) {
	if got := ResolveConfigPath("./flagged.yaml", true); got != "./flagged.yaml" {
		t.Fatalf("flag-set path = %q", got)
	}
	t.Setenv("REACTDB_CONFIG", "/etc/reactdb.yaml")
	if got := ResolveConfigPath("./default.yaml", false); got != "/etc/reactdb.yaml" {
		t.Fatalf("env path = %q", got)
	}
}
