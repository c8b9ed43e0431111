package config

import (
	"strings"
	"testing"
	"time"
)

func envMap(kv map[string]string) func(string) string {
	return func(k string) string { return kv[k] }
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("IMPORT_DEFAULT_CURRENCY", "UAH")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverPostgres)
	}
	if !cfg.Database.AutoMigrate {
		t.Error("Database.AutoMigrate = false, want true")
	}
	if cfg.Import.MaxConcurrent != 3 {
		t.Errorf("Import.MaxConcurrent = %d, want %d", cfg.Import.MaxConcurrent, 3)
	}
	if cfg.Import.MaxFileSize != 52428800 {
		t.Errorf("Import.MaxFileSize = %d, want %d", cfg.Import.MaxFileSize, 52428800)
	}
	if cfg.Import.Timeout != 10*time.Minute {
		t.Errorf("Import.Timeout = %v, want 10m", cfg.Import.Timeout)
	}
	if cfg.Notify.Mode != "log" || cfg.Notify.SMTPPort != 587 {
		t.Errorf("Notify = %+v, want log mode and port 587", cfg.Notify)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	cfg, err := load(envMap(map[string]string{
		"DATABASE_URL":            "postgres://localhost/test",
		"IMPORT_DEFAULT_CURRENCY": "EUR",
		"SERVER_PORT":             "9090",
		"IMPORT_MAX_CONCURRENT":   "10",
		"IMPORT_MAX_WAIT_TIME":    "1m30s",
		"LOG_LEVEL":               "debug",
		"DB_AUTO_MIGRATE":         "false",
	}))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Import.DefaultCurrency != "EUR" {
		t.Errorf("Import.DefaultCurrency = %q, want EUR", cfg.Import.DefaultCurrency)
	}
	if cfg.Import.MaxConcurrent != 10 {
		t.Errorf("Import.MaxConcurrent = %d, want %d", cfg.Import.MaxConcurrent, 10)
	}
	if cfg.Import.MaxWaitTime != 90*time.Second {
		t.Errorf("Import.MaxWaitTime = %v, want 1m30s", cfg.Import.MaxWaitTime)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Database.AutoMigrate {
		t.Error("Database.AutoMigrate = true, want false")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	cfg, err := load(envMap(map[string]string{
		"DB_URL":                  "postgres://localhost/alttest",
		"IMPORT_DEFAULT_CURRENCY": "UAH",
	}))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Database.URL != "postgres://localhost/alttest" {
		t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, "postgres://localhost/alttest")
	}
}

func TestLoad_MissingCurrency(t *testing.T) {
	_, err := load(envMap(map[string]string{"DATABASE_URL": "postgres://localhost/test"}))
	if err == nil || !strings.Contains(err.Error(), "IMPORT_DEFAULT_CURRENCY") {
		t.Fatalf("load() error = %v, want missing IMPORT_DEFAULT_CURRENCY", err)
	}
}

func TestLoad_SQLiteNeedsNoURL(t *testing.T) {
	cfg, err := load(envMap(map[string]string{
		"DB_DRIVER":               "sqlite",
		"IMPORT_DEFAULT_CURRENCY": "UAH",
	}))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Database.Path != "payimport.db" {
		t.Errorf("Database.Path = %q, want payimport.db", cfg.Database.Path)
	}
}

func TestLoad_APIKeys(t *testing.T) {
	cfg, err := load(envMap(map[string]string{
		"DATABASE_URL":            "postgres://localhost/test",
		"IMPORT_DEFAULT_CURRENCY": "UAH",
		"REQUIRE_API_KEY":         "true",
		"API_KEYS":                " key-one , ,key-two",
	}))
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if len(cfg.Security.APIKeys) != 2 || cfg.Security.APIKeys[0] != "key-one" || cfg.Security.APIKeys[1] != "key-two" {
		t.Errorf("APIKeys = %q, want [key-one key-two]", cfg.Security.APIKeys)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "bad integer", key: "SERVER_PORT", value: "abc", wantErr: "invalid integer"},
		{name: "bad duration", key: "IMPORT_TIMEOUT", value: "soon", wantErr: "invalid duration"},
		{name: "bad boolean", key: "REQUIRE_API_KEY", value: "maybe", wantErr: "invalid boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(envMap(map[string]string{
				"DATABASE_URL":            "postgres://localhost/test",
				"IMPORT_DEFAULT_CURRENCY": "UAH",
				tt.key:                    tt.value,
			}))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, ShutdownTimeout: 30 * time.Second},
		Database: DatabaseConfig{
			Driver:   DriverPostgres,
			URL:      "postgres://localhost/test",
			MaxConns: 10,
			MinConns: 2,
		},
		Import: ImportConfig{
			DefaultCurrency: "UAH",
			MaxFileSize:     1024,
			MaxConcurrent:   3,
			MaxWaitTime:     time.Second,
			Timeout:         time.Minute,
		},
		Notify:  NotifyConfig{Mode: "log", SMTPPort: 587},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "DB_DRIVER"},
		{name: "postgres without url", mutate: func(c *Config) { c.Database.URL = "" }, wantErr: "DATABASE_URL is required"},
		{name: "max below min conns", mutate: func(c *Config) { c.Database.MaxConns = 1 }, wantErr: "DB_MAX_CONNS (1) must be >= DB_MIN_CONNS (2)"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Database.Driver = DriverSQLite; c.Database.Path = "" }, wantErr: "DB_PATH"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "SERVER_PORT"},
		{name: "blank currency", mutate: func(c *Config) { c.Import.DefaultCurrency = "  " }, wantErr: "IMPORT_DEFAULT_CURRENCY"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Import.MaxConcurrent = 0 }, wantErr: "IMPORT_MAX_CONCURRENT"},
		{name: "smtp without host", mutate: func(c *Config) { c.Notify.Mode = "smtp"; c.Notify.SMTPFrom = "a@b.c" }, wantErr: "SMTP_HOST"},
		{name: "unknown notify mode", mutate: func(c *Config) { c.Notify.Mode = "sms" }, wantErr: "NOTIFY_MODE"},
		{name: "auth without keys", mutate: func(c *Config) { c.Security.RequireAPIKey = true }, wantErr: "API_KEYS is empty"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: "LOG_LEVEL"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	if !strings.Contains(err.Error(), "SERVER_PORT") || !strings.Contains(err.Error(), "LOG_LEVEL") {
		t.Errorf("Validate() error = %v, want both problems listed", err)
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = "postgres://user:hunter2@db/payments"
	cfg.Notify.SMTPPassword = "smtp-secret"
	cfg.Security.APIKeys = []string{"api-secret"}

	s := cfg.String()
	for _, secret := range []string{"hunter2", "smtp-secret", "api-secret"} {
		if strings.Contains(s, secret) {
			t.Errorf("String() leaks %q: %s", secret, s)
		}
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() = %s, want masked fields", s)
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{host: "0.0.0.0", port: 8080, want: "0.0.0.0:8080"},
		{host: "", port: 9090, want: ":9090"},
		{host: "::1", port: 80, want: "[::1]:80"},
	}
	for _, tt := range tests {
		c := ServerConfig{Host: tt.host, Port: tt.port}
		if got := c.Addr(); got != tt.want {
			t.Errorf("Addr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}
