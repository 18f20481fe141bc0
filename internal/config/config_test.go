package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "PORT", "JWT_SECRET", "CORS_ALLOWED_ORIGINS", "STORE_DRIVER", "DATABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Env != "dev" {
		t.Fatalf("env: got %q want dev", cfg.Env)
	}
	if cfg.Port != 3001 {
		t.Fatalf("port: got %d want 3001", cfg.Port)
	}
	if cfg.StoreDriver != "postgres" {
		t.Fatalf("store driver: got %q", cfg.StoreDriver)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("cors origins: got %v", cfg.CORSAllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default dev config should validate: %v", err)
	}
}

func TestLoad_ParsesOriginsAndBadInts(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("PORT", "not-a-port")

	cfg := Load()

	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.Port != 3001 {
		t.Fatalf("bad PORT should fall back, got %d", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Env:                 "dev",
		Port:                3001,
		StoreDriver:         "memory",
		JWTSecret:           defaultJWTSecret,
		JWTAccessTTLMinutes: 60,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "dev_default_secret_ok", mutate: func(c *Config) {}},
		{name: "prod_default_secret", mutate: func(c *Config) { c.Env = "prod" }, wantErr: true},
		{name: "prod_custom_secret", mutate: func(c *Config) { c.Env = "prod"; c.JWTSecret = "s3cr3t" }},
		{name: "empty_secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: true},
		{name: "unknown_driver", mutate: func(c *Config) { c.StoreDriver = "mongo" }, wantErr: true},
		{name: "zero_ttl", mutate: func(c *Config) { c.JWTAccessTTLMinutes = 0 }, wantErr: true},
		{name: "sample_ratio_half", mutate: func(c *Config) { c.OTelSampleRatio = 0.5 }},
		{name: "sample_ratio_negative", mutate: func(c *Config) { c.OTelSampleRatio = -0.1 }, wantErr: true},
		{name: "sample_ratio_above_one", mutate: func(c *Config) { c.OTelSampleRatio = 1.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_TracingSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("SERVICE_VERSION", "")
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", "")

		cfg := Load()
		if cfg.ServiceVersion != "dev" || cfg.OTelSampleRatio != 1 {
			t.Fatalf("got version=%q ratio=%v", cfg.ServiceVersion, cfg.OTelSampleRatio)
		}
	})

	t.Run("from_env", func(t *testing.T) {
		t.Setenv("SERVICE_VERSION", "1.4.2")
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.1")

		cfg := Load()
		if cfg.ServiceVersion != "1.4.2" || cfg.OTelSampleRatio != 0.1 {
			t.Fatalf("got version=%q ratio=%v", cfg.ServiceVersion, cfg.OTelSampleRatio)
		}
	})

	t.Run("bad_ratio_falls_back", func(t *testing.T) {
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", "often")

		if cfg := Load(); cfg.OTelSampleRatio != 1 {
			t.Fatalf("got ratio=%v", cfg.OTelSampleRatio)
		}
	})
}
