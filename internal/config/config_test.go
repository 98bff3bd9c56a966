package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TelegramToken != "123:abc" || cfg.StoreDriver != DriverFile || cfg.CommandPrefix != "!pill" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.HTTPAddr != "127.0.0.1:8080" {
		t.Fatalf("status server must default to loopback, got %q", cfg.HTTPAddr)
	}
	if cfg.MoodPromptTimeout != 5*time.Minute || cfg.StartupResetDelay != 5*time.Second {
		t.Fatalf("durations = %v %v", cfg.MoodPromptTimeout, cfg.StartupResetDelay)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := "STORE_DRIVER: sqlite\nSQLITE_PATH: from-file.db\nREDIS_DB: 3\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "t")
	t.Setenv("SQLITE_PATH", "from-env.db")
	t.Setenv("MOOD_PROMPT_TIMEOUT", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StoreDriver != DriverSQLite || cfg.SQLitePath != "from-env.db" || cfg.RedisDB != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.MoodPromptTimeout != 90*time.Second {
		t.Fatalf("timeout = %v", cfg.MoodPromptTimeout)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "t")
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}

func TestBotTokenPrefersSecret(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(secret, []byte(" from-secret \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")

	got, err := botToken(secret)
	if err != nil || got != "from-secret" {
		t.Fatalf("token = %q err = %v", got, err)
	}

	got, err = botToken(filepath.Join(t.TempDir(), "missing"))
	if err != nil || got != "from-env" {
		t.Fatalf("token = %q err = %v", got, err)
	}

	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if _, err := botToken(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error without any token")
	}
}
