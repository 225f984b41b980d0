package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("IRIS_BASE_URL", "http://iris:3000")
	t.Setenv("IRIS_WS_URL", "ws://iris:3000/ws")
	t.Setenv("BOT_PREFIX", "!")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	for _, k := range []string{"IRIS_TRANSPORT", "ALLOWED_ROOMS", "LOA_DEFAULT_LEVEL", "LOA_SESSION_TTL", "LOA_HISTORY_LIMIT", "LOA_REPLY_DELAY_MS", "LOA_ENGINE_SEED", "LOA_MESSAGES_DIR", "DATABASE_URL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IrisTransport != "http" || cfg.LoaDefaultLevel != 2 || cfg.LoaSessionTTL != time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LoaReplyDelay != time.Second || cfg.LoaHistoryLimit != 10 || cfg.LoaEngineSeed != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.AllowedRooms) != 0 {
		t.Fatalf("rooms = %v", cfg.AllowedRooms)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("IRIS_TRANSPORT", "AUTO")
	t.Setenv("ALLOWED_ROOMS", " room-a, ,room-b ")
	t.Setenv("LOA_DEFAULT_LEVEL", "level3")
	t.Setenv("LOA_SESSION_TTL", "90")
	t.Setenv("LOA_HISTORY_LIMIT", "25")
	t.Setenv("LOA_REPLY_DELAY_MS", "0")
	t.Setenv("LOA_ENGINE_SEED", "7")
	t.Setenv("LOA_MESSAGES_DIR", "/etc/loa/messages")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IrisTransport != "auto" || cfg.LoaDefaultLevel != 3 || cfg.LoaSessionTTL != 90*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.LoaHistoryLimit != 25 || cfg.LoaReplyDelay != 0 || cfg.LoaEngineSeed != 7 || cfg.LoaMessagesDir != "/etc/loa/messages" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.AllowedRooms) != 2 || cfg.AllowedRooms[0] != "room-a" || cfg.AllowedRooms[1] != "room-b" {
		t.Fatalf("rooms = %v", cfg.AllowedRooms)
	}

	t.Setenv("LOA_SESSION_TTL", "2h")
	cfg, err = Load()
	if err != nil || cfg.LoaSessionTTL != 2*time.Hour {
		t.Fatalf("duration ttl: %v %+v", err, cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"LOA_DEFAULT_LEVEL":  "level9",
		"LOA_SESSION_TTL":    "-5",
		"LOA_REPLY_DELAY_MS": "soon",
		"LOA_ENGINE_SEED":    "x",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestLoadRequiresKeys(t *testing.T) {
	for _, key := range []string{"IRIS_BASE_URL", "IRIS_WS_URL", "BOT_PREFIX", "REDIS_URL"} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s to be required", key)
			}
		})
	}
}
