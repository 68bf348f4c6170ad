package main

import (
	"net/http/httptest"
	"strings"
	"testing"

	"shardthief.gg/internal/sim/session"
	"shardthief.gg/internal/sim/tuning"
)

func TestLoadServerConfig_EnvOverridesFlags(t *testing.T) {
	t.Setenv("SHARD_ADDR", ":9999")
	t.Setenv("SHARD_DATA_DIR", "/tmp/shard")
	t.Setenv("SHARD_DISABLE_DB", "true")
	t.Setenv("DEPLOY_ENV", "production")

	cfg, err := loadServerConfig([]string{"-addr", ":1234", "-data", "./other"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.DataDir != "/tmp/shard" {
		t.Fatalf("env did not override flags: %+v", cfg)
	}
	if !cfg.DisableDB {
		t.Fatalf("expected db disabled")
	}
	if cfg.EnableAdmin {
		t.Fatalf("admin must default off in production")
	}
	if cfg.IndexBackend != "sqlite" {
		t.Fatalf("index backend=%q", cfg.IndexBackend)
	}
}

func TestLoadServerConfig_ExplicitAdminWins(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "staging")
	t.Setenv("SHARD_ENABLE_ADMIN_HTTP", "true")

	cfg, err := loadServerConfig(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.EnableAdmin {
		t.Fatalf("expected admin enabled")
	}
}

func TestOpenRuntimeIndex_Backends(t *testing.T) {
	idx, err := openRuntimeIndex(serverConfig{IndexBackend: "none", DataDir: t.TempDir()}, nil)
	if err != nil || idx != nil {
		t.Fatalf("none backend: idx=%v err=%v", idx, err)
	}
	if _, err := openRuntimeIndex(serverConfig{IndexBackend: "d1", DataDir: t.TempDir()}, nil); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
	idx, err = openRuntimeIndex(serverConfig{IndexBackend: "sqlite", DataDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	defer idx.Close()
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:5000":     true,
		"10.0.0.2:5000":  false,
		"garbage":        false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", addr, got, want)
		}
	}
}

func TestMetricsHandler_Exposition(t *testing.T) {
	sess, err := session.New(tuning.Defaults().SessionConfig(), session.Options{}, nil)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	sess.StepOnce([]session.JoinRequest{{Name: "a"}}, nil, nil)

	rec := httptest.NewRecorder()
	metricsHandler(sess, nil)(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"shardthief_tick 0", "shardthief_players 1", "shardthief_round_active 0"} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}
