package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/sync/errgroup"

	persistlog "shardthief.gg/internal/persistence/log"
	"shardthief.gg/internal/sim/session"
	"shardthief.gg/internal/sim/tuning"
	"shardthief.gg/internal/transport/ws"
)

// envConfig overrides flags when the variables are set.
type envConfig struct {
	Addr         string `env:"SHARD_ADDR"`
	DataDir      string `env:"SHARD_DATA_DIR"`
	Tuning       string `env:"SHARD_TUNING"`
	DisableDB    bool   `env:"SHARD_DISABLE_DB"`
	IndexBackend string `env:"SHARD_INDEX_BACKEND" envDefault:"sqlite"`
	EnableAdmin  string `env:"SHARD_ENABLE_ADMIN_HTTP"`
	EnablePprof  bool   `env:"SHARD_ENABLE_PPROF_HTTP"`
	DeployEnv    string `env:"DEPLOY_ENV"`
}

type serverConfig struct {
	Addr         string
	DataDir      string
	TuningPath   string
	DisableDB    bool
	IndexBackend string
	EnableAdmin  bool
	EnablePprof  bool
}

func loadServerConfig(args []string) (serverConfig, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	var (
		addr       = fs.String("addr", ":8080", "http listen address")
		dataDir    = fs.String("data", "./data", "runtime data directory")
		tuningPath = fs.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		disableDB  = fs.Bool("disable_db", false, "disable the sqlite round index")
	)
	if err := fs.Parse(args); err != nil {
		return serverConfig{}, err
	}

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return serverConfig{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := serverConfig{
		Addr:         *addr,
		DataDir:      *dataDir,
		TuningPath:   *tuningPath,
		DisableDB:    *disableDB || ec.DisableDB,
		IndexBackend: strings.ToLower(strings.TrimSpace(ec.IndexBackend)),
		EnableAdmin:  defaultEnableAdminHTTP(ec.DeployEnv),
		EnablePprof:  ec.EnablePprof,
	}
	if v := strings.TrimSpace(ec.Addr); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(ec.DataDir); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(ec.Tuning); v != "" {
		cfg.TuningPath = v
	}
	if v := strings.TrimSpace(ec.EnableAdmin); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return serverConfig{}, fmt.Errorf("SHARD_ENABLE_ADMIN_HTTP: %w", err)
		}
		cfg.EnableAdmin = b
	}
	return cfg, nil
}

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := loadServerConfig(os.Args[1:])
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	tune, err := tuning.Load(cfg.TuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", cfg.TuningPath)
		tune = tuning.Defaults()
	}
	_ = os.MkdirAll(cfg.DataDir, 0o755)

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(cfg, log.New(os.Stdout, "[index] ", log.LstdFlags|log.Lmicroseconds))
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	tickLog := persistlog.NewTickLogger(cfg.DataDir)
	defer tickLog.Close()
	roundLog := persistlog.NewRoundLogger(cfg.DataDir, func(err error) { logger.Printf("%v", err) })
	defer roundLog.Close()

	opts := session.Options{
		TickLogger: multiTickLogger{a: tickLog, b: idx},
		Sinks:      []session.Sink{roundLog},
	}
	if idx != nil {
		opts.Sinks = append(opts.Sinks, idx)
	}
	sessLogger := log.New(os.Stdout, "[session] ", log.LstdFlags|log.Lmicroseconds)
	sess, err := session.New(tune.SessionConfig(), opts, sessLogger)
	if err != nil {
		logger.Fatalf("session: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(sess, idx))

	if cfg.EnableAdmin {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(sess.Metrics())
		})
		if idx != nil {
			mux.HandleFunc("/admin/v1/rounds", roundsHandler(idx))
		}
	} else {
		logger.Printf("admin endpoints disabled (SHARD_ENABLE_ADMIN_HTTP=false)")
	}
	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	wsLogger := log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds)
	mux.HandleFunc("/v1/ws", ws.NewServer(sess, wsLogger).Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// The session stops before deferred log and index closes run.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sess.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("session: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Printf("listening on %s data=%s tuning=%s", cfg.Addr, filepath.Clean(cfg.DataDir), cfg.TuningPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ListenAndServe: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})
	if err := g.Wait(); err != nil {
		logger.Printf("server stopped: %v", err)
	}
}

func metricsHandler(sess *session.Session, idx runtimeIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := sess.Metrics()

		active := 0
		if m.Phase == session.PhaseActive {
			active = 1
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP shardthief_tick Current session tick.\n")
		fmt.Fprintf(rw, "# TYPE shardthief_tick gauge\n")
		fmt.Fprintf(rw, "shardthief_tick %d\n", m.Tick)

		fmt.Fprintf(rw, "# HELP shardthief_round_active Whether a round is running.\n")
		fmt.Fprintf(rw, "# TYPE shardthief_round_active gauge\n")
		fmt.Fprintf(rw, "shardthief_round_active %d\n", active)

		fmt.Fprintf(rw, "# HELP shardthief_rounds_total Rounds started since boot.\n")
		fmt.Fprintf(rw, "# TYPE shardthief_rounds_total counter\n")
		fmt.Fprintf(rw, "shardthief_rounds_total %d\n", m.Rounds)

		fmt.Fprintf(rw, "# HELP shardthief_players Connected players.\n")
		fmt.Fprintf(rw, "# TYPE shardthief_players gauge\n")
		fmt.Fprintf(rw, "shardthief_players %d\n", m.Players)

		fmt.Fprintf(rw, "# HELP shardthief_hold_percent Hold bar value.\n")
		fmt.Fprintf(rw, "# TYPE shardthief_hold_percent gauge\n")
		fmt.Fprintf(rw, "shardthief_hold_percent %.6f\n", m.HoldPercent)

		fmt.Fprintf(rw, "# HELP shardthief_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE shardthief_queue_depth gauge\n")
		fmt.Fprintf(rw, "shardthief_queue_depth{queue=%q} %d\n", "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "shardthief_queue_depth{queue=%q} %d\n", "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "shardthief_queue_depth{queue=%q} %d\n", "leave", m.QueueDepths.Leave)

		fmt.Fprintf(rw, "# HELP shardthief_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE shardthief_step_ms gauge\n")
		fmt.Fprintf(rw, "shardthief_step_ms %.3f\n", m.StepMS)

		if idx != nil {
			st := idx.Stats()
			fmt.Fprintf(rw, "# HELP shardthief_index_dropped_total Index writes dropped because the queue was full.\n")
			fmt.Fprintf(rw, "# TYPE shardthief_index_dropped_total counter\n")
			fmt.Fprintf(rw, "shardthief_index_dropped_total{kind=%q} %d\n", "tick", st.DropTickTotal)
			fmt.Fprintf(rw, "shardthief_index_dropped_total{kind=%q} %d\n", "round", st.DropRoundTotal)
			fmt.Fprintf(rw, "shardthief_index_dropped_total{kind=%q} %d\n", "transfer", st.DropTransferTotal)
			fmt.Fprintf(rw, "# HELP shardthief_index_rollbacks_total Index batches rolled back after a failed write.\n")
			fmt.Fprintf(rw, "# TYPE shardthief_index_rollbacks_total counter\n")
			fmt.Fprintf(rw, "shardthief_index_rollbacks_total %d\n", st.RollbackTotal)
			fmt.Fprintf(rw, "# HELP shardthief_index_rolled_back_ops_total Index writes lost to rolled back batches.\n")
			fmt.Fprintf(rw, "# TYPE shardthief_index_rolled_back_ops_total counter\n")
			fmt.Fprintf(rw, "shardthief_index_rolled_back_ops_total %d\n", st.LostOpsTotal)
		}
	}
}

func roundsHandler(idx runtimeIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		rows, err := idx.Rounds(ctx, 50)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "rounds": rows})
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP(deployEnv string) bool {
	switch strings.ToLower(strings.TrimSpace(deployEnv)) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

type multiTickLogger struct {
	a session.TickLogger
	b session.TickLogger
}

func (m multiTickLogger) WriteTick(entry session.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}
