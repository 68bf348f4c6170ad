package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"shardthief.gg/internal/sim/session"
	"shardthief.gg/internal/sim/tuning"
)

// SQLiteIndex is a queryable read-model of the session logs. Writes are
// queued to a single writer goroutine and dropped when the queue is full.
type SQLiteIndex struct {
	db  *sql.DB
	log *log.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropRound    atomic.Uint64
	dropTransfer atomic.Uint64

	// A failed statement rolls back the whole open batch.
	rollbacks atomic.Uint64
	lostOps   atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqRoundStart
	reqRoundFinish
	reqTransfer
	reqSync
)

type req struct {
	kind reqKind

	tick     session.TickLogEntry
	start    session.RoundStart
	finish   session.RoundFinish
	transfer session.RoundTransfer
	done     chan struct{}
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropTickTotal     uint64
	DropRoundTotal    uint64
	DropTransferTotal uint64
	RollbackTotal     uint64
	LostOpsTotal      uint64
}

var (
	_ session.TickLogger = (*SQLiteIndex)(nil)
	_ session.Sink       = (*SQLiteIndex)(nil)
)

func OpenSQLite(path string, logger *log.Logger) (*SQLiteIndex, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:  db,
		log: logger,
		ch:  make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tuning (
			digest TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			phase TEXT NOT NULL,
			round_id TEXT,
			digest TEXT NOT NULL,
			joins INTEGER NOT NULL,
			leaves INTEGER NOT NULL,
			actions INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			round_id TEXT PRIMARY KEY,
			number INTEGER NOT NULL,
			start_tick INTEGER NOT NULL,
			end_tick INTEGER,
			participants INTEGER NOT NULL,
			winner TEXT,
			winner_name TEXT,
			reason TEXT,
			config_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS round_participants (
			round_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			name TEXT NOT NULL,
			slot INTEGER NOT NULL,
			PRIMARY KEY (round_id, player_id)
		);`,
		`CREATE TABLE IF NOT EXISTS transfers (
			round_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			kind TEXT NOT NULL,
			from_id TEXT,
			to_id TEXT,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			reason TEXT,
			PRIMARY KEY (round_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_to ON transfers(to_id, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTickTotal:     s.dropTick.Load(),
		DropRoundTotal:    s.dropRound.Load(),
		DropTransferTotal: s.dropTransfer.Load(),
		RollbackTotal:     s.rollbacks.Load(),
		LostOpsTotal:      s.lostOps.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// JSONL logs remain the source of truth.
		drops.Add(1)
	}
}

func (s *SQLiteIndex) WriteTick(entry session.TickLogEntry) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqTick, tick: entry}, &s.dropTick)
	return nil
}

func (s *SQLiteIndex) RoundStarted(r session.RoundStart) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqRoundStart, start: r}, &s.dropRound)
}

func (s *SQLiteIndex) RoundFinished(r session.RoundFinish) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqRoundFinish, finish: r}, &s.dropRound)
}

func (s *SQLiteIndex) RoundTransferred(t session.RoundTransfer) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqTransfer, transfer: t}, &s.dropTransfer)
}

// Sync blocks until everything queued so far is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertTuning stores the tuning values the server actually applies.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	digest := hex.EncodeToString(sum[:])
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tuning_digest',?)`, digest); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO tuning(digest,json,updated_at) VALUES(?,?,?)`, digest, string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,phase,round_id,digest,joins,leaves,actions,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertRound, _ := s.db.Prepare(`INSERT OR REPLACE INTO rounds(round_id,number,start_tick,participants,config_json) VALUES(?,?,?,?,?)`)
	insertParticipant, _ := s.db.Prepare(`INSERT OR REPLACE INTO round_participants(round_id,player_id,name,slot) VALUES(?,?,?,?)`)
	finishRound, _ := s.db.Prepare(`UPDATE rounds SET end_tick=?, winner=?, winner_name=?, reason=? WHERE round_id=?`)
	insertTransfer, _ := s.db.Prepare(`INSERT OR REPLACE INTO transfers(round_id,seq,tick,kind,from_id,to_id,x,y,z,reason) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertRound, insertParticipant, finishRound, insertTransfer} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		transferRound string
		transferSeq   int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.lostOps.Add(1)
			s.log.Printf("index begin: %v", err)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.rollbacks.Add(1)
			s.lostOps.Add(uint64(opCount))
			s.log.Printf("index commit: %v; lost %d ops", err, opCount)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func(cause error) {
		if tx == nil {
			return
		}
		// The failing op plus everything already in the batch.
		lost := opCount + 1
		s.rollbacks.Add(1)
		s.lostOps.Add(uint64(lost))
		s.log.Printf("index write: %v; rolled back %d ops", cause, lost)
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback(err)
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			b, _ := json.Marshal(r.tick)
			exec(insertTick,
				int64(r.tick.Tick),
				string(r.tick.Phase),
				r.tick.RoundID,
				r.tick.Digest,
				len(r.tick.Joins),
				len(r.tick.Leaves),
				len(r.tick.Actions),
				string(b),
			)

		case reqRoundStart:
			st := r.start
			cfg, _ := json.Marshal(st.Config)
			if !exec(insertRound, st.RoundID, st.Number, int64(st.Tick), len(st.Participants), string(cfg)) {
				continue
			}
			for i, p := range st.Participants {
				if !exec(insertParticipant, st.RoundID, string(p.ID), p.Name, i) {
					break
				}
			}

		case reqRoundFinish:
			f := r.finish
			exec(finishRound, int64(f.Tick), f.Winner, f.WinnerName, f.Reason, f.RoundID)

		case reqTransfer:
			t := r.transfer
			if t.RoundID != transferRound {
				transferRound = t.RoundID
				transferSeq = 0
			}
			seq := transferSeq
			transferSeq++
			tr := t.Transfer
			exec(insertTransfer,
				t.RoundID,
				seq,
				int64(t.Tick),
				string(tr.Kind),
				string(tr.From),
				string(tr.To),
				tr.Pos[0], tr.Pos[1], tr.Pos[2],
				tr.Reason,
			)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
