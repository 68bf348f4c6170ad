package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shardthief.gg/internal/persistence/indexdb"
	persistlog "shardthief.gg/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "log":
			logCmd(os.Args[2:])
			return
		case "reindex":
			reindexCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the log files written by the server.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	for _, sub := range []string{"events", "rounds"} {
		files, err := persistlog.ListFiles(filepath.Join(*dataDir, sub), sub)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		for _, f := range files {
			fmt.Println(f)
		}
	}
}

// logCmd prints the rounds log, optionally filtered to one round.
func logCmd(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	roundID := fs.String("round", "", "round_id filter (optional)")
	_ = fs.Parse(args)

	recs, err := persistlog.ReadRoundLog(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read rounds log:", err)
		os.Exit(1)
	}
	for _, rec := range filterRecords(recs, strings.TrimSpace(*roundID)) {
		printJSON(rec)
	}
}

func filterRecords(recs []persistlog.RoundRecord, roundID string) []persistlog.RoundRecord {
	if roundID == "" {
		return recs
	}
	out := make([]persistlog.RoundRecord, 0, len(recs))
	for _, rec := range recs {
		if recordRoundID(rec) == roundID {
			out = append(out, rec)
		}
	}
	return out
}

func recordRoundID(rec persistlog.RoundRecord) string {
	switch {
	case rec.Start != nil:
		return rec.Start.RoundID
	case rec.Transfer != nil:
		return rec.Transfer.RoundID
	case rec.Finish != nil:
		return rec.Finish.RoundID
	}
	return ""
}

// reindexCmd rebuilds the sqlite read model from the rounds log. The index
// drops writes under backpressure; the log does not.
func reindexCmd(args []string) {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "output sqlite path (defaults to data/index/rounds.sqlite)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "rounds.sqlite")
	}
	n, err := reindex(*dataDir, path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reindex:", err)
		os.Exit(1)
	}
	fmt.Printf("reindex ok: records=%d db=%s\n", n, path)
}

func reindex(dataDir, dbPath string) (int, error) {
	recs, err := persistlog.ReadRoundLog(dataDir)
	if err != nil {
		return 0, fmt.Errorf("read rounds log: %w", err)
	}
	idx, err := indexdb.OpenSQLite(dbPath, nil)
	if err != nil {
		return 0, fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	n := 0
	for _, rec := range recs {
		switch {
		case rec.Start != nil:
			idx.RoundStarted(*rec.Start)
		case rec.Transfer != nil:
			idx.RoundTransferred(*rec.Transfer)
		case rec.Finish != nil:
			idx.RoundFinished(*rec.Finish)
		default:
			continue
		}
		n++
		// Flush periodically so the bounded queue never drops.
		if n%256 == 0 {
			if err := syncIndex(idx); err != nil {
				return n, err
			}
		}
	}
	if err := syncIndex(idx); err != nil {
		return n, err
	}
	if st := idx.Stats(); st.DropRoundTotal+st.DropTransferTotal > 0 {
		return n, fmt.Errorf("index dropped %d round and %d transfer writes", st.DropRoundTotal, st.DropTransferTotal)
	}
	return n, nil
}

func syncIndex(idx *indexdb.SQLiteIndex) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return idx.Sync(ctx)
}
