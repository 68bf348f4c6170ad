package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"shardthief.gg/internal/sim/session"
)

// ListFiles returns the prefix-*.jsonl.zst files of dir in name order, which
// is also hour order.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ScanFile decodes every line of a JSONL+zstd file into fn.
func ScanFile(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return sc.Err()
}

// ReadTickLog reads every tick entry under dataDir/events in order.
func ReadTickLog(dataDir string) ([]session.TickLogEntry, error) {
	files, err := ListFiles(filepath.Join(dataDir, "events"), "events")
	if err != nil {
		return nil, err
	}
	var out []session.TickLogEntry
	for _, path := range files {
		err := ScanFile(path, func(line []byte) error {
			var e session.TickLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			out = append(out, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func ReadRoundLog(dataDir string) ([]RoundRecord, error) {
	files, err := ListFiles(filepath.Join(dataDir, "rounds"), "rounds")
	if err != nil {
		return nil, err
	}
	var out []RoundRecord
	for _, path := range files {
		err := ScanFile(path, func(line []byte) error {
			var r RoundRecord
			if err := json.Unmarshal(line, &r); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			out = append(out, r)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
