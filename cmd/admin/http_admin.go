package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// stateCmd asks a running server for its live session snapshot, or for the
// recent rounds with -rounds. Admin endpoints only answer loopback clients.
func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	rounds := fs.Bool("rounds", false, "fetch recent rounds instead of live state")
	_ = fs.Parse(args)

	path := "/admin/v1/state"
	if *rounds {
		path = "/admin/v1/rounds"
	}
	b, err := fetchAdmin(&http.Client{Timeout: 5 * time.Second}, *baseURL, path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}

// fetchAdmin GETs baseURL+path and returns the body indented. Non-2xx
// responses are errors carrying the body.
func fetchAdmin(cl *http.Client, baseURL, path string) ([]byte, error) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	resp, err := cl.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%s: %s: %s", path, resp.Status, strings.TrimSpace(string(b)))
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return b, nil
	}
	return out.Bytes(), nil
}
