// Package postcode holds the postcode/locality directory used for suburb
// autocomplete and reverse lookup.
package postcode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Entry pairs a four-digit postcode with one locality it serves.
type Entry struct {
	Postcode string `json:"postcode"`
	Locality string `json:"locality"`
}

// Loader fetches the full directory dataset.
type Loader interface {
	Load(ctx context.Context) ([]Entry, error)
}

// LoadError reports an unreachable or malformed dataset.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("postcode: load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

const maxDatasetBytes = 32 << 20

// HTTPLoader downloads the dataset as a JSON array.
type HTTPLoader struct {
	url        string
	httpClient *http.Client
}

// NewHTTPLoader creates a loader for url. A nil client gets a 15s timeout.
func NewHTTPLoader(url string, client *http.Client) *HTTPLoader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPLoader{url: url, httpClient: client}
}

func (l *HTTPLoader) Load(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, &LoadError{Source: l.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &LoadError{Source: l.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &LoadError{Source: l.url, Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	entries, err := decodeEntries(io.LimitReader(resp.Body, maxDatasetBytes))
	if err != nil {
		return nil, &LoadError{Source: l.url, Err: err}
	}
	return entries, nil
}

// FileLoader reads the dataset from a local JSON file.
type FileLoader struct {
	path string
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

func (l *FileLoader) Load(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Source: l.path, Err: err}
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, &LoadError{Source: l.path, Err: err}
	}
	defer f.Close()

	entries, err := decodeEntries(f)
	if err != nil {
		return nil, &LoadError{Source: l.path, Err: err}
	}
	return entries, nil
}

// StaticLoader serves a fixed slice; useful for tests and embedded datasets.
type StaticLoader []Entry

func (s StaticLoader) Load(context.Context) ([]Entry, error) {
	return append([]Entry(nil), s...), nil
}

func decodeEntries(r io.Reader) ([]Entry, error) {
	var raw []Entry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for i, e := range raw {
		e.Postcode = strings.TrimSpace(e.Postcode)
		e.Locality = strings.TrimSpace(e.Locality)
		if !IsPostcode(e.Postcode) {
			return nil, fmt.Errorf("entry %d: invalid postcode %q", i, e.Postcode)
		}
		if e.Locality == "" {
			return nil, fmt.Errorf("entry %d: locality required", i)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// IsPostcode reports whether s is exactly four ASCII digits.
func IsPostcode(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
