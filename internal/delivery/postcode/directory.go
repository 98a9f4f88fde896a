package postcode

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/xinzuo/storefront-services/internal/observability/metrics"
	"github.com/xinzuo/storefront-services/pkg/logging"
)

var directoryTracer = otel.Tracer("storefront.internal.delivery.postcode")

// MinQueryLength is the shortest trimmed query Search will answer.
const MinQueryLength = 2

// ErrNoSource is wrapped in the LoadError returned when no dataset is configured.
var ErrNoSource = errors.New("postcode: no dataset source")

type indexedEntry struct {
	Entry
	folded string
}

// Directory is a lazily loaded, read-only postcode table. The first Ensure
// call triggers the load; concurrent callers share the in-flight fetch and a
// failed load is retried on the next call.
type Directory struct {
	loader  Loader
	logger  *logging.Logger
	metrics *metrics.StorefrontMetrics

	group singleflight.Group

	mu         sync.RWMutex
	loaded     bool
	entries    []indexedEntry
	byPostcode map[string]int
	byLocality map[string]int
}

// Option configures a Directory.
type Option func(*Directory)

func WithLogger(logger *logging.Logger) Option {
	return func(d *Directory) { d.logger = logger }
}

func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(d *Directory) { d.metrics = m }
}

// NewDirectory creates an empty directory backed by loader.
func NewDirectory(loader Loader, opts ...Option) *Directory {
	d := &Directory{loader: loader}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.Default()
	}
	return d
}

// Loaded reports whether the dataset is available.
func (d *Directory) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// Ensure loads the dataset once. ctx bounds only this caller's wait; the
// shared load keeps running for other waiters if ctx is cancelled.
func (d *Directory) Ensure(ctx context.Context) error {
	if d.Loaded() {
		return nil
	}
	if d.loader == nil {
		return &LoadError{Source: "unconfigured", Err: ErrNoSource}
	}

	ch := d.group.DoChan("load", func() (interface{}, error) {
		if d.Loaded() {
			return nil, nil
		}
		return nil, d.load(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (d *Directory) load(ctx context.Context) error {
	ctx, span := directoryTracer.Start(ctx, "postcode.directory.load")
	defer span.End()

	start := time.Now()
	entries, err := d.loader.Load(ctx)
	d.metrics.ObserveDirectoryLoad(err, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		d.logger.Warn("postcode directory load failed", "error", err)
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			err = &LoadError{Source: "dataset", Err: err}
		}
		return err
	}

	fold := cases.Fold()
	indexed := make([]indexedEntry, len(entries))
	byPostcode := make(map[string]int, len(entries))
	byLocality := make(map[string]int, len(entries))
	for i, e := range entries {
		folded := fold.String(e.Locality)
		indexed[i] = indexedEntry{Entry: e, folded: folded}
		if _, ok := byPostcode[e.Postcode]; !ok {
			byPostcode[e.Postcode] = i
		}
		if _, ok := byLocality[folded]; !ok {
			byLocality[folded] = i
		}
	}

	d.mu.Lock()
	d.entries = indexed
	d.byPostcode = byPostcode
	d.byLocality = byLocality
	d.loaded = true
	d.mu.Unlock()

	span.SetAttributes(attribute.Int("storefront.postcode.entries", len(entries)))
	d.logger.Info("postcode directory loaded", "entries", len(entries), "duration", time.Since(start))
	return nil
}

// Len returns the number of loaded entries.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// FindByPostcode returns the first entry for code.
func (d *Directory) FindByPostcode(code string) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.byPostcode[strings.TrimSpace(code)]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i].Entry, true
}

// FindByLocality returns the first entry whose locality equals name, ignoring
// case.
func (d *Directory) FindByLocality(name string) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.byLocality[cases.Fold().String(strings.TrimSpace(name))]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i].Entry, true
}

// Search returns entries whose postcode or locality contains query, ignoring
// case, in dataset order. Queries shorter than MinQueryLength return nothing.
func (d *Directory) Search(query string, limit int) []Entry {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength || limit <= 0 {
		return nil
	}
	folded := cases.Fold().String(query)

	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Entry
	for _, e := range d.entries {
		if strings.Contains(e.Postcode, query) || strings.Contains(e.folded, folded) {
			out = append(out, e.Entry)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// Duplicates lists entries whose postcode and locality repeat an earlier
// entry. A clean dataset has none.
func (d *Directory) Duplicates() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := make(map[[2]string]struct{}, len(d.entries))
	var out []Entry
	for _, e := range d.entries {
		key := [2]string{e.Postcode, e.folded}
		if _, ok := seen[key]; ok {
			out = append(out, e.Entry)
			continue
		}
		seen[key] = struct{}{}
	}
	return out
}
