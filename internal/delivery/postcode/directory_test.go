package postcode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinzuo/storefront-services/internal/observability/metrics"
)

const sampleDataset = `[
	{"postcode": "2000", "locality": "Sydney"},
	{"postcode": "2000", "locality": "Barangaroo"},
	{"postcode": "2010", "locality": "Surry Hills"},
	{"postcode": "3141", "locality": "South Yarra"},
	{"postcode": "4000", "locality": "Brisbane City"},
	{"postcode": "4000", "locality": "Spring Hill"},
	{"postcode": "2060", "locality": "North Sydney"}
]`

func loadedDirectory(t *testing.T) *Directory {
	t.Helper()
	path := filepath.Join(t.TempDir(), "postcodes.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDataset), 0o600))
	dir := NewDirectory(NewFileLoader(path))
	require.NoError(t, dir.Ensure(context.Background()))
	return dir
}

func TestSearchSubstringCaseInsensitive(t *testing.T) {
	dir := loadedDirectory(t)

	got := dir.Search("syd", 10)
	require.Len(t, got, 2)
	assert.Equal(t, Entry{Postcode: "2000", Locality: "Sydney"}, got[0])
	assert.Equal(t, Entry{Postcode: "2060", Locality: "North Sydney"}, got[1])

	assert.Equal(t, []Entry{{Postcode: "2000", Locality: "Sydney"}}, dir.Search("SYD", 1))
}

func TestSearchMatchesPostcodeDigits(t *testing.T) {
	dir := loadedDirectory(t)
	got := dir.Search("400", 10)
	require.Len(t, got, 2)
	assert.Equal(t, "Brisbane City", got[0].Locality)
	assert.Equal(t, "Spring Hill", got[1].Locality)
}

func TestSearchMinimumLengthGate(t *testing.T) {
	dir := loadedDirectory(t)
	assert.Empty(t, dir.Search("s", 10))
	assert.Empty(t, dir.Search("  s ", 10))
	assert.Empty(t, dir.Search("", 10))
	assert.Empty(t, dir.Search("sy", 0))
}

func TestFindByPostcodeFirstMatchWins(t *testing.T) {
	dir := loadedDirectory(t)

	e, ok := dir.FindByPostcode("4000")
	require.True(t, ok)
	assert.Equal(t, "Brisbane City", e.Locality)

	_, ok = dir.FindByPostcode("9999")
	assert.False(t, ok)
}

func TestFindByLocality(t *testing.T) {
	dir := loadedDirectory(t)

	e, ok := dir.FindByLocality("  surry HILLS ")
	require.True(t, ok)
	assert.Equal(t, "2010", e.Postcode)

	_, ok = dir.FindByLocality("Surry")
	assert.False(t, ok)
}

func TestDuplicates(t *testing.T) {
	dir := NewDirectory(StaticLoader{
		{Postcode: "2000", Locality: "Sydney"},
		{Postcode: "2000", Locality: "SYDNEY"},
		{Postcode: "2001", Locality: "Sydney"},
	})
	require.NoError(t, dir.Ensure(context.Background()))
	assert.Equal(t, []Entry{{Postcode: "2000", Locality: "SYDNEY"}}, dir.Duplicates())

	assert.Empty(t, loadedDirectory(t).Duplicates())
}

func TestLookupsBeforeLoad(t *testing.T) {
	dir := NewDirectory(StaticLoader{{Postcode: "2000", Locality: "Sydney"}})
	assert.False(t, dir.Loaded())
	assert.Empty(t, dir.Search("syd", 5))
	_, ok := dir.FindByPostcode("2000")
	assert.False(t, ok)
}

func TestEnsureCoalescesConcurrentLoads(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleDataset))
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	dir := NewDirectory(NewHTTPLoader(srv.URL, nil), WithMetrics(metrics.NewStorefrontMetrics(reg)))

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- dir.Ensure(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	// Give the remaining callers time to join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 7, dir.Len())

	require.NoError(t, dir.Ensure(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEnsureRetriesAfterFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleDataset))
	}))
	defer srv.Close()

	dir := NewDirectory(NewHTTPLoader(srv.URL, nil))

	err := dir.Ensure(context.Background())
	require.Error(t, err)
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, loadErr.Error(), "status 503")
	assert.False(t, dir.Loaded())

	require.NoError(t, dir.Ensure(context.Background()))
	assert.True(t, dir.Loaded())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEnsureCallerCancellationDoesNotAbortSharedLoad(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(sampleDataset))
	}))
	defer srv.Close()

	dir := NewDirectory(NewHTTPLoader(srv.URL, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dir.Ensure(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, dir.Loaded, time.Second, 5*time.Millisecond)
}

func TestMalformedDataset(t *testing.T) {
	tests := map[string]string{
		"not json":       `{"postcode": "2000"`,
		"short postcode": `[{"postcode": "200", "locality": "Canberra"}]`,
		"no locality":    `[{"postcode": "2000", "locality": " "}]`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			dir := NewDirectory(NewHTTPLoader(srv.URL, nil))
			var loadErr *LoadError
			require.ErrorAs(t, dir.Ensure(context.Background()), &loadErr)
		})
	}
}

func TestFileLoaderMissingFile(t *testing.T) {
	dir := NewDirectory(NewFileLoader(filepath.Join(t.TempDir(), "nope.json")))
	var loadErr *LoadError
	require.ErrorAs(t, dir.Ensure(context.Background()), &loadErr)
	assert.ErrorIs(t, loadErr, os.ErrNotExist)
}

func TestEnsureWithoutLoader(t *testing.T) {
	dir := NewDirectory(nil)
	var loadErr *LoadError
	err := dir.Ensure(context.Background())
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, ErrNoSource)
	assert.False(t, dir.Loaded())
}

func TestIsPostcode(t *testing.T) {
	assert.True(t, IsPostcode("0200"))
	assert.True(t, IsPostcode("4000"))
	assert.False(t, IsPostcode("400"))
	assert.False(t, IsPostcode("40000"))
	assert.False(t, IsPostcode("40a0"))
	assert.False(t, IsPostcode("４０００"))
}
