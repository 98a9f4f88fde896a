package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/xinzuo/storefront-services/internal/config"
	"github.com/xinzuo/storefront-services/internal/delivery/calendar"
	"github.com/xinzuo/storefront-services/internal/delivery/locate"
	"github.com/xinzuo/storefront-services/internal/delivery/postcode"
	"github.com/xinzuo/storefront-services/internal/observability/metrics"
	"github.com/xinzuo/storefront-services/pkg/logging"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		DeliveryTimezone: calendar.DefaultTimezone,
		CutoffTime:       "12:00",
		EnableHolidays:   true,
		SuggestionLimit:  10,
		SessionTTL:       time.Hour,
	}
}

func TestBuildRedisClientDisabled(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), nil, nil, true))
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true))
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), cfg, logging.New("error"), true))
}

func TestBuildSessionStore(t *testing.T) {
	cfg := testConfig()

	_, isMemory := BuildSessionStore(nil, cfg, logging.New("error")).(*locate.MemorySessionStore)
	assert.True(t, isMemory)

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, false)
	t.Cleanup(func() { _ = client.Close() })

	store := BuildSessionStore(client, cfg, logging.New("error"))
	_, isRedis := store.(*locate.RedisSessionStore)
	require.True(t, isRedis)

	require.NoError(t, store.Set(context.Background(), "s1", locate.Detection{Postcode: "4000", Source: locate.SourceIP}))
	assert.Equal(t, time.Hour, mr.TTL("delivery:session:s1"))
}

func TestBuildCalendar(t *testing.T) {
	_, err := BuildCalendar(nil)
	assert.Error(t, err)

	cal, err := BuildCalendar(testConfig())
	require.NoError(t, err)
	assert.Equal(t, calendar.DefaultHolidays().Len(), cal.Holidays().Len())

	cfg := testConfig()
	cfg.HolidaysFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = BuildCalendar(cfg)
	assert.Error(t, err)
}

func TestBuildPostcodeLoader(t *testing.T) {
	assert.Nil(t, BuildPostcodeLoader(nil))
	assert.Nil(t, BuildPostcodeLoader(testConfig()))

	cfg := testConfig()
	cfg.PostcodeDatasetURL = "https://example.com/postcodes.json"
	_, isHTTP := BuildPostcodeLoader(cfg).(*postcode.HTTPLoader)
	assert.True(t, isHTTP)

	cfg.PostcodeDatasetFile = "postcodes.json"
	_, isFile := BuildPostcodeLoader(cfg).(*postcode.FileLoader)
	assert.True(t, isFile)
}

func TestBuildDeliveryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postcodes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"postcode":"4000","locality":"Brisbane City"}]`), 0o600))

	cfg := testConfig()
	cfg.PostcodeDatasetFile = path
	m := metrics.NewStorefrontMetrics(prometheus.NewRegistry())

	d, err := BuildDelivery(cfg, nil, logging.New("error"), m)
	require.NoError(t, err)
	assert.Equal(t, calendar.DefaultCutoff, d.Cutoff)
	_, isMemory := d.Sessions.(*locate.MemorySessionStore)
	assert.True(t, isMemory)

	res, err := d.Service.Check(context.Background(), "Brisbane City")
	require.NoError(t, err)
	assert.Equal(t, "4000", res.Selection.Postcode)
	assert.True(t, d.Directory.Loaded())
}

func TestBuildDeliveryBadCutoff(t *testing.T) {
	cfg := testConfig()
	cfg.CutoffTime = "noon"
	_, err := BuildDelivery(cfg, nil, nil, nil)
	assert.Error(t, err)
}

func TestBuildEngraving(t *testing.T) {
	assert.Nil(t, BuildEngraving(&appconfig.Config{}, nil, nil))

	svc := BuildEngraving(&appconfig.Config{StorefrontBaseURL: "https://shop.example"}, nil, nil)
	assert.NotNil(t, svc)
}
