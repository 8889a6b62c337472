//go:build integration
// +build integration

package integration

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"cuepoint/internal/api"
	"cuepoint/internal/config"
	"cuepoint/internal/coordinator"
	"cuepoint/internal/db"
	"cuepoint/internal/metrics"
	"cuepoint/internal/models"
	"cuepoint/internal/presentation"
	"cuepoint/internal/schedule"
	"cuepoint/internal/vast"
)

// Ad playlist with a pre-roll, a mid-roll and a post-roll, all pointing at
// the stub ad server's VAST endpoint.
const testSchedule = `<?xml version="1.0" encoding="UTF-8"?>
<AdPlaylist version="1.0">
  <AdBreak timeOffset="start" breakId="pre">
    <AdSource id="src-1"><AdTagURI><![CDATA[{base}/vast]]></AdTagURI></AdSource>
  </AdBreak>
  <AdBreak timeOffset="00:05:00" breakId="mid">
    <AdSource id="src-2"><AdTagURI><![CDATA[{base}/vast]]></AdTagURI></AdSource>
  </AdBreak>
  <AdBreak timeOffset="end" breakId="post">
    <AdSource id="src-3"><AdTagURI><![CDATA[{base}/vast]]></AdTagURI></AdSource>
  </AdBreak>
</AdPlaylist>`

const testVAST = `<?xml version="1.0" encoding="UTF-8"?>
<VAST version="3.0">
  <Ad id="ad-1">
    <InLine>
      <AdSystem>TestAds</AdSystem>
      <AdTitle>Sample Spot</AdTitle>
      <Impression><![CDATA[{base}/pixel]]></Impression>
      <Creatives>
        <Creative id="cr-1">
          <Linear skipoffset="00:00:06">
            <Duration>00:00:15</Duration>
            <TrackingEvents>
              <Tracking event="firstQuartile"><![CDATA[{base}/pixel]]></Tracking>
              <Tracking event="midpoint"><![CDATA[{base}/pixel]]></Tracking>
              <Tracking event="thirdQuartile"><![CDATA[{base}/pixel]]></Tracking>
              <Tracking event="complete"><![CDATA[{base}/pixel]]></Tracking>
            </TrackingEvents>
            <VideoClicks>
              <ClickThrough><![CDATA[https://brand.example.com/landing]]></ClickThrough>
            </VideoClicks>
            <MediaFiles>
              <MediaFile delivery="progressive" type="video/mp4"><![CDATA[https://cdn.example.com/creative.mp4]]></MediaFile>
            </MediaFiles>
          </Linear>
        </Creative>
      </Creatives>
    </InLine>
  </Ad>
</VAST>`

// testStack holds the full wired service under test: a gin router backed by
// a real coordinator, sqlite database and stub ad server.
type testStack struct {
	Router      *gin.Engine
	Coordinator *coordinator.Coordinator
	Repos       *db.Repositories
	Hub         *presentation.Hub
	AdServer    *httptest.Server
}

// setupTestDB creates a temp-file test database with migrations applied
func setupTestDB(t *testing.T) (*db.DB, *db.Repositories) {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { _ = database.Close() })

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err, "Failed to get SQL DB")

	// Get absolute path to migrations directory relative to this file
	// so tests work regardless of working directory
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	testDir := filepath.Dir(filename)                     // test/integration
	rootDir := filepath.Dir(filepath.Dir(testDir))        // module root
	migrationsPath := "file://" + filepath.Join(rootDir, "migrations")

	require.NoError(t, db.RunMigrations(sqlDB, migrationsPath), "Failed to run migrations")

	return database, db.NewRepositories(database)
}

// startAdServer runs a stub ad server speaking the schedule and VAST
// endpoints plus a tracking pixel sink
func startAdServer(t *testing.T) *httptest.Server {
	t.Helper()

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/vmap", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(strings.ReplaceAll(testSchedule, "{base}", server.URL)))
	})
	mux.HandleFunc("/vast", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(strings.ReplaceAll(testVAST, "{base}", server.URL)))
	})
	mux.HandleFunc("/pixel", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// setupStack wires the real playback stack behind a test router
func setupStack(t *testing.T) *testStack {
	t.Helper()

	database, repos := setupTestDB(t)
	adServer := startAdServer(t)
	hub := presentation.NewHub()

	cfg := &config.PlaybackConfig{
		DefaultMode:       models.TimelineModeContentRelative,
		TouchInterval:     time.Hour,
		StaleAfter:        time.Hour,
		JournalRetention:  24 * time.Hour,
		CleanupInterval:   time.Hour,
		PixelTimeout:      time.Second,
		CueDriftTolerance: 1.0,
	}

	coord := coordinator.NewCoordinator(
		repos,
		schedule.NewClient(adServer.URL+"/vmap", 300, 5*time.Second),
		schedule.NewBuilder(30, 5),
		vast.NewResolver(5*time.Second, 30, 5),
		nil,
		hub,
		metrics.New(),
		cfg,
	)
	t.Cleanup(coord.Stop)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	apiGroup := router.Group("/api")
	api.SetupHealthRoutes(apiGroup, database)
	api.SetupSessionRoutes(apiGroup, coord, hub)

	return &testStack{
		Router:      router,
		Coordinator: coord,
		Repos:       repos,
		Hub:         hub,
		AdServer:    adServer,
	}
}
