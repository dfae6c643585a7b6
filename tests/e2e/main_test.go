//go:build e2e

// Package e2e sends requests through the full server stack while the chat
// completion API and the media providers are replayed from recorded golden
// files. It catches decoding and wiring bugs that unit tests with fabricated
// fakes miss.
package e2e

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"curator/config"
	"curator/internal/app"
)

const masterKey = "e2e-master-key"

var (
	serverURL string
	upstream  *UpstreamServer
)

func TestMain(m *testing.M) {
	_, thisFile, _, _ := runtime.Caller(0)
	goldenDir := filepath.Join(filepath.Dir(thisFile), "testdata")

	// 1. Start golden file upstream
	upstream = NewUpstreamServer(goldenDir)

	// 2. Build the application against it
	port, err := findAvailablePort()
	if err != nil {
		upstream.Close()
		fmt.Printf("Failed to find available port: %v\n", err)
		os.Exit(1)
	}

	dbPath := filepath.Join(os.TempDir(), fmt.Sprintf("curator-e2e-%d.db", port))
	application, err := app.New(context.Background(), app.Config{
		AppConfig: &config.LoadResult{Config: buildConfig(upstream.URL(), port, dbPath)},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		upstream.Close()
		fmt.Printf("Failed to create app: %v\n", err)
		os.Exit(1)
	}

	// 3. Start the server on a random port
	serverURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	go func() {
		if err := application.Start(fmt.Sprintf("127.0.0.1:%d", port)); err != nil {
			fmt.Printf("Server error: %v\n", err)
		}
	}()

	if err := waitForHealth(serverURL + "/health"); err != nil {
		upstream.Close()
		fmt.Printf("Server failed to start: %v\n", err)
		os.Exit(1)
	}

	// 4. Run tests
	code := m.Run()

	// 5. Cleanup
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = application.Shutdown(shutdownCtx)
	shutdownCancel()
	upstream.Close()
	_ = os.Remove(dbPath)

	os.Exit(code)
}

func buildConfig(upstreamURL string, port int, dbPath string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:      fmt.Sprintf("%d", port),
			MasterKey: masterKey,
			BodyLimit: "1M",
		},
		Logging: config.LogConfig{Format: "json", Level: "error"},
		Metrics: config.MetricsConfig{Enabled: true, Endpoint: "/metrics"},
		HTTP:    config.HTTPConfig{Timeout: 5, ResponseHeaderTimeout: 5},
		Cache: config.CacheConfig{
			Type:       "memory",
			TTL:        3600,
			MaxEntries: 1000,
			Shards:     4,
		},
		Storage: config.StorageConfig{
			Type:   "sqlite",
			SQLite: config.SQLiteConfig{Path: dbPath},
		},
		Recommendations: config.RecommendationsConfig{
			MaxItems:  10,
			BatchSize: 5,
		},
		Collaborator: config.CollaboratorConfig{
			APIKey:  "sk-e2e",
			BaseURL: upstreamURL + openAIPrefix,
			Model:   "gpt-3.5-turbo",
		},
		Providers: config.ProvidersConfig{
			Spotify: config.SpotifyConfig{
				ClientID:     "e2e-client",
				ClientSecret: "e2e-secret",
				BaseURL:      upstreamURL + spotifyPrefix,
				TokenURL:     upstreamURL + spotifyPrefix + "/api/token",
			},
			TMDB: config.TMDBConfig{
				APIKey:       "tmdb-e2e",
				BaseURL:      upstreamURL + tmdbPrefix,
				ImageBaseURL: "https://image.tmdb.org/t/p",
				Language:     "ja-JP",
			},
			Wikipedia: config.WikipediaConfig{
				Enabled: true,
				BaseURL: upstreamURL + wikipediaPrefix,
			},
		},
	}
}

func findAvailablePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func waitForHealth(url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 30; i++ {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not healthy after 3s")
}
