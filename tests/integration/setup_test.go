//go:build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"curator/config"
	"curator/internal/app"
)

// TestServerConfig configures how the test server is set up.
type TestServerConfig struct {
	// DBType is "memory", "postgresql" or "mongodb"
	DBType string

	// CacheType is "memory" (default) or "redis"
	CacheType string

	// RedisPrefix namespaces cache keys; instances sharing it share the cache.
	// Empty picks a fresh prefix.
	RedisPrefix string

	// MasterKey sets the authentication master key (empty = unsafe mode)
	MasterKey string
}

// TestServerFixture holds test server resources.
type TestServerFixture struct {
	// ServerURL is the base URL of the test server
	ServerURL string

	// App is the running application
	App *app.App

	// MockLLM answers chat completions
	MockLLM *MockLLMServer

	// PgPool is the PostgreSQL connection pool (for DB assertions)
	PgPool *pgxpool.Pool

	// MongoDb is the MongoDB database (for DB assertions)
	MongoDb *mongo.Database

	cancelFunc context.CancelFunc
}

// SetupTestServer creates and starts a server with the specified configuration.
// It is shut down when the test ends.
func SetupTestServer(t *testing.T, cfg TestServerConfig) *TestServerFixture {
	t.Helper()

	ctx, cancel := context.WithCancel(GetTestContext())

	mockLLM := NewMockLLMServer()

	port, err := findAvailablePort()
	require.NoError(t, err, "failed to find available port")

	appCfg := buildAppConfig(t, cfg, mockLLM.URL(), port)

	application, err := app.New(ctx, app.Config{AppConfig: appCfg})
	require.NoError(t, err, "failed to create app")

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	go func() {
		_ = application.Start(fmt.Sprintf("127.0.0.1:%d", port))
	}()

	err = waitForServer(serverURL + "/health")
	require.NoError(t, err, "server failed to become healthy")

	fixture := &TestServerFixture{
		ServerURL:  serverURL,
		App:        application,
		MockLLM:    mockLLM,
		cancelFunc: cancel,
	}

	switch cfg.DBType {
	case "postgresql":
		fixture.PgPool = GetPostgreSQLPool()
	case "mongodb":
		fixture.MongoDb = GetMongoDatabase()
	}

	t.Cleanup(func() { fixture.Shutdown(t) })
	return fixture
}

// Shutdown gracefully shuts down the test server.
func (f *TestServerFixture) Shutdown(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if f.App != nil {
		_ = f.App.Shutdown(ctx)
	}
	if f.MockLLM != nil {
		f.MockLLM.Close()
	}
	if f.cancelFunc != nil {
		f.cancelFunc()
	}
}

// buildAppConfig creates an application config for testing.
func buildAppConfig(t *testing.T, cfg TestServerConfig, mockLLMURL string, port int) *config.LoadResult {
	t.Helper()

	appCfg := &config.Config{
		Server: config.ServerConfig{
			Port:      fmt.Sprintf("%d", port),
			MasterKey: cfg.MasterKey,
			BodyLimit: "1M",
		},
		Logging: config.LogConfig{Format: "json", Level: "warn"},
		HTTP:    config.HTTPConfig{Timeout: 5, ResponseHeaderTimeout: 5},
		Cache: config.CacheConfig{
			Type:       "memory",
			TTL:        60,
			MaxEntries: 1000,
			Shards:     4,
		},
		Storage: config.StorageConfig{Type: "memory"},
		Recommendations: config.RecommendationsConfig{
			MaxItems:  10,
			BatchSize: 5,
		},
		Collaborator: config.CollaboratorConfig{
			APIKey:  "sk-test-key",
			BaseURL: mockLLMURL + "/v1",
			Model:   "gpt-3.5-turbo",
		},
	}

	if cfg.CacheType == "redis" {
		prefix := cfg.RedisPrefix
		if prefix == "" {
			prefix = uniquePrefix()
		}
		appCfg.Cache.Type = "redis"
		appCfg.Cache.Redis = config.RedisConfig{
			URL:    GetRedisURL(),
			Prefix: prefix,
		}
	}

	switch cfg.DBType {
	case "", "memory":
	case "postgresql":
		appCfg.Storage = config.StorageConfig{
			Type: "postgresql",
			PostgreSQL: config.PostgreSQLConfig{
				URL:      GetPostgreSQLURL(),
				MaxConns: 5,
			},
		}
	case "mongodb":
		appCfg.Storage = config.StorageConfig{
			Type: "mongodb",
			MongoDB: config.MongoDBConfig{
				URL:      GetMongoURL(),
				Database: mongoDatabaseName,
			},
		}
	default:
		t.Fatalf("unsupported DB type: %s", cfg.DBType)
	}

	require.NoError(t, appCfg.Validate())
	return &config.LoadResult{Config: appCfg}
}

func uniquePrefix() string {
	return "curator-test:" + uuid.NewString() + ":"
}

// waitForServer waits for the server to become healthy.
func waitForServer(healthURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(healthURL)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not become healthy within timeout")
}

// findAvailablePort finds an available TCP port on loopback.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = listener.Close() }()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// MockLLMServer answers chat completions with two related items per call.
type MockLLMServer struct {
	server *httptest.Server
	calls  atomic.Int64
}

// NewMockLLMServer creates a new mock LLM server.
func NewMockLLMServer() *MockLLMServer {
	m := &MockLLMServer{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		m.calls.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)

		content := `{"items":[` +
			`{"name":"候補A","reason":"同じ雰囲気","features":["特徴1"]},` +
			`{"name":"候補B","reason":"共通のファン層","features":["特徴2"]}]}`
		body, _ := json.Marshal(map[string]any{
			"id":     "chatcmpl-test123",
			"object": "chat.completion",
			"model":  "gpt-3.5-turbo",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	return m
}

// URL returns the server URL.
func (m *MockLLMServer) URL() string {
	return m.server.URL
}

// Calls returns how many completions were served.
func (m *MockLLMServer) Calls() int64 {
	return m.calls.Load()
}

// Close shuts down the server.
func (m *MockLLMServer) Close() {
	m.server.Close()
}

// doJSON sends method to url with an optional JSON payload.
func doJSON(t *testing.T, method, url string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err, "failed to marshal request payload")
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err, "failed to create request")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "failed to send request")
	return resp
}

// decodeBody decodes and closes the response body.
func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer closeBody(resp)

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// closeBody is a helper to close response body in defer statements.
func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}
