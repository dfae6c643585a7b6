//go:build e2e

package e2e

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// Upstream path prefixes, one per simulated service.
const (
	openAIPrefix    = "/openai/v1"
	spotifyPrefix   = "/spotify"
	tmdbPrefix      = "/tmdb"
	wikipediaPrefix = "/wikipedia/w/api.php"
)

// failingQuery makes the simulated chat completion API reject the request.
const failingQuery = "コンテキスト超過"

// categoryGoldens maps a prompt's category label to its recorded answer.
var categoryGoldens = map[string]string{
	"音楽アーティスト":     "openai/chat_artists.json",
	"芸能人/インフルエンサー": "openai/chat_celebrities.json",
	"映画/アニメ作品":     "openai/chat_media.json",
	"ファッションブランド":   "openai/chat_fashion.json",
}

// UpstreamServer replays golden files for the chat completion API, the music
// catalog, the media database and the encyclopedia from one listener.
type UpstreamServer struct {
	server *httptest.Server
	dir    string
	mu     sync.Mutex
	hits   map[string]int
}

// NewUpstreamServer serves the golden files under dir.
func NewUpstreamServer(dir string) *UpstreamServer {
	u := &UpstreamServer{
		dir:  dir,
		hits: make(map[string]int),
	}
	u.server = httptest.NewServer(http.HandlerFunc(u.handle))
	return u
}

func (u *UpstreamServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	u.record(r)

	switch {
	case r.Method == http.MethodPost && r.URL.Path == openAIPrefix+"/chat/completions":
		prompt := gjson.GetBytes(body, "messages.1.content").String()
		if strings.Contains(prompt, failingQuery) {
			u.serve(w, http.StatusBadRequest, "openai/error_invalid_request.json")
			return
		}
		for label, golden := range categoryGoldens {
			if strings.Contains(prompt, "関連する"+label) {
				u.serve(w, http.StatusOK, golden)
				return
			}
		}
		http.Error(w, "unexpected prompt", http.StatusBadRequest)

	case r.Method == http.MethodPost && r.URL.Path == spotifyPrefix+"/api/token":
		if user, pass, ok := r.BasicAuth(); !ok || user != "e2e-client" || pass != "e2e-secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"Invalid client"}`))
			return
		}
		u.serve(w, http.StatusOK, "spotify/token.json")

	case r.URL.Path == spotifyPrefix+"/v1/search":
		if r.Header.Get("Authorization") != "Bearer BQDtest-access-token" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"status":401,"message":"Invalid access token"}}`))
			return
		}
		u.serve(w, http.StatusOK, "spotify/search_artist.json")

	case r.URL.Path == tmdbPrefix+"/search/person":
		u.serve(w, http.StatusOK, "tmdb/search_person.json")

	case r.URL.Path == tmdbPrefix+"/search/multi":
		u.serve(w, http.StatusOK, "tmdb/search_multi.json")

	case r.URL.Path == wikipediaPrefix:
		q := r.URL.Query()
		switch {
		case q.Get("list") == "search" && strings.HasPrefix(q.Get("srsearch"), "UNDERCOVER"):
			u.serve(w, http.StatusOK, "wikipedia/search.json")
		case q.Get("list") == "search":
			u.serve(w, http.StatusOK, "wikipedia/search_empty.json")
		case strings.HasPrefix(q.Get("prop"), "pageimages"):
			u.serve(w, http.StatusOK, "wikipedia/pageimages.json")
		default:
			http.NotFound(w, r)
		}

	default:
		http.NotFound(w, r)
	}
}

func (u *UpstreamServer) record(r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hits[r.URL.Path]++
}

func (u *UpstreamServer) serve(w http.ResponseWriter, status int, golden string) {
	data, err := os.ReadFile(filepath.Join(u.dir, golden))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// Hits returns how many requests reached path.
func (u *UpstreamServer) Hits(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

// URL returns the server URL.
func (u *UpstreamServer) URL() string {
	return u.server.URL
}

// Close shuts down the server.
func (u *UpstreamServer) Close() {
	u.server.Close()
}
