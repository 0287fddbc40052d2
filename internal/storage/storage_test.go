package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/skypro1111/feelcard-service/internal/card"
	"github.com/skypro1111/feelcard-service/internal/config"
	"github.com/skypro1111/feelcard-service/internal/logger"
)

var baseTime = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func testCard(id string, offset time.Duration) card.Card {
	return card.New(id, baseTime.Add(offset), card.Analysis{
		Label:         card.LabelCold,
		Degree:        -0.8,
		UserUtterance: "寒い",
		Summary:       "やや寒い",
		ImagePrompt:   "a cold blue scene",
		SpeechPrompt:  "寒いですね",
	}, "/generated/"+id+".png", "/generated/"+id+".wav")
}

// indexes returns one instance of every backend
func indexes(t *testing.T) map[string]ItemIndex {
	t.Helper()

	mr := miniredis.RunT(t)
	redisIndex := NewRedisIndex(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	sqlIndex, err := NewSQLIndex(filepath.Join(t.TempDir(), "items.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite index: %v", err)
	}

	all := map[string]ItemIndex{
		"memory": NewMemoryIndex(),
		"redis":  redisIndex,
		"sqlite": sqlIndex,
	}
	t.Cleanup(func() {
		for _, idx := range all {
			idx.Close()
		}
	})
	return all
}

func TestIndexOrdering(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// saved out of order on purpose
			for _, c := range []card.Card{
				testCard("t2", time.Second),
				testCard("t1", 0),
				testCard("t3", 2*time.Second),
			} {
				if err := idx.Save(ctx, c); err != nil {
					t.Fatalf("Save failed: %v", err)
				}
			}

			got, err := idx.List(ctx, 2)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(got) != 2 || got[0].ID != "t3" || got[1].ID != "t2" {
				t.Fatalf("Expected [t3 t2], got %v", ids(got))
			}

			all, err := idx.List(ctx, 20)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(all) != 3 {
				t.Errorf("Expected 3 cards, got %d", len(all))
			}
		})
	}
}

func TestIndexOrderingWithinMillisecond(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// ids sort opposite to creation time
			older := testCard("b-older", 100*time.Microsecond)
			newer := testCard("a-newer", 600*time.Microsecond)
			for _, c := range []card.Card{older, newer} {
				if err := idx.Save(ctx, c); err != nil {
					t.Fatalf("Save failed: %v", err)
				}
			}

			got, err := idx.List(ctx, 2)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(got) != 2 || got[0].ID != "a-newer" || got[1].ID != "b-older" {
				t.Errorf("Expected [a-newer b-older], got %v", ids(got))
			}
		})
	}
}

func TestIndexRoundTrip(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := testCard("abc", 1500*time.Millisecond)

			if err := idx.Save(ctx, want); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			got, err := idx.List(ctx, 1)
			if err != nil || len(got) != 1 {
				t.Fatalf("Expected one card, got %v (%v)", got, err)
			}

			c := got[0]
			if c.ID != want.ID || c.Analysis != want.Analysis || c.ImageRef != want.ImageRef || c.AudioRef != want.AudioRef {
				t.Errorf("Expected %+v, got %+v", want, c)
			}
			if !c.CreatedAt.Equal(want.CreatedAt) {
				t.Errorf("Expected createdAt %v, got %v", want.CreatedAt, c.CreatedAt)
			}
		})
	}
}

func TestIndexEmpty(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			got, err := idx.List(context.Background(), 20)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("Expected empty non-nil slice, got %#v", got)
			}
		})
	}
}

func TestIndexLimitBounds(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				if err := idx.Save(ctx, testCard(fmt.Sprintf("c%d", i), time.Duration(i)*time.Second)); err != nil {
					t.Fatalf("Save failed: %v", err)
				}
			}

			tests := []struct {
				limit    int
				expected int
			}{
				{1, 1},
				{3, 3},
				{5, 5},
				{50, 5},
				{0, 0},
				{-1, 0},
			}

			for _, tt := range tests {
				got, err := idx.List(ctx, tt.limit)
				if err != nil {
					t.Fatalf("List(%d) failed: %v", tt.limit, err)
				}
				if len(got) != tt.expected {
					t.Errorf("List(%d): expected %d cards, got %d", tt.limit, tt.expected, len(got))
				}
			}
		})
	}
}

func TestIndexConcurrentSaves(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var wg sync.WaitGroup
			errs := make(chan error, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- idx.Save(ctx, testCard(fmt.Sprintf("c%02d", i), time.Duration(i)*time.Millisecond))
				}(i)
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				if err != nil {
					t.Fatalf("Concurrent save failed: %v", err)
				}
			}

			got, err := idx.List(ctx, 20)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(got) != 10 {
				t.Fatalf("Expected 10 cards, got %d", len(got))
			}
			for i := 1; i < len(got); i++ {
				if got[i].CreatedAt.After(got[i-1].CreatedAt) {
					t.Errorf("Cards out of order at %d: %v", i, ids(got))
				}
			}
		})
	}
}

func TestRedisSkipsMissingRecords(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	idx := NewRedisIndex(client)
	ctx := context.Background()

	idx.Save(ctx, testCard("kept", 0))
	idx.Save(ctx, testCard("gone", time.Second))
	mr.Del(itemKey("gone"))
	mr.Set(itemKey("broken"), "not json")
	mr.ZAdd(sortedKey, float64(baseTime.Add(2*time.Second).UnixMicro()), "broken")

	got, err := idx.List(ctx, 20)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "kept" {
		t.Errorf("Expected only [kept], got %v", ids(got))
	}

	score, err := mr.ZScore(sortedKey, "kept")
	if err != nil || score != float64(baseTime.UnixMicro()) {
		t.Errorf("Expected score %d, got %v (%v)", baseTime.UnixMicro(), score, err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	idx := NewRedisIndex(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	mr.Close()

	err := idx.Save(context.Background(), testCard("x", 0))
	if card.KindOf(err) != card.KindStorage {
		t.Errorf("Expected storage error, got %v", err)
	}
}

func TestOpenIndex(t *testing.T) {
	mr := miniredis.RunT(t)
	log := logger.Discard().WithField("component", "test")

	tests := []struct {
		name     string
		cfg      config.IndexConfig
		expected string
	}{
		{"memory", config.IndexConfig{ProbeTimeout: 1}, "memory"},
		{"sqlite", config.IndexConfig{SQLitePath: filepath.Join(t.TempDir(), "i.db"), ProbeTimeout: 1}, "sqlite"},
		{"redis", config.IndexConfig{RedisURL: "redis://" + mr.Addr(), ProbeTimeout: 1}, "redis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := OpenIndex(context.Background(), tt.cfg, log)
			if err != nil {
				t.Fatalf("OpenIndex failed: %v", err)
			}
			defer idx.Close()
			if idx.Kind() != tt.expected {
				t.Errorf("Expected %s index, got %s", tt.expected, idx.Kind())
			}
		})
	}

	if _, err := OpenIndex(context.Background(), config.IndexConfig{RedisURL: "not-a-url", ProbeTimeout: 1}, log); err == nil {
		t.Error("Expected error for invalid redis url")
	}
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "generated")

	ref, err := store.Store(context.Background(), "x.png", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if ref != "/generated/x.png" {
		t.Errorf("Expected /generated/x.png, got %s", ref)
	}

	data, err := os.ReadFile(filepath.Join(dir, "generated", "x.png"))
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("Expected file contents to be written, got %q (%v)", data, err)
	}

	if _, err := store.Store(context.Background(), "../escape.png", nil, "image/png"); card.KindOf(err) != card.KindStorage {
		t.Errorf("Expected storage error for path traversal, got %v", err)
	}
}

func TestLocalStoreUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "public")
	if err := os.WriteFile(blocker, []byte("file, not dir"), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewLocalStore(blocker, "generated")
	_, err := store.Store(context.Background(), "x.wav", []byte("wav"), "audio/wav")
	if card.KindOf(err) != card.KindStorage {
		t.Errorf("Expected storage error, got %v", err)
	}
}

func TestBlobStore(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("X-Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"url":      "https://store.public.blob.example" + r.URL.Path,
			"pathname": r.URL.Path,
		})
	}))
	defer srv.Close()

	store, err := NewBlobStore(BlobConfig{Endpoint: srv.URL, Token: "secret", Prefix: "generated"})
	if err != nil {
		t.Fatalf("NewBlobStore failed: %v", err)
	}

	ref, err := store.Store(context.Background(), "x.wav", []byte("wav-bytes"), "audio/wav")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if ref != "https://store.public.blob.example/generated/x.wav" {
		t.Errorf("Unexpected reference %s", ref)
	}
	if gotPath != "/generated/x.wav" {
		t.Errorf("Expected path /generated/x.wav, got %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Expected bearer token, got %q", gotAuth)
	}
	if gotType != "audio/wav" {
		t.Errorf("Expected content type header, got %q", gotType)
	}
	if string(gotBody) != "wav-bytes" {
		t.Errorf("Expected body to be uploaded, got %q", gotBody)
	}
}

func TestBlobStoreFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusForbidden)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>"))
		}},
		{"missing url", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"pathname":"generated/x.png"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			store, _ := NewBlobStore(BlobConfig{Endpoint: srv.URL, Token: "secret"})
			_, err := store.Store(context.Background(), "x.png", []byte("png"), "image/png")
			if card.KindOf(err) != card.KindStorage {
				t.Errorf("Expected storage error, got %v", err)
			}
		})
	}
}

func TestNewArtifactStore(t *testing.T) {
	log := logger.Discard().WithField("component", "test")

	local, err := NewArtifactStore(config.StorageConfig{PublicDir: t.TempDir(), Prefix: "generated"}, log)
	if err != nil || local.Kind() != "local" {
		t.Errorf("Expected local store, got %v (%v)", local, err)
	}

	blob, err := NewArtifactStore(config.StorageConfig{BlobToken: "t", BlobEndpoint: "https://blob.example", Prefix: "generated"}, log)
	if err != nil || blob.Kind() != "blob" {
		t.Errorf("Expected blob store, got %v (%v)", blob, err)
	}
}

func ids(cards []card.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}
