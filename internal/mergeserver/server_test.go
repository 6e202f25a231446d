package mergeserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
)

func TestServer_ServesMergedYAML(t *testing.T) {
	gin.SetMode(gin.TestMode)

	s, err := New(func() (map[string]any, error) {
		return map[string]any{"mode": "rule"}, nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/config.yaml", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/yaml") {
		t.Fatalf("content-type=%q", ct)
	}
	if !strings.Contains(w.Body.String(), "mode: rule") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestServer_ReloadFailureKeepsLastGoodDocument(t *testing.T) {
	gin.SetMode(gin.TestMode)

	calls := 0
	s, err := New(func() (map[string]any, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("boom")
		}
		return map[string]any{"mode": "rule"}, nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := s.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/-/reload", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("reload status=%d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/config.yaml", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "mode: rule") {
		t.Fatalf("last good document lost: status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestServer_InitialMergeFailure(t *testing.T) {
	_, err := New(func() (map[string]any, error) {
		return nil, errors.New("bad snippet")
	})
	if err == nil {
		t.Fatalf("expected initial merge error")
	}
}

func TestShouldTriggerRemerge(t *testing.T) {
	watched := map[string]bool{"/tmp/a.yaml": true}

	if shouldTriggerRemerge(fsnotify.Event{Name: "", Op: fsnotify.Write}, watched) {
		t.Fatalf("expected false for empty name")
	}
	if shouldTriggerRemerge(fsnotify.Event{Name: "/tmp/a.yaml", Op: fsnotify.Chmod}, watched) {
		t.Fatalf("expected false for chmod only")
	}
	if shouldTriggerRemerge(fsnotify.Event{Name: "/tmp/other.yaml", Op: fsnotify.Write}, watched) {
		t.Fatalf("expected false for unwatched file")
	}
	if !shouldTriggerRemerge(fsnotify.Event{Name: "/tmp/a.yaml", Op: fsnotify.Write}, watched) {
		t.Fatalf("expected true for watched write")
	}
	if !shouldTriggerRemerge(fsnotify.Event{Name: "/tmp/a.yaml", Op: fsnotify.Rename}, watched) {
		t.Fatalf("expected true for watched rename")
	}
}
