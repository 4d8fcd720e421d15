package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nlq-agent/backend/internal/dataset"
	"github.com/nlq-agent/backend/internal/storage/sqlite"
)

type fakeSessionCache struct {
	calls    []string
	datasets map[string]*dataset.Dataset
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{datasets: make(map[string]*dataset.Dataset)}
}

func (f *fakeSessionCache) ClearSession(ctx context.Context, sessionID string) error {
	f.calls = append(f.calls, "clear:"+sessionID)
	delete(f.datasets, sessionID)
	return nil
}

func (f *fakeSessionCache) SetSessionDataset(ctx context.Context, sessionID string, ds *dataset.Dataset, ttl time.Duration) error {
	f.calls = append(f.calls, "set:"+sessionID)
	f.datasets[sessionID] = ds
	return nil
}

func newTestDB(t *testing.T) *sqlite.Client {
	t.Helper()

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func uploadRequest(t *testing.T, sessionID, fileName, content string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fw, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if sessionID != "" {
		if err := w.WriteField("session_id", sessionID); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	w.Close()

	req := httptest.NewRequest(fiber.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// A new upload must drop the session's cached keys, including the result
// export left over from the previous dataset, before storing the new one.
func TestHandleUploadClearsPreviousSession(t *testing.T) {
	cache := newFakeSessionCache()
	h := NewUploadHandler(cache, newTestDB(t), nil)

	app := fiber.New()
	app.Post("/upload", h.HandleUpload)

	resp, err := app.Test(uploadRequest(t, "sess-1", "sales.csv", "price,quantity\n10,2\n5,3\n"))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	want := []string{"clear:sess-1", "set:sess-1"}
	if !reflect.DeepEqual(cache.calls, want) {
		t.Errorf("cache calls = %v, want %v", cache.calls, want)
	}
	if ds := cache.datasets["sess-1"]; ds == nil || len(ds.Rows) != 2 {
		t.Errorf("cached dataset = %+v, want 2 rows", ds)
	}

	var got struct {
		SessionID string `json:"session_id"`
		RowCount  int    `json:"row_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.SessionID != "sess-1" {
		t.Errorf("session_id = %q, want sess-1", got.SessionID)
	}
	if got.RowCount != 2 {
		t.Errorf("row_count = %d, want 2", got.RowCount)
	}
}

// An upload that fails to parse must leave the previous session data alone.
func TestHandleUploadParseFailureKeepsSession(t *testing.T) {
	cache := newFakeSessionCache()
	h := NewUploadHandler(cache, newTestDB(t), nil)

	app := fiber.New()
	app.Post("/upload", h.HandleUpload)

	resp, err := app.Test(uploadRequest(t, "sess-1", "empty.csv", ""))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusBadRequest)
	}

	if len(cache.calls) != 0 {
		t.Errorf("cache calls = %v, want none", cache.calls)
	}
}
