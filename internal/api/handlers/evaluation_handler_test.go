package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nlq-agent/backend/internal/storage/models"
)

func TestHandleRunHistory(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	seed := []*models.EvaluationRun{
		{ID: "run-old", Model: "baseline", TotalTests: 20, Successful: 10, Failed: 10, Accuracy: 50, CreatedAt: now.Add(-time.Hour)},
		{ID: "run-new", Model: "baseline", TotalTests: 20, Successful: 12, Failed: 8, Accuracy: 60, CreatedAt: now},
		{ID: "run-llm", Model: "llm", TotalTests: 20, Successful: 18, Failed: 2, Accuracy: 90, MeetsTarget: true, CreatedAt: now},
	}
	for _, r := range seed {
		if err := db.InsertEvaluationRun(r); err != nil {
			t.Fatalf("InsertEvaluationRun(%s): %v", r.ID, err)
		}
	}

	h := NewEvaluationHandler(nil, nil, db)
	app := fiber.New()
	app.Get("/evaluation/runs", h.HandleRunHistory)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/evaluation/runs?model=baseline", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	var got struct {
		Model string `json:"model"`
		Runs  []struct {
			ID       string  `json:"id"`
			Accuracy float64 `json:"accuracy"`
		} `json:"runs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if got.Model != "baseline" {
		t.Errorf("model = %q, want baseline", got.Model)
	}
	if len(got.Runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(got.Runs))
	}
	if got.Runs[0].ID != "run-new" || got.Runs[1].ID != "run-old" {
		t.Errorf("run order = [%s %s], want newest first", got.Runs[0].ID, got.Runs[1].ID)
	}
	if got.Runs[0].Accuracy != 60 {
		t.Errorf("accuracy = %v, want 60", got.Runs[0].Accuracy)
	}
}

func TestHandleRunHistoryRejectsUnknownModel(t *testing.T) {
	h := NewEvaluationHandler(nil, nil, newTestDB(t))
	app := fiber.New()
	app.Get("/evaluation/runs", h.HandleRunHistory)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/evaluation/runs?model=gpt", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusBadRequest)
	}
}
