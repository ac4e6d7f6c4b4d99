package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/YuppyChen/ai-images-creator/internal/domain"
)

func TestMeCredits(t *testing.T) {
	app := newTestApp(&stubGenerations{}, &stubBalances{credits: 5}, &stubRecords{})
	router := testRouter(app, "u1")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/me/credits", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["credits"] != 5 {
		t.Fatalf("credits = %d, want 5", resp["credits"])
	}
}

func TestMeCreditsRequiresAuth(t *testing.T) {
	app := newTestApp(&stubGenerations{}, &stubBalances{credits: 5}, &stubRecords{})
	router := testRouter(app, "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/me/credits", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMeCreditsLedgerError(t *testing.T) {
	app := newTestApp(&stubGenerations{}, &stubBalances{err: errors.New("db down")}, &stubRecords{})
	router := testRouter(app, "u1")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/me/credits", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if code, _ := decodeError(t, rec.Body); code != "internal" {
		t.Fatalf("code = %q, want internal", code)
	}
}

func TestMeHistory(t *testing.T) {
	now := time.Now().UTC()
	app := newTestApp(&stubGenerations{}, &stubBalances{}, &stubRecords{records: []domain.HistoryRecord{
		{ID: "h2", UserID: "u1", Prompt: "second", ImageURLs: []string{"c.png"}, CreatedAt: now},
		{ID: "h1", UserID: "u1", Prompt: "first", ImageURLs: []string{"a.png", "b.png"}, CreatedAt: now.Add(-time.Minute)},
	}})
	router := testRouter(app, "u1")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/me/history", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		History []historyItem `json:"history"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.History) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(resp.History))
	}
	if resp.History[0].ID != "h2" || resp.History[0].Prompt != "second" {
		t.Fatalf("first item = %#v", resp.History[0])
	}
	if len(resp.History[1].ImageURLs) != 2 {
		t.Fatalf("second item urls = %v", resp.History[1].ImageURLs)
	}
}

func TestMeHistoryEmpty(t *testing.T) {
	app := newTestApp(&stubGenerations{}, &stubBalances{}, &stubRecords{})
	router := testRouter(app, "u1")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/me/history", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		History []historyItem `json:"history"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.History == nil || len(resp.History) != 0 {
		t.Fatalf("history = %#v, want empty array", resp.History)
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		url  string
		key  string
		want int
	}{
		{"/v1/me/history?limit=3", "limit", 3},
		{"/v1/me/history", "limit", 10},
		{"/v1/me/history?limit=abc", "limit", 10},
		{"/v1/me/history?limit=-1", "limit", 10},
		{"/v1/me/history?offset=20", "offset", 20},
	}
	for _, tc := range tests {
		fallback := 10
		if tc.key == "offset" {
			fallback = 0
		}
		req := httptest.NewRequest(http.MethodGet, tc.url, nil)
		if got := queryInt(req, tc.key, fallback); got != tc.want {
			t.Errorf("queryInt(%q, %q) = %d, want %d", tc.url, tc.key, got, tc.want)
		}
	}
}
