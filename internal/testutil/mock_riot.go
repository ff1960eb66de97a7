// Package testutil provides testing utilities for the ladder ingester.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// EntriesPrefix is the path prefix of the league entries endpoint.
const EntriesPrefix = "/lol/league/v4/entries/"

// MockRiotResponse defines a fixed response for a mock endpoint.
type MockRiotResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockRiot is a mock League API serving generated ladder pages.
//
// Every bracket holds a configured number of entries, served pageSize at a
// time. Pages past the end are empty arrays, like the real API.
type MockRiot struct {
	server   *httptest.Server
	mu       sync.RWMutex
	pageSize int
	totals   map[string]int
	fixed    map[string]MockRiotResponse

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	pages             map[string][]int
}

// NewMockRiot creates a mock server returning pageSize entries per page.
func NewMockRiot(pageSize int) *MockRiot {
	mock := &MockRiot{
		pageSize: pageSize,
		totals:   make(map[string]int),
		fixed:    make(map[string]MockRiotResponse),
		pages:    make(map[string][]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		resp, isFixed := mock.fixed[r.URL.Path]
		mock.mu.Unlock()

		if isFixed {
			writeFixed(w, resp)
			return
		}
		mock.entriesHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockRiot) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockRiot) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockRiot) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.pages = make(map[string][]int)
}

// SetEntries sets the number of entries available in a bracket.
func (m *MockRiot) SetEntries(queue, tier, division string, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[bracketKey(queue, tier, division)] = total
}

// SetResponse makes every request for a bracket return resp.
func (m *MockRiot) SetResponse(queue, tier, division string, resp MockRiotResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixed[EntriesPrefix+bracketKey(queue, tier, division)] = resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockRiot) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastHeader returns the headers of the most recent request.
func (m *MockRiot) GetLastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// RequestedPages returns the page numbers requested for a bracket, in order.
func (m *MockRiot) RequestedPages(queue, tier, division string) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.pages[bracketKey(queue, tier, division)]...)
}

func (m *MockRiot) entriesHandler(w http.ResponseWriter, r *http.Request) {
	key, ok := strings.CutPrefix(r.URL.Path, EntriesPrefix)
	parts := strings.Split(key, "/")
	if !ok || len(parts) != 3 {
		http.Error(w, `{"status":{"message":"Data not found","status_code":404}}`, http.StatusNotFound)
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, `{"status":{"message":"Bad request","status_code":400}}`, http.StatusBadRequest)
			return
		}
		page = n
	}

	m.mu.Lock()
	m.pages[key] = append(m.pages[key], page)
	total := m.totals[key]
	m.mu.Unlock()

	start := (page - 1) * m.pageSize
	end := min(start+m.pageSize, total)
	entries := make([]map[string]any, 0, max(end-start, 0))
	for i := start; i < end; i++ {
		entries = append(entries, Entry(parts[0], parts[1], parts[2], i))
	}

	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.Header().Set("X-App-Rate-Limit", "20:1,100:120")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(entries)
}

// Entry generates the i-th entry of a bracket. Every 50th entry sits at
// 100 LP with a promotion series running.
func Entry(queue, tier, division string, i int) map[string]any {
	e := map[string]any{
		"leagueId":     "league-" + strings.ToLower(tier),
		"queueType":    queue,
		"tier":         tier,
		"rank":         division,
		"summonerId":   fmt.Sprintf("%s-%s-%s-%05d", queue, tier, division, i),
		"summonerName": fmt.Sprintf("summoner%05d", i),
		"leaguePoints": i % 100,
		"wins":         100 + i%37,
		"losses":       90 + i%41,
		"veteran":      i%7 == 0,
		"inactive":     false,
		"freshBlood":   i%5 == 0,
		"hotStreak":    i%3 == 0,
	}
	if i%50 == 0 {
		e["leaguePoints"] = 100
		e["miniSeries"] = map[string]any{
			"target":   2,
			"wins":     1,
			"losses":   0,
			"progress": "WNN",
		}
	}
	return e
}

func writeFixed(w http.ResponseWriter, resp MockRiotResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

func bracketKey(queue, tier, division string) string {
	return queue + "/" + tier + "/" + division
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockRiotResponse {
	return MockRiotResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status":{"message":"Rate limit exceeded","status_code":429}}`,
		Headers: map[string]string{
			"Retry-After":       strconv.Itoa(retryAfter),
			"X-Rate-Limit-Type": "application",
			"Content-Type":      "application/json;charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockRiotResponse {
	return MockRiotResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status":{"message":"Internal server error","status_code":500}}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

// NewForbiddenResponse creates the 403 returned for an invalid API key.
func NewForbiddenResponse() MockRiotResponse {
	return MockRiotResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"status":{"message":"Forbidden","status_code":403}}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}
