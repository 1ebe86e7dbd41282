package util

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// StubPoint is a point statistic served by the stub.
type StubPoint struct {
	State *float64 `json:"state"`
	Sum   *float64 `json:"sum"`
}

// StubEntry is one hourly entry of a range statistic.
type StubEntry struct {
	StartTS float64 `json:"start_ts"`
	Sum     float64 `json:"sum"`
}

// StubImport is a decoded import_statistics request.
type StubImport struct {
	HasMean     bool             `json:"has_mean"`
	HasSum      bool             `json:"has_sum"`
	Source      string           `json:"source"`
	Name        string           `json:"name"`
	StatisticID string           `json:"statistic_id"`
	Unit        string           `json:"unit_of_measurement"`
	Stats       []map[string]any `json:"stats"`
}

// StubQuery records a statistics query.
type StubQuery struct {
	EntityID    string
	DateTime    string
	EndDateTime string
}

// HomeAssistantStub is an in-memory Home Assistant statistics API.
type HomeAssistantStub struct {
	Server *httptest.Server
	Token  string

	mu           sync.Mutex
	points       map[string]StubPoint
	ranges       map[string][]StubEntry
	importStatus map[string]int
	imports      []StubImport
	queries      []StubQuery
}

// NewHomeAssistantStub starts the stub. Close it with Server.Close.
func NewHomeAssistantStub(token string) *HomeAssistantStub {
	s := &HomeAssistantStub{
		Token:        token,
		points:       map[string]StubPoint{},
		ranges:       map[string][]StubEntry{},
		importStatus: map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/long_term_stats", s.handleStats)
	mux.HandleFunc("/api/services/recorder/import_statistics", s.handleImport)
	s.Server = httptest.NewServer(s.auth(mux))
	return s
}

// URL returns the base URL of the stub.
func (s *HomeAssistantStub) URL() string { return s.Server.URL }

// Close stops the server.
func (s *HomeAssistantStub) Close() { s.Server.Close() }

// SetPoint registers the point statistic returned for entityID.
func (s *HomeAssistantStub) SetPoint(entityID string, p StubPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[entityID] = p
}

// SetRange registers hourly entries for entityID.
func (s *HomeAssistantStub) SetRange(entityID string, entries []StubEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges[entityID] = entries
}

// SetHourlyRange registers a range from cumulative sums, one per hour from
// first.
func (s *HomeAssistantStub) SetHourlyRange(entityID string, first time.Time, sums ...float64) {
	entries := make([]StubEntry, len(sums))
	for i, v := range sums {
		entries[i] = StubEntry{StartTS: float64(first.Add(time.Duration(i) * time.Hour).Unix()), Sum: v}
	}
	s.SetRange(entityID, entries)
}

// FailImport makes imports of statisticID answer with status.
func (s *HomeAssistantStub) FailImport(statisticID string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.importStatus[statisticID] = status
}

// Imports returns the import requests received so far.
func (s *HomeAssistantStub) Imports() []StubImport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StubImport(nil), s.imports...)
}

// Queries returns the statistics queries received so far.
func (s *HomeAssistantStub) Queries() []StubQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StubQuery(nil), s.queries...)
}

func (s *HomeAssistantStub) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HomeAssistantStub) handleStats(w http.ResponseWriter, r *http.Request) {
	q := StubQuery{
		EntityID:    r.URL.Query().Get("entity_id"),
		DateTime:    r.URL.Query().Get("datetime"),
		EndDateTime: r.URL.Query().Get("end_datetime"),
	}
	s.mu.Lock()
	s.queries = append(s.queries, q)
	p, hasPoint := s.points[q.EntityID]
	entries, hasRange := s.ranges[q.EntityID]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if q.EndDateTime != "" {
		if !hasRange || len(entries) == 0 {
			http.Error(w, `{"message":"no statistics"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": entries})
		return
	}
	if !hasPoint {
		http.Error(w, `{"message":"no statistics"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"message": p})
}

func (s *HomeAssistantStub) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var imp StubImport
	if err := json.NewDecoder(r.Body).Decode(&imp); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.imports = append(s.imports, imp)
	status, fail := s.importStatus[imp.StatisticID]
	s.mu.Unlock()
	if fail {
		http.Error(w, "import rejected", status)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("[]"))
}
