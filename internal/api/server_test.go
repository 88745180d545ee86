package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joelikes8/Discord-CBA-Bot/internal/storage"
)

func newTestServer(t *testing.T) (*Server, storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewServer(store, nil), store
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestSettingsRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	payload := `{"serverId":"guild1","antiNuke":true,"antiHack":false,"antiRaid":true,"websiteFilter":true,"allowedDomains":["example.com"],"verifiedRoleId":"role1","logChannelId":"chan1"}`
	w := doRequest(t, s, http.MethodPost, "/api/security/settings", payload)
	if w.Code != http.StatusOK {
		t.Fatalf("POST settings: status %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, s, http.MethodGet, "/api/security/settings?serverId=guild1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET settings: status %d", w.Code)
	}

	var resp struct {
		Status bool                     `json:"status"`
		Data   storage.SecuritySettings `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Status {
		t.Error("status should be true")
	}
	if resp.Data.AntiHack {
		t.Error("antiHack should round-trip as false")
	}
	if len(resp.Data.AllowedDomains) != 1 || resp.Data.AllowedDomains[0] != "example.com" {
		t.Errorf("allowedDomains: got %v", resp.Data.AllowedDomains)
	}
	if resp.Data.VerifiedRoleID != "role1" {
		t.Errorf("verifiedRoleId: got %q", resp.Data.VerifiedRoleID)
	}
}

func TestMissingServerIDRejected(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/dashboard/stats", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestDashboardStats(t *testing.T) {
	s, store := newTestServer(t)

	for i := 0; i < 3; i++ {
		if err := store.CreateSecurityLog(&storage.SecurityLog{
			ServerID:  "guild1",
			EventType: "anti-nuke",
			Action:    "Auto-ban",
			UserID:    "attacker",
			Timestamp: time.Now(),
		}); err != nil {
			t.Fatalf("create log: %v", err)
		}
	}

	w := doRequest(t, s, http.MethodGet, "/api/dashboard/stats?serverId=guild1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}

	var resp struct {
		Status bool                `json:"status"`
		Data   storage.ServerStats `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.ThreatsBlocked != 3 {
		t.Errorf("threatsBlocked: got %d, want 3", resp.Data.ThreatsBlocked)
	}
}

func TestTicketListsSplitByStatus(t *testing.T) {
	s, store := newTestServer(t)

	open := &storage.Ticket{ServerID: "guild1", ChannelID: "c1", UserID: "u1", Issue: "help", Status: storage.TicketOpen, CreatedAt: time.Now()}
	if err := store.CreateTicket(open); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	closed := &storage.Ticket{ServerID: "guild1", ChannelID: "c2", UserID: "u2", Issue: "done", Status: storage.TicketOpen, CreatedAt: time.Now()}
	if err := store.CreateTicket(closed); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if err := store.CloseTicket(closed.ID, "staff", "resolved", time.Now()); err != nil {
		t.Fatalf("close ticket: %v", err)
	}

	var listResp struct {
		Data []storage.Ticket `json:"data"`
	}

	w := doRequest(t, s, http.MethodGet, "/api/tickets/list?serverId=guild1", "")
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode open list: %v", err)
	}
	if len(listResp.Data) != 1 {
		t.Errorf("open tickets: got %d, want 1", len(listResp.Data))
	}

	w = doRequest(t, s, http.MethodGet, "/api/tickets/all?serverId=guild1", "")
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode all list: %v", err)
	}
	if len(listResp.Data) != 2 {
		t.Errorf("all tickets: got %d, want 2", len(listResp.Data))
	}
}

func TestRestartWithoutSessionUnavailable(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/bot/restart", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", w.Code)
	}
	var resp struct {
		Status bool   `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status {
		t.Error("status should be false")
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", w.Code)
	}
	var resp struct {
		Status bool   `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("404 body is not JSON: %v", err)
	}
	if resp.Status {
		t.Error("status should be false")
	}
}
