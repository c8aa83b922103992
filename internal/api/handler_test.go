package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt"

	"github.com/smartride/safety-alerts/internal/dispatch"
	"github.com/smartride/safety-alerts/internal/models"
	"github.com/smartride/safety-alerts/internal/repository"
)

const testSecret = "test-secret"

// memStore implements the repository interfaces for handler tests.
type memStore struct {
	mu       sync.Mutex
	riders   map[string]*models.Rider
	contacts map[string]*models.EmergencyContact
	alerts   map[string]*models.EmergencyAlert
}

func newMemStore() *memStore {
	return &memStore{
		riders:   map[string]*models.Rider{},
		contacts: map[string]*models.EmergencyContact{},
		alerts:   map[string]*models.EmergencyAlert{},
	}
}

func (m *memStore) CreateAlert(ctx context.Context, a *models.EmergencyAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.alerts[a.ID] = &cp
	return nil
}

func (m *memStore) GetAlertByID(ctx context.Context, id string) (*models.EmergencyAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ListActiveAlerts(ctx context.Context) ([]models.EmergencyAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EmergencyAlert
	for _, a := range m.alerts {
		if a.Status == models.AlertStatusActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) ListAlertsSince(ctx context.Context, since time.Time) ([]models.EmergencyAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EmergencyAlert
	for _, a := range m.alerts {
		if !a.CreatedAt.Before(since) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) ResolveAlert(ctx context.Context, id string, res repository.Resolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = res.Status
	a.ResolvedAt = &res.ResolvedAt
	a.ResolvedBy = &res.ResolvedBy
	return nil
}

func (m *memStore) AddContact(ctx context.Context, c *models.EmergencyContact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.contacts[c.ID] = &cp
	return nil
}

func (m *memStore) GetContactByID(ctx context.Context, id string) (*models.EmergencyContact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListContactsForRider(ctx context.Context, riderID string) ([]models.EmergencyContact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EmergencyContact
	for _, c := range m.contacts {
		if c.RiderID == riderID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) UpdateContact(ctx context.Context, c *models.EmergencyContact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contacts[c.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *c
	m.contacts[c.ID] = &cp
	return nil
}

func (m *memStore) DeleteContact(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contacts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.contacts, id)
	return nil
}

func (m *memStore) FindRider(ctx context.Context, id string) (*models.Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r, nil
}

func (m *memStore) FindRide(ctx context.Context, id string) (*models.Ride, error) {
	return nil, repository.ErrNotFound
}

type okEmail struct{}

func (okEmail) Send(ctx context.Context, to, subject, htmlBody string) error { return nil }

type okSMS struct{}

func (okSMS) Send(ctx context.Context, to, body string) error { return nil }

type okVoice struct{}

func (okVoice) Call(ctx context.Context, to, promptURL string) error { return nil }

func setupTestRouter(store *memStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	dispatcher := dispatch.New(store, store, store, dispatch.Options{
		Email:           okEmail{},
		SMS:             okSMS{},
		Voice:           okVoice{},
		PhoneConfigured: true,
		BaseURL:         "http://localhost:8080",
		SendTimeout:     time.Second,
	})

	router := gin.New()
	handler := NewHandler(dispatcher, store, store)
	handler.RegisterRoutes(router, NewAuth(testSecret))
	return router
}

func signToken(t *testing.T, userID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedTestRider(store *memStore) {
	store.riders["rider_1"] = &models.Rider{
		ID: "rider_1", FirstName: "Asha", LastName: "Rao",
		Phone: "+15550001111", Email: "asha@example.com",
	}
}

func TestTriggerSOS(t *testing.T) {
	store := newMemStore()
	seedTestRider(store)
	store.contacts["c1"] = &models.EmergencyContact{
		ID: "c1", RiderID: "rider_1", Name: "Maya",
		Phone: "+15550002222", Email: "maya@example.com",
	}
	router := setupTestRouter(store)

	w := doJSON(t, router, "POST", "/api/emergency/sos", signToken(t, "rider_1", "RIDER"), gin.H{
		"latitude":  12.9716,
		"longitude": 77.5946,
		"message":   "help",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["status"] != "ALERT_TRIGGERED" {
		t.Errorf("expected status ALERT_TRIGGERED, got %v", resp["status"])
	}
	if resp["emailSent"] != true || resp["smsSent"] != true {
		t.Errorf("expected email and sms outcomes true, got %v", resp)
	}
	if resp["callInitiated"] != false {
		t.Errorf("SOS must not initiate a call, got %v", resp["callInitiated"])
	}
	if resp["alertId"] == "" || resp["trackingLink"] == "" {
		t.Errorf("expected alertId and trackingLink, got %v", resp)
	}
}

func TestTriggerSOS_MissingCoordinates(t *testing.T) {
	store := newMemStore()
	seedTestRider(store)
	router := setupTestRouter(store)

	w := doJSON(t, router, "POST", "/api/emergency/sos", signToken(t, "rider_1", "RIDER"), gin.H{
		"message": "help",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "FAILED" {
		t.Errorf("expected status FAILED, got %v", resp["status"])
	}
}

func TestTriggerSOS_InvalidAlertType(t *testing.T) {
	store := newMemStore()
	seedTestRider(store)
	router := setupTestRouter(store)

	w := doJSON(t, router, "POST", "/api/emergency/sos", signToken(t, "rider_1", "RIDER"), gin.H{
		"latitude":  1.0,
		"longitude": 2.0,
		"alertType": "YODEL",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestTriggerSOS_RequiresToken(t *testing.T) {
	router := setupTestRouter(newMemStore())

	w := doJSON(t, router, "POST", "/api/emergency/sos", "", gin.H{
		"latitude":  1.0,
		"longitude": 2.0,
	})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestActiveAlerts_RequiresAdmin(t *testing.T) {
	store := newMemStore()
	seedTestRider(store)
	router := setupTestRouter(store)

	w := doJSON(t, router, "GET", "/api/emergency/alerts/active", signToken(t, "rider_1", "RIDER"), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for rider token, got %d", w.Code)
	}

	w = doJSON(t, router, "GET", "/api/emergency/alerts/active", signToken(t, "op_1", "ADMIN"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for admin token, got %d", w.Code)
	}
}

func TestAlertLifecycleOverHTTP(t *testing.T) {
	store := newMemStore()
	seedTestRider(store)
	router := setupTestRouter(store)

	w := doJSON(t, router, "POST", "/api/emergency/sos", signToken(t, "rider_1", "RIDER"), gin.H{
		"latitude":  1.0,
		"longitude": 2.0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("trigger failed: %d", w.Code)
	}
	var triggered map[string]any
	json.Unmarshal(w.Body.Bytes(), &triggered)
	alertID := triggered["alertId"].(string)

	admin := signToken(t, "op_1", "ADMIN")

	w = doJSON(t, router, "GET", "/api/emergency/alerts/active", admin, nil)
	var active []map[string]any
	json.Unmarshal(w.Body.Bytes(), &active)
	if len(active) != 1 || active[0]["id"] != alertID {
		t.Fatalf("expected the new alert in the active list, got %v", active)
	}

	w = doJSON(t, router, "POST", "/api/emergency/alerts/"+alertID+"/resolve", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve failed: %d: %s", w.Code, w.Body.String())
	}
	var resolved map[string]any
	json.Unmarshal(w.Body.Bytes(), &resolved)
	if resolved["message"] != "Alert resolved successfully" {
		t.Errorf("unexpected resolve message: %v", resolved["message"])
	}

	w = doJSON(t, router, "GET", "/api/emergency/alerts/active", admin, nil)
	active = nil
	json.Unmarshal(w.Body.Bytes(), &active)
	if len(active) != 0 {
		t.Errorf("resolved alert must leave the active list, got %v", active)
	}

	w = doJSON(t, router, "GET", "/api/emergency/alerts/recent?hours=24", admin, nil)
	var recent []map[string]any
	json.Unmarshal(w.Body.Bytes(), &recent)
	if len(recent) != 1 {
		t.Errorf("resolved alert must stay in the recent window, got %v", recent)
	}
}

func TestResolveAlert_NotFound(t *testing.T) {
	router := setupTestRouter(newMemStore())

	w := doJSON(t, router, "POST", "/api/emergency/alerts/missing/resolve", signToken(t, "op_1", "ADMIN"), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestRecentAlerts_InvalidHours(t *testing.T) {
	router := setupTestRouter(newMemStore())

	w := doJSON(t, router, "GET", "/api/emergency/alerts/recent?hours=zero", signToken(t, "op_1", "ADMIN"), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestVoicePrompt(t *testing.T) {
	router := setupTestRouter(newMemStore())

	w := doJSON(t, router, "GET", "/api/emergency/twiml?userName=Asha&location=maps.example", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("expected content-type application/xml, got %s", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Asha has triggered") || !strings.Contains(body, "maps.example") {
		t.Errorf("prompt missing substitutions: %s", body)
	}
}

func TestContactLifecycle(t *testing.T) {
	store := newMemStore()
	seedTestRider(store)
	router := setupTestRouter(store)
	rider := signToken(t, "rider_1", "RIDER")

	w := doJSON(t, router, "POST", "/api/emergency/contacts", rider, gin.H{
		"name":      "Maya",
		"phone":     "+15550002222",
		"email":     "maya@example.com",
		"isPrimary": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add contact failed: %d: %s", w.Code, w.Body.String())
	}
	var created map[string]any
	json.Unmarshal(w.Body.Bytes(), &created)
	contactID := created["id"].(string)

	w = doJSON(t, router, "GET", "/api/emergency/contacts", rider, nil)
	var listed []map[string]any
	json.Unmarshal(w.Body.Bytes(), &listed)
	if len(listed) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(listed))
	}

	w = doJSON(t, router, "PUT", "/api/emergency/contacts/"+contactID, rider, gin.H{
		"name":  "Maya R",
		"phone": "+15550009999",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update contact failed: %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, "DELETE", "/api/emergency/contacts/"+contactID, rider, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete contact failed: %d", w.Code)
	}

	w = doJSON(t, router, "GET", "/api/emergency/contacts", rider, nil)
	listed = nil
	json.Unmarshal(w.Body.Bytes(), &listed)
	if len(listed) != 0 {
		t.Errorf("expected no contacts after delete, got %d", len(listed))
	}
}

func TestContactOwnership(t *testing.T) {
	store := newMemStore()
	seedTestRider(store)
	store.contacts["c1"] = &models.EmergencyContact{
		ID: "c1", RiderID: "rider_1", Name: "Maya", Phone: "+15550002222",
	}
	router := setupTestRouter(store)

	w := doJSON(t, router, "DELETE", "/api/emergency/contacts/c1", signToken(t, "rider_2", "RIDER"), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for foreign contact, got %d", w.Code)
	}
}

func TestAddContact_MissingPhone(t *testing.T) {
	store := newMemStore()
	seedTestRider(store)
	router := setupTestRouter(store)

	w := doJSON(t, router, "POST", "/api/emergency/contacts", signToken(t, "rider_1", "RIDER"), gin.H{
		"name": "Maya",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	router := setupTestRouter(newMemStore())

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}
