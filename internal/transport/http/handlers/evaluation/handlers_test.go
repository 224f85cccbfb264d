package evaluationhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/auth"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/evaluation"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/transport/http/middleware"
)

type stubStore struct {
	bonus   map[string]evaluation.BonusRecord
	history []evaluation.HistoryEntry
}

func (s *stubStore) GetBonus(_ context.Context, id string) (evaluation.BonusRecord, error) {
	record, ok := s.bonus[id]
	if !ok {
		return evaluation.BonusRecord{}, evaluation.ErrRecordNotFound
	}
	return record, nil
}

func (s *stubStore) GetMerit(context.Context, string) (evaluation.MeritRecord, error) {
	return evaluation.MeritRecord{}, evaluation.ErrRecordNotFound
}

func (s *stubStore) ListBonus(context.Context, string) ([]evaluation.BonusRecord, error) {
	var out []evaluation.BonusRecord
	for _, record := range s.bonus {
		out = append(out, record)
	}
	return out, nil
}

func (s *stubStore) ListMerit(context.Context, string) ([]evaluation.MeritRecord, error) {
	return nil, nil
}

func (s *stubStore) CreateBonus(_ context.Context, record evaluation.BonusRecord) error {
	s.bonus[record.ID] = record
	return nil
}

func (s *stubStore) CreateMerit(context.Context, evaluation.MeritRecord) error { return nil }

func (s *stubStore) UpdateBonusDraft(_ context.Context, record evaluation.BonusRecord) error {
	current, ok := s.bonus[record.ID]
	if !ok {
		return evaluation.ErrRecordNotFound
	}
	if current.Status != evaluation.StatusDraft && current.Status != evaluation.StatusNotStarted {
		return evaluation.ErrNotEditable
	}
	record.Status = current.Status
	s.bonus[record.ID] = record
	return nil
}

func (s *stubStore) UpdateMeritDraft(context.Context, evaluation.MeritRecord) error { return nil }

func (s *stubStore) CommitTransition(_ context.Context, commit evaluation.TransitionCommit) error {
	record, ok := s.bonus[commit.RecordID]
	if !ok {
		return evaluation.ErrRecordNotFound
	}
	if record.Status != commit.FromStatus || !record.UpdatedAt.Equal(commit.SeenUpdatedAt) {
		return &evaluation.StaleStateError{RecordType: commit.RecordType, RecordID: commit.RecordID}
	}
	record.Status = commit.ToStatus
	record.UpdatedAt = commit.Now
	s.bonus[commit.RecordID] = record
	s.history = append(s.history, commit.Entry)
	return nil
}

func (s *stubStore) History(context.Context, evaluation.RecordType, string) ([]evaluation.HistoryEntry, error) {
	return s.history, nil
}

func (s *stubStore) LastHistoryEntry(context.Context, evaluation.RecordType, string) (evaluation.HistoryEntry, bool, error) {
	if len(s.history) == 0 {
		return evaluation.HistoryEntry{}, false, nil
	}
	return s.history[len(s.history)-1], true, nil
}

var _ evaluation.Store = (*stubStore)(nil)

func score(v float64) *float64 { return &v }

func testRouter(store *stubStore) http.Handler {
	directory := evaluation.DirectoryFunc(func(_ context.Context, actorID string) (evaluation.Actor, error) {
		switch actorID {
		case "emp-1":
			return evaluation.Actor{ID: actorID, Name: "Alice", Role: auth.RoleEmployee}, nil
		case "check-1":
			return evaluation.Actor{ID: actorID, Name: "Bob", Role: auth.RoleChecker}, nil
		}
		return evaluation.Actor{ID: actorID, Name: actorID, Role: auth.RoleEmployee}, nil
	})
	machine := evaluation.NewMachine(store, directory, nil)
	service := evaluation.NewService(store, machine)
	handler := NewHandler(service, machine, nil, nil)

	router := chi.NewRouter()
	router.Route("/api/v1", handler.RegisterRoutes)
	return router
}

func asUser(req *http.Request, userID, role string) *http.Request {
	ctx := middleware.WithUser(req.Context(), auth.UserContext{UserID: userID, Name: userID, Role: role})
	return req.WithContext(ctx)
}

func draftBonus(id string) evaluation.BonusRecord {
	now := time.Now()
	return evaluation.BonusRecord{
		ID:         id,
		EmployeeID: "emp-1",
		Period:     "2026-H1",
		Items: []evaluation.WeightedItem{
			{ID: "i1", Name: "Revenue", Weight: 60, Achievement: score(90)},
			{ID: "i2", Name: "Quality", Weight: 40, Achievement: score(80)},
		},
		Workflow: evaluation.Workflow{Status: evaluation.StatusDraft, CreatedAt: now, UpdatedAt: now},
	}
}

type errorEnvelope struct {
	Success bool `json:"success"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v (%s)", err, rec.Body.String())
	}
	if body.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return body.Error.Code
}

func TestSubmitWeightMismatchMapsTo400(t *testing.T) {
	store := &stubStore{bonus: map[string]evaluation.BonusRecord{}}
	record := draftBonus("b1")
	record.Items[0].Weight = 50
	store.bonus["b1"] = record
	router := testRouter(store)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/evaluations/bonus/b1/submit", nil), "emp-1", auth.RoleEmployee)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := decodeError(t, rec); code != "weight_mismatch" {
		t.Fatalf("expected weight_mismatch, got %s", code)
	}
}

func TestForwardByEmployeeIsForbidden(t *testing.T) {
	store := &stubStore{bonus: map[string]evaluation.BonusRecord{"b1": draftBonus("b1")}}
	router := testRouter(store)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/evaluations/bonus/b1/forward", nil), "emp-1", auth.RoleEmployee)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateItemsByNonOwnerIsForbidden(t *testing.T) {
	store := &stubStore{bonus: map[string]evaluation.BonusRecord{"b1": draftBonus("b1")}}
	router := testRouter(store)

	payload := `{"period":"2026-H1","items":[{"name":"Revenue","weight":100,"achievement":90}]}`
	req := asUser(httptest.NewRequest(http.MethodPut, "/api/v1/evaluations/bonus/b1/items", bytes.NewBufferString(payload)), "emp-2", auth.RoleEmployee)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner edit, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := store.bonus["b1"].Items[0].Weight; got != 60 {
		t.Fatalf("record must be untouched after a forbidden edit, got weight %v", got)
	}
}

func TestSubmitByNonOwnerMapsTo409(t *testing.T) {
	store := &stubStore{bonus: map[string]evaluation.BonusRecord{"b1": draftBonus("b1")}}
	router := testRouter(store)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/evaluations/bonus/b1/submit", nil), "emp-2", auth.RoleEmployee)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := decodeError(t, rec); code != "illegal_transition" {
		t.Fatalf("expected illegal_transition, got %s", code)
	}
}

func TestRejectWithoutFeedbackMapsTo400(t *testing.T) {
	store := &stubStore{bonus: map[string]evaluation.BonusRecord{}}
	record := draftBonus("b1")
	record.Status = evaluation.StatusPendingChecker
	store.bonus["b1"] = record
	router := testRouter(store)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/evaluations/bonus/b1/reject", bytes.NewBufferString(`{"feedback":""}`)), "check-1", auth.RoleChecker)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := decodeError(t, rec); code != "feedback_required" {
		t.Fatalf("expected feedback_required, got %s", code)
	}
}

func TestApproveInWrongStateMapsTo409(t *testing.T) {
	store := &stubStore{bonus: map[string]evaluation.BonusRecord{"b1": draftBonus("b1")}}
	router := testRouter(store)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/evaluations/bonus/b1/approve", nil), "admin-1", auth.RoleApprover)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := decodeError(t, rec); code != "illegal_transition" {
		t.Fatalf("expected illegal_transition, got %s", code)
	}
}

func TestGetUnknownRecordMapsTo404(t *testing.T) {
	store := &stubStore{bonus: map[string]evaluation.BonusRecord{}}
	router := testRouter(store)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/evaluations/bonus/missing", nil), "emp-1", auth.RoleEmployee)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownRecordTypeMapsTo404(t *testing.T) {
	store := &stubStore{bonus: map[string]evaluation.BonusRecord{}}
	router := testRouter(store)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/evaluations/quarterly/x", nil), "emp-1", auth.RoleEmployee)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWeightsCheckEndpoint(t *testing.T) {
	store := &stubStore{bonus: map[string]evaluation.BonusRecord{}}
	router := testRouter(store)

	payload := `{"items":[{"weight":40},{"weight":30},{"weight":20}]}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/evaluations/weights/check", bytes.NewBufferString(payload)), "emp-1", auth.RoleEmployee)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data evaluation.WeightCheck `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Data.Valid {
		t.Fatal("expected invalid weight set")
	}
	if body.Data.Total != 90 || body.Data.Delta != 10 {
		t.Fatalf("expected total 90 delta 10, got %+v", body.Data)
	}
}

func TestSubmitHappyPathReturnsResult(t *testing.T) {
	store := &stubStore{bonus: map[string]evaluation.BonusRecord{"b1": draftBonus("b1")}}
	router := testRouter(store)

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/evaluations/bonus/b1/submit", nil), "emp-1", auth.RoleEmployee)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data evaluation.TransitionResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Data.Status != evaluation.StatusPendingChecker {
		t.Fatalf("expected pending_checker, got %s", body.Data.Status)
	}
}
