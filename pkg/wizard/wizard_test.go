package wizard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubServer is a minimal wizard backend recording every save-step request.
type stubServer struct {
	mu         sync.Mutex
	saves      []SaveStepRequest
	rawSaves   []map[string]interface{}
	creates    []map[string]interface{}
	saveStatus int
	saveBody   string
	detail     string
	detailHits int
	submitted  bool
}

func newStubServer() *stubServer {
	return &stubServer{saveStatus: http.StatusOK}
}

func (s *stubServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/assessments/a-1/wizard/save-step", func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&raw)
		blob, _ := json.Marshal(raw)
		var req SaveStepRequest
		_ = json.Unmarshal(blob, &req)

		s.mu.Lock()
		s.saves = append(s.saves, req)
		s.rawSaves = append(s.rawSaves, raw)
		status := s.saveStatus
		body := s.saveBody
		s.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(body))
			return
		}
		w.Write([]byte(`{"status":"success","data":{"committed":true,` +
			`"assessment":{"id":"a-1","currentStep":` + itoa(req.StepNumber) + `,"progressPercentage":20,"status":"IN_PROGRESS"},` +
			`"draft":{"assessmentId":"a-1","lastSavedAt":"2026-08-31T10:00:00Z"}}}`))
	})

	mux.HandleFunc("/api/assessments/a-1", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.detailHits++
		s.mu.Unlock()
		w.Write([]byte(s.detail))
	})

	mux.HandleFunc("/api/assessments/a-1/progress", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":{"assessmentId":"a-1","currentStep":2,` +
			`"progressPercentage":40,"status":"IN_PROGRESS","completedSteps":[1,2]}}`))
	})

	mux.HandleFunc("/api/assessments/a-1/submit", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.submitted = true
		s.mu.Unlock()
		w.Write([]byte(`{"status":"success","data":{"id":"a-1","status":"SUBMITTED","progressPercentage":100}}`))
	})

	mux.HandleFunc("/api/assessments", func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&raw)
		s.mu.Lock()
		s.creates = append(s.creates, raw)
		s.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"success","data":{"id":"a-1","title":"Bilan","status":"DRAFT","currentStep":0,"progressPercentage":0}}`))
	})

	return mux
}

func (s *stubServer) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func (s *stubServer) lastSave() SaveStepRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[len(s.saves)-1]
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func newTestWizard(t *testing.T, stub *stubServer, opts ...WizardOption) *Wizard {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "test-token", WithHTTPClient(srv.Client()))
	w := NewWizard(client, opts...)
	t.Cleanup(w.Close)
	return w
}

func TestCreateInitializesState(t *testing.T) {
	w := newTestWizard(t, newStubServer())

	require.NoError(t, w.Create(context.Background(), "Bilan", "career"))

	state := w.State()
	assert.Equal(t, "a-1", state.AssessmentID)
	assert.Equal(t, 0, state.CurrentStep)
	assert.Equal(t, "DRAFT", state.Status)
	assert.False(t, state.UnsavedChanges)
}

func TestCreateSendsAssessmentType(t *testing.T) {
	stub := newStubServer()
	w := newTestWizard(t, stub)

	require.NoError(t, w.Create(context.Background(), "Bilan", "skills"))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Len(t, stub.creates, 1)
	assert.Equal(t, "Bilan", stub.creates[0]["title"])
	assert.Equal(t, "skills", stub.creates[0]["assessment_type"])
}

func TestLoadRehydratesDraft(t *testing.T) {
	stub := newStubServer()
	stub.detail = `{"status":"success","data":{"id":"a-1","title":"Bilan","status":"IN_PROGRESS",` +
		`"currentStep":2,"progressPercentage":40,"completedSteps":[1,2],` +
		`"draft":{"assessmentId":"a-1","lastSavedAt":"2026-08-30T09:00:00Z",` +
		`"draftData":{"step1":{"section":"work_history","answers":{"recentJob":"Senior Developer Position"}}}}}}`
	w := newTestWizard(t, stub)

	require.NoError(t, w.Load(context.Background(), "a-1"))

	state := w.State()
	assert.Equal(t, 2, state.CurrentStep)
	assert.Equal(t, 40, state.ProgressPct)
	assert.Equal(t, []int{1, 2}, state.CompletedSteps)
	require.NotNil(t, state.LastSavedAt)
	assert.Equal(t, "Senior Developer Position", state.DraftData[1]["recentJob"])
}

func TestLoadTwiceWithoutWritesIsIdempotent(t *testing.T) {
	stub := newStubServer()
	stub.detail = `{"status":"success","data":{"id":"a-1","title":"Bilan","status":"IN_PROGRESS",` +
		`"currentStep":2,"progressPercentage":40,"completedSteps":[1,2],` +
		`"draft":{"assessmentId":"a-1","lastSavedAt":"2026-08-30T09:00:00Z",` +
		`"draftData":{"step1":{"section":"work_history","answers":{"recentJob":"Senior Developer Position"}}}}}}`
	w := newTestWizard(t, stub)

	require.NoError(t, w.Load(context.Background(), "a-1"))
	first := w.State()

	require.NoError(t, w.Load(context.Background(), "a-1"))
	second := w.State()

	stub.mu.Lock()
	hits := stub.detailHits
	stub.mu.Unlock()
	require.Equal(t, 2, hits)

	assert.Equal(t, first.CurrentStep, second.CurrentStep)
	assert.Equal(t, first.ProgressPct, second.ProgressPct)
	assert.Equal(t, first.CompletedSteps, second.CompletedSteps)
	assert.Equal(t, first.DraftData, second.DraftData)
	assert.Equal(t, first.LastSavedAt, second.LastSavedAt)
	assert.Equal(t, first.Status, second.Status)
}

func TestNavigationSaturates(t *testing.T) {
	w := newTestWizard(t, newStubServer())

	w.GoBack()
	assert.Equal(t, 0, w.State().CurrentStep)

	for i := 0; i < 10; i++ {
		w.GoNext()
	}
	assert.Equal(t, TotalSteps, w.State().CurrentStep)

	w.GoToStep(99)
	assert.Equal(t, TotalSteps, w.State().CurrentStep)
	w.GoToStep(-3)
	assert.Equal(t, 0, w.State().CurrentStep)
}

func TestUpdateDraftMarksUnsaved(t *testing.T) {
	w := newTestWizard(t, newStubServer())

	w.UpdateDraft(1, map[string]interface{}{"recentJob": "Dev"})
	assert.True(t, w.State().UnsavedChanges)

	w.UpdateDraft(1, map[string]interface{}{"recentJob": "Senior Dev"})
	assert.Equal(t, "Senior Dev", w.State().DraftData[1]["recentJob"])

	// Out of range edits are dropped.
	w.UpdateDraft(0, map[string]interface{}{"x": 1})
	w.UpdateDraft(6, map[string]interface{}{"x": 1})
	assert.Len(t, w.State().DraftData, 1)
}

func TestSaveStepUpdatesState(t *testing.T) {
	stub := newStubServer()
	w := newTestWizard(t, stub)

	require.NoError(t, w.Create(context.Background(), "Bilan", "career"))
	w.GoToStep(1)
	w.UpdateDraft(1, map[string]interface{}{"recentJob": "Senior Developer Position"})

	require.NoError(t, w.SaveStep(context.Background(), 1))

	state := w.State()
	assert.False(t, state.UnsavedChanges)
	assert.Equal(t, 20, state.ProgressPct)
	assert.Equal(t, "IN_PROGRESS", state.Status)
	assert.Equal(t, []int{1}, state.CompletedSteps)
	require.NotNil(t, state.LastSavedAt)

	sent := stub.lastSave()
	assert.Equal(t, "work_history", sent.Section)
	assert.False(t, sent.IsAutoSave)

	// The wire body carries the snake_case keys the server binds on.
	stub.mu.Lock()
	raw := stub.rawSaves[len(stub.rawSaves)-1]
	stub.mu.Unlock()
	assert.Contains(t, raw, "step_number")
	assert.Contains(t, raw, "is_auto_save")
}

func TestSaveStepValidationErrorIsRecorded(t *testing.T) {
	stub := newStubServer()
	stub.saveStatus = http.StatusBadRequest
	stub.saveBody = `{"status":"error","message":"Validation failed","errors":[{"field":"recentJob","message":"too short"}]}`
	w := newTestWizard(t, stub)

	require.NoError(t, w.Create(context.Background(), "Bilan", "career"))
	w.UpdateDraft(1, map[string]interface{}{"recentJob": "x"})

	err := w.SaveStep(context.Background(), 1)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Validation failed", apiErr.Message)

	state := w.State()
	assert.Error(t, state.Err)
	assert.True(t, state.UnsavedChanges)

	w.ClearError()
	assert.NoError(t, w.State().Err)
}

func TestAutoSaveLoop(t *testing.T) {
	stub := newStubServer()
	w := newTestWizard(t, stub, WithAutoSaveInterval(20*time.Millisecond))

	require.NoError(t, w.Create(context.Background(), "Bilan", "career"))
	w.Start()

	// No assessment edits yet and still on the intro step: no saves.
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, stub.saveCount())

	w.GoToStep(1)
	w.UpdateDraft(1, map[string]interface{}{"recentJob": "partial"})

	require.Eventually(t, func() bool {
		return stub.saveCount() > 0
	}, time.Second, 10*time.Millisecond)

	sent := stub.lastSave()
	assert.True(t, sent.IsAutoSave)
	assert.Equal(t, 1, sent.StepNumber)
	assert.Equal(t, "work_history", sent.Section)

	// Once synced the loop goes quiet again.
	require.Eventually(t, func() bool {
		return !w.State().UnsavedChanges
	}, time.Second, 10*time.Millisecond)
	count := stub.saveCount()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, count, stub.saveCount())
}

func TestAutoSaveFailureIsSilent(t *testing.T) {
	stub := newStubServer()
	stub.saveStatus = http.StatusInternalServerError
	stub.saveBody = `{"status":"error","message":"Internal server error"}`
	w := newTestWizard(t, stub, WithAutoSaveInterval(20*time.Millisecond))

	require.NoError(t, w.Create(context.Background(), "Bilan", "career"))
	w.GoToStep(1)
	w.UpdateDraft(1, map[string]interface{}{"recentJob": "partial"})
	w.Start()

	require.Eventually(t, func() bool {
		return stub.saveCount() > 0
	}, time.Second, 10*time.Millisecond)

	// The failure is not surfaced and the dirty flag survives for a retry.
	state := w.State()
	assert.NoError(t, state.Err)
	assert.True(t, state.UnsavedChanges)
}

func TestSubmitReportsSuccess(t *testing.T) {
	stub := newStubServer()
	w := newTestWizard(t, stub)

	require.NoError(t, w.Create(context.Background(), "Bilan", "career"))

	ok, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	state := w.State()
	assert.Equal(t, "SUBMITTED", state.Status)
	assert.Equal(t, 100, state.ProgressPct)
}

func TestRefreshPullsProgress(t *testing.T) {
	w := newTestWizard(t, newStubServer())
	require.NoError(t, w.Create(context.Background(), "Bilan", "career"))

	require.NoError(t, w.Refresh(context.Background()))

	state := w.State()
	assert.Equal(t, 2, state.CurrentStep)
	assert.Equal(t, 40, state.ProgressPct)
	assert.Equal(t, []int{1, 2}, state.CompletedSteps)
}

func TestOperationsWithoutAssessment(t *testing.T) {
	w := newTestWizard(t, newStubServer())

	assert.ErrorIs(t, w.SaveStep(context.Background(), 1), ErrNoAssessment)
	assert.ErrorIs(t, w.Refresh(context.Background()), ErrNoAssessment)
	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoAssessment)
}
