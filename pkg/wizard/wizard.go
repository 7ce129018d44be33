package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// TotalSteps is the number of form steps. Step 0 is the intro screen; the
// form steps run 1..TotalSteps.
const TotalSteps = 5

var sectionForStep = map[int]string{
	1: "work_history",
	2: "education",
	3: "skills",
	4: "motivations",
	5: "constraints",
}

// ErrNoAssessment is returned by operations that need a loaded assessment.
var ErrNoAssessment = errors.New("wizard: no assessment loaded")

// State is a snapshot of the wizard. DraftData holds the locally edited
// answers per step; UnsavedChanges reports whether any edit has not reached
// the server yet.
type State struct {
	AssessmentID   string
	CurrentStep    int
	ProgressPct    int
	CompletedSteps []int
	Status         string
	LastSavedAt    *time.Time
	DraftData      map[int]map[string]interface{}
	IsLoading      bool
	IsSaving       bool
	Err            error
	UnsavedChanges bool
}

// Wizard drives the multi-step assessment flow client-side: local draft
// edits, step navigation, explicit saves and a periodic auto-save.
type Wizard struct {
	client   *Client
	interval time.Duration

	mu             sync.Mutex
	state          State
	competencies   []Competency
	dirtyRev       uint64
	stop           chan struct{}
	stopOnce       sync.Once
	started        bool
}

type WizardOption func(*Wizard)

// WithAutoSaveInterval overrides the default 30 second auto-save period.
func WithAutoSaveInterval(d time.Duration) WizardOption {
	return func(w *Wizard) { w.interval = d }
}

func NewWizard(client *Client, opts ...WizardOption) *Wizard {
	w := &Wizard{
		client:   client,
		interval: 30 * time.Second,
		stop:     make(chan struct{}),
	}
	w.state.DraftData = make(map[int]map[string]interface{})
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the auto-save loop. Ticks where nothing changed, no
// assessment is loaded, or the wizard is still on the intro step are skipped.
func (w *Wizard) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go w.autoSaveLoop()
}

func (w *Wizard) Close() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *Wizard) autoSaveLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.autoSave()
		}
	}
}

// autoSave pushes the current step's draft to the server. Failures are
// silent: the dirty flag stays set and the next tick retries.
func (w *Wizard) autoSave() {
	w.mu.Lock()
	if !w.state.UnsavedChanges || w.state.AssessmentID == "" || w.state.CurrentStep < 1 {
		w.mu.Unlock()
		return
	}
	step := w.state.CurrentStep
	answers := copyAnswers(w.state.DraftData[step])
	competencies := w.competencies
	rev := w.dirtyRev
	id := w.state.AssessmentID
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := w.client.SaveStep(ctx, id, &SaveStepRequest{
		StepNumber:   step,
		Section:      sectionForStep[step],
		Answers:      answers,
		Competencies: competencies,
		IsAutoSave:   true,
	})
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	// Only clear the dirty flag when nothing changed while the request was
	// in flight, so newer edits are not reported as saved.
	if w.dirtyRev == rev {
		w.state.UnsavedChanges = false
	}
	if result.Draft != nil {
		w.state.LastSavedAt = result.Draft.LastSavedAt
	}
}

func (w *Wizard) Create(ctx context.Context, title, assessmentType string) error {
	w.setLoading(true)
	defer w.setLoading(false)

	assessment, err := w.client.CreateAssessment(ctx, title, assessmentType)
	if err != nil {
		w.setError(err)
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = State{
		AssessmentID: assessment.ID,
		CurrentStep:  0,
		ProgressPct:  assessment.ProgressPct,
		Status:       assessment.Status,
		DraftData:    make(map[int]map[string]interface{}),
	}
	return nil
}

// Load rehydrates the wizard from the server so the beneficiary resumes
// where they left off, server draft included.
func (w *Wizard) Load(ctx context.Context, id string) error {
	w.setLoading(true)
	defer w.setLoading(false)

	detail, err := w.client.GetAssessment(ctx, id)
	if err != nil {
		w.setError(err)
		return err
	}

	draftData := make(map[int]map[string]interface{})
	var lastSavedAt *time.Time
	if detail.Draft != nil {
		lastSavedAt = detail.Draft.LastSavedAt
		for step := 1; step <= TotalSteps; step++ {
			raw, ok := detail.Draft.DraftData[stepKey(step)]
			if !ok {
				continue
			}
			var entry struct {
				Answers map[string]interface{} `json:"answers"`
			}
			if json.Unmarshal(raw, &entry) == nil && entry.Answers != nil {
				draftData[step] = entry.Answers
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = State{
		AssessmentID:   detail.ID,
		CurrentStep:    detail.CurrentStep,
		ProgressPct:    detail.ProgressPct,
		CompletedSteps: detail.CompletedSteps,
		Status:         detail.Status,
		LastSavedAt:    lastSavedAt,
		DraftData:      draftData,
	}
	return nil
}

// UpdateDraft merges answers into the given step's local draft and marks the
// wizard dirty for the next auto-save.
func (w *Wizard) UpdateDraft(step int, answers map[string]interface{}) {
	if step < 1 || step > TotalSteps {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	current := w.state.DraftData[step]
	if current == nil {
		current = make(map[string]interface{})
		w.state.DraftData[step] = current
	}
	for k, v := range answers {
		current[k] = v
	}
	w.state.UnsavedChanges = true
	w.dirtyRev++
}

// SetCompetencies replaces the skill list sent with the skills step.
func (w *Wizard) SetCompetencies(competencies []Competency) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.competencies = append([]Competency(nil), competencies...)
	w.state.UnsavedChanges = true
	w.dirtyRev++
}

// SaveStep validates and commits the given step server-side. An *APIError
// with the validation payload is both recorded on the state and returned.
func (w *Wizard) SaveStep(ctx context.Context, step int) error {
	w.mu.Lock()
	if w.state.AssessmentID == "" {
		w.mu.Unlock()
		return ErrNoAssessment
	}
	id := w.state.AssessmentID
	answers := copyAnswers(w.state.DraftData[step])
	competencies := w.competencies
	rev := w.dirtyRev
	w.state.IsSaving = true
	w.mu.Unlock()

	result, err := w.client.SaveStep(ctx, id, &SaveStepRequest{
		StepNumber:   step,
		Section:      sectionForStep[step],
		Answers:      answers,
		Competencies: competencies,
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.IsSaving = false
	if err != nil {
		w.state.Err = err
		return err
	}

	if w.dirtyRev == rev {
		w.state.UnsavedChanges = false
	}
	if result.Assessment != nil {
		w.state.ProgressPct = result.Assessment.ProgressPct
		w.state.Status = result.Assessment.Status
		if result.Assessment.CurrentStep > w.state.CurrentStep {
			w.state.CurrentStep = result.Assessment.CurrentStep
		}
	}
	if result.Draft != nil {
		w.state.LastSavedAt = result.Draft.LastSavedAt
	}
	w.markCompleted(step)
	return nil
}

// Refresh pulls the server-side progress into the local state.
func (w *Wizard) Refresh(ctx context.Context) error {
	w.mu.Lock()
	if w.state.AssessmentID == "" {
		w.mu.Unlock()
		return ErrNoAssessment
	}
	id := w.state.AssessmentID
	w.mu.Unlock()

	progress, err := w.client.GetProgress(ctx, id)
	if err != nil {
		w.setError(err)
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if progress.CurrentStep > w.state.CurrentStep {
		w.state.CurrentStep = progress.CurrentStep
	}
	w.state.ProgressPct = progress.ProgressPct
	w.state.Status = progress.Status
	w.state.CompletedSteps = progress.CompletedSteps
	if progress.LastSavedAt != nil {
		w.state.LastSavedAt = progress.LastSavedAt
	}
	return nil
}

// Submit finalizes the assessment. It reports true only when the server
// accepted the submission.
func (w *Wizard) Submit(ctx context.Context) (bool, error) {
	w.mu.Lock()
	if w.state.AssessmentID == "" {
		w.mu.Unlock()
		return false, ErrNoAssessment
	}
	id := w.state.AssessmentID
	w.mu.Unlock()

	assessment, err := w.client.SubmitAssessment(ctx, id)
	if err != nil {
		w.setError(err)
		return false, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Status = assessment.Status
	w.state.ProgressPct = assessment.ProgressPct
	w.state.UnsavedChanges = false
	return true, nil
}

// GoToStep moves to the given step, clamped to [0, TotalSteps].
func (w *Wizard) GoToStep(step int) {
	if step < 0 {
		step = 0
	}
	if step > TotalSteps {
		step = TotalSteps
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.CurrentStep = step
}

func (w *Wizard) GoNext() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.CurrentStep < TotalSteps {
		w.state.CurrentStep++
	}
}

func (w *Wizard) GoBack() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.CurrentStep > 0 {
		w.state.CurrentStep--
	}
}

func (w *Wizard) ClearError() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Err = nil
}

// State returns a copy; callers never see later mutations.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	snapshot := w.state
	snapshot.CompletedSteps = append([]int(nil), w.state.CompletedSteps...)
	snapshot.DraftData = make(map[int]map[string]interface{}, len(w.state.DraftData))
	for step, answers := range w.state.DraftData {
		snapshot.DraftData[step] = copyAnswers(answers)
	}
	return snapshot
}

func (w *Wizard) markCompleted(step int) {
	for _, s := range w.state.CompletedSteps {
		if s == step {
			return
		}
	}
	w.state.CompletedSteps = append(w.state.CompletedSteps, step)
}

func (w *Wizard) setLoading(loading bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.IsLoading = loading
	if loading {
		w.state.Err = nil
	}
}

func (w *Wizard) setError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Err = err
}

func stepKey(step int) string {
	return fmt.Sprintf("step%d", step)
}

func copyAnswers(answers map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(answers))
	for k, v := range answers {
		out[k] = v
	}
	return out
}
