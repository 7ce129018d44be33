package repository

import (
	"bilan_backend/internal/model"
	"bilan_backend/internal/util"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryAssessmentStore is a map-backed store with the same surface as
// AssessmentRepository. It backs local development without MySQL and the
// service and controller tests.
type MemoryAssessmentStore struct {
	mu           sync.RWMutex
	assessments  map[string]*model.Assessment
	drafts       map[string]*model.AssessmentDraft
	stepRecords  map[string]map[int]*model.StepRecord
	competencies map[string][]model.Competency
}

func NewMemoryAssessmentStore() *MemoryAssessmentStore {
	return &MemoryAssessmentStore{
		assessments:  make(map[string]*model.Assessment),
		drafts:       make(map[string]*model.AssessmentDraft),
		stepRecords:  make(map[string]map[int]*model.StepRecord),
		competencies: make(map[string][]model.Competency),
	}
}

func (s *MemoryAssessmentStore) Create(assessment *model.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if assessment.ID == "" {
		assessment.ID = model.GenerateUUID()
	}
	now := time.Now()
	assessment.CreatedAt = now
	assessment.UpdatedAt = now
	if assessment.Status == "" {
		assessment.Status = model.StatusDraft
	}

	copied := *assessment
	s.assessments[assessment.ID] = &copied
	s.drafts[assessment.ID] = &model.AssessmentDraft{
		UUIDBase:     model.UUIDBase{ID: model.GenerateUUID(), CreatedAt: now, UpdatedAt: now},
		AssessmentID: assessment.ID,
		DraftData:    json.RawMessage("{}"),
	}
	return nil
}

func (s *MemoryAssessmentStore) FindByID(id string) (*model.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assessment, ok := s.assessments[id]
	if !ok {
		return nil, util.ErrAssessmentNotFound
	}
	copied := *assessment
	return &copied, nil
}

func (s *MemoryAssessmentStore) List(filter AssessmentFilter) ([]model.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Assessment
	for _, a := range s.assessments {
		if filter.BeneficiaryID != nil && a.BeneficiaryID != *filter.BeneficiaryID {
			continue
		}
		if filter.ConsultantID != nil && (a.ConsultantID == nil || *a.ConsultantID != *filter.ConsultantID) {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *MemoryAssessmentStore) Update(assessment *model.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assessments[assessment.ID]; !ok {
		return util.ErrAssessmentNotFound
	}
	assessment.UpdatedAt = time.Now()
	copied := *assessment
	s.assessments[assessment.ID] = &copied
	return nil
}

func (s *MemoryAssessmentStore) GetDraft(assessmentID string) (*model.AssessmentDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[assessmentID]
	if !ok {
		return nil, util.ErrDraftNotFound
	}
	copied := *draft
	return &copied, nil
}

func (s *MemoryAssessmentStore) SaveDraftStep(assessmentID string, stepNumber int, payload json.RawMessage, savedAt time.Time) (*model.AssessmentDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[assessmentID]
	if !ok {
		draft = &model.AssessmentDraft{
			UUIDBase:     model.UUIDBase{ID: model.GenerateUUID(), CreatedAt: savedAt},
			AssessmentID: assessmentID,
			DraftData:    json.RawMessage("{}"),
		}
		s.drafts[assessmentID] = draft
	}

	steps := map[string]json.RawMessage{}
	if len(draft.DraftData) > 0 {
		if err := json.Unmarshal(draft.DraftData, &steps); err != nil {
			steps = map[string]json.RawMessage{}
		}
	}
	steps[fmt.Sprintf("step%d", stepNumber)] = payload

	merged, err := json.Marshal(steps)
	if err != nil {
		return nil, err
	}
	draft.DraftData = merged
	at := savedAt
	draft.LastSavedAt = &at
	draft.UpdatedAt = savedAt

	copied := *draft
	return &copied, nil
}

func (s *MemoryAssessmentStore) CommitStep(record *model.StepRecord, progressPct int) (*model.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assessment, ok := s.assessments[record.AssessmentID]
	if !ok {
		return nil, util.ErrAssessmentNotFound
	}

	if record.ID == "" {
		record.ID = model.GenerateUUID()
	}
	byStep, ok := s.stepRecords[record.AssessmentID]
	if !ok {
		byStep = make(map[int]*model.StepRecord)
		s.stepRecords[record.AssessmentID] = byStep
	}
	copied := *record
	byStep[record.StepNumber] = &copied

	if record.StepNumber > assessment.CurrentStep {
		assessment.CurrentStep = record.StepNumber
	}
	if progressPct > assessment.ProgressPct {
		assessment.ProgressPct = progressPct
	}
	if assessment.Status == model.StatusDraft {
		assessment.Status = model.StatusInProgress
	}
	assessment.UpdatedAt = time.Now()

	result := *assessment
	return &result, nil
}

func (s *MemoryAssessmentStore) ListStepRecords(assessmentID string) ([]model.StepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byStep := s.stepRecords[assessmentID]
	out := make([]model.StepRecord, 0, len(byStep))
	for _, rec := range byStep {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StepNumber < out[j].StepNumber
	})
	return out, nil
}

func (s *MemoryAssessmentStore) ReplaceCompetencies(assessmentID string, competencies []model.Competency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.Competency, len(competencies))
	copy(copied, competencies)
	s.competencies[assessmentID] = copied
	return nil
}

func (s *MemoryAssessmentStore) ListCompetencies(assessmentID string) ([]model.Competency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Competency, len(s.competencies[assessmentID]))
	copy(out, s.competencies[assessmentID])
	sort.Slice(out, func(i, j int) bool {
		return out[i].SkillName < out[j].SkillName
	})
	return out, nil
}

func (s *MemoryAssessmentStore) Submit(assessmentID string, at time.Time) (*model.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assessment, ok := s.assessments[assessmentID]
	if !ok {
		return nil, util.ErrAssessmentNotFound
	}
	if assessment.Status != model.StatusDraft && assessment.Status != model.StatusInProgress {
		return nil, util.ErrAlreadySubmitted
	}

	assessment.Status = model.StatusSubmitted
	assessment.ProgressPct = 100
	submitted := at
	assessment.SubmittedAt = &submitted
	assessment.UpdatedAt = at

	copied := *assessment
	return &copied, nil
}
