package service

import (
	"bilan_backend/internal/config"
	"bilan_backend/internal/model"
	"bilan_backend/internal/repository"
	"bilan_backend/internal/util"
	"bilan_backend/pkg/logger"
	"bilan_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AssessmentStore is the persistence surface the wizard needs. Satisfied by
// repository.AssessmentRepository (MySQL) and repository.MemoryAssessmentStore.
type AssessmentStore interface {
	Create(assessment *model.Assessment) error
	FindByID(id string) (*model.Assessment, error)
	List(filter repository.AssessmentFilter) ([]model.Assessment, error)
	Update(assessment *model.Assessment) error
	GetDraft(assessmentID string) (*model.AssessmentDraft, error)
	SaveDraftStep(assessmentID string, stepNumber int, payload json.RawMessage, savedAt time.Time) (*model.AssessmentDraft, error)
	CommitStep(record *model.StepRecord, progressPct int) (*model.Assessment, error)
	ListStepRecords(assessmentID string) ([]model.StepRecord, error)
	ReplaceCompetencies(assessmentID string, competencies []model.Competency) error
	ListCompetencies(assessmentID string) ([]model.Competency, error)
	Submit(assessmentID string, at time.Time) (*model.Assessment, error)
}

// AuditRecorder is optional; a nil recorder disables the audit trail.
type AuditRecorder interface {
	Record(entry *model.AuditLog) error
}

type AssessmentService struct {
	store        AssessmentStore
	audit        AuditRecorder
	rdb          *redis.Client
	totalSteps   atomic.Int32
	autoSaveSecs atomic.Int32
	cacheTTL     time.Duration
}

func NewAssessmentService(store AssessmentStore, audit AuditRecorder, rdb *redis.Client, cfg *config.Config) *AssessmentService {
	s := &AssessmentService{
		store:    store,
		audit:    audit,
		rdb:      rdb,
		cacheTTL: time.Duration(cfg.Wizard.ProgressCacheTTLSec) * time.Second,
	}
	s.ApplyWizardConfig(cfg.Wizard)
	return s
}

// ApplyWizardConfig picks up wizard settings from a config reload.
func (s *AssessmentService) ApplyWizardConfig(cfg config.WizardConfig) {
	totalSteps := cfg.TotalSteps
	if totalSteps <= 0 {
		totalSteps = 5
	}
	s.totalSteps.Store(int32(totalSteps))

	autoSave := cfg.AutoSaveSeconds
	if autoSave <= 0 {
		autoSave = 30
	}
	s.autoSaveSecs.Store(int32(autoSave))
}

type CreateAssessmentRequest struct {
	Title          string               `json:"title" binding:"required,max=255"`
	Description    string               `json:"description"`
	AssessmentType model.AssessmentType `json:"assessment_type"`
}

type UpdateAssessmentRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	ConsultantID *uint   `json:"consultant_id"`
}

type SaveStepRequest struct {
	StepNumber   int                    `json:"step_number" binding:"required,min=1,max=5"`
	Section      string                 `json:"section" binding:"required"`
	Answers      map[string]interface{} `json:"answers"`
	Competencies []CompetencyInput      `json:"competencies"`
	IsAutoSave   bool                   `json:"is_auto_save"`
}

// SaveStepResult carries either the committed assessment or the validation
// failures; the draft is updated in both cases.
type SaveStepResult struct {
	Assessment *model.Assessment      `json:"assessment,omitempty"`
	Draft      *model.AssessmentDraft `json:"draft,omitempty"`
	Errors     []FieldError           `json:"errors,omitempty"`
	Committed  bool                   `json:"committed"`
}

// AssessmentDetail is the wizard rehydration payload: the record plus its
// draft blob and which steps already have committed answers.
type AssessmentDetail struct {
	*model.Assessment
	Draft          *model.AssessmentDraft `json:"draft,omitempty"`
	CompletedSteps []int                  `json:"completedSteps"`
}

// ProgressInfo also carries the server's auto-save interval so clients poll
// with the configured cadence instead of a hardcoded one.
type ProgressInfo struct {
	AssessmentID    string                 `json:"assessmentId"`
	CurrentStep     int                    `json:"currentStep"`
	ProgressPct     int                    `json:"progressPercentage"`
	Status          model.AssessmentStatus `json:"status"`
	CompletedSteps  []int                  `json:"completedSteps"`
	LastSavedAt     *time.Time             `json:"lastSavedAt,omitempty"`
	AutoSaveSeconds int                    `json:"autoSaveSeconds"`
}

func (s *AssessmentService) CreateAssessment(claims *util.Claims, req *CreateAssessmentRequest) (*model.Assessment, error) {
	assessmentType := req.AssessmentType
	if assessmentType == "" {
		assessmentType = model.TypeCareer
	}

	assessment := &model.Assessment{
		BeneficiaryID:  claims.UserID,
		Title:          req.Title,
		Description:    req.Description,
		AssessmentType: assessmentType,
		Status:         model.StatusDraft,
	}
	if err := s.store.Create(assessment); err != nil {
		return nil, err
	}

	s.recordAudit(claims.UserID, "assessment.create", assessment.ID, map[string]interface{}{
		"title": assessment.Title,
	})
	return assessment, nil
}

func (s *AssessmentService) GetAssessment(claims *util.Claims, id string) (*AssessmentDetail, error) {
	assessment, err := s.store.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !s.canRead(claims, assessment) {
		// Hidden rather than forbidden, so ids cannot be probed.
		return nil, util.ErrAssessmentNotFound
	}

	detail := &AssessmentDetail{Assessment: assessment}
	if draft, err := s.store.GetDraft(id); err == nil {
		detail.Draft = draft
	}
	records, err := s.store.ListStepRecords(id)
	if err != nil {
		return nil, err
	}
	detail.CompletedSteps = stepNumbers(records)
	return detail, nil
}

func (s *AssessmentService) ListAssessments(claims *util.Claims) ([]model.Assessment, error) {
	filter := repository.AssessmentFilter{}
	switch claims.Role {
	case model.Admin:
	case model.Consultant:
		filter.ConsultantID = &claims.UserID
	default:
		filter.BeneficiaryID = &claims.UserID
	}
	return s.store.List(filter)
}

func (s *AssessmentService) UpdateAssessment(claims *util.Claims, id string, req *UpdateAssessmentRequest) (*model.Assessment, error) {
	assessment, err := s.store.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !s.canWrite(claims, assessment) {
		return nil, util.ErrAssessmentNotFound
	}

	if req.Title != nil || req.Description != nil {
		// Content edits only while the wizard is open.
		if assessment.Status != model.StatusDraft && assessment.Status != model.StatusInProgress {
			return nil, util.ErrAlreadySubmitted
		}
	}
	if req.Title != nil {
		assessment.Title = *req.Title
	}
	if req.Description != nil {
		assessment.Description = *req.Description
	}
	if req.ConsultantID != nil {
		// Only staff may assign a consultant.
		if claims.Role != model.Admin && claims.Role != model.Consultant {
			return nil, util.ErrPermissionDenied
		}
		assessment.ConsultantID = req.ConsultantID
	}

	if err := s.store.Update(assessment); err != nil {
		return nil, err
	}
	s.recordAudit(claims.UserID, "assessment.update", assessment.ID, nil)
	return assessment, nil
}

// SaveStep persists one wizard step. The draft is always updated first, so
// work survives even when validation rejects the answers. Auto-saves stop
// there; explicit saves go on to validate and commit the step record.
func (s *AssessmentService) SaveStep(claims *util.Claims, id string, req *SaveStepRequest) (*SaveStepResult, error) {
	if req.StepNumber < 1 || req.StepNumber > len(StepSections) {
		return nil, util.ErrInvalidStepNumber
	}

	assessment, err := s.store.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !s.canWrite(claims, assessment) {
		return nil, util.ErrAssessmentNotFound
	}
	if assessment.Status != model.StatusDraft && assessment.Status != model.StatusInProgress {
		return nil, util.ErrAlreadySubmitted
	}

	payload, err := json.Marshal(map[string]interface{}{
		"section":      req.Section,
		"answers":      req.Answers,
		"competencies": req.Competencies,
	})
	if err != nil {
		return nil, err
	}

	draft, err := s.store.SaveDraftStep(id, req.StepNumber, payload, time.Now())
	if err != nil {
		return nil, err
	}

	kind := "save"
	if req.IsAutoSave {
		kind = "auto_save"
	}

	if req.IsAutoSave {
		monitoring.WizardSaves.WithLabelValues(kind, "ok").Inc()
		return &SaveStepResult{Draft: draft, Committed: false}, nil
	}

	if fieldErrs := ValidateStep(req.StepNumber, req.Section, req.Answers, req.Competencies); len(fieldErrs) > 0 {
		monitoring.WizardSaves.WithLabelValues(kind, "invalid").Inc()
		return &SaveStepResult{Draft: draft, Errors: fieldErrs, Committed: false}, nil
	}

	answers, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, err
	}
	record := &model.StepRecord{
		AssessmentID: id,
		StepNumber:   req.StepNumber,
		Section:      req.Section,
		Answers:      answers,
	}

	updated, err := s.store.CommitStep(record, s.progressFor(req.StepNumber))
	if err != nil {
		monitoring.WizardSaves.WithLabelValues(kind, "error").Inc()
		return nil, err
	}

	if req.StepNumber == 3 {
		if err := s.store.ReplaceCompetencies(id, toCompetencies(id, req.Competencies)); err != nil {
			logger.Log.Error("Failed to persist competencies",
				zap.String("assessment_id", id), zap.Error(err))
		}
	}

	s.invalidateProgress(id)
	monitoring.WizardSaves.WithLabelValues(kind, "ok").Inc()
	s.recordAudit(claims.UserID, "assessment.save_step", id, map[string]interface{}{
		"step":    req.StepNumber,
		"section": req.Section,
	})

	return &SaveStepResult{Assessment: updated, Draft: draft, Committed: true}, nil
}

// Progress reads through a short-lived Redis cache; the wizard polls this
// while the beneficiary works.
func (s *AssessmentService) Progress(ctx context.Context, claims *util.Claims, id string) (*ProgressInfo, error) {
	assessment, err := s.store.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !s.canRead(claims, assessment) {
		return nil, util.ErrAssessmentNotFound
	}

	cacheKey := progressCacheKey(id)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var info ProgressInfo
			if json.Unmarshal(cached, &info) == nil {
				// The interval is live config, not cached state.
				info.AutoSaveSeconds = int(s.autoSaveSecs.Load())
				return &info, nil
			}
		}
	}

	records, err := s.store.ListStepRecords(id)
	if err != nil {
		return nil, err
	}

	info := &ProgressInfo{
		AssessmentID:    assessment.ID,
		CurrentStep:     assessment.CurrentStep,
		ProgressPct:     assessment.ProgressPct,
		Status:          assessment.Status,
		CompletedSteps:  stepNumbers(records),
		AutoSaveSeconds: int(s.autoSaveSecs.Load()),
	}
	if draft, err := s.store.GetDraft(id); err == nil {
		info.LastSavedAt = draft.LastSavedAt
	}

	if s.rdb != nil {
		if blob, err := json.Marshal(info); err == nil {
			s.rdb.Set(ctx, cacheKey, blob, s.cacheTTL)
		}
	}
	return info, nil
}

// Submit moves the assessment to SUBMITTED once every step has committed
// answers. On an incomplete assessment the missing section labels come back
// alongside ErrAssessmentIncomplete.
func (s *AssessmentService) Submit(claims *util.Claims, id string) (*model.Assessment, []string, error) {
	assessment, err := s.store.FindByID(id)
	if err != nil {
		return nil, nil, err
	}
	if !s.canWrite(claims, assessment) {
		return nil, nil, util.ErrAssessmentNotFound
	}
	if assessment.Status != model.StatusDraft && assessment.Status != model.StatusInProgress {
		return nil, nil, util.ErrAlreadySubmitted
	}

	records, err := s.store.ListStepRecords(id)
	if err != nil {
		return nil, nil, err
	}
	committed := make(map[int]bool, len(records))
	for _, rec := range records {
		committed[rec.StepNumber] = true
	}

	var missing []string
	for step := 1; step <= int(s.totalSteps.Load()); step++ {
		if !committed[step] {
			missing = append(missing, StepSections[step])
		}
	}
	if len(missing) > 0 {
		return nil, missing, util.ErrAssessmentIncomplete
	}

	submitted, err := s.store.Submit(id, time.Now())
	if err != nil {
		return nil, nil, err
	}

	s.invalidateProgress(id)
	s.recordAudit(claims.UserID, "assessment.submit", id, nil)
	return submitted, nil, nil
}

func (s *AssessmentService) Competencies(claims *util.Claims, id string) ([]model.Competency, error) {
	assessment, err := s.store.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !s.canRead(claims, assessment) {
		return nil, util.ErrAssessmentNotFound
	}
	return s.store.ListCompetencies(id)
}

func (s *AssessmentService) canRead(claims *util.Claims, a *model.Assessment) bool {
	return canReadAssessment(claims, a)
}

func (s *AssessmentService) canWrite(claims *util.Claims, a *model.Assessment) bool {
	return claims.Role == model.Admin || a.BeneficiaryID == claims.UserID
}

func (s *AssessmentService) progressFor(stepNumber int) int {
	return int(math.Round(float64(stepNumber) / float64(s.totalSteps.Load()) * 100))
}

func (s *AssessmentService) invalidateProgress(id string) {
	if s.rdb == nil {
		return
	}
	s.rdb.Del(context.Background(), progressCacheKey(id))
}

func (s *AssessmentService) recordAudit(actorID uint, action, entityID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := &model.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: "assessment",
		EntityID:   entityID,
	}
	if details != nil {
		if blob, err := json.Marshal(details); err == nil {
			entry.Details = blob
		}
	}
	if err := s.audit.Record(entry); err != nil {
		logger.Log.Warn("Failed to record audit entry",
			zap.String("action", action), zap.Error(err))
	}
}

func progressCacheKey(id string) string {
	return fmt.Sprintf("assessment:progress:%s", id)
}

func stepNumbers(records []model.StepRecord) []int {
	steps := make([]int, 0, len(records))
	for _, rec := range records {
		steps = append(steps, rec.StepNumber)
	}
	return steps
}

func toCompetencies(assessmentID string, inputs []CompetencyInput) []model.Competency {
	out := make([]model.Competency, 0, len(inputs))
	for _, in := range inputs {
		category := in.Category
		if category == "" {
			category = "general"
		}
		out = append(out, model.Competency{
			AssessmentID:   assessmentID,
			SkillName:      in.SkillName,
			SelfAssessment: in.SelfAssessmentLevel,
			SelfInterest:   in.SelfInterestLevel,
			Category:       category,
			Context:        in.Context,
		})
	}
	return out
}
