package repository

import (
	"bilan_backend/internal/model"
	"bilan_backend/internal/util"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssessmentFilter narrows List. Zero fields mean no constraint.
type AssessmentFilter struct {
	BeneficiaryID *uint
	ConsultantID  *uint
	Status        model.AssessmentStatus
}

type AssessmentRepository struct {
	db *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Create inserts the assessment together with its empty draft row so the
// wizard always has a draft to merge into.
func (r *AssessmentRepository) Create(assessment *model.Assessment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(assessment).Error; err != nil {
			return err
		}
		draft := &model.AssessmentDraft{
			AssessmentID: assessment.ID,
			DraftData:    json.RawMessage("{}"),
		}
		return tx.Create(draft).Error
	})
}

func (r *AssessmentRepository) FindByID(id string) (*model.Assessment, error) {
	var assessment model.Assessment
	err := r.db.Preload("Beneficiary").Where("id = ?", id).First(&assessment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *AssessmentRepository) List(filter AssessmentFilter) ([]model.Assessment, error) {
	query := r.db.Model(&model.Assessment{})
	if filter.BeneficiaryID != nil {
		query = query.Where("beneficiary_id = ?", *filter.BeneficiaryID)
	}
	if filter.ConsultantID != nil {
		query = query.Where("consultant_id = ?", *filter.ConsultantID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var assessments []model.Assessment
	err := query.Order("updated_at DESC").Find(&assessments).Error
	return assessments, err
}

func (r *AssessmentRepository) Update(assessment *model.Assessment) error {
	return r.db.Save(assessment).Error
}

func (r *AssessmentRepository) GetDraft(assessmentID string) (*model.AssessmentDraft, error) {
	var draft model.AssessmentDraft
	err := r.db.Where("assessment_id = ?", assessmentID).First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// SaveDraftStep merges one step's raw answers into the draft blob under the
// "stepN" key. Last writer wins at the step level; other steps are untouched.
func (r *AssessmentRepository) SaveDraftStep(assessmentID string, stepNumber int, payload json.RawMessage, savedAt time.Time) (*model.AssessmentDraft, error) {
	var draft model.AssessmentDraft

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("assessment_id = ?", assessmentID).First(&draft).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			draft = model.AssessmentDraft{
				AssessmentID: assessmentID,
				DraftData:    json.RawMessage("{}"),
			}
			if err := tx.Create(&draft).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
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
			return err
		}

		draft.DraftData = merged
		draft.LastSavedAt = &savedAt
		return tx.Model(&model.AssessmentDraft{}).
			Where("assessment_id = ?", assessmentID).
			Updates(map[string]interface{}{
				"draft_data":    merged,
				"last_saved_at": savedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// CommitStep upserts the validated step record and advances the assessment.
// current_step and progress_percentage use GREATEST so a stale save from an
// earlier step never moves them backwards.
func (r *AssessmentRepository) CommitStep(record *model.StepRecord, progressPct int) (*model.Assessment, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assessment_id"}, {Name: "step_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"section", "answers", "updated_at"}),
		}).Create(record).Error
		if err != nil {
			return err
		}

		return tx.Model(&model.Assessment{}).
			Where("id = ?", record.AssessmentID).
			Updates(map[string]interface{}{
				"current_step":        gorm.Expr("GREATEST(current_step, ?)", record.StepNumber),
				"progress_percentage": gorm.Expr("GREATEST(progress_percentage, ?)", progressPct),
				"status":              gorm.Expr("CASE WHEN status = 'DRAFT' THEN 'IN_PROGRESS' ELSE status END"),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(record.AssessmentID)
}

func (r *AssessmentRepository) ListStepRecords(assessmentID string) ([]model.StepRecord, error) {
	var records []model.StepRecord
	err := r.db.Where("assessment_id = ?", assessmentID).
		Order("step_number ASC").Find(&records).Error
	return records, err
}

// ReplaceCompetencies swaps the extracted skill rows for an assessment.
// Called whenever the skills step is committed again.
func (r *AssessmentRepository) ReplaceCompetencies(assessmentID string, competencies []model.Competency) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assessment_id = ?", assessmentID).
			Delete(&model.Competency{}).Error; err != nil {
			return err
		}
		if len(competencies) == 0 {
			return nil
		}
		return tx.Create(&competencies).Error
	})
}

func (r *AssessmentRepository) ListCompetencies(assessmentID string) ([]model.Competency, error) {
	var competencies []model.Competency
	err := r.db.Where("assessment_id = ?", assessmentID).
		Order("skill_name ASC").Find(&competencies).Error
	return competencies, err
}

// Submit flips the assessment to SUBMITTED. The guard on status makes the
// transition idempotent-safe under concurrent submits.
func (r *AssessmentRepository) Submit(assessmentID string, at time.Time) (*model.Assessment, error) {
	result := r.db.Model(&model.Assessment{}).
		Where("id = ? AND status IN ?", assessmentID,
			[]model.AssessmentStatus{model.StatusDraft, model.StatusInProgress}).
		Updates(map[string]interface{}{
			"status":              model.StatusSubmitted,
			"progress_percentage": 100,
			"submitted_at":        at,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, util.ErrAlreadySubmitted
	}
	return r.FindByID(assessmentID)
}
