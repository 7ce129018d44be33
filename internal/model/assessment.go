package model

import (
	"encoding/json"
	"time"
)

type AssessmentStatus string

const (
	StatusDraft       AssessmentStatus = "DRAFT"
	StatusInProgress  AssessmentStatus = "IN_PROGRESS"
	StatusSubmitted   AssessmentStatus = "SUBMITTED"
	StatusUnderReview AssessmentStatus = "UNDER_REVIEW"
	StatusCompleted   AssessmentStatus = "COMPLETED"
)

type AssessmentType string

const (
	TypeCareer        AssessmentType = "career"
	TypeSkills        AssessmentType = "skills"
	TypeComprehensive AssessmentType = "comprehensive"
)

// Assessment is one bilan de compétences a beneficiary completes across the
// 5-step wizard. current_step and progress_percentage only ever move forward
// while the wizard drives the record; consultant review takes over after
// SUBMITTED.
type Assessment struct {
	UUIDBase
	BeneficiaryID  uint             `gorm:"index;not null" json:"beneficiaryId"`
	Beneficiary    *User            `gorm:"foreignKey:BeneficiaryID" json:"beneficiary,omitempty"`
	ConsultantID   *uint            `gorm:"index" json:"consultantId,omitempty"`
	OrganizationID *uint            `gorm:"index" json:"organizationId,omitempty"`
	Title          string           `gorm:"size:255;not null" json:"title"`
	Description    string           `gorm:"type:text" json:"description"`
	AssessmentType AssessmentType   `gorm:"type:enum('career','skills','comprehensive');default:'career'" json:"assessmentType"`
	Status         AssessmentStatus `gorm:"size:20;default:'DRAFT'" json:"status"`
	CurrentStep    int              `gorm:"default:0" json:"currentStep"`
	ProgressPct    int              `gorm:"column:progress_percentage;default:0" json:"progressPercentage"`
	SubmittedAt    *time.Time       `json:"submittedAt,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// AssessmentDraft holds the unvalidated working copy of wizard answers, one
// row per assessment, keyed by step ("step1".."step5") inside DraftData.
type AssessmentDraft struct {
	UUIDBase
	AssessmentID string          `gorm:"uniqueIndex;type:varchar(36);not null" json:"assessmentId"`
	DraftData    json.RawMessage `gorm:"type:json" json:"draftData"`
	LastSavedAt  *time.Time      `json:"lastSavedAt"`
}

func (AssessmentDraft) TableName() string {
	return "assessment_drafts"
}

// StepRecord is the validated, committed answer set for one wizard step.
// At most one row per (assessment, step); saving again overwrites.
type StepRecord struct {
	UUIDBase
	AssessmentID string          `gorm:"index:idx_step_records_assessment_step,unique;type:varchar(36);not null" json:"assessmentId"`
	StepNumber   int             `gorm:"index:idx_step_records_assessment_step,unique;not null" json:"stepNumber"`
	Section      string          `gorm:"size:50;not null" json:"section"`
	Answers      json.RawMessage `gorm:"type:json" json:"answers"`
}

func (StepRecord) TableName() string {
	return "assessment_step_records"
}

// Competency is a structured skill entry extracted from the skills step.
type Competency struct {
	UUIDBase
	AssessmentID    string `gorm:"index:idx_competencies_assessment_skill,unique;type:varchar(36);not null" json:"assessmentId"`
	SkillName       string `gorm:"index:idx_competencies_assessment_skill,unique;size:255;not null" json:"skillName"`
	SelfAssessment  int    `gorm:"column:self_assessment_level" json:"selfAssessmentLevel"` // 1-4
	SelfInterest    int    `gorm:"column:self_interest_level" json:"selfInterestLevel"`     // 1-10
	Category        string `gorm:"size:100;default:'general'" json:"category"`
	Context         string `gorm:"type:text" json:"context,omitempty"`
}

func (Competency) TableName() string {
	return "assessment_competencies"
}
