package service

import (
	"fmt"
)

// FieldError is a single field-level validation failure. Validation failures
// are returned as data, never as Go errors.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CompetencyInput is one skill entry submitted with the skills step.
type CompetencyInput struct {
	SkillName           string `json:"skillName"`
	SelfAssessmentLevel int    `json:"selfAssessmentLevel"`
	SelfInterestLevel   int    `json:"selfInterestLevel"`
	Category            string `json:"category"`
	Context             string `json:"context"`
}

// StepSections maps each wizard step to its canonical section label.
var StepSections = map[int]string{
	1: "work_history",
	2: "education",
	3: "skills",
	4: "motivations",
	5: "constraints",
}

const (
	minCompetencies       = 5
	minAssessmentLevel    = 1
	maxAssessmentLevel    = 4
	minInterestLevel      = 1
	maxInterestLevel      = 10
	minRecentJobChars     = 10
	minMotivationDescLen  = 20
)

// ValidateStep checks one step's answer payload against that step's schema.
// It is pure: wrong types and missing fields come back as field errors, and
// nothing is ever thrown.
func ValidateStep(stepNumber int, section string, answers map[string]interface{}, competencies []CompetencyInput) []FieldError {
	var errs []FieldError

	expected, ok := StepSections[stepNumber]
	if !ok {
		return []FieldError{{Field: "step_number", Message: "step number must be between 1 and 5"}}
	}
	if section != expected {
		errs = append(errs, FieldError{
			Field:   "section",
			Message: fmt.Sprintf("section for step %d must be %q", stepNumber, expected),
		})
	}

	switch stepNumber {
	case 1:
		errs = append(errs, validateWorkHistory(answers)...)
	case 2:
		errs = append(errs, validateEducation(answers)...)
	case 3:
		errs = append(errs, validateSkills(answers, competencies)...)
	case 4:
		errs = append(errs, validateMotivations(answers)...)
	case 5:
		errs = append(errs, validateConstraints(answers)...)
	}

	return errs
}

func validateWorkHistory(answers map[string]interface{}) []FieldError {
	var errs []FieldError

	recentJob, ok := stringField(answers, "recentJob")
	if !ok || len(recentJob) < minRecentJobChars {
		errs = append(errs, FieldError{
			Field:   "recentJob",
			Message: fmt.Sprintf("recent job description must be at least %d characters", minRecentJobChars),
		})
	}

	// Optional, but when present it has the same minimum.
	if raw, present := answers["previousPositions"]; present {
		prev, ok := raw.(string)
		if !ok || (prev != "" && len(prev) < minRecentJobChars) {
			errs = append(errs, FieldError{
				Field:   "previousPositions",
				Message: fmt.Sprintf("previous positions must be at least %d characters", minRecentJobChars),
			})
		}
	}

	return errs
}

func validateEducation(answers map[string]interface{}) []FieldError {
	highest, ok := stringField(answers, "highestLevel")
	if !ok || highest == "" {
		return []FieldError{{Field: "highestLevel", Message: "highest education level is required"}}
	}
	return nil
}

func validateSkills(answers map[string]interface{}, competencies []CompetencyInput) []FieldError {
	var errs []FieldError

	if len(competencies) < minCompetencies {
		errs = append(errs, FieldError{
			Field:   "competencies",
			Message: fmt.Sprintf("at least %d skills must be selected (got %d)", minCompetencies, len(competencies)),
		})
	}

	for i, comp := range competencies {
		if comp.SkillName == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("competencies[%d].skillName", i),
				Message: "skill name is required",
			})
		}
		if comp.SelfAssessmentLevel < minAssessmentLevel || comp.SelfAssessmentLevel > maxAssessmentLevel {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("competencies[%d].selfAssessmentLevel", i),
				Message: fmt.Sprintf("assessment level must be between %d and %d", minAssessmentLevel, maxAssessmentLevel),
			})
		}
		if comp.SelfInterestLevel < minInterestLevel || comp.SelfInterestLevel > maxInterestLevel {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("competencies[%d].selfInterestLevel", i),
				Message: fmt.Sprintf("interest level must be between %d and %d", minInterestLevel, maxInterestLevel),
			})
		}
	}

	return errs
}

func validateMotivations(answers map[string]interface{}) []FieldError {
	var errs []FieldError

	if len(stringSlice(answers, "topValues")) == 0 {
		errs = append(errs, FieldError{Field: "topValues", Message: "at least one value must be selected"})
	}
	if len(stringSlice(answers, "careerGoals")) == 0 {
		errs = append(errs, FieldError{Field: "careerGoals", Message: "at least one career goal must be selected"})
	}
	desc, ok := stringField(answers, "motivationDescription")
	if !ok || len(desc) < minMotivationDescLen {
		errs = append(errs, FieldError{
			Field:   "motivationDescription",
			Message: fmt.Sprintf("motivation description must be at least %d characters", minMotivationDescLen),
		})
	}

	return errs
}

func validateConstraints(answers map[string]interface{}) []FieldError {
	geo := stringSlice(answers, "geographicPreferences")
	contracts := stringSlice(answers, "contractTypes")
	if len(geo) == 0 && len(contracts) == 0 {
		return []FieldError{{
			Field:   "constraints",
			Message: "at least one geographic preference or contract type is required",
		}}
	}
	return nil
}

func stringField(answers map[string]interface{}, key string) (string, bool) {
	raw, present := answers[key]
	if !present {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// stringSlice tolerates both []string and the []interface{} that
// encoding/json produces for untyped payloads.
func stringSlice(answers map[string]interface{}, key string) []string {
	raw, present := answers[key]
	if !present {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
