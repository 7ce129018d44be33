package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCompetencies(n int) []CompetencyInput {
	out := make([]CompetencyInput, 0, n)
	names := []string{"Go", "SQL", "Communication", "Gestion de projet", "Anglais", "Docker", "Kubernetes"}
	for i := 0; i < n; i++ {
		out = append(out, CompetencyInput{
			SkillName:           names[i%len(names)],
			SelfAssessmentLevel: 3,
			SelfInterestLevel:   7,
		})
	}
	return out
}

func TestValidateStepSectionMismatch(t *testing.T) {
	errs := ValidateStep(1, "education", map[string]interface{}{
		"recentJob": "Senior backend developer at Acme",
	}, nil)

	require.Len(t, errs, 1)
	assert.Equal(t, "section", errs[0].Field)
}

func TestValidateStepOutOfRange(t *testing.T) {
	for _, step := range []int{0, 6, -1} {
		errs := ValidateStep(step, "work_history", nil, nil)
		require.Len(t, errs, 1)
		assert.Equal(t, "step_number", errs[0].Field)
	}
}

func TestValidateWorkHistory(t *testing.T) {
	tests := []struct {
		name    string
		answers map[string]interface{}
		fields  []string
	}{
		{
			name:    "valid with only recent job",
			answers: map[string]interface{}{"recentJob": "Senior Developer Position"},
		},
		{
			name:    "recent job too short",
			answers: map[string]interface{}{"recentJob": "Dev"},
			fields:  []string{"recentJob"},
		},
		{
			name:    "recent job missing",
			answers: map[string]interface{}{},
			fields:  []string{"recentJob"},
		},
		{
			name:    "recent job wrong type",
			answers: map[string]interface{}{"recentJob": 42},
			fields:  []string{"recentJob"},
		},
		{
			name: "previous positions too short when present",
			answers: map[string]interface{}{
				"recentJob":         "Senior Developer Position",
				"previousPositions": "short",
			},
			fields: []string{"previousPositions"},
		},
		{
			name: "previous positions empty string is fine",
			answers: map[string]interface{}{
				"recentJob":         "Senior Developer Position",
				"previousPositions": "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateStep(1, "work_history", tt.answers, nil)
			assert.Equal(t, tt.fields, errorFields(errs))
		})
	}
}

func TestValidateEducation(t *testing.T) {
	errs := ValidateStep(2, "education", map[string]interface{}{"highestLevel": "bac+5"}, nil)
	assert.Empty(t, errs)

	errs = ValidateStep(2, "education", map[string]interface{}{}, nil)
	assert.Equal(t, []string{"highestLevel"}, errorFields(errs))

	errs = ValidateStep(2, "education", map[string]interface{}{"highestLevel": ""}, nil)
	assert.Equal(t, []string{"highestLevel"}, errorFields(errs))
}

func TestValidateSkills(t *testing.T) {
	answers := map[string]interface{}{}

	errs := ValidateStep(3, "skills", answers, validCompetencies(5))
	assert.Empty(t, errs)

	errs = ValidateStep(3, "skills", answers, validCompetencies(3))
	assert.Equal(t, []string{"competencies"}, errorFields(errs))

	bad := validCompetencies(5)
	bad[1].SkillName = ""
	bad[2].SelfAssessmentLevel = 5
	bad[4].SelfInterestLevel = 0
	errs = ValidateStep(3, "skills", answers, bad)
	fields := errorFields(errs)
	assert.Contains(t, fields, "competencies[1].skillName")
	assert.Contains(t, fields, "competencies[2].selfAssessmentLevel")
	assert.Contains(t, fields, "competencies[4].selfInterestLevel")
	assert.Len(t, fields, 3)
}

func TestValidateMotivations(t *testing.T) {
	valid := map[string]interface{}{
		"topValues":             []interface{}{"autonomie"},
		"careerGoals":           []interface{}{"reconversion"},
		"motivationDescription": strings.Repeat("motivation ", 3),
	}
	assert.Empty(t, ValidateStep(4, "motivations", valid, nil))

	errs := ValidateStep(4, "motivations", map[string]interface{}{
		"motivationDescription": "too short",
	}, nil)
	assert.ElementsMatch(t,
		[]string{"topValues", "careerGoals", "motivationDescription"},
		errorFields(errs))
}

func TestValidateConstraints(t *testing.T) {
	errs := ValidateStep(5, "constraints", map[string]interface{}{
		"geographicPreferences": []interface{}{"Lyon"},
	}, nil)
	assert.Empty(t, errs)

	errs = ValidateStep(5, "constraints", map[string]interface{}{
		"contractTypes": []string{"CDI"},
	}, nil)
	assert.Empty(t, errs)

	errs = ValidateStep(5, "constraints", map[string]interface{}{}, nil)
	assert.Equal(t, []string{"constraints"}, errorFields(errs))
}

func errorFields(errs []FieldError) []string {
	if len(errs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	return fields
}
