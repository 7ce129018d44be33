package repository

import (
	"bilan_backend/internal/model"
	"bilan_backend/internal/util"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockRepo(t *testing.T) (*AssessmentRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewAssessmentRepository(db), mock
}

func TestFindByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM `assessments`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID("missing-id")
	assert.ErrorIs(t, err, util.ErrAssessmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDraftNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM `assessment_drafts`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetDraft("a-1")
	assert.ErrorIs(t, err, util.ErrDraftNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitGuardsAgainstDoubleSubmission(t *testing.T) {
	repo, mock := newMockRepo(t)

	// Status guard matched no rows: the assessment was already submitted.
	mock.ExpectExec("UPDATE `assessments` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Submit("a-1", time.Now())
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitStepUsesMonotonicUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `assessment_step_records`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `assessments` SET (.+)GREATEST\\(current_step, \\?\\)(.+)GREATEST\\(progress_percentage, \\?\\)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT (.+) FROM `assessments`").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "beneficiary_id", "current_step", "progress_percentage", "status"}).
			AddRow("a-1", 1, 2, 40, "IN_PROGRESS"))
	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Alice"))

	assessment, err := repo.CommitStep(&model.StepRecord{
		AssessmentID: "a-1",
		StepNumber:   2,
		Section:      "education",
		Answers:      []byte(`{"highestLevel":"bac+5"}`),
	}, 40)
	require.NoError(t, err)
	assert.Equal(t, 2, assessment.CurrentStep)
	assert.Equal(t, 40, assessment.ProgressPct)
	assert.NoError(t, mock.ExpectationsWereMet())
}
