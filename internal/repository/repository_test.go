package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.BaseTest{},
		&models.Metric{},
		&models.Test{},
		&models.Section{},
		&models.Question{},
		&models.SubQuestion{},
		&models.TestAttempt{},
		&models.Answer{},
	))
	return db
}

func seedFamily(t *testing.T, db *gorm.DB) models.BaseTest {
	t.Helper()

	family := models.BaseTest{Code: "BIG5", Type: "PERSONALITY"}
	require.NoError(t, db.Create(&family).Error)
	return family
}

func TestPublishIsCompareAndSet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewTestRepository(db)
	family := seedFamily(t, db)

	test := models.Test{BaseTestID: family.ID, Title: "Profile", Status: models.TestStatusDraft}
	require.NoError(t, repo.Create(ctx, &test))

	won, err := repo.Publish(ctx, test.ID)
	require.NoError(t, err)
	require.True(t, won)

	// A second publisher loses the race.
	won, err = repo.Publish(ctx, test.ID)
	require.NoError(t, err)
	require.False(t, won)

	stored, err := repo.GetByID(ctx, test.ID)
	require.NoError(t, err)
	require.Equal(t, models.TestStatusPublished, stored.Status)
}

func TestSetActiveDeactivatesSiblings(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewTestRepository(db)
	family := seedFamily(t, db)

	first := models.Test{BaseTestID: family.ID, Title: "Profile v1", Status: models.TestStatusPublished, Active: true}
	second := models.Test{BaseTestID: family.ID, Title: "Profile v2", Status: models.TestStatusPublished}
	require.NoError(t, repo.Create(ctx, &first))
	require.NoError(t, repo.Create(ctx, &second))

	require.NoError(t, repo.SetActive(ctx, second.ID, family.ID, true))

	active, err := repo.ListPublishedActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, second.ID, active[0].ID)
}

func TestFinalizeIsCompareAndSet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAttemptRepository(db)
	family := seedFamily(t, db)

	student := models.Student{Name: "Ava", Email: "ava@example.com", Gender: models.GenderFemale}
	require.NoError(t, db.Create(&student).Error)
	test := models.Test{BaseTestID: family.ID, Title: "Profile", Status: models.TestStatusPublished, Active: true}
	require.NoError(t, db.Create(&test).Error)

	attempt := models.TestAttempt{StudentID: student.ID, TestID: test.ID}
	require.NoError(t, repo.Create(ctx, &attempt))

	result := models.EvaluationResult{MetricScores: map[string]int{"O": 6}, PersonalityCode: "O"}
	ok, err := repo.Finalize(ctx, attempt.ID, result)
	require.NoError(t, err)
	require.True(t, ok)

	// The losing finalization must not overwrite the stored result.
	ok, err = repo.Finalize(ctx, attempt.ID, models.EvaluationResult{PersonalityCode: "X"})
	require.NoError(t, err)
	require.False(t, ok)

	stored, err := repo.GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	require.True(t, stored.Finalized)
	require.Equal(t, "O", stored.PersonalityCode)
	require.Equal(t, map[string]int{"O": 6}, stored.MetricScores.Data())
	require.NotNil(t, stored.FinalizedAt)
	require.Equal(t, "Ava", stored.Student.Name)
}

func TestAnswerKeyLookupIsNullAware(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAnswerRepository(db)
	family := seedFamily(t, db)

	student := models.Student{Name: "Ava", Email: "ava@example.com", Gender: models.GenderFemale}
	require.NoError(t, db.Create(&student).Error)
	test := models.Test{BaseTestID: family.ID, Title: "Profile", Status: models.TestStatusPublished, Active: true}
	require.NoError(t, db.Create(&test).Error)
	attempt := models.TestAttempt{StudentID: student.ID, TestID: test.ID}
	require.NoError(t, db.Create(&attempt).Error)

	subQuestionID := uint(7)
	value := 4
	scoped := models.Answer{
		AttemptID:     attempt.ID,
		QuestionID:    11,
		SubQuestionID: &subQuestionID,
		AnswerType:    models.AnswerTypeScale,
		ScaleValue:    &value,
	}
	require.NoError(t, repo.Create(ctx, &scoped))

	open := models.Answer{
		AttemptID:  attempt.ID,
		QuestionID: 11,
		AnswerType: models.AnswerTypeOpen,
		OpenValues: []string{"free text"},
	}
	require.NoError(t, repo.Create(ctx, &open))

	found, err := repo.GetByKey(ctx, attempt.ID, 11, &subQuestionID)
	require.NoError(t, err)
	require.Equal(t, scoped.ID, found.ID)

	found, err = repo.GetByKey(ctx, attempt.ID, 11, nil)
	require.NoError(t, err)
	require.Equal(t, open.ID, found.ID)

	missing := uint(99)
	_, err = repo.GetByKey(ctx, attempt.ID, 11, &missing)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	count, err := repo.CountForQuestions(ctx, []uint{11})
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}
