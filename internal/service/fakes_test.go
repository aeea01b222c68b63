package service

import (
	"context"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/models"
)

// memoryStore backs the in-memory repository fakes used by the service
// tests. One store is shared by every fake so cross-repository reads
// (tree loads, metric resolution) stay consistent.
type memoryStore struct {
	lastID    uint
	baseTests map[uint]models.BaseTest
	metrics   map[uint]models.Metric
	tests     map[uint]models.Test
	students  map[uint]models.Student
	attempts  map[uint]models.TestAttempt
	answers   map[uint]models.Answer
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		baseTests: make(map[uint]models.BaseTest),
		metrics:   make(map[uint]models.Metric),
		tests:     make(map[uint]models.Test),
		students:  make(map[uint]models.Student),
		attempts:  make(map[uint]models.TestAttempt),
		answers:   make(map[uint]models.Answer),
	}
}

func (s *memoryStore) id() uint {
	s.lastID++
	return s.lastID
}

func cloneTest(test models.Test) models.Test {
	clone := test
	clone.Sections = make([]models.Section, len(test.Sections))
	for i, section := range test.Sections {
		sectionClone := section
		sectionClone.Questions = make([]models.Question, len(section.Questions))
		for j, question := range section.Questions {
			questionClone := question
			questionClone.SubQuestions = append([]models.SubQuestion(nil), question.SubQuestions...)
			sectionClone.Questions[j] = questionClone
		}
		clone.Sections[i] = sectionClone
	}
	return clone
}

func (s *memoryStore) testWithMetrics(test models.Test) models.Test {
	clone := cloneTest(test)
	for i := range clone.Sections {
		for j := range clone.Sections[i].Questions {
			for k := range clone.Sections[i].Questions[j].SubQuestions {
				sub := &clone.Sections[i].Questions[j].SubQuestions[k]
				sub.Metric = s.metrics[sub.MetricID]
			}
		}
	}
	return clone
}

type memoryBaseTestRepo struct{ store *memoryStore }

func (m *memoryBaseTestRepo) List(ctx context.Context) ([]models.BaseTest, error) {
	families := make([]models.BaseTest, 0, len(m.store.baseTests))
	for _, family := range m.store.baseTests {
		families = append(families, family)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].ID < families[j].ID })
	return families, nil
}

func (m *memoryBaseTestRepo) GetByID(ctx context.Context, id uint) (models.BaseTest, error) {
	family, ok := m.store.baseTests[id]
	if !ok {
		return models.BaseTest{}, gorm.ErrRecordNotFound
	}
	return family, nil
}

func (m *memoryBaseTestRepo) Create(ctx context.Context, baseTest *models.BaseTest) error {
	baseTest.ID = m.store.id()
	m.store.baseTests[baseTest.ID] = *baseTest
	return nil
}

type memoryMetricRepo struct{ store *memoryStore }

func (m *memoryMetricRepo) List(ctx context.Context) ([]models.Metric, error) {
	metrics := make([]models.Metric, 0, len(m.store.metrics))
	for _, metric := range m.store.metrics {
		metrics = append(metrics, metric)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].ID < metrics[j].ID })
	return metrics, nil
}

func (m *memoryMetricRepo) ListByBaseTest(ctx context.Context, baseTestID uint) ([]models.Metric, error) {
	all, _ := m.List(ctx)
	metrics := make([]models.Metric, 0, len(all))
	for _, metric := range all {
		if metric.BaseTestID == baseTestID {
			metrics = append(metrics, metric)
		}
	}
	return metrics, nil
}

func (m *memoryMetricRepo) GetByID(ctx context.Context, id uint) (models.Metric, error) {
	metric, ok := m.store.metrics[id]
	if !ok {
		return models.Metric{}, gorm.ErrRecordNotFound
	}
	return metric, nil
}

func (m *memoryMetricRepo) CodeExists(ctx context.Context, baseTestID uint, code string) (bool, error) {
	for _, metric := range m.store.metrics {
		if metric.BaseTestID == baseTestID && metric.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryMetricRepo) Create(ctx context.Context, metric *models.Metric) error {
	metric.ID = m.store.id()
	m.store.metrics[metric.ID] = *metric
	return nil
}

func (m *memoryMetricRepo) Update(ctx context.Context, metric *models.Metric) error {
	if _, ok := m.store.metrics[metric.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.store.metrics[metric.ID] = *metric
	return nil
}

func (m *memoryMetricRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.store.metrics[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.store.metrics, id)
	return nil
}

func (m *memoryMetricRepo) UsedInPublishedTest(ctx context.Context, metricID uint) (bool, error) {
	for _, test := range m.store.tests {
		if !test.IsPublished() {
			continue
		}
		for _, section := range test.Sections {
			for _, question := range section.Questions {
				for _, sub := range question.SubQuestions {
					if sub.MetricID == metricID {
						return true, nil
					}
				}
			}
		}
	}
	return false, nil
}

type memoryTestRepo struct{ store *memoryStore }

func (m *memoryTestRepo) List(ctx context.Context) ([]models.Test, error) {
	tests := make([]models.Test, 0, len(m.store.tests))
	for _, test := range m.store.tests {
		tests = append(tests, cloneTest(test))
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].ID < tests[j].ID })
	return tests, nil
}

func (m *memoryTestRepo) ListPublishedActive(ctx context.Context) ([]models.Test, error) {
	all, _ := m.List(ctx)
	tests := make([]models.Test, 0, len(all))
	for _, test := range all {
		if test.IsPublished() && test.Active {
			tests = append(tests, test)
		}
	}
	return tests, nil
}

func (m *memoryTestRepo) GetByID(ctx context.Context, id uint) (models.Test, error) {
	test, ok := m.store.tests[id]
	if !ok {
		return models.Test{}, gorm.ErrRecordNotFound
	}
	return cloneTest(test), nil
}

func (m *memoryTestRepo) GetWithTree(ctx context.Context, id uint) (models.Test, error) {
	test, ok := m.store.tests[id]
	if !ok {
		return models.Test{}, gorm.ErrRecordNotFound
	}
	return m.store.testWithMetrics(test), nil
}

func (m *memoryTestRepo) GetActiveByBaseTest(ctx context.Context, baseTestID uint) (models.Test, error) {
	for _, test := range m.store.tests {
		if test.BaseTestID == baseTestID && test.IsPublished() && test.Active {
			return m.store.testWithMetrics(test), nil
		}
	}
	return models.Test{}, gorm.ErrRecordNotFound
}

// Create assigns identities through the tree the way an insert with
// associations would.
func (m *memoryTestRepo) Create(ctx context.Context, test *models.Test) error {
	test.ID = m.store.id()
	for i := range test.Sections {
		section := &test.Sections[i]
		section.ID = m.store.id()
		section.TestID = test.ID
		for j := range section.Questions {
			question := &section.Questions[j]
			question.ID = m.store.id()
			question.SectionID = section.ID
			for k := range question.SubQuestions {
				sub := &question.SubQuestions[k]
				sub.ID = m.store.id()
				sub.QuestionID = question.ID
			}
		}
	}
	m.store.tests[test.ID] = cloneTest(*test)
	return nil
}

func (m *memoryTestRepo) Update(ctx context.Context, test *models.Test) error {
	stored, ok := m.store.tests[test.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	updated := cloneTest(*test)
	updated.Sections = stored.Sections
	m.store.tests[test.ID] = updated
	return nil
}

func (m *memoryTestRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.store.tests[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.store.tests, id)
	return nil
}

func (m *memoryTestRepo) Publish(ctx context.Context, id uint) (bool, error) {
	test, ok := m.store.tests[id]
	if !ok || !test.IsDraft() {
		return false, nil
	}
	test.Status = models.TestStatusPublished
	m.store.tests[id] = test
	return true, nil
}

func (m *memoryTestRepo) SetActive(ctx context.Context, id, baseTestID uint, active bool) error {
	if !active {
		test, ok := m.store.tests[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		test.Active = false
		m.store.tests[id] = test
		return nil
	}
	for otherID, other := range m.store.tests {
		if other.BaseTestID == baseTestID && otherID != id {
			other.Active = false
			m.store.tests[otherID] = other
		}
	}
	test, ok := m.store.tests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	test.Active = true
	m.store.tests[id] = test
	return nil
}

type memorySectionRepo struct{ store *memoryStore }

func (m *memorySectionRepo) find(id uint) (uint, int, bool) {
	for testID, test := range m.store.tests {
		for i, section := range test.Sections {
			if section.ID == id {
				return testID, i, true
			}
		}
	}
	return 0, 0, false
}

func (m *memorySectionRepo) GetByID(ctx context.Context, id uint) (models.Section, error) {
	testID, i, ok := m.find(id)
	if !ok {
		return models.Section{}, gorm.ErrRecordNotFound
	}
	return cloneTest(m.store.tests[testID]).Sections[i], nil
}

func (m *memorySectionRepo) Create(ctx context.Context, section *models.Section) error {
	test, ok := m.store.tests[section.TestID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	section.ID = m.store.id()
	test.Sections = append(test.Sections, *section)
	m.store.tests[test.ID] = test
	return nil
}

func (m *memorySectionRepo) Update(ctx context.Context, section *models.Section) error {
	testID, i, ok := m.find(section.ID)
	if !ok {
		return gorm.ErrRecordNotFound
	}
	test := m.store.tests[testID]
	test.Sections[i].Title = section.Title
	m.store.tests[testID] = test
	return nil
}

func (m *memorySectionRepo) Delete(ctx context.Context, id uint) error {
	testID, i, ok := m.find(id)
	if !ok {
		return gorm.ErrRecordNotFound
	}
	test := m.store.tests[testID]
	test.Sections = append(test.Sections[:i], test.Sections[i+1:]...)
	m.store.tests[testID] = test
	return nil
}

func (m *memorySectionRepo) QuestionIDs(ctx context.Context, sectionID uint) ([]uint, error) {
	testID, i, ok := m.find(sectionID)
	if !ok {
		return nil, nil
	}
	section := m.store.tests[testID].Sections[i]
	ids := make([]uint, 0, len(section.Questions))
	for _, question := range section.Questions {
		ids = append(ids, question.ID)
	}
	return ids, nil
}

type memoryQuestionRepo struct{ store *memoryStore }

func (m *memoryQuestionRepo) find(id uint) (uint, int, int, bool) {
	for testID, test := range m.store.tests {
		for i, section := range test.Sections {
			for j, question := range section.Questions {
				if question.ID == id {
					return testID, i, j, true
				}
			}
		}
	}
	return 0, 0, 0, false
}

func (m *memoryQuestionRepo) GetByID(ctx context.Context, id uint) (models.Question, error) {
	testID, i, j, ok := m.find(id)
	if !ok {
		return models.Question{}, gorm.ErrRecordNotFound
	}
	return m.store.testWithMetrics(m.store.tests[testID]).Sections[i].Questions[j], nil
}

func (m *memoryQuestionRepo) Create(ctx context.Context, question *models.Question) error {
	for testID, test := range m.store.tests {
		for i, section := range test.Sections {
			if section.ID == question.SectionID {
				question.ID = m.store.id()
				test.Sections[i].Questions = append(test.Sections[i].Questions, *question)
				m.store.tests[testID] = test
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryQuestionRepo) Update(ctx context.Context, question *models.Question) error {
	testID, i, j, ok := m.find(question.ID)
	if !ok {
		return gorm.ErrRecordNotFound
	}
	test := m.store.tests[testID]
	updated := *question
	updated.SubQuestions = test.Sections[i].Questions[j].SubQuestions
	test.Sections[i].Questions[j] = updated
	m.store.tests[testID] = test
	return nil
}

func (m *memoryQuestionRepo) Delete(ctx context.Context, id uint) error {
	testID, i, j, ok := m.find(id)
	if !ok {
		return gorm.ErrRecordNotFound
	}
	test := m.store.tests[testID]
	questions := test.Sections[i].Questions
	test.Sections[i].Questions = append(questions[:j], questions[j+1:]...)
	m.store.tests[testID] = test
	return nil
}

func (m *memoryQuestionRepo) findSub(id uint) (uint, int, int, int, bool) {
	for testID, test := range m.store.tests {
		for i, section := range test.Sections {
			for j, question := range section.Questions {
				for k, sub := range question.SubQuestions {
					if sub.ID == id {
						return testID, i, j, k, true
					}
				}
			}
		}
	}
	return 0, 0, 0, 0, false
}

func (m *memoryQuestionRepo) GetSubQuestion(ctx context.Context, id uint) (models.SubQuestion, error) {
	testID, i, j, k, ok := m.findSub(id)
	if !ok {
		return models.SubQuestion{}, gorm.ErrRecordNotFound
	}
	return m.store.testWithMetrics(m.store.tests[testID]).Sections[i].Questions[j].SubQuestions[k], nil
}

func (m *memoryQuestionRepo) CreateSubQuestion(ctx context.Context, sub *models.SubQuestion) error {
	testID, i, j, ok := m.find(sub.QuestionID)
	if !ok {
		return gorm.ErrRecordNotFound
	}
	test := m.store.tests[testID]
	sub.ID = m.store.id()
	stored := *sub
	stored.Metric = models.Metric{}
	test.Sections[i].Questions[j].SubQuestions = append(test.Sections[i].Questions[j].SubQuestions, stored)
	m.store.tests[testID] = test
	return nil
}

func (m *memoryQuestionRepo) UpdateSubQuestion(ctx context.Context, sub *models.SubQuestion) error {
	testID, i, j, k, ok := m.findSub(sub.ID)
	if !ok {
		return gorm.ErrRecordNotFound
	}
	test := m.store.tests[testID]
	stored := *sub
	stored.Metric = models.Metric{}
	test.Sections[i].Questions[j].SubQuestions[k] = stored
	m.store.tests[testID] = test
	return nil
}

func (m *memoryQuestionRepo) DeleteSubQuestion(ctx context.Context, id uint) error {
	testID, i, j, k, ok := m.findSub(id)
	if !ok {
		return gorm.ErrRecordNotFound
	}
	test := m.store.tests[testID]
	subs := test.Sections[i].Questions[j].SubQuestions
	test.Sections[i].Questions[j].SubQuestions = append(subs[:k], subs[k+1:]...)
	m.store.tests[testID] = test
	return nil
}

type memoryStudentRepo struct{ store *memoryStore }

func (m *memoryStudentRepo) GetByID(ctx context.Context, id uint) (models.Student, error) {
	student, ok := m.store.students[id]
	if !ok {
		return models.Student{}, gorm.ErrRecordNotFound
	}
	return student, nil
}

func (m *memoryStudentRepo) Create(ctx context.Context, student *models.Student) error {
	student.ID = m.store.id()
	m.store.students[student.ID] = *student
	return nil
}

type memoryAttemptRepo struct{ store *memoryStore }

func (m *memoryAttemptRepo) load(attempt models.TestAttempt) models.TestAttempt {
	attempt.Answers = nil
	ids := make([]uint, 0, len(m.store.answers))
	for id, answer := range m.store.answers {
		if answer.AttemptID == attempt.ID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		attempt.Answers = append(attempt.Answers, m.store.answers[id])
	}
	attempt.Student = m.store.students[attempt.StudentID]
	return attempt
}

func (m *memoryAttemptRepo) GetByID(ctx context.Context, id uint) (models.TestAttempt, error) {
	attempt, ok := m.store.attempts[id]
	if !ok {
		return models.TestAttempt{}, gorm.ErrRecordNotFound
	}
	return m.load(attempt), nil
}

func (m *memoryAttemptRepo) ListByStudent(ctx context.Context, studentID uint) ([]models.TestAttempt, error) {
	attempts := make([]models.TestAttempt, 0)
	for _, attempt := range m.store.attempts {
		if attempt.StudentID == studentID {
			attempts = append(attempts, m.load(attempt))
		}
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].ID > attempts[j].ID })
	return attempts, nil
}

func (m *memoryAttemptRepo) Create(ctx context.Context, attempt *models.TestAttempt) error {
	attempt.ID = m.store.id()
	m.store.attempts[attempt.ID] = *attempt
	return nil
}

func (m *memoryAttemptRepo) Finalize(ctx context.Context, id uint, result models.EvaluationResult) (bool, error) {
	attempt, ok := m.store.attempts[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if attempt.Finalized {
		return false, nil
	}
	now := time.Now().UTC()
	attempt.Finalized = true
	attempt.PersonalityCode = result.PersonalityCode
	attempt.MetricScores = datatypes.NewJSONType(result.MetricScores)
	attempt.FinalizedAt = &now
	m.store.attempts[id] = attempt
	return true, nil
}

type memoryAnswerRepo struct{ store *memoryStore }

func (m *memoryAnswerRepo) GetByKey(ctx context.Context, attemptID, questionID uint, subQuestionID *uint) (models.Answer, error) {
	for _, answer := range m.store.answers {
		if answer.AttemptID != attemptID || answer.QuestionID != questionID {
			continue
		}
		if subQuestionID == nil && answer.SubQuestionID == nil {
			return answer, nil
		}
		if subQuestionID != nil && answer.SubQuestionID != nil && *subQuestionID == *answer.SubQuestionID {
			return answer, nil
		}
	}
	return models.Answer{}, gorm.ErrRecordNotFound
}

func (m *memoryAnswerRepo) ListByAttempt(ctx context.Context, attemptID uint) ([]models.Answer, error) {
	answers := make([]models.Answer, 0)
	for _, answer := range m.store.answers {
		if answer.AttemptID == attemptID {
			answers = append(answers, answer)
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].ID < answers[j].ID })
	return answers, nil
}

func (m *memoryAnswerRepo) Create(ctx context.Context, answer *models.Answer) error {
	answer.ID = m.store.id()
	m.store.answers[answer.ID] = *answer
	return nil
}

func (m *memoryAnswerRepo) Update(ctx context.Context, answer *models.Answer) error {
	if _, ok := m.store.answers[answer.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.store.answers[answer.ID] = *answer
	return nil
}

func (m *memoryAnswerRepo) CountForQuestions(ctx context.Context, questionIDs []uint) (int64, error) {
	wanted := make(map[uint]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		wanted[id] = struct{}{}
	}
	var count int64
	for _, answer := range m.store.answers {
		if _, ok := wanted[answer.QuestionID]; ok {
			count++
		}
	}
	return count, nil
}
