package backend

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/scoring"
	"gopkg.in/yaml.v3"
)

// Fixture is an in-process backend serving exams from a YAML catalog. It
// issues sessions, grades submissions and rejects resubmission with a
// ConflictError the way the real backend does.
type Fixture struct {
	now func() time.Time

	mu        sync.Mutex
	exams     map[string]model.ExamDefinition
	sessions  map[string]string
	submitted map[string]string
	results   map[string]model.ExamResult
}

type fixtureFile struct {
	Exams []model.ExamDefinition `yaml:"exams"`
}

// LoadFixture reads a YAML catalog of the form:
//
//	exams:
//	  - id: mtk-01
//	    title: Matematika
//	    duration_minutes: 30
//	    questions:
//	      - id: q1
//	        text: "2 + 2 = ?"
//	        options: ["3", "4"]
//	        correct_option: 1
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return NewFixture(file.Exams), nil
}

// NewFixture creates a Fixture serving the given exams.
func NewFixture(exams []model.ExamDefinition) *Fixture {
	f := &Fixture{
		now:       time.Now,
		exams:     make(map[string]model.ExamDefinition, len(exams)),
		sessions:  make(map[string]string),
		submitted: make(map[string]string),
		results:   make(map[string]model.ExamResult),
	}
	for _, e := range exams {
		f.exams[e.ID] = e
	}
	return f
}

// ExamIDs lists the catalog.
func (f *Fixture) ExamIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.exams))
	for id := range f.exams {
		ids = append(ids, id)
	}
	return ids
}

func (f *Fixture) FetchExamByID(_ context.Context, examID string) (*model.ExamDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exam, ok := f.exams[examID]
	if !ok {
		return nil, &NotFoundError{Resource: "exam", ID: examID}
	}
	exam.Questions = append([]model.Question(nil), exam.Questions...)
	return &exam, nil
}

func (f *Fixture) OpenSession(_ context.Context, examID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.exams[examID]; !ok {
		return "", &NotFoundError{Resource: "exam", ID: examID}
	}
	sessionID := uuid.New().String()
	f.sessions[sessionID] = examID
	return sessionID, nil
}

func (f *Fixture) SubmitSession(_ context.Context, sessionID string, answers model.Answers, timeSpentSeconds int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	examID, ok := f.sessions[sessionID]
	if !ok {
		return "", &NotFoundError{Resource: "session", ID: sessionID}
	}
	if resultID, done := f.submitted[sessionID]; done {
		return "", &ConflictError{SessionID: sessionID, ResultID: resultID}
	}

	exam := f.exams[examID]
	outcome := scoring.Score(exam.Questions, answers)
	result := model.ExamResult{
		ResultID:         uuid.New().String(),
		ExamID:           examID,
		SessionID:        sessionID,
		Answers:          answers.Clone(),
		CorrectCount:     outcome.CorrectCount,
		QuestionCount:    outcome.Total,
		Score:            outcome.Score,
		TimeSpentSeconds: timeSpentSeconds,
		SubmittedAt:      f.now().UTC(),
	}
	f.results[result.ResultID] = result
	f.submitted[sessionID] = result.ResultID
	return result.ResultID, nil
}

func (f *Fixture) FetchResult(_ context.Context, resultID string) (*model.ExamResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result, ok := f.results[resultID]
	if !ok {
		return nil, &NotFoundError{Resource: "result", ID: resultID}
	}
	result.Answers = result.Answers.Clone()
	return &result, nil
}
