// Package postgres archives finished results in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/store"
)

const selectColumns = `result_id, exam_id, session_id, answers, correct_count,
	question_count, score::float8, time_spent_seconds, submitted_at`

// ResultStore implements store.ResultStore on the exam_results table.
type ResultStore struct {
	pool *pgxpool.Pool
}

// NewResultStore creates a new ResultStore.
func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Save upserts a result by its ID.
func (s *ResultStore) Save(ctx context.Context, r *model.ExamResult) error {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO exam_results (result_id, exam_id, session_id, answers, correct_count,
		                           question_count, score, time_spent_seconds, submitted_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9)
		 ON CONFLICT (result_id) DO UPDATE
		 SET answers = EXCLUDED.answers,
		     correct_count = EXCLUDED.correct_count,
		     question_count = EXCLUDED.question_count,
		     score = EXCLUDED.score,
		     time_spent_seconds = EXCLUDED.time_spent_seconds,
		     submitted_at = EXCLUDED.submitted_at,
		     archived_at = NOW()`,
		r.ResultID, r.ExamID, r.SessionID, string(answers), r.CorrectCount,
		r.QuestionCount, r.Score, r.TimeSpentSeconds, r.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

// SaveBatch upserts many results in one statement using UNNEST.
func (s *ResultStore) SaveBatch(ctx context.Context, batch []*model.ExamResult) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	resultIDs := make([]string, 0, n)
	examIDs := make([]string, 0, n)
	sessionIDs := make([]string, 0, n)
	answers := make([]string, 0, n)
	correct := make([]int32, 0, n)
	questions := make([]int32, 0, n)
	scores := make([]float64, 0, n)
	spent := make([]int32, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, r := range batch {
		raw, err := json.Marshal(r.Answers)
		if err != nil {
			return fmt.Errorf("marshal answers: %w", err)
		}
		resultIDs = append(resultIDs, r.ResultID)
		examIDs = append(examIDs, r.ExamID)
		sessionIDs = append(sessionIDs, r.SessionID)
		answers = append(answers, string(raw))
		correct = append(correct, int32(r.CorrectCount))
		questions = append(questions, int32(r.QuestionCount))
		scores = append(scores, r.Score)
		spent = append(spent, int32(r.TimeSpentSeconds))
		submittedAts = append(submittedAts, r.SubmittedAt)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO exam_results (result_id, exam_id, session_id, answers, correct_count,
		                          question_count, score, time_spent_seconds, submitted_at)
		SELECT u.result_id, u.exam_id, u.session_id, u.answers::jsonb, u.correct_count,
		       u.question_count, u.score, u.time_spent_seconds, u.submitted_at
		FROM UNNEST(
			$1::text[],
			$2::text[],
			$3::text[],
			$4::text[],
			$5::int[],
			$6::int[],
			$7::float8[],
			$8::int[],
			$9::timestamptz[]
		) AS u (result_id, exam_id, session_id, answers, correct_count,
		        question_count, score, time_spent_seconds, submitted_at)
		ON CONFLICT (result_id) DO UPDATE
		SET answers = EXCLUDED.answers,
		    correct_count = EXCLUDED.correct_count,
		    question_count = EXCLUDED.question_count,
		    score = EXCLUDED.score,
		    time_spent_seconds = EXCLUDED.time_spent_seconds,
		    submitted_at = EXCLUDED.submitted_at,
		    archived_at = NOW()`,
		resultIDs, examIDs, sessionIDs, answers, correct, questions, scores, spent, submittedAts,
	)
	if err != nil {
		return fmt.Errorf("bulk upsert results: %w", err)
	}
	return nil
}

// Get retrieves a result by ID.
func (s *ResultStore) Get(ctx context.Context, resultID string) (*model.ExamResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM exam_results WHERE result_id = $1`, resultID)
	return scanResult(row)
}

// LatestForExam retrieves the newest result for an exam.
func (s *ResultStore) LatestForExam(ctx context.Context, examID string) (*model.ExamResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM exam_results
		 WHERE exam_id = $1
		 ORDER BY submitted_at DESC
		 LIMIT 1`, examID)
	return scanResult(row)
}

func scanResult(row pgx.Row) (*model.ExamResult, error) {
	var (
		r       model.ExamResult
		answers []byte
	)
	err := row.Scan(&r.ResultID, &r.ExamID, &r.SessionID, &answers, &r.CorrectCount,
		&r.QuestionCount, &r.Score, &r.TimeSpentSeconds, &r.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}
	if err := json.Unmarshal(answers, &r.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return &r, nil
}
