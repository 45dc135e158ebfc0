package pdfquiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Archive stores finished quiz attempts in sqlite
type Archive struct {
	db *sql.DB
}

// Attempt is one finished quiz as stored in the archive
type Attempt struct {
	ID           string    `json:"id"`
	DocumentName string    `json:"document_name"`
	Correct      int       `json:"correct"`
	Incorrect    int       `json:"incorrect"`
	Skipped      int       `json:"skipped"`
	Total        int       `json:"total"`
	Percentage   int       `json:"percentage"`
	Report       string    `json:"report"`
	CreatedAt    time.Time `json:"created_at"`
}

// AttemptQuestion is one question of an archived attempt with the user's choice
type AttemptQuestion struct {
	AttemptID      string `json:"attempt_id"`
	QuestionNum    int    `json:"question_num"`
	Text           string `json:"text"`
	Options        string `json:"options"` // JSON array of strings
	CorrectAnswer  int    `json:"correct_answer"`
	SelectedOption *int   `json:"selected_option"`
	Explanation    string `json:"explanation"`
}

// OpenArchive opens a new database connection
func OpenArchive(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	return a.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (a *Archive) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			document_name TEXT NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			total INTEGER NOT NULL,
			percentage INTEGER NOT NULL,
			report TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attempt_questions (
			attempt_id TEXT NOT NULL,
			question_num INTEGER NOT NULL,
			text TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_answer INTEGER NOT NULL,
			selected_option INTEGER,
			explanation TEXT,
			PRIMARY KEY (attempt_id, question_num),
			FOREIGN KEY (attempt_id) REFERENCES attempts(id)
		)`,
	}

	for _, query := range queries {
		if _, err := a.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// ArchiveSession stores the finished session as a new attempt and returns it
func (a *Archive) ArchiveSession(ctx context.Context, session *Session) (*Attempt, error) {
	if session.Phase() != PhaseResults {
		return nil, fmt.Errorf("%w: only finished quizzes can be archived", ErrInvalidTransition)
	}

	score := session.Score()
	attempt := &Attempt{
		ID:           uuid.NewString(),
		DocumentName: session.DocumentName(),
		Correct:      score.Correct,
		Incorrect:    score.Incorrect,
		Skipped:      score.Skipped,
		Total:        score.Total,
		Percentage:   score.Percentage,
		Report:       session.Report(),
		CreatedAt:    time.Now(),
	}

	questions := make([]AttemptQuestion, 0, len(session.Questions()))
	for i, q := range session.Questions() {
		optionsJSON, err := OptionsToJSON(q.Options)
		if err != nil {
			return nil, err
		}
		var selected *int
		if answer, ok := session.Answer(i); ok {
			selected = answer.SelectedOption
		}
		questions = append(questions, AttemptQuestion{
			AttemptID:      attempt.ID,
			QuestionNum:    i + 1,
			Text:           q.Question,
			Options:        optionsJSON,
			CorrectAnswer:  q.CorrectAnswer,
			SelectedOption: selected,
			Explanation:    q.Explanation,
		})
	}

	if err := a.SaveAttempt(ctx, attempt, questions); err != nil {
		return nil, err
	}
	return attempt, nil
}

// SaveAttempt stores an attempt and its questions in one transaction
func (a *Archive) SaveAttempt(ctx context.Context, attempt *Attempt, questions []AttemptQuestion) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO attempts (id, document_name, correct, incorrect, skipped, total, percentage, report, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		attempt.ID, attempt.DocumentName, attempt.Correct, attempt.Incorrect, attempt.Skipped, attempt.Total, attempt.Percentage, attempt.Report, attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	for _, q := range questions {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO attempt_questions (attempt_id, question_num, text, options, correct_answer, selected_option, explanation) VALUES (?, ?, ?, ?, ?, ?, ?)",
			attempt.ID, q.QuestionNum, q.Text, q.Options, q.CorrectAnswer, q.SelectedOption, q.Explanation,
		)
		if err != nil {
			return fmt.Errorf("failed to create attempt question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attempt: %w", err)
	}
	return nil
}

// GetAttempt retrieves an attempt by ID
func (a *Archive) GetAttempt(ctx context.Context, id string) (*Attempt, error) {
	var attempt Attempt
	err := a.db.QueryRowContext(ctx,
		"SELECT id, document_name, correct, incorrect, skipped, total, percentage, report, created_at FROM attempts WHERE id = ?",
		id,
	).Scan(&attempt.ID, &attempt.DocumentName, &attempt.Correct, &attempt.Incorrect, &attempt.Skipped, &attempt.Total, &attempt.Percentage, &attempt.Report, &attempt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return &attempt, nil
}

// ListAttempts retrieves attempts newest first, optionally limited by count
func (a *Archive) ListAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	query := "SELECT id, document_name, correct, incorrect, skipped, total, percentage, report, created_at FROM attempts ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var attempt Attempt
		err := rows.Scan(&attempt.ID, &attempt.DocumentName, &attempt.Correct, &attempt.Incorrect, &attempt.Skipped, &attempt.Total, &attempt.Percentage, &attempt.Report, &attempt.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}

	return attempts, nil
}

// GetAttemptQuestions retrieves all questions of an attempt in order
func (a *Archive) GetAttemptQuestions(ctx context.Context, attemptID string) ([]AttemptQuestion, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT attempt_id, question_num, text, options, correct_answer, selected_option, explanation FROM attempt_questions WHERE attempt_id = ? ORDER BY question_num",
		attemptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt questions: %w", err)
	}
	defer rows.Close()

	var questions []AttemptQuestion
	for rows.Next() {
		var q AttemptQuestion
		var selected sql.NullInt64
		var explanation sql.NullString
		err := rows.Scan(&q.AttemptID, &q.QuestionNum, &q.Text, &q.Options, &q.CorrectAnswer, &selected, &explanation)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt question: %w", err)
		}
		if selected.Valid {
			q.SelectedOption = Option(int(selected.Int64))
		}
		q.Explanation = explanation.String
		questions = append(questions, q)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempt questions: %w", err)
	}

	return questions, nil
}

// OptionsToJSON converts an options slice to a JSON string
func OptionsToJSON(options []string) (string, error) {
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal options: %w", err)
	}
	return string(data), nil
}

// JSONToOptions converts a JSON string to an options slice
func JSONToOptions(optionsJSON string) ([]string, error) {
	var options []string
	err := json.Unmarshal([]byte(optionsJSON), &options)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	return options, nil
}
