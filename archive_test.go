package pdfquiz

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	archive, err := OpenArchive(filepath.Join(t.TempDir(), "attempts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	require.NoError(t, archive.CreateTables())
	return archive
}

func finishedSession(t *testing.T) *Session {
	t.Helper()
	s := sessionInQuiz(t)
	for i, q := range s.Questions() {
		var selected *int
		switch {
		case i < 7:
			selected = Option(q.CorrectAnswer)
		case i == 7:
			selected = Option((q.CorrectAnswer + 1) % 4)
		}
		_, err := s.RecordAnswerAndAdvance(selected)
		require.NoError(t, err)
	}
	require.Equal(t, PhaseResults, s.Phase())
	return s
}

func TestArchiveSession(t *testing.T) {
	archive := openTestArchive(t)
	ctx := context.Background()
	s := finishedSession(t)

	attempt, err := archive.ArchiveSession(ctx, s)
	require.NoError(t, err)
	assert.NotEmpty(t, attempt.ID)
	assert.Equal(t, 7, attempt.Correct)
	assert.Equal(t, 1, attempt.Incorrect)
	assert.Equal(t, 2, attempt.Skipped)
	assert.Equal(t, 70, attempt.Percentage)

	stored, err := archive.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, "notes.pdf", stored.DocumentName)
	assert.Equal(t, s.Report(), stored.Report)
	assert.WithinDuration(t, attempt.CreatedAt, stored.CreatedAt, time.Second)

	questions, err := archive.GetAttemptQuestions(ctx, attempt.ID)
	require.NoError(t, err)
	require.Len(t, questions, 10)
	assert.Equal(t, 1, questions[0].QuestionNum)
	assert.Equal(t, s.Questions()[0].Question, questions[0].Text)
	require.NotNil(t, questions[0].SelectedOption)
	assert.Equal(t, s.Questions()[0].CorrectAnswer, *questions[0].SelectedOption)
	assert.Nil(t, questions[9].SelectedOption)

	options, err := JSONToOptions(questions[0].Options)
	require.NoError(t, err)
	assert.Equal(t, s.Questions()[0].Options, options)
}

func TestArchiveSessionRequiresResults(t *testing.T) {
	archive := openTestArchive(t)

	_, err := archive.ArchiveSession(context.Background(), sessionInQuiz(t))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	attempts, err := archive.ListAttempts(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestArchiveListAttempts(t *testing.T) {
	archive := openTestArchive(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range []string{"first.pdf", "second.pdf", "third.pdf"} {
		err := archive.SaveAttempt(ctx, &Attempt{
			ID:           name,
			DocumentName: name,
			Total:        10,
			Report:       "report",
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		}, nil)
		require.NoError(t, err)
	}

	all, err := archive.ListAttempts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third.pdf", all[0].DocumentName)
	assert.Equal(t, "first.pdf", all[2].DocumentName)

	limited, err := archive.ListAttempts(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestArchiveGetAttemptNotFound(t *testing.T) {
	archive := openTestArchive(t)

	_, err := archive.GetAttempt(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestArchiveSaveAttemptRollsBack(t *testing.T) {
	archive := openTestArchive(t)
	ctx := context.Background()

	attempt := &Attempt{ID: "dup", DocumentName: "x.pdf", Report: "r", CreatedAt: time.Now()}
	questions := []AttemptQuestion{
		{AttemptID: "dup", QuestionNum: 1, Text: "q", Options: "[]"},
		{AttemptID: "dup", QuestionNum: 1, Text: "q again", Options: "[]"},
	}

	err := archive.SaveAttempt(ctx, attempt, questions)
	require.Error(t, err)

	_, err = archive.GetAttempt(ctx, "dup")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestOptionsJSON(t *testing.T) {
	data, err := OptionsToJSON([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, data)

	_, err = JSONToOptions("not json")
	assert.Error(t, err)
}
