package pdfquiz

import (
	"encoding/json"
	"fmt"
)

// SummarySection is one titled group of bullet points in a document summary
type SummarySection struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

// QuizQuestion represents a single multiple choice question with exactly 4 options
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"` // 0-based index
	Explanation   string   `json:"explanation"`
}

// UserAnswer records the user's response to the question at QuestionIndex.
// A nil SelectedOption means the question was skipped or timed out.
type UserAnswer struct {
	QuestionIndex  int  `json:"question_index"`
	SelectedOption *int `json:"selected_option"`
	IsCorrect      bool `json:"is_correct"`
}

// Skipped reports whether the answer carries no selection
func (a UserAnswer) Skipped() bool {
	return a.SelectedOption == nil
}

// Selected returns the chosen option, or -1 when skipped
func (a UserAnswer) Selected() int {
	if a.SelectedOption == nil {
		return -1
	}
	return *a.SelectedOption
}

// Option returns a pointer to i, for building answers inline
func Option(i int) *int {
	return &i
}

// Score is the aggregate outcome of a quiz attempt
type Score struct {
	Correct    int `json:"correct"`
	Incorrect  int `json:"incorrect"`
	Skipped    int `json:"skipped"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Phase is the current step of a session
type Phase string

const (
	PhaseUpload  Phase = "upload"
	PhaseSummary Phase = "summary"
	PhaseQuiz    Phase = "quiz"
	PhaseResults Phase = "results"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseUpload, PhaseSummary, PhaseQuiz, PhaseResults:
		return true
	}
	return false
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !Phase(raw).Valid() {
		return fmt.Errorf("unknown phase: %q", raw)
	}
	*p = Phase(raw)
	return nil
}

// optionLetters maps option positions to the letters used in prompts and reports
var optionLetters = []string{"A", "B", "C", "D"}

// OptionLetter returns the letter for a 0-based option index
func OptionLetter(i int) string {
	if i < 0 || i >= len(optionLetters) {
		return "?"
	}
	return optionLetters[i]
}
