package pdfquiz

import "math"

// Ledger holds at most one answer per question index
type Ledger struct {
	answers map[int]UserAnswer
	order   []int // question indexes in first-recorded order
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{
		answers: make(map[int]UserAnswer),
		order:   make([]int, 0),
	}
}

// NewUserAnswer builds the answer for question q at index, computing correctness once
func NewUserAnswer(q QuizQuestion, index int, selected *int) UserAnswer {
	answer := UserAnswer{QuestionIndex: index}
	if selected != nil {
		choice := *selected
		answer.SelectedOption = &choice
		answer.IsCorrect = choice == q.CorrectAnswer
	}
	return answer
}

// Record stores an answer, replacing any earlier answer for the same question
func (l *Ledger) Record(answer UserAnswer) {
	if _, exists := l.answers[answer.QuestionIndex]; !exists {
		l.order = append(l.order, answer.QuestionIndex)
	}
	l.answers[answer.QuestionIndex] = answer
}

// Answer returns the recorded answer for a question index
func (l *Ledger) Answer(questionIndex int) (UserAnswer, bool) {
	answer, ok := l.answers[questionIndex]
	return answer, ok
}

// Answers returns the recorded answers in first-recorded order
func (l *Ledger) Answers() []UserAnswer {
	answers := make([]UserAnswer, 0, len(l.order))
	for _, idx := range l.order {
		answers = append(answers, l.answers[idx])
	}
	return answers
}

// Len returns the number of answered questions
func (l *Ledger) Len() int {
	return len(l.order)
}

// Reset clears all answers
func (l *Ledger) Reset() {
	l.answers = make(map[int]UserAnswer)
	l.order = l.order[:0]
}

// Score aggregates the ledger against a quiz of totalQuestions questions.
// Skips and timeouts both count as skipped.
func (l *Ledger) Score(totalQuestions int) Score {
	score := Score{Total: totalQuestions}
	for _, answer := range l.answers {
		switch {
		case answer.SelectedOption == nil:
			score.Skipped++
		case answer.IsCorrect:
			score.Correct++
		}
	}
	score.Incorrect = len(l.answers) - score.Correct - score.Skipped
	if totalQuestions > 0 {
		score.Percentage = int(math.Round(float64(score.Correct) / float64(totalQuestions) * 100))
	}
	return score
}
