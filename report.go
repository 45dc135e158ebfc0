package pdfquiz

import (
	"fmt"
	"strings"
)

const (
	markCorrect  = "✓"
	markSelected = "✗"
)

// ReportInput is everything the text report is rendered from
type ReportInput struct {
	DocumentName string
	Summary      []SummarySection
	Questions    []QuizQuestion
	Answers      []UserAnswer
}

// RenderReport renders the downloadable plain text report. The layout is
// stable: same input, same bytes.
func RenderReport(in ReportInput) string {
	answers := make(map[int]UserAnswer, len(in.Answers))
	ledger := NewLedger()
	for _, answer := range in.Answers {
		answers[answer.QuestionIndex] = answer
		ledger.Record(answer)
	}
	score := ledger.Score(len(in.Questions))

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Summary and Quiz Results for %s\n\n", in.DocumentName))

	sb.WriteString("## Summary\n\n")
	for _, section := range in.Summary {
		sb.WriteString(fmt.Sprintf("### %s\n\n", section.Title))
		for _, point := range section.Points {
			sb.WriteString(fmt.Sprintf("- %s\n", point))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Quiz Results\n\n")
	sb.WriteString(fmt.Sprintf("Score: %d/%d (%d%%)\n", score.Correct, score.Total, score.Percentage))
	sb.WriteString(fmt.Sprintf("Correct answers: %d\n", score.Correct))
	sb.WriteString(fmt.Sprintf("Incorrect answers: %d\n", score.Incorrect))
	sb.WriteString(fmt.Sprintf("Skipped questions: %d\n\n", score.Skipped))

	sb.WriteString("## Questions and Answers\n\n")
	for i, question := range in.Questions {
		answer, answered := answers[i]

		sb.WriteString(fmt.Sprintf("### Question %d: %s\n\n", i+1, question.Question))
		for optIndex, option := range question.Options {
			marker := " "
			if optIndex == question.CorrectAnswer {
				marker = markCorrect
			} else if answered && answer.Selected() == optIndex {
				marker = markSelected
			}
			sb.WriteString(fmt.Sprintf("%s %s. %s\n", marker, OptionLetter(optIndex), option))
		}

		sb.WriteString(fmt.Sprintf("\nExplanation: %s\n\n", question.Explanation))
		sb.WriteString(Verdict(answer, answered))
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// Verdict is the one-line outcome of a question. Unanswered questions read as incorrect.
func Verdict(answer UserAnswer, answered bool) string {
	switch {
	case answered && answer.Skipped():
		return "You skipped this question."
	case answered && answer.IsCorrect:
		return "Your answer was correct."
	default:
		return "Your answer was incorrect."
	}
}

// ReportFilename derives the download name from the uploaded file name
func ReportFilename(documentName string) string {
	return strings.Replace(documentName, ".pdf", "", 1) + "_summary_quiz.txt"
}
