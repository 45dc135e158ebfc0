package pdfquiz

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	optionsMarker       = "Options:"
	correctAnswerMarker = "Correct Answer:"
	explanationMarker   = "Explanation:"
)

var (
	questionMarkerRe = regexp.MustCompile(`\d+\.\s+Question:`)
	optionLineRe     = regexp.MustCompile(`^[A-D]\.\s+`)
)

// ParseQuiz extracts questions from text in the "N. Question: ... Options:
// A. ... Correct Answer: X Explanation: ..." layout. A block is kept only when
// it has question text and exactly 4 options. An empty result falls back to
// the placeholder questions.
func ParseQuiz(raw string) (questions []QuizQuestion) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Warnw("Error parsing quiz text, using placeholder", "error", fmt.Sprint(r))
			questions = PlaceholderQuestions()
		}
	}()

	blocks := questionMarkerRe.Split(raw, -1)
	if len(blocks) > 0 {
		blocks = blocks[1:]
	}

	for i, block := range blocks {
		question, ok := parseQuestionBlock(strings.TrimSpace(block))
		if !ok {
			VerboseLog("Discarding quiz block %d: missing question text or not exactly 4 options", i+1)
			continue
		}
		questions = append(questions, question)
	}

	if len(questions) == 0 {
		VerboseLog("Quiz text produced no questions, using placeholder")
		return PlaceholderQuestions()
	}
	return questions
}

func parseQuestionBlock(block string) (QuizQuestion, bool) {
	questionText := block
	if idx := strings.Index(block, optionsMarker); idx >= 0 {
		questionText = block[:idx]
	}
	questionText = strings.TrimSpace(questionText)

	options := parseOptions(block)

	question := QuizQuestion{
		Question:      questionText,
		Options:       options,
		CorrectAnswer: parseCorrectAnswer(block),
		Explanation:   parseExplanation(block),
	}
	return question, questionText != "" && len(options) == 4
}

func parseOptions(block string) []string {
	start := strings.Index(block, optionsMarker)
	if start < 0 {
		return nil
	}
	section := block[start+len(optionsMarker):]
	if end := strings.Index(section, correctAnswerMarker); end >= 0 {
		section = section[:end]
	}

	var options []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		loc := optionLineRe.FindStringIndex(line)
		if loc == nil {
			continue
		}
		options = append(options, strings.TrimSpace(line[loc[1]:]))
	}
	return options
}

// parseCorrectAnswer maps the first A-D letter after "Correct Answer:" to an
// index. A missing or unreadable letter defaults to 0.
func parseCorrectAnswer(block string) int {
	start := strings.Index(block, correctAnswerMarker)
	if start < 0 {
		return 0
	}
	section := block[start+len(correctAnswerMarker):]
	if end := strings.Index(section, explanationMarker); end >= 0 {
		section = section[:end]
	}

	for _, r := range section {
		if r >= 'A' && r <= 'D' {
			return int(r - 'A')
		}
	}
	return 0
}

func parseExplanation(block string) string {
	start := strings.Index(block, explanationMarker)
	if start < 0 {
		return ""
	}
	return strings.TrimSpace(block[start+len(explanationMarker):])
}
