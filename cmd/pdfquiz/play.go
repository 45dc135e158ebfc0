package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pdfquiz"

	"github.com/spf13/cobra"
)

const countdownTick = 10 * time.Second

func newPlayCmd(c *cli) *cobra.Command {
	var timeLimit time.Duration
	var reportDir string

	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Summarize a PDF and take a timed quiz on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("time") {
				timeLimit = c.cfg.QuestionTimeLimit()
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			out := &lockedWriter{w: cmd.OutOrStdout()}
			return c.play(ctx, args[0], timeLimit, reportDir, readLines(ctx, cmd.InOrStdin()), out)
		},
	}

	cmd.Flags().DurationVar(&timeLimit, "time", pdfquiz.DefaultQuestionTimeLimit, "time per question, 0 to disable")
	cmd.Flags().StringVar(&reportDir, "report", "", "directory to write the text report to")
	return cmd
}

func (c *cli) play(ctx context.Context, path string, timeLimit time.Duration, reportDir string, lines <-chan string, out io.Writer) error {
	documentName := filepath.Base(path)
	generator := c.generator()
	session := pdfquiz.NewSession(pdfquiz.WithQuestionTimeLimit(timeLimit))

	token, err := session.BeginProcessing()
	if err != nil {
		return err
	}
	defer session.EndProcessing(token)

	fmt.Fprintf(out, "🎯 Reading %s\n", documentName)
	text, err := extractFile(ctx, path)
	if err != nil {
		return err
	}
	if !generator.Configured() {
		fmt.Fprintln(out, "⚠️  No OpenAI API key configured, using sample content")
	}

	fmt.Fprintln(out, "⏳ Generating summary... (this may take a moment)")
	if err := session.AdvanceToSummary(token, documentName, text, generator.GenerateSummary(ctx, text)); err != nil {
		return err
	}
	fmt.Fprintln(out)
	printSummary(out, documentName, session.Summary())

	fmt.Fprintln(out, "⏳ Generating quiz...")
	if err := session.AdvanceToQuiz(token, generator.GenerateQuiz(ctx, session.Summary())); err != nil {
		return err
	}
	session.EndProcessing(token)
	fmt.Fprintln(out)

	if err := playQuiz(ctx, session, lines, out); err != nil {
		return err
	}
	printResults(out, session.Score())

	if reportDir != "" {
		if err := writeReport(reportDir, session, out); err != nil {
			return err
		}
	}

	archive, err := c.openArchive()
	if err != nil {
		return err
	}
	if archive != nil {
		defer archive.Close()
		attempt, err := archive.ArchiveSession(ctx, session)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "🗂  Saved as attempt %s\n", attempt.ID)
	}
	return nil
}

// playQuiz asks every question of a session in the quiz phase until it reaches results
func playQuiz(ctx context.Context, session *pdfquiz.Session, lines <-chan string, out io.Writer) error {
	total := len(session.Questions())

	for session.Phase() == pdfquiz.PhaseQuiz {
		question, _ := session.CurrentQuestion()
		fmt.Fprintf(out, "Question %d/%d:\n", session.CurrentIndex()+1, total)
		fmt.Fprintf(out, "%s\n\n", question.Question)
		for i, option := range question.Options {
			fmt.Fprintf(out, "%s) %s\n", pdfquiz.OptionLetter(i), option)
		}
		fmt.Fprintln(out)

		selected, err := ask(ctx, lines, out, session.TimeLimit())
		if err != nil {
			return err
		}

		answer, err := session.RecordAnswerAndAdvance(selected)
		if err != nil {
			return err
		}

		fmt.Fprintln(out)
		correctOption := pdfquiz.OptionLetter(question.CorrectAnswer)
		switch {
		case answer.Skipped():
			fmt.Fprintf(out, "⏭  Skipped. The correct answer is %s) %s\n", correctOption, question.Options[question.CorrectAnswer])
		case answer.IsCorrect:
			fmt.Fprintln(out, "✅ Correct!")
		default:
			fmt.Fprintf(out, "❌ Incorrect. The correct answer is %s) %s\n", correctOption, question.Options[question.CorrectAnswer])
		}
		if question.Explanation != "" {
			fmt.Fprintf(out, "💡 Explanation: %s\n", question.Explanation)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Repeat("─", 50))
		fmt.Fprintln(out)
	}
	return nil
}

// ask reads one answer. It returns nil for a skip, a timeout or exhausted input.
func ask(ctx context.Context, lines <-chan string, out io.Writer, timeLimit time.Duration) (*int, error) {
	var timeout <-chan struct{}
	if timeLimit > 0 {
		fired := make(chan struct{})
		countdown := pdfquiz.StartCountdown(timeLimit, countdownTick,
			func(remaining time.Duration) {
				fmt.Fprintf(out, "\n⏳ %ds left\n", int(remaining.Round(time.Second)/time.Second))
			},
			func() { close(fired) },
		)
		defer countdown.Stop()
		timeout = fired
	}

	for {
		fmt.Fprint(out, "Your answer (A/B/C/D, S to skip): ")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			fmt.Fprintln(out, "\n⏰ Time's up!")
			return nil, nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil, nil
			}
			input := strings.ToUpper(strings.TrimSpace(line))
			if input == "S" {
				return nil, nil
			}
			if len(input) == 1 {
				if idx := strings.Index("ABCD", input); idx >= 0 {
					return pdfquiz.Option(idx), nil
				}
			}
			fmt.Fprintln(out, "Please enter A, B, C, D or S")
		}
	}
}

func printResults(out io.Writer, score pdfquiz.Score) {
	fmt.Fprintln(out, "🎉 Quiz completed!")
	fmt.Fprintf(out, "\n🏆 Score: %d/%d (%d%%)\n", score.Correct, score.Total, score.Percentage)
	fmt.Fprintf(out, "   Correct: %d  Incorrect: %d  Skipped: %d\n\n", score.Correct, score.Incorrect, score.Skipped)

	switch {
	case score.Percentage >= 80:
		fmt.Fprintln(out, "🌟 Excellent work!")
	case score.Percentage >= 60:
		fmt.Fprintln(out, "👍 Good job!")
	default:
		fmt.Fprintln(out, "📚 Keep studying!")
	}
}

func writeReport(dir string, session *pdfquiz.Session, out io.Writer) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, pdfquiz.ReportFilename(session.DocumentName()))
	if err := os.WriteFile(path, []byte(session.Report()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(out, "📝 Report saved to: %s\n", path)
	return nil
}

// readLines feeds input lines to a channel that closes at EOF or once ctx
// is done
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
			pdfquiz.Logger().Warnw("Failed to read input", "error", err)
		}
	}()
	return lines
}

// lockedWriter lets countdown ticks and prompts share one output
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
