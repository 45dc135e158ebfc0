package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"pdfquiz"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgNotPDF         = "Please upload a PDF file"
	msgProcessingFail = "There was an error processing your PDF. Please try again."
)

// phasePath is the page that renders a phase
func phasePath(phase pdfquiz.Phase) string {
	switch phase {
	case pdfquiz.PhaseSummary:
		return "/summary"
	case pdfquiz.PhaseQuiz:
		return "/quiz"
	case pdfquiz.PhaseResults:
		return "/results"
	default:
		return "/"
	}
}

// loadPage returns the session if it is in phase, otherwise redirects to the
// page of its actual phase
func (s *Server) loadPage(c *gin.Context, phase pdfquiz.Phase) (*pdfquiz.Session, bool) {
	session, err := s.withSession(c.Request.Context(), s.sessionID(c), nil)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	if session.Phase() != phase {
		c.Redirect(http.StatusSeeOther, phasePath(session.Phase()))
		return nil, false
	}
	return session, true
}

func (s *Server) handleHome(c *gin.Context) {
	session, ok := s.loadPage(c, pdfquiz.PhaseUpload)
	if !ok {
		return
	}
	s.renderUpload(c, http.StatusOK, session.Processing(), "")
}

func (s *Server) renderUpload(c *gin.Context, status int, processing bool, message string) {
	s.render(c, status, "upload", gin.H{
		"Processing":  processing,
		"Error":       message,
		"DemoMode":    !s.generator.Configured(),
		"MaxUploadMB": s.maxUpload >> 20,
		"History":     s.archive != nil,
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	ctx := c.Request.Context()
	id := s.sessionID(c)

	// leave room for the multipart envelope around the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload+1<<20)
	header, err := c.FormFile("document")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.renderUpload(c, http.StatusRequestEntityTooLarge, false, fmt.Sprintf("The file is larger than %d MB", s.maxUpload>>20))
			return
		}
		s.renderUpload(c, http.StatusBadRequest, false, msgNotPDF)
		return
	}
	if header.Size > s.maxUpload {
		s.renderUpload(c, http.StatusRequestEntityTooLarge, false, fmt.Sprintf("The file is larger than %d MB", s.maxUpload>>20))
		return
	}
	if !isPDF(header) {
		s.renderUpload(c, http.StatusBadRequest, false, msgNotPDF)
		return
	}

	data, err := readUpload(header)
	if err != nil {
		s.fail(c, err)
		return
	}

	var token uint64
	_, err = s.withSession(ctx, id, func(session *pdfquiz.Session) error {
		if session.Phase() != pdfquiz.PhaseUpload {
			return fmt.Errorf("%w: start a new upload first", pdfquiz.ErrInvalidTransition)
		}
		var err error
		token, err = session.BeginProcessing()
		return err
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	documentName := filepath.Base(header.Filename)
	text, extractErr := pdfquiz.ExtractText(ctx, data)
	var summary []pdfquiz.SummarySection
	if extractErr == nil {
		genCtx, done := s.transcript(ctx, documentName, len(text))
		summary = s.generator.GenerateSummary(genCtx, text)
		done()
	}

	// the client may have gone away; the outcome still belongs in the session
	_, err = s.withSession(context.WithoutCancel(ctx), id, func(session *pdfquiz.Session) error {
		defer session.EndProcessing(token)
		if extractErr != nil {
			return nil
		}
		return session.AdvanceToSummary(token, documentName, text, summary)
	})
	if extractErr != nil {
		pdfquiz.Logger().Warnw("Failed to extract PDF text", "document", documentName, "error", extractErr)
		s.renderUpload(c, http.StatusUnprocessableEntity, false, msgProcessingFail)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/summary")
}

func isPDF(header *multipart.FileHeader) bool {
	if strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return true
	}
	return header.Header.Get("Content-Type") == "application/pdf"
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

// transcript attaches a transcript logger to ctx when a transcript directory
// is configured. The returned func closes it.
func (s *Server) transcript(ctx context.Context, documentName string, textLength int) (context.Context, func()) {
	if s.transcriptDir == "" {
		return ctx, func() {}
	}
	tl, err := pdfquiz.NewTranscriptLogger(s.transcriptDir, uuid.NewString(), documentName, textLength)
	if err != nil {
		pdfquiz.Logger().Warnw("Failed to create transcript", "error", err)
		return ctx, func() {}
	}
	return pdfquiz.WithTranscript(ctx, tl), func() {
		if err := tl.Close(); err != nil {
			pdfquiz.Logger().Warnw("Failed to close transcript", "error", err)
		}
	}
}

func (s *Server) handleReset(c *gin.Context) {
	_, err := s.withSession(c.Request.Context(), s.sessionID(c), func(session *pdfquiz.Session) error {
		session.NewUpload()
		return nil
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleSummary(c *gin.Context) {
	session, ok := s.loadPage(c, pdfquiz.PhaseSummary)
	if !ok {
		return
	}
	s.render(c, http.StatusOK, "summary", gin.H{
		"DocumentName": session.DocumentName(),
		"Sections":     session.Summary(),
		"Processing":   session.Processing(),
		"DemoMode":     !s.generator.Configured(),
	})
}

func (s *Server) handleGenerateQuiz(c *gin.Context) {
	ctx := c.Request.Context()
	id := s.sessionID(c)

	var token uint64
	var summary []pdfquiz.SummarySection
	var documentName, text string
	_, err := s.withSession(ctx, id, func(session *pdfquiz.Session) error {
		if session.Phase() != pdfquiz.PhaseSummary {
			return fmt.Errorf("%w: no summary to build a quiz from", pdfquiz.ErrInvalidTransition)
		}
		var err error
		token, err = session.BeginProcessing()
		summary = session.Summary()
		documentName = session.DocumentName()
		text = session.Text()
		return err
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	genCtx, done := s.transcript(ctx, documentName, len(text))
	questions := s.generator.GenerateQuiz(genCtx, summary)
	done()

	_, err = s.withSession(context.WithoutCancel(ctx), id, func(session *pdfquiz.Session) error {
		defer session.EndProcessing(token)
		return session.AdvanceToQuiz(token, questions)
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/quiz")
}

func (s *Server) handleQuestion(c *gin.Context) {
	session, ok := s.loadPage(c, pdfquiz.PhaseQuiz)
	if !ok {
		return
	}
	question, _ := session.CurrentQuestion()
	total := len(session.Questions())
	current := session.CurrentIndex()

	s.render(c, http.StatusOK, "quiz", gin.H{
		"Number":    current + 1,
		"Total":     total,
		"Progress":  (current + 1) * 100 / total,
		"Question":  question,
		"Remaining": session.TimeRemaining(),
		"Timed":     session.TimeLimit() > 0,
	})
}

func (s *Server) handleAnswer(c *gin.Context) {
	var selected *int
	switch action := c.PostForm("action"); action {
	case "skip", "timeout":
	case "", "submit":
		option, err := strconv.Atoi(c.PostForm("option"))
		if err != nil {
			c.String(http.StatusBadRequest, "Please choose an option")
			return
		}
		selected = pdfquiz.Option(option)
	default:
		c.String(http.StatusBadRequest, "Unknown action %q", action)
		return
	}

	var answer pdfquiz.UserAnswer
	var finished bool
	session, err := s.withSession(c.Request.Context(), s.sessionID(c), func(session *pdfquiz.Session) error {
		var err error
		answer, err = session.RecordAnswerAndAdvance(selected)
		finished = err == nil && session.Phase() == pdfquiz.PhaseResults
		return err
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	if finished {
		s.archiveAttempt(c.Request.Context(), session)
	}

	switch {
	case !answer.Skipped():
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/quiz/review/%d", answer.QuestionIndex+1))
	case finished:
		c.Redirect(http.StatusSeeOther, "/results")
	default:
		c.Redirect(http.StatusSeeOther, "/quiz")
	}
}

func (s *Server) archiveAttempt(ctx context.Context, session *pdfquiz.Session) {
	if s.archive == nil {
		return
	}
	attempt, err := s.archive.ArchiveSession(ctx, session)
	if err != nil {
		pdfquiz.Logger().Warnw("Failed to archive attempt", "document", session.DocumentName(), "error", err)
		return
	}
	pdfquiz.VerboseLog("Archived attempt %s for %s: %d/%d", attempt.ID, attempt.DocumentName, attempt.Correct, attempt.Total)
}

// optionView is one option as shown after answering
type optionView struct {
	Letter   string
	Text     string
	Correct  bool
	Selected bool
}

// questionView is a question with the user's outcome
type questionView struct {
	Number      int
	Question    string
	Options     []optionView
	Explanation string
	Verdict     string
	Skipped     bool
	IsCorrect   bool
}

func newQuestionView(index int, q pdfquiz.QuizQuestion, answer pdfquiz.UserAnswer, answered bool) questionView {
	view := questionView{
		Number:      index + 1,
		Question:    q.Question,
		Explanation: q.Explanation,
		Verdict:     pdfquiz.Verdict(answer, answered),
		Skipped:     answered && answer.Skipped(),
		IsCorrect:   answered && answer.IsCorrect,
	}
	for i, option := range q.Options {
		view.Options = append(view.Options, optionView{
			Letter:   pdfquiz.OptionLetter(i),
			Text:     option,
			Correct:  i == q.CorrectAnswer,
			Selected: answered && answer.Selected() == i,
		})
	}
	return view
}

func (s *Server) handleReview(c *gin.Context) {
	num, err := strconv.Atoi(c.Param("num"))
	if err != nil {
		c.String(http.StatusNotFound, "Question not found")
		return
	}

	session, err := s.withSession(c.Request.Context(), s.sessionID(c), nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	phase := session.Phase()
	if phase != pdfquiz.PhaseQuiz && phase != pdfquiz.PhaseResults {
		c.Redirect(http.StatusSeeOther, phasePath(phase))
		return
	}

	index := num - 1
	answer, answered := session.Answer(index)
	if !answered || index >= len(session.Questions()) {
		c.Redirect(http.StatusSeeOther, phasePath(phase))
		return
	}

	s.render(c, http.StatusOK, "review", gin.H{
		"Question": newQuestionView(index, session.Questions()[index], answer, answered),
		"Total":    len(session.Questions()),
		"Finished": phase == pdfquiz.PhaseResults,
	})
}

func (s *Server) handleResults(c *gin.Context) {
	session, ok := s.loadPage(c, pdfquiz.PhaseResults)
	if !ok {
		return
	}

	questions := session.Questions()
	views := make([]questionView, 0, len(questions))
	for i, q := range questions {
		answer, answered := session.Answer(i)
		views = append(views, newQuestionView(i, q, answer, answered))
	}

	s.render(c, http.StatusOK, "results", gin.H{
		"DocumentName": session.DocumentName(),
		"Score":        session.Score(),
		"Questions":    views,
		"History":      s.archive != nil,
	})
}

func (s *Server) handleReport(c *gin.Context) {
	session, ok := s.loadPage(c, pdfquiz.PhaseResults)
	if !ok {
		return
	}
	sendReport(c, pdfquiz.ReportFilename(session.DocumentName()), session.Report())
}

func sendReport(c *gin.Context, filename, report string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(report))
}

func (s *Server) handleRestart(c *gin.Context) {
	_, err := s.withSession(c.Request.Context(), s.sessionID(c), func(session *pdfquiz.Session) error {
		return session.Restart()
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/quiz")
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.archive == nil {
		s.render(c, http.StatusOK, "history", gin.H{"Disabled": true})
		return
	}

	attempts, err := s.archive.ListAttempts(c.Request.Context(), historyLimit)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "history", gin.H{"Attempts": attempts})
}

func (s *Server) handleHistoryReport(c *gin.Context) {
	if s.archive == nil {
		c.String(http.StatusNotFound, "History is disabled")
		return
	}

	attempt, err := s.archive.GetAttempt(c.Request.Context(), c.Param("id"))
	if errors.Is(err, pdfquiz.ErrAttemptNotFound) {
		c.String(http.StatusNotFound, "Attempt not found")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	sendReport(c, pdfquiz.ReportFilename(attempt.DocumentName), attempt.Report)
}
