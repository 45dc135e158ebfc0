package pdfquiz

import (
	"fmt"
	"time"
)

const (
	// DefaultQuestionTimeLimit matches the countdown shown for each question.
	DefaultQuestionTimeLimit = 30 * time.Second
	// answerGrace absorbs the delay between the client timer and the request arriving.
	answerGrace              = 2 * time.Second
	// DefaultProcessingTimeout bounds one extraction plus one generation call.
	// An in-flight flag older than this belongs to a request that never finished.
	DefaultProcessingTimeout = DefaultTimeout + 30*time.Second
)

// Session is the single source of truth for one user's upload, summary, quiz
// and results. Transitions validate before mutating so a failed call leaves
// the session unchanged. A Session is not safe for concurrent use; callers
// serialize access per session.
type Session struct {
	phase        Phase
	documentName string
	text         string
	summary      []SummarySection
	questions    []QuizQuestion
	current      int
	ledger       *Ledger
	processing   bool
	startedAt    time.Time
	generation   uint64
	deadline     time.Time
	timeLimit    time.Duration
	procTimeout  time.Duration
	now          func() time.Time
}

// SessionOption customizes a new or restored session
type SessionOption func(*Session)

// WithClock overrides the clock, for deterministic deadlines in tests
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// WithQuestionTimeLimit sets the per-question answer window; 0 disables the deadline
func WithQuestionTimeLimit(d time.Duration) SessionOption {
	return func(s *Session) {
		s.timeLimit = d
	}
}

// WithProcessingTimeout sets how long an unfinished generation keeps the
// session busy before a new one may take over
func WithProcessingTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.procTimeout = d
	}
}

// NewSession creates a session in the upload phase
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		phase:       PhaseUpload,
		ledger:      NewLedger(),
		timeLimit:   DefaultQuestionTimeLimit,
		procTimeout: DefaultProcessingTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Phase() Phase { return s.phase }
func (s *Session) DocumentName() string { return s.documentName }
func (s *Session) Text() string { return s.text }
func (s *Session) Summary() []SummarySection { return s.summary }
func (s *Session) Questions() []QuizQuestion { return s.questions }
func (s *Session) CurrentIndex() int { return s.current }
func (s *Session) Processing() bool { return s.processing && !s.processingExpired() }
func (s *Session) Generation() uint64 { return s.generation }
func (s *Session) Answers() []UserAnswer { return s.ledger.Answers() }
func (s *Session) Answer(i int) (UserAnswer, bool) { return s.ledger.Answer(i) }
func (s *Session) Score() Score { return s.ledger.Score(len(s.questions)) }

// CurrentQuestion returns the question awaiting an answer while in the quiz phase
func (s *Session) CurrentQuestion() (QuizQuestion, bool) {
	if s.phase != PhaseQuiz || s.current < 0 || s.current >= len(s.questions) {
		return QuizQuestion{}, false
	}
	return s.questions[s.current], true
}

// TimeRemaining returns how long the current question stays open
func (s *Session) TimeRemaining() time.Duration {
	if s.phase != PhaseQuiz || s.deadline.IsZero() {
		return 0
	}
	remaining := s.deadline.Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TimeLimit returns the per-question answer window
func (s *Session) TimeLimit() time.Duration {
	return s.timeLimit
}

// BeginProcessing marks a generation as in flight and returns the token the
// result must carry. A second call before EndProcessing fails with ErrBusy,
// unless the first has outlived the processing timeout: its result is then
// invalidated and the new generation takes over.
func (s *Session) BeginProcessing() (uint64, error) {
	if s.processing {
		if !s.processingExpired() {
			return 0, ErrBusy
		}
		Logger().Warnw("Abandoning unfinished generation", "started", s.startedAt)
		s.generation++
	}
	s.processing = true
	s.startedAt = s.now()
	return s.generation, nil
}

// EndProcessing clears the in-flight flag if token is still current
func (s *Session) EndProcessing(token uint64) {
	if token != s.generation {
		return
	}
	s.processing = false
	s.startedAt = time.Time{}
}

// processingExpired reports whether the in-flight flag outlived the timeout.
// A flag without a start time never expires on its own clock, so it counts
// as expired.
func (s *Session) processingExpired() bool {
	if !s.processing {
		return false
	}
	if s.startedAt.IsZero() {
		return true
	}
	if s.procTimeout <= 0 {
		return false
	}
	return s.now().Sub(s.startedAt) > s.procTimeout
}

// AdvanceToSummary stores the extracted document and its summary
func (s *Session) AdvanceToSummary(token uint64, documentName, text string, summary []SummarySection) error {
	if token != s.generation {
		return ErrStaleGeneration
	}
	if s.phase != PhaseUpload {
		return fmt.Errorf("%w: cannot show summary from %s", ErrInvalidTransition, s.phase)
	}
	if len(summary) == 0 {
		return ErrEmptySummary
	}

	s.documentName = documentName
	s.text = text
	s.summary = summary
	s.questions = nil
	s.current = 0
	s.ledger.Reset()
	s.phase = PhaseSummary
	return nil
}

// AdvanceToQuiz stores the generated questions and opens the first one
func (s *Session) AdvanceToQuiz(token uint64, questions []QuizQuestion) error {
	if token != s.generation {
		return ErrStaleGeneration
	}
	if s.phase != PhaseSummary {
		return fmt.Errorf("%w: cannot start quiz from %s", ErrInvalidTransition, s.phase)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	s.questions = questions
	s.current = 0
	s.ledger.Reset()
	s.phase = PhaseQuiz
	s.openQuestion()
	return nil
}

// RecordAnswerAndAdvance records the answer to the current question (nil for
// skip or timeout) and moves to the next question, or to results after the
// last one. Answers arriving after the question deadline count as timeouts.
func (s *Session) RecordAnswerAndAdvance(selected *int) (UserAnswer, error) {
	question, ok := s.CurrentQuestion()
	if !ok {
		return UserAnswer{}, fmt.Errorf("%w: no question awaiting an answer in %s", ErrInvalidTransition, s.phase)
	}
	if selected != nil && (*selected < 0 || *selected >= len(question.Options)) {
		return UserAnswer{}, fmt.Errorf("%w: %d", ErrInvalidOption, *selected)
	}
	if selected != nil && s.expired() {
		VerboseLog("Answer for question %d arrived after the deadline, recording timeout", s.current+1)
		selected = nil
	}

	answer := NewUserAnswer(question, s.current, selected)
	s.ledger.Record(answer)

	if s.current < len(s.questions)-1 {
		s.current++
		s.openQuestion()
	} else {
		s.phase = PhaseResults
		s.deadline = time.Time{}
	}
	return answer, nil
}

// Restart clears the answers and reopens the first question of the same quiz
func (s *Session) Restart() error {
	if s.phase != PhaseResults {
		return fmt.Errorf("%w: cannot restart quiz from %s", ErrInvalidTransition, s.phase)
	}
	s.ledger.Reset()
	s.current = 0
	s.phase = PhaseQuiz
	s.openQuestion()
	return nil
}

// NewUpload abandons the current document. Any generation still in flight
// is invalidated and its result will be rejected.
func (s *Session) NewUpload() {
	s.phase = PhaseUpload
	s.documentName = ""
	s.text = ""
	s.summary = nil
	s.questions = nil
	s.current = 0
	s.ledger.Reset()
	s.processing = false
	s.startedAt = time.Time{}
	s.deadline = time.Time{}
	s.generation++
}

// Report renders the downloadable text report for the session
func (s *Session) Report() string {
	return RenderReport(ReportInput{
		DocumentName: s.documentName,
		Summary:      s.summary,
		Questions:    s.questions,
		Answers:      s.ledger.Answers(),
	})
}

func (s *Session) openQuestion() {
	if s.timeLimit <= 0 {
		s.deadline = time.Time{}
		return
	}
	s.deadline = s.now().Add(s.timeLimit)
}

func (s *Session) expired() bool {
	if s.deadline.IsZero() {
		return false
	}
	return s.now().After(s.deadline.Add(answerGrace))
}

// SessionSnapshot is the serializable form of a session
type SessionSnapshot struct {
	Phase        Phase            `json:"phase"`
	DocumentName string           `json:"document_name"`
	Text         string           `json:"text"`
	Summary      []SummarySection `json:"summary"`
	Questions    []QuizQuestion   `json:"questions"`
	Current      int              `json:"current"`
	Answers      []UserAnswer     `json:"answers"`
	Processing   bool             `json:"processing"`
	StartedAt    time.Time        `json:"processing_started_at"`
	Generation   uint64           `json:"generation"`
	Deadline     time.Time        `json:"deadline"`
	TimeLimit    time.Duration    `json:"time_limit"`
	ProcTimeout  time.Duration    `json:"processing_timeout"`
}

// Snapshot captures the session state
func (s *Session) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		Phase:        s.phase,
		DocumentName: s.documentName,
		Text:         s.text,
		Summary:      s.summary,
		Questions:    s.questions,
		Current:      s.current,
		Answers:      s.ledger.Answers(),
		Processing:   s.processing,
		StartedAt:    s.startedAt,
		Generation:   s.generation,
		Deadline:     s.deadline,
		TimeLimit:    s.timeLimit,
		ProcTimeout:  s.procTimeout,
	}
}

// RestoreSession rebuilds a session from a snapshot, rejecting snapshots that
// break the phase invariants
func RestoreSession(snap SessionSnapshot, opts ...SessionOption) (*Session, error) {
	if !snap.Phase.Valid() {
		return nil, fmt.Errorf("invalid snapshot: unknown phase %q", snap.Phase)
	}
	if snap.Phase == PhaseSummary && len(snap.Summary) == 0 {
		return nil, fmt.Errorf("invalid snapshot: %w", ErrEmptySummary)
	}
	if (snap.Phase == PhaseQuiz || snap.Phase == PhaseResults) && len(snap.Questions) == 0 {
		return nil, fmt.Errorf("invalid snapshot: %w", ErrNoQuestions)
	}
	if snap.Phase == PhaseQuiz && (snap.Current < 0 || snap.Current >= len(snap.Questions)) {
		return nil, fmt.Errorf("invalid snapshot: question pointer %d out of range", snap.Current)
	}

	s := NewSession(opts...)
	s.phase = snap.Phase
	s.documentName = snap.DocumentName
	s.text = snap.Text
	s.summary = snap.Summary
	s.questions = snap.Questions
	s.current = snap.Current
	s.processing = snap.Processing
	s.startedAt = snap.StartedAt
	s.generation = snap.Generation
	s.deadline = snap.Deadline
	s.timeLimit = snap.TimeLimit
	if snap.ProcTimeout > 0 {
		s.procTimeout = snap.ProcTimeout
	}
	for _, answer := range snap.Answers {
		s.ledger.Record(answer)
	}
	return s, nil
}
