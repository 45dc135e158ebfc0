package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"pdfquiz"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	cookieName   = "pdfquiz"
	cookieIDKey  = "id"
	historyLimit = 50
)

//go:embed templates/*.html
var templateFS embed.FS

// Server renders the upload, summary, quiz and results pages for browser sessions
type Server struct {
	store         pdfquiz.SessionStore
	cookies       *sessions.CookieStore
	generator     *pdfquiz.Generator
	archive       *pdfquiz.Archive // nil when history is disabled
	templates     map[string]*template.Template
	locks         *keyedMutex
	sessionOpts   []pdfquiz.SessionOption
	maxUpload     int64
	transcriptDir string
}

// ServerOptions holds the dependencies of a Server
type ServerOptions struct {
	Store         pdfquiz.SessionStore
	Generator     *pdfquiz.Generator
	Archive       *pdfquiz.Archive
	SessionSecret string
	MaxUploadMB   int
	QuestionTime  time.Duration
	TranscriptDir string

	// ProcessingTimeout releases sessions whose generation request never
	// finished; 0 uses pdfquiz.DefaultProcessingTimeout
	ProcessingTimeout time.Duration
}

// NewServer parses the page templates and wires the dependencies
func NewServer(opts ServerOptions) (*Server, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	cookies := sessions.NewCookieStore([]byte(opts.SessionSecret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	maxUploadMB := opts.MaxUploadMB
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}

	sessionOpts := []pdfquiz.SessionOption{pdfquiz.WithQuestionTimeLimit(opts.QuestionTime)}
	if opts.ProcessingTimeout > 0 {
		sessionOpts = append(sessionOpts, pdfquiz.WithProcessingTimeout(opts.ProcessingTimeout))
	}

	return &Server{
		store:         opts.Store,
		cookies:       cookies,
		generator:     opts.Generator,
		archive:       opts.Archive,
		templates:     templates,
		locks:         newKeyedMutex(),
		sessionOpts:   sessionOpts,
		maxUpload:     int64(maxUploadMB) << 20,
		transcriptDir: opts.TranscriptDir,
	}, nil
}

func loadTemplates() (map[string]*template.Template, error) {
	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"letter": pdfquiz.OptionLetter,
		"seconds": func(d time.Duration) int {
			return int(d.Round(time.Second) / time.Second)
		},
	}

	pages := []struct {
		name string
		file string
	}{
		{"upload", "templates/upload.html"},
		{"summary", "templates/summary.html"},
		{"quiz", "templates/quiz.html"},
		{"review", "templates/review.html"},
		{"results", "templates/results.html"},
		{"history", "templates/history.html"},
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page.name).Funcs(funcMap).ParseFS(templateFS, "templates/base.html", page.file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page.file, err)
		}
		templates[page.name] = tmpl
	}
	return templates, nil
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.MaxMultipartMemory = s.maxUpload

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	router.GET("/", s.handleHome)
	router.POST("/upload", s.handleUpload)
	router.POST("/reset", s.handleReset)
	router.GET("/summary", s.handleSummary)

	quiz := router.Group("/quiz")
	{
		quiz.POST("/generate", s.handleGenerateQuiz)
		quiz.GET("", s.handleQuestion)
		quiz.POST("/answer", s.handleAnswer)
		quiz.GET("/review/:num", s.handleReview)
	}

	results := router.Group("/results")
	{
		results.GET("", s.handleResults)
		results.GET("/report", s.handleReport)
		results.POST("/restart", s.handleRestart)
	}

	history := router.Group("/history")
	{
		history.GET("", s.handleHistory)
		history.GET("/:id/report", s.handleHistoryReport)
	}

	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		pdfquiz.Logger().Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// sessionID returns the browser's session id, issuing a new cookie if needed
func (s *Server) sessionID(c *gin.Context) string {
	cookie, _ := s.cookies.Get(c.Request, cookieName)
	if id, ok := cookie.Values[cookieIDKey].(string); ok && id != "" {
		return id
	}

	id := uuid.NewString()
	cookie.Values[cookieIDKey] = id
	if err := cookie.Save(c.Request, c.Writer); err != nil {
		pdfquiz.Logger().Warnw("Failed to save session cookie", "error", err)
	}
	return id
}

// withSession loads the session under its lock, applies fn and saves the
// session. Failed transitions leave the session unchanged, so it is saved
// either way and fn's error is returned.
func (s *Server) withSession(ctx context.Context, id string, fn func(*pdfquiz.Session) error) (*pdfquiz.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	session, err := s.store.Load(ctx, id)
	if errors.Is(err, pdfquiz.ErrSessionNotFound) {
		session = pdfquiz.NewSession(s.sessionOpts...)
	} else if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var fnErr error
	if fn != nil {
		fnErr = fn(session)
	}

	if err := s.store.Save(ctx, id, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, fnErr
}

func (s *Server) render(c *gin.Context, status int, page string, data gin.H) {
	tmpl, ok := s.templates[page]
	if !ok {
		c.String(http.StatusInternalServerError, "Template error")
		return
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(c.Writer, "base.html", data); err != nil {
		pdfquiz.Logger().Errorw("Template error", "page", page, "error", err)
	}
}

// fail maps session errors to responses
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pdfquiz.ErrStaleGeneration):
		c.Redirect(http.StatusSeeOther, "/")
	case errors.Is(err, pdfquiz.ErrBusy):
		c.String(http.StatusConflict, "Another operation is already in progress, please wait.")
	case errors.Is(err, pdfquiz.ErrInvalidTransition):
		c.String(http.StatusConflict, err.Error())
	case errors.Is(err, pdfquiz.ErrInvalidOption):
		c.String(http.StatusBadRequest, err.Error())
	default:
		pdfquiz.Logger().Errorw("Request failed", "path", c.Request.URL.Path, "error", err)
		c.String(http.StatusInternalServerError, "Something went wrong")
	}
}

// keyedMutex serializes work per session id
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the lock for key and returns its release func
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
