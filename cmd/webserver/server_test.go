package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pdfquiz"
	"pdfquiz/internal/pdftest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	server  *httptest.Server
	client  *http.Client
	archive *pdfquiz.Archive
	store   *recordingStore
}

// recordingStore remembers the last session id it saved
type recordingStore struct {
	*pdfquiz.MemorySessionStore
	mu     sync.Mutex
	lastID string
}

func (r *recordingStore) Save(ctx context.Context, id string, session *pdfquiz.Session) error {
	r.mu.Lock()
	r.lastID = id
	r.mu.Unlock()
	return r.MemorySessionStore.Save(ctx, id, session)
}

func (r *recordingStore) LastID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastID
}

func newTestApp(t *testing.T, generator *pdfquiz.Generator, configure ...func(*ServerOptions)) *testApp {
	t.Helper()
	if generator == nil {
		generator = pdfquiz.NewGenerator(pdfquiz.GeneratorConfig{})
	}

	archive, err := pdfquiz.OpenArchive(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	require.NoError(t, archive.CreateTables())

	store := &recordingStore{MemorySessionStore: pdfquiz.NewMemorySessionStore()}
	opts := ServerOptions{
		Store:         store,
		Generator:     generator,
		Archive:       archive,
		SessionSecret: "test-secret-test-secret",
		MaxUploadMB:   5,
		QuestionTime:  30 * time.Second,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	srv, err := NewServer(opts)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		server:  ts,
		client:  &http.Client{Jar: jar},
		archive: archive,
		store:   store,
	}
}

// strandProcessing leaves the browser's session marked as generating, as if
// the request that set the flag died before clearing it
func (a *testApp) strandProcessing(t *testing.T) {
	t.Helper()
	a.get(t, "/")
	id := a.store.LastID()
	require.NotEmpty(t, id)

	ctx := context.Background()
	session, err := a.store.Load(ctx, id)
	require.NoError(t, err)
	_, err = session.BeginProcessing()
	require.NoError(t, err)
	require.NoError(t, a.store.Save(ctx, id, session))
}

// get fetches path and returns the final status, path and body
func (a *testApp) get(t *testing.T, path string) (int, string, string) {
	t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	return readResponse(t, resp)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) (int, string, string) {
	t.Helper()
	resp, err := a.client.PostForm(a.server.URL+path, form)
	require.NoError(t, err)
	return readResponse(t, resp)
}

func (a *testApp) upload(t *testing.T, filename string, data []byte) (int, string, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("document", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := a.client.Post(a.server.URL+"/upload", w.FormDataContentType(), &body)
	require.NoError(t, err)
	return readResponse(t, resp)
}

func readResponse(t *testing.T, resp *http.Response) (int, string, string) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Request.URL.Path, string(body)
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, nil)
	status, _, body := app.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)
}

func TestFullQuizFlow(t *testing.T) {
	app := newTestApp(t, nil)

	status, path, body := app.get(t, "/")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/", path)
	assert.Contains(t, body, `action="/upload"`)
	assert.Contains(t, body, "No OpenAI API key is configured")

	status, path, body = app.upload(t, "notes.pdf", pdftest.Build("Photosynthesis turns light into chemical energy."))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/summary", path)
	assert.Contains(t, body, "Summary of notes.pdf")
	for _, section := range pdfquiz.PlaceholderSummary() {
		assert.Contains(t, body, template.HTMLEscapeString(section.Title))
	}

	// the summary phase redirects away from the upload page
	_, path, _ = app.get(t, "/")
	assert.Equal(t, "/summary", path)

	status, path, body = app.post(t, "/quiz/generate", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/quiz", path)
	assert.Contains(t, body, "Question 1 of 10")

	questions := pdfquiz.PlaceholderQuestions()
	for i, q := range questions {
		status, path, body = app.post(t, "/quiz/answer", url.Values{
			"action": {"submit"},
			"option": {fmt.Sprint(q.CorrectAnswer)},
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, fmt.Sprintf("/quiz/review/%d", i+1), path)
		assert.Contains(t, body, "Your answer was correct.")
		if i < len(questions)-1 {
			assert.Contains(t, body, "Next Question")
		} else {
			assert.Contains(t, body, "View Results")
		}
	}

	status, path, body = app.get(t, "/results")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/results", path)
	assert.Contains(t, body, "Score: 10/10")
	assert.Contains(t, body, "100%")

	resp, err := app.client.Get(app.server.URL + "/results/report")
	require.NoError(t, err)
	assert.Equal(t, `attachment; filename="notes_summary_quiz.txt"`, resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	_, _, report := readResponse(t, resp)
	assert.True(t, strings.HasPrefix(report, "# Summary and Quiz Results for notes.pdf\n"))
	assert.Contains(t, report, "Score: 10/10 (100%)")

	attempts, err := app.archive.ListAttempts(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, 10, attempts[0].Correct)
	assert.Equal(t, report, attempts[0].Report)

	_, _, body = app.get(t, "/history")
	assert.Contains(t, body, "notes.pdf")
	assert.Contains(t, body, "10/10 (100%)")

	status, _, archived := app.get(t, "/history/"+attempts[0].ID+"/report")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, report, archived)

	status, path, body = app.post(t, "/results/restart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/quiz", path)
	assert.Contains(t, body, "Question 1 of 10")

	status, path, body = app.post(t, "/reset", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/", path)
	assert.Contains(t, body, `action="/upload"`)
}

func TestSkipAndTimeoutAdvance(t *testing.T) {
	app := newTestApp(t, nil)
	app.upload(t, "notes.pdf", pdftest.Build("text"))
	app.post(t, "/quiz/generate", nil)

	_, path, body := app.post(t, "/quiz/answer", url.Values{"action": {"skip"}})
	assert.Equal(t, "/quiz", path)
	assert.Contains(t, body, "Question 2 of 10")

	_, path, body = app.post(t, "/quiz/answer", url.Values{"action": {"timeout"}})
	assert.Equal(t, "/quiz", path)
	assert.Contains(t, body, "Question 3 of 10")

	// recorded answers can be reviewed, later questions cannot
	_, path, _ = app.get(t, "/quiz/review/1")
	assert.Equal(t, "/quiz/review/1", path)
	_, path, _ = app.get(t, "/quiz/review/5")
	assert.Equal(t, "/quiz", path)
}

func TestSkippedQuizFinishesWithZeroScore(t *testing.T) {
	app := newTestApp(t, nil)
	app.upload(t, "notes.pdf", pdftest.Build("text"))
	app.post(t, "/quiz/generate", nil)

	var path, body string
	for range pdfquiz.PlaceholderQuestions() {
		_, path, body = app.post(t, "/quiz/answer", url.Values{"action": {"skip"}})
	}
	assert.Equal(t, "/results", path)
	assert.Contains(t, body, "Score: 0/10")
	assert.Contains(t, body, "You skipped this question.")
}

func TestAnswerValidation(t *testing.T) {
	app := newTestApp(t, nil)
	app.upload(t, "notes.pdf", pdftest.Build("text"))
	app.post(t, "/quiz/generate", nil)

	status, _, _ := app.post(t, "/quiz/answer", url.Values{"option": {"7"}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _, _ = app.post(t, "/quiz/answer", url.Values{"action": {"submit"}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _, _ = app.post(t, "/quiz/answer", url.Values{"action": {"cheat"}})
	assert.Equal(t, http.StatusBadRequest, status)

	_, _, body := app.get(t, "/quiz")
	assert.Contains(t, body, "Question 1 of 10")
}

func TestUploadRejectsNonPDF(t *testing.T) {
	app := newTestApp(t, nil)

	status, _, body := app.upload(t, "notes.txt", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, msgNotPDF)
}

func TestUploadUnreadablePDF(t *testing.T) {
	app := newTestApp(t, nil)

	status, _, body := app.upload(t, "broken.pdf", []byte("%PDF-1.4 this is not really a pdf"))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, msgProcessingFail)

	// the session stays on the upload page and accepts a new file
	status, path, _ := app.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/", path)

	_, path, _ = app.upload(t, "good.pdf", pdftest.Build("readable"))
	assert.Equal(t, "/summary", path)
}

func TestActionsOutOfPhase(t *testing.T) {
	app := newTestApp(t, nil)

	status, _, _ := app.post(t, "/quiz/generate", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _, _ = app.post(t, "/results/restart", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _, _ = app.post(t, "/quiz/answer", url.Values{"option": {"0"}})
	assert.Equal(t, http.StatusConflict, status)

	for _, page := range []string{"/summary", "/quiz", "/results", "/results/report"} {
		_, path, _ := app.get(t, page)
		assert.Equal(t, "/", path, page)
	}

	app.upload(t, "notes.pdf", pdftest.Build("text"))
	status, _, _ = app.upload(t, "again.pdf", pdftest.Build("text"))
	assert.Equal(t, http.StatusConflict, status)
}

func TestHistoryReportNotFound(t *testing.T) {
	app := newTestApp(t, nil)
	status, _, _ := app.get(t, "/history/missing/report")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSessionsAreIsolated(t *testing.T) {
	app := newTestApp(t, nil)
	app.upload(t, "notes.pdf", pdftest.Build("text"))

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	other := &testApp{server: app.server, client: &http.Client{Jar: jar}}

	_, path, _ := other.get(t, "/")
	assert.Equal(t, "/", path)
	_, path, _ = app.get(t, "/")
	assert.Equal(t, "/summary", path)
}

// blockingOpenAI answers chat completions only after release is closed
func blockingOpenAI(t *testing.T, reply string) (*pdfquiz.Generator, <-chan struct{}, func()) {
	t.Helper()
	started := make(chan struct{}, 4)
	release := make(chan struct{})

	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(ai.Close)

	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	t.Cleanup(unblock)

	generator := pdfquiz.NewGenerator(pdfquiz.GeneratorConfig{
		APIKey:  "sk-test",
		BaseURL: ai.URL + "/v1",
		Timeout: 10 * time.Second,
	})
	return generator, started, unblock
}

func TestBusyAndAbandonedGeneration(t *testing.T) {
	generator, started, unblock := blockingOpenAI(t, "Topic\n- point")
	app := newTestApp(t, generator)
	app.get(t, "/")

	type result struct {
		status int
		path   string
	}
	first := make(chan result, 1)
	go func() {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		part, _ := w.CreateFormFile("document", "slow.pdf")
		part.Write(pdftest.Build("slow document"))
		w.Close()
		resp, err := app.client.Post(app.server.URL+"/upload", w.FormDataContentType(), &body)
		if err != nil {
			first <- result{}
			return
		}
		resp.Body.Close()
		first <- result{status: resp.StatusCode, path: resp.Request.URL.Path}
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("summary generation never started")
	}

	// a second upload while the first is in flight is rejected
	status, _, _ := app.upload(t, "other.pdf", pdftest.Build("other"))
	assert.Equal(t, http.StatusConflict, status)

	_, _, body := app.get(t, "/")
	assert.Contains(t, body, "Processing your PDF")

	// starting over abandons the in-flight summary
	_, path, _ := app.post(t, "/reset", nil)
	assert.Equal(t, "/", path)

	unblock()
	select {
	case res := <-first:
		assert.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, "/", res.path)
	case <-time.After(5 * time.Second):
		t.Fatal("upload never finished")
	}

	_, path, _ = app.get(t, "/summary")
	assert.Equal(t, "/", path, "the abandoned summary must not be shown")
}

func TestStrandedGenerationCanBeReset(t *testing.T) {
	app := newTestApp(t, nil)
	app.strandProcessing(t)

	status, _, body := app.get(t, "/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Processing your PDF")
	assert.Contains(t, body, `action="/reset"`)
	assert.NotContains(t, body, `action="/upload"`)

	status, _, _ = app.upload(t, "notes.pdf", pdftest.Build("notes"))
	assert.Equal(t, http.StatusConflict, status)

	_, path, body := app.post(t, "/reset", nil)
	assert.Equal(t, "/", path)
	assert.Contains(t, body, `action="/upload"`)

	status, path, _ = app.upload(t, "notes.pdf", pdftest.Build("notes"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/summary", path)
}

func TestStrandedGenerationExpires(t *testing.T) {
	app := newTestApp(t, nil, func(opts *ServerOptions) {
		opts.ProcessingTimeout = 20 * time.Millisecond
	})
	app.strandProcessing(t)

	_, _, body := app.get(t, "/")
	assert.Contains(t, body, "Processing your PDF")

	time.Sleep(50 * time.Millisecond)

	_, _, body = app.get(t, "/")
	assert.Contains(t, body, `action="/upload"`)

	status, path, _ := app.upload(t, "notes.pdf", pdftest.Build("notes"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/summary", path)
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	locks := newKeyedMutex()
	var mu sync.Mutex
	active, maxActive := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("same")
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Empty(t, locks.locks)
}
