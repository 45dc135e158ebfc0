package pdfquiz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TranscriptLogger records every LLM interaction for one uploaded document
type TranscriptLogger struct {
	file  *os.File
	mu    sync.Mutex
	docID string
}

// NewTranscriptLogger creates <dir>/<docID>.log and writes its header
func NewTranscriptLogger(dir, docID, documentName string, textLength int) (*TranscriptLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", docID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	tl := &TranscriptLogger{
		file:  file,
		docID: docID,
	}

	tl.Logf("=== Document Transcript ===\n")
	tl.Logf("Document ID: %s\n", docID)
	tl.Logf("Document: %s\n", documentName)
	tl.Logf("Extracted Text Length: %d characters\n", textLength)
	tl.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	tl.Logf("========================\n\n")

	return tl, nil
}

// Logf writes a formatted log entry with timestamp
func (tl *TranscriptLogger) Logf(format string, args ...interface{}) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.logf(format, args...)
}

func (tl *TranscriptLogger) logf(format string, args ...interface{}) {
	if tl.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(tl.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	tl.file.Sync()
}

// LogLLMRequest logs an LLM request
func (tl *TranscriptLogger) LogLLMRequest(module, prompt string) {
	tl.Logf("=== LLM REQUEST (%s) ===\n", module)
	tl.Logf("Prompt:\n%s\n", prompt)
	tl.Logf("=====================\n\n")
}

// LogLLMResponse logs an LLM response
func (tl *TranscriptLogger) LogLLMResponse(module, response string) {
	tl.Logf("=== LLM RESPONSE (%s) ===\n", module)
	tl.Logf("Response:\n%s\n", response)
	tl.Logf("======================\n\n")
}

// LogFallback records that placeholder content replaced the live result
func (tl *TranscriptLogger) LogFallback(module, reason string) {
	tl.Logf("%s: using placeholder data - %s\n", module, reason)
}

// Close writes the footer and closes the file
func (tl *TranscriptLogger) Close() error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.file == nil {
		return nil
	}
	tl.logf("=== Transcript Complete ===\n")
	tl.logf("Completed: %s\n", time.Now().Format(time.RFC3339))
	err := tl.file.Close()
	tl.file = nil
	return err
}

type transcriptKey struct{}

// WithTranscript attaches a transcript logger to ctx
func WithTranscript(ctx context.Context, tl *TranscriptLogger) context.Context {
	if tl == nil {
		return ctx
	}
	return context.WithValue(ctx, transcriptKey{}, tl)
}

// TranscriptFrom returns the transcript logger attached to ctx, if any
func TranscriptFrom(ctx context.Context) *TranscriptLogger {
	tl, _ := ctx.Value(transcriptKey{}).(*TranscriptLogger)
	return tl
}
