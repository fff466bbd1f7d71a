package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// OCREngine creates recognition workers. One worker serves one document-level
// OCR pass; workers are never shared across requests.
type OCREngine interface {
	// Available reports whether the engine can run in this build/host.
	Available() bool

	// Start spins up a worker configured for the given languages.
	Start(languages []string) (OCRWorker, error)
}

// OCRWorker recognizes text from encoded bitmap buffers. Implementations are
// not required to be safe for concurrent use; the pass serializes calls.
type OCRWorker interface {
	Recognize(image []byte) (string, error)
	Terminate() error
}

// LocalOCR wraps an OCR engine's lifecycle with a hard per-call timeout.
type LocalOCR struct {
	engine      OCREngine
	languages   []string
	pageTimeout time.Duration
}

// NewLocalOCR creates the local OCR tier adapter.
func NewLocalOCR(engine OCREngine, languages []string, pageTimeout time.Duration) *LocalOCR {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &LocalOCR{engine: engine, languages: languages, pageTimeout: pageTimeout}
}

// Available reports whether the underlying engine can start at all.
func (l *LocalOCR) Available() bool {
	return l.engine != nil && l.engine.Available()
}

// StartPass starts one worker for a document-level OCR pass. Callers must
// Close the pass on every exit path; Close guarantees worker teardown.
func (l *LocalOCR) StartPass() (*OCRPass, error) {
	if !l.Available() {
		return nil, fmt.Errorf("local OCR engine is not available")
	}

	worker, err := l.engine.Start(l.languages)
	if err != nil {
		return nil, fmt.Errorf("failed to start OCR worker: %w", err)
	}

	pass := &OCRPass{
		jobs:    make(chan ocrJob),
		timeout: l.pageTimeout,
	}

	// The worker loop owns the worker: it is terminated when the loop
	// drains, even if a caller abandoned a slow recognition.
	go func() {
		defer func() {
			if err := worker.Terminate(); err != nil {
				log.Warn().Err(err).Msg("OCR worker teardown failed")
			}
		}()
		for job := range pass.jobs {
			text, err := worker.Recognize(job.image)
			job.reply <- ocrReply{text: text, err: err}
		}
	}()

	return pass, nil
}

type ocrJob struct {
	image []byte
	reply chan ocrReply
}

type ocrReply struct {
	text string
	err  error
}

// OCRPass is a scoped worker: acquired once per document-level OCR pass and
// released on every exit path of that pass.
type OCRPass struct {
	jobs    chan ocrJob
	timeout time.Duration
	closed  bool
}

// Recognize races one recognition against the per-call timer; whichever
// resolves first wins. On timeout the in-progress recognition is abandoned
// (not awaited further) and ErrTimeout is returned for that page only.
func (p *OCRPass) Recognize(ctx context.Context, image []byte) (string, error) {
	job := ocrJob{image: image, reply: make(chan ocrReply, 1)}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case p.jobs <- job:
	case <-timer.C:
		return "", fmt.Errorf("%w: OCR worker busy past %s", ErrTimeout, p.timeout)
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}

	select {
	case reply := <-job.reply:
		if reply.err != nil {
			return "", fmt.Errorf("%w: %v", ErrProcessingFailed, reply.err)
		}
		return reply.text, nil
	case <-timer.C:
		return "", fmt.Errorf("%w: page recognition exceeded %s", ErrTimeout, p.timeout)
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
}

// Close releases the pass. The worker is torn down once any in-flight
// recognition finishes; no worker leaks across requests.
func (p *OCRPass) Close() {
	if p.closed {
		return
	}
	p.closed = true
	close(p.jobs)
}
