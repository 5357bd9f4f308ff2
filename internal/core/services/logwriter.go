package services

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/melih/lighthouse-pipeline/internal/core/ports"
	"go.uber.org/zap"
)

// logWriter appends a deployment's output to the registry one complete line
// at a time. Partial lines are held until a newline or Flush.
type logWriter struct {
	mu       sync.Mutex
	registry ports.DeploymentRegistry
	id       string
	log      *zap.Logger
	pending  bytes.Buffer
}

func newLogWriter(registry ports.DeploymentRegistry, id string, log *zap.Logger) *logWriter {
	return &logWriter{registry: registry, id: id, log: log}
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending.Write(p)
	for {
		i := bytes.IndexByte(w.pending.Bytes(), '\n')
		if i < 0 {
			break
		}
		w.append(string(w.pending.Next(i + 1)))
	}
	return len(p), nil
}

// Printf writes one formatted chunk, flushing any partial line first.
func (w *logWriter) Printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
	w.append(fmt.Sprintf(format, args...))
}

func (w *logWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

func (w *logWriter) flushLocked() {
	if w.pending.Len() > 0 {
		w.append(w.pending.String())
		w.pending.Reset()
	}
}

func (w *logWriter) append(text string) {
	if err := w.registry.AppendLog(w.id, text); err != nil {
		w.log.Warn("failed to append deployment log", zap.Error(err))
	}
}
