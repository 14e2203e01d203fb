// Package metrics provides a small instrumentation surface with a no-op
// default and a Prometheus-backed implementation.
package metrics

import (
	"sync"
	"time"
)

// Recorder defines the metrics surface used across the codebase.
type Recorder interface {
	ObserveStoreOp(store, op string, success bool, seconds float64)
	ObserveEmbedding(provider string, success bool, seconds float64)
	ObserveHTTPRequest(method, route string, status int, seconds float64)
	ObserveTool(tool string, success bool, seconds float64)
}

type noopRecorder struct{}

func (noopRecorder) ObserveStoreOp(string, string, bool, float64)     {}
func (noopRecorder) ObserveEmbedding(string, bool, float64)           {}
func (noopRecorder) ObserveHTTPRequest(string, string, int, float64) {}
func (noopRecorder) ObserveTool(string, bool, float64)                {}

var (
	recMu    sync.RWMutex
	recorder Recorder = noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder. A nil recorder restores the no-op.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	if r == nil {
		r = noopRecorder{}
	}
	recorder = r
}

// TimeStoreOp times one graph or vector store operation.
func TimeStoreOp(store, op string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		Default().ObserveStoreOp(store, op, success, time.Since(start).Seconds())
	}
}

// TimeEmbedding times one embedding call.
func TimeEmbedding(provider string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		Default().ObserveEmbedding(provider, success, time.Since(start).Seconds())
	}
}

// TimeTool times one MCP tool handler.
func TimeTool(tool string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		Default().ObserveTool(tool, success, time.Since(start).Seconds())
	}
}
