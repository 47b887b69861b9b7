// Package onnx sketches how a real recognition engine would plug into
// internal/engine's VerificationEngine/IdentificationEngine contracts using
// an ONNX Runtime session per template-creation/identification role.
//
// It is not a concrete recognition implementation: session construction is
// abstracted behind the Session interface and a caller-supplied
// SessionFactory, so this package compiles and is exercised without linking
// against an actual ONNX Runtime build. A real deployment supplies its own
// Session (typically backed by onnxruntime_go.Session) via New.
package onnx

import (
	"context"
	"fmt"
)

// Backend selects the ONNX Runtime execution provider.
type Backend int

const (
	BackendAuto Backend = iota
	BackendCPU
	BackendCUDA
)

func (b Backend) String() string {
	switch b {
	case BackendCPU:
		return "cpu"
	case BackendCUDA:
		return "cuda"
	default:
		return "auto"
	}
}

// Config configures the ONNX-backed engine adapter.
type Config struct {
	Backend     Backend
	ModelPath   string
	DeviceIndex int
	NumThreads  int
}

// DefaultConfig returns a Config with auto backend selection and an
// unbounded thread count (ONNX Runtime's own default).
func DefaultConfig() Config {
	return Config{Backend: BackendAuto, DeviceIndex: 0, NumThreads: 0}
}

// Session is the minimal surface this adapter needs from an ONNX Runtime
// session: running a named graph over a flat float32 input tensor.
type Session interface {
	Run(ctx context.Context, graph string, input []float32) (output []float32, err error)
	Close() error
}

// SessionFactory constructs a Session for a given model path; production
// code supplies one backed by a real ONNX Runtime binding.
type SessionFactory func(modelPath string, backend Backend, deviceIndex, numThreads int) (Session, error)

// Adapter lazily constructs one Session per graph name (detector,
// recognizer, landmark) the first time it's needed.
type Adapter struct {
	cfg     Config
	factory SessionFactory

	sessions map[string]Session
}

// New returns an Adapter that will use factory to build sessions on demand.
func New(cfg Config, factory SessionFactory) *Adapter {
	return &Adapter{cfg: cfg, factory: factory, sessions: make(map[string]Session)}
}

// Session returns (creating if needed) the session for the given graph
// name.
func (a *Adapter) Session(graph string) (Session, error) {
	if s, ok := a.sessions[graph]; ok {
		return s, nil
	}
	if a.factory == nil {
		return nil, fmt.Errorf("onnx: no session factory configured for graph %q", graph)
	}
	s, err := a.factory(a.cfg.ModelPath, a.cfg.Backend, a.cfg.DeviceIndex, a.cfg.NumThreads)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session for graph %q: %w", graph, err)
	}
	a.sessions[graph] = s
	return s, nil
}

// Close releases every session this adapter has created.
func (a *Adapter) Close() error {
	var firstErr error
	for _, s := range a.sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.sessions = make(map[string]Session)
	return firstErr
}
