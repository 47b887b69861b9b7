// Package engine defines the contract the harness calls into: the
// Verification and Identification capability sets a pluggable recognition
// engine implements. The harness treats every concrete engine as an opaque
// black box — it never interprets descriptor bytes, only the ErrorCode each
// call returns.
package engine

import (
	"context"
	"fmt"

	"github.com/chervyakov/facebench"
)

// ErrorCode is the closed enumeration every engine operation returns.
type ErrorCode int

const (
	Success ErrorCode = iota
	ConfigError
	RefuseInput
	ExtractError
	ParseError
	TemplateCreationError
	VerifTemplateError
	FaceDetectionError
	NumDataError
	TemplateFormatError
	InitDirError
	InputLocationError
	MemoryError
	NotImplemented
	VendorError
)

func (c ErrorCode) String() string {
	switch c {
	case Success:
		return "Success"
	case ConfigError:
		return "ConfigError"
	case RefuseInput:
		return "RefuseInput"
	case ExtractError:
		return "ExtractError"
	case ParseError:
		return "ParseError"
	case TemplateCreationError:
		return "TemplateCreationError"
	case VerifTemplateError:
		return "VerifTemplateError"
	case FaceDetectionError:
		return "FaceDetectionError"
	case NumDataError:
		return "NumDataError"
	case TemplateFormatError:
		return "TemplateFormatError"
	case InitDirError:
		return "InitDirError"
	case InputLocationError:
		return "InputLocationError"
	case MemoryError:
		return "MemoryError"
	case NotImplemented:
		return "NotImplemented"
	case VendorError:
		return "VendorError"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error wraps a non-Success ErrorCode with diagnostic info (e.g. the
// offending image paths). Every harness stage that sees a non-Success,
// non-RefuseInput code treats it as fatal and surfaces Error via %w.
type Error struct {
	Code ErrorCode
	Info string
}

func (e *Error) Error() string {
	if e.Info == "" {
		return fmt.Sprintf("engine: %s", e.Code)
	}
	return fmt.Sprintf("engine: %s: %s", e.Code, e.Info)
}

// EyePair holds the two eye-center coordinates an engine may report
// alongside a created template. Diagnostic-only: never gates pass/fail.
type EyePair struct {
	LeftX, LeftY   float64
	RightX, RightY float64
}

// CreateResult is everything createTemplate may produce.
type CreateResult struct {
	Code     ErrorCode
	Template []byte
	Eyes     EyePair
	Quality  float64 // verification pipeline only; zero value for identification
}

// VerificationEngine is the 1:1 capability set.
type VerificationEngine interface {
	Initialize(ctx context.Context, configDir string) ErrorCode
	CreateTemplate(ctx context.Context, faces facebench.Multiface, role facebench.TemplateRole) CreateResult
	MatchTemplates(ctx context.Context, a, b []byte) (similarity float64, code ErrorCode)
	Train(ctx context.Context, configDir, trainedConfigDir string) ErrorCode
}

// IdentificationEngine is the 1:N capability set.
type IdentificationEngine interface {
	InitializeTemplateCreation(ctx context.Context, configDir string, role facebench.TemplateRole) ErrorCode
	CreateTemplate(ctx context.Context, faces facebench.Multiface, role facebench.TemplateRole) CreateResult
	FinalizeInit(ctx context.Context, configDir, initDir, edbFile, manifestFile string) ErrorCode
	InitializeIdentification(ctx context.Context, configDir, initDir string) ErrorCode
	IdentifyTemplate(ctx context.Context, template []byte, k int) (candidates []facebench.Candidate, decision bool, code ErrorCode)
	GalleryInsertID(ctx context.Context, template []byte, id string) ErrorCode
	GalleryDeleteID(ctx context.Context, id string) ErrorCode
}
