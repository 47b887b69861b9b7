// Package facebench provides the core data model for a benchmarking harness
// for biometric (face) recognition engines.
//
// A recognition engine is a pluggable implementation exposing Verification
// (1:1 template matching) and Identification (1:N gallery search) capability
// sets (see internal/engine). The harness drives such an engine through an
// end-to-end pipeline — feature extraction, gallery build/match, accuracy
// metrics — over list-driven datasets, and reports timing statistics plus
// ROC / True-Positive-Identification-Rate curves.
//
// This package holds the types shared across every stage of the pipeline:
// Image, Multiface and TemplateRole. The stages themselves live under
// internal/ (timer, metric, binio, inputlist, extractor, verifdriver,
// identdriver) and are wired together by the cmd/facebench-verify and
// cmd/facebench-identify executables.
package facebench
