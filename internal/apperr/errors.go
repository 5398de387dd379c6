// Package apperr defines the sentinel errors shared across Clawfable layers.
package apperr

import "errors"

var (
	// ErrNotFound reports a missing artifact, doc, or agent profile.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnconfigured reports that no KV credentials could be resolved.
	// Fatal for writes; reads degrade to the disk fallback instead.
	ErrStoreUnconfigured = errors.New("content store is not configured")

	// ErrDuplicateArtifact reports a create or fork targeting an occupied slug.
	ErrDuplicateArtifact = errors.New("artifact already exists; use revise")

	// ErrMissingTarget reports a revise or fork referencing a nonexistent artifact.
	ErrMissingTarget = errors.New("target artifact does not exist; use create")

	// ErrSectionMismatch reports a fork whose source lives in another section.
	ErrSectionMismatch = errors.New("fork source must be in the same section")

	// ErrUnsupportedSection reports a section outside the recognized set.
	ErrUnsupportedSection = errors.New("unsupported section")

	// ErrInvalidSlug reports an empty or malformed slug.
	ErrInvalidSlug = errors.New("invalid slug")

	// ErrInvalidToken reports a claim token that does not match the stored one.
	ErrInvalidToken = errors.New("invalid claim token")

	// ErrExpiredToken reports a claim token past its 24-hour window.
	ErrExpiredToken = errors.New("expired claim token")
)
