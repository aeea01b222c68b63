package service

import "errors"

// Not-found errors, surfaced as 404 by the handlers.
var (
	ErrBaseTestNotFound    = errors.New("base test not found")
	ErrTestNotFound        = errors.New("test not found")
	ErrSectionNotFound     = errors.New("section not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrSubQuestionNotFound = errors.New("sub-question not found")
	ErrMetricNotFound      = errors.New("metric not found")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrStudentNotFound     = errors.New("student not found")
	ErrNoActiveVersion     = errors.New("no active version for base test")
)

// Invalid-state errors: the operation is not legal in the entity's
// current lifecycle state.
var (
	ErrTestPublished      = errors.New("test is published and can no longer be edited")
	ErrTestNotPublished   = errors.New("only published tests can be activated or deactivated")
	ErrPublishConflict    = errors.New("test is no longer in draft")
	ErrSourceNotPublished = errors.New("only published tests can be versioned")
	ErrTestNotAvailable   = errors.New("test is not available for attempts")
	ErrAttemptFinalized   = errors.New("attempt is already finalized")
)

// Validation errors: malformed input the caller can correct and resend.
var (
	ErrEmptyTest          = errors.New("cannot publish a test without at least one section and question")
	ErrAnswerTypeMismatch = errors.New("answer payload does not match the question's answer type")
	ErrScaleOutOfRange    = errors.New("scale value must be between 1 and 7")
)

// Conflict errors: referential integrity the caller must resolve.
var (
	ErrMetricInUse           = errors.New("metric is referenced by a published test")
	ErrMetricCodeTaken       = errors.New("metric code already exists in this base test")
	ErrCrossFamilyMetric     = errors.New("metric belongs to a different base test family")
	ErrQuestionHasAnswers    = errors.New("question has recorded answers and cannot be deleted")
	ErrSectionHasAnswers     = errors.New("section has recorded answers and cannot be deleted")
	ErrSectionNotInTest      = errors.New("section does not belong to this test")
	ErrQuestionNotInTest     = errors.New("question does not belong to this test")
	ErrSubQuestionMismatch   = errors.New("sub-question does not belong to this question")
	ErrVersionFamilyMismatch = errors.New("source test does not belong to this base test")
)

// ErrAttemptForbidden rejects callers acting on attempts they do not own.
var ErrAttemptForbidden = errors.New("attempt belongs to another student")
