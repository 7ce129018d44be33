package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrAssessmentNotFound   = errors.New("assessment not found")
	ErrDraftNotFound        = errors.New("draft not found")
	ErrAlreadySubmitted     = errors.New("assessment already submitted")
	ErrAssessmentIncomplete = errors.New("all steps must be completed before submission")
	ErrInvalidStepNumber    = errors.New("step number must be between 1 and 5")
)
