package errors

import "errors"

var (
	ErrPolicyLoad       = errors.New("policy document could not be loaded")
	ErrPolicyValidation = errors.New("policy document failed validation")
	ErrPolicyNotLoaded  = errors.New("no policy set loaded")

	ErrUnknownCondition = errors.New("unknown condition type")

	ErrResourceNotFound   = errors.New("resource not found")
	ErrStoreUnavailable   = errors.New("data store unavailable")
	ErrInvalidCheckInput  = errors.New("invalid access check input")
	ErrAuditWriteFailed   = errors.New("audit write failed")
	ErrNotificationFailed = errors.New("notification dispatch failed")
)
