package models

import (
	"errors"
	"fmt"
)

var (
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrDataInconsistency    = errors.New("data inconsistency")
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
)

// UpstreamError is a network or HTTP failure talking to an upstream API
type UpstreamError struct {
	Service    string
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Service, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// NotFoundError reports a resource missing from data that should contain it
type NotFoundError struct {
	Resource string
	ID       int
	Detail   string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %d not found", e.Resource, e.ID)
	if e.Detail != "" {
		msg += " " + e.Detail
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == ErrDataInconsistency
}

// InvalidInputError is a malformed identifier or parameter
type InvalidInputError struct {
	Field string
	Value any
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}
