/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an object is not found
	ErrNotFound = errors.New("object not found")

	// ErrAlreadyExists is returned when attempting to insert an object that already exists
	ErrAlreadyExists = errors.New("object already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrNoIndexMap is returned when no index map is found for a type
	ErrNoIndexMap = errors.New("no index map found for type")

	// ErrInvariantViolation marks a broken identity-map invariant. It is never
	// a normal outcome and must abort the operation that produced it.
	ErrInvariantViolation = errors.New("identity map invariant violated")

	// ErrDuplicateKey is returned when a key is registered twice for one type
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrUnmanagedType is returned when an operation requires a managed type
	ErrUnmanagedType = errors.New("type is not managed")

	// ErrStorage matches every StorageError
	ErrStorage = errors.New("storage failure")
)

// NotFoundError represents an error when an object is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an object already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// InvariantViolationError reports an identity-map registration that would
// give one (type, key) pair two instances, or one instance two keys.
type InvariantViolationError struct {
	Type   string
	Key    string
	Reason error
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("identity map invariant violated for %s with key %q: %v", e.Type, e.Key, e.Reason)
}

func (e *InvariantViolationError) Is(target error) bool {
	return target == ErrInvariantViolation
}

func (e *InvariantViolationError) Unwrap() error {
	return e.Reason
}

// UnmanagedTypeError reports a type outside the managed set
type UnmanagedTypeError struct {
	Type string
}

func (e *UnmanagedTypeError) Error() string {
	return fmt.Sprintf("type %s is not managed", e.Type)
}

func (e *UnmanagedTypeError) Is(target error) bool {
	return target == ErrUnmanagedType
}

// StorageError wraps a failure reported by a storage backend. The wrapped
// error stays reachable through errors.Is and errors.As.
type StorageError struct {
	Operation string
	Type      string
	Err       error
}

func (e *StorageError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("storage %s for %s: %v", e.Operation, e.Type, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Operation, e.Err)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(objectType, key string) error {
	return &NotFoundError{Type: objectType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(objectType, key string) error {
	return &AlreadyExistsError{Type: objectType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewDuplicateKeyError creates an InvariantViolationError caused by ErrDuplicateKey
func NewDuplicateKeyError(objectType, key string) error {
	return &InvariantViolationError{Type: objectType, Key: key, Reason: ErrDuplicateKey}
}

// NewInvariantViolationError creates an InvariantViolationError with a custom reason
func NewInvariantViolationError(objectType, key string, reason error) error {
	return &InvariantViolationError{Type: objectType, Key: key, Reason: reason}
}

// NewUnmanagedTypeError creates a new UnmanagedTypeError
func NewUnmanagedTypeError(objectType string) error {
	return &UnmanagedTypeError{Type: objectType}
}

// NewStorageError wraps err as a StorageError. A nil err yields nil.
func NewStorageError(operation, objectType string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Operation: operation, Type: objectType, Err: err}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsInvariantViolation checks if an error reports a broken identity map
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// IsDuplicateKey checks if an error was caused by a duplicate registration
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsUnmanagedType checks if an error is an unmanaged type error
func IsUnmanagedType(err error) bool {
	return errors.Is(err, ErrUnmanagedType)
}

// IsStorageError checks if an error came from a storage backend
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorage)
}
