package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the persistence and sync layer.
type ErrorKind string

const (
	ErrKindValidation ErrorKind = "validation"
	ErrKindStorage    ErrorKind = "storage"
	ErrKindNetwork    ErrorKind = "network"
	ErrKindTimeout    ErrorKind = "timeout"
	ErrKindNotFound   ErrorKind = "not_found"
)

var (
	// ErrValidation is matched by bad user input. Such input is never persisted.
	ErrValidation = errors.New("validation failed")
	// ErrStorage is matched by local write or serialization failures.
	ErrStorage = errors.New("storage failure")
	// ErrNetwork is matched by remote transport failures.
	ErrNetwork = errors.New("network failure")
	// ErrTimeout is matched when a remote call exceeds its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrNotFound is matched by missing entities and by "no remote data yet".
	ErrNotFound = errors.New("not found")
)

var sentinels = map[ErrorKind]error{
	ErrKindValidation: ErrValidation,
	ErrKindStorage:    ErrStorage,
	ErrKindNetwork:    ErrNetwork,
	ErrKindTimeout:    ErrTimeout,
	ErrKindNotFound:   ErrNotFound,
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, sentinels[e.Kind])
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match an *Error against the sentinel of its kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func newError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, err error) error { return newError(ErrKindValidation, op, err) }
func Storage(op string, err error) error    { return newError(ErrKindStorage, op, err) }
func Network(op string, err error) error    { return newError(ErrKindNetwork, op, err) }
func Timeout(op string, err error) error    { return newError(ErrKindTimeout, op, err) }
func NotFound(op string, err error) error   { return newError(ErrKindNotFound, op, err) }

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	for kind, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return kind, true
		}
	}
	return "", false
}
