// Package service holds the reservation core: the seat allocator, the
// showtime scheduler and the reservation lifecycle, plus the catalogue and
// admin operations around them.  Every exported operation returns either
// nil or an *Error whose Kind tells the HTTP layer how to respond.
package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidRequest
	KindNotFound
	KindConflict
	KindInvalidState
	KindForbidden
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindForbidden:
		return "forbidden"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Error is the typed error returned by service operations.  SeatIDs lists
// the offending seats of an invalid or conflicting allocation; Overlaps
// lists the showtimes a schedule change collided with.
type Error struct {
	Kind     Kind
	Message  string
	SeatIDs  []uint64
	Overlaps []model.Showtime
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrConflict)
// works regardless of message or details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidRequest = &Error{Kind: KindInvalidRequest}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrInvalidState   = &Error{Kind: KindInvalidState}
	ErrForbidden      = &Error{Kind: KindForbidden}
	ErrTransient      = &Error{Kind: KindTransient}
	ErrInternal       = &Error{Kind: KindInternal}
)

func invalidRequest(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// MySQL error numbers that signal a retryable condition.
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// isTransient reports lock timeouts, deadlocks, dropped connections and
// expired deadlines.  The whole operation can be retried by the client.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout
	}
	return false
}

// classify wraps an unexpected storage error.  Errors that already carry
// a Kind pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if isTransient(err) {
		return &Error{Kind: KindTransient, Message: op + ": temporarily unavailable, retry", Err: err}
	}
	return &Error{Kind: KindInternal, Message: op, Err: err}
}
