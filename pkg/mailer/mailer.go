package mailer

import (
	"context"
	"errors"
	"fmt"
)

// Message is one outbound email.
type Message struct {
	To       string
	ToName   string
	From     string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers a single message. Implementations distinguish
// permanent rejections from transient transport failures via
// PermanentError.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// PermanentError marks a delivery failure that retrying cannot fix
// (rejected recipient, malformed message).
type PermanentError struct {
	Err error
}

// Error implements error.
func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent mail failure"
	}
	return fmt.Sprintf("permanent mail failure: %v", e.Err)
}

// Unwrap exposes the wrapped error.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err is a PermanentError.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}
