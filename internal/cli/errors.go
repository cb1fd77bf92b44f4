package cli

import (
	"errors"
	"fmt"
)

// ErrUsage marks errors caused by bad invocations rather than failed
// work. main exits with a distinct status for these.
var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

// usagef builds a formatted usage error.
func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}
