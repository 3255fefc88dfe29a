package discount

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidArgument is returned when a rule, spec or basket violates an
	// invariant. Construction and validation failures always wrap it.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when a rule node id is absent on a required path.
	ErrNotFound = errors.New("not found")
)

// NotFoundError identifies the rule node that could not be found.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is makes NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Invalidf returns an error wrapping ErrInvalidArgument with the violated
// invariant as its message.
func Invalidf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
