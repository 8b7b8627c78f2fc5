package pipeline

import "fmt"

// PreconditionError reports a missing toolchain dependency, naming
// exactly the piece that was not found so the failure detail points the
// user at the right install step.
type PreconditionError struct {
	Name string
	Path string
}

func (e *PreconditionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s not found", e.Name)
	}
	return fmt.Sprintf("%s not found at %s", e.Name, e.Path)
}
