package physic

import "fmt"

// Error is raised by translation when a logical node or predicate shape has
// no physical mapping, e.g. nested-loop join disabled with no hashable
// predicate to fall back on.
type Error struct {
	Stage   string
	Message string
}

func (self *Error) Error() string {
	return fmt.Sprintf("physic(%s): %s", self.Stage, self.Message)
}

func newErr(stage, f string, args ...interface{}) error {
	return &Error{Stage: stage, Message: fmt.Sprintf(f, args...)}
}
