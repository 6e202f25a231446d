package mergecfg

import (
	"errors"
	"fmt"
)

var errEmptyNamespace = errors.New("namespace must not be empty")

// StructuralError reports a source document (or the shared output document)
// missing a required section or carrying one with the wrong shape. It is
// fatal: the merge has no partial-success mode.
type StructuralError struct {
	Namespace string
	Section   string
	Reason    string
}

func (e *StructuralError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("invalid document structure: %s: %s", e.Section, e.Reason)
	}
	return fmt.Sprintf("namespace %q: invalid document structure: %s: %s", e.Namespace, e.Section, e.Reason)
}

// IdentityConflictError reports two remote sources declaring the same
// namespace for provider registration.
type IdentityConflictError struct {
	Namespace string
}

func (e *IdentityConflictError) Error() string {
	return fmt.Sprintf("provider name conflict: namespace %q already registered", e.Namespace)
}

// MissingPrerequisiteError reports aggregation running before the group it
// builds on exists. This signals a call-ordering bug, not bad input data.
type MissingPrerequisiteError struct {
	Group string
}

func (e *MissingPrerequisiteError) Error() string {
	return fmt.Sprintf("prerequisite group %q does not exist yet", e.Group)
}
