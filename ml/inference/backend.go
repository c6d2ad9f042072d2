package inference

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/johnhalbert/vr-project-backup-sub006/logging"
)

// BackendKind identifies the execution backend bound to an interpreter.
type BackendKind string

// Known backends.
const (
	BackendCPU     BackendKind = "cpu"
	BackendEdgeTPU BackendKind = "edgetpu"
)

// DelegateMode is the configured delegate policy.
type DelegateMode string

// Delegate policies. Auto and EdgeTPU both fall back to the CPU when the accelerator cannot be
// attached; None never tries a delegate.
const (
	DelegateAuto    DelegateMode = "auto"
	DelegateEdgeTPU DelegateMode = "edgetpu"
	DelegateNone    DelegateMode = "none"
)

// Validate checks the mode is one of the known policies. The empty mode means auto.
func (m DelegateMode) Validate() error {
	switch m {
	case "", DelegateAuto, DelegateEdgeTPU, DelegateNone:
		return nil
	default:
		return errors.Errorf("unknown delegate mode %q, expected one of %q, %q, %q",
			string(m), DelegateAuto, DelegateEdgeTPU, DelegateNone)
	}
}

// PlanBackends returns the ordered list of backends to try. The CPU is always last so that a
// failing accelerator degrades to CPU execution.
func PlanBackends(mode DelegateMode, edgeTPUSupported bool) []BackendKind {
	switch mode {
	case DelegateNone:
		return []BackendKind{BackendCPU}
	case DelegateEdgeTPU:
		return []BackendKind{BackendEdgeTPU, BackendCPU}
	default:
		if edgeTPUSupported {
			return []BackendKind{BackendEdgeTPU, BackendCPU}
		}
		return []BackendKind{BackendCPU}
	}
}

// BackendAttempt builds an interpreter bound to one backend.
type BackendAttempt struct {
	Kind  BackendKind
	Build func() (Interpreter, error)
}

// BuildWithFallback runs the attempts in order and returns the first interpreter that builds.
// Failures before the last attempt are logged as warnings. If every attempt fails the combined
// error is returned.
func BuildWithFallback(logger logging.Logger, attempts ...BackendAttempt) (Interpreter, error) {
	if len(attempts) == 0 {
		return nil, errors.New("no backends to try")
	}
	var errs error
	for i, attempt := range attempts {
		interp, err := attempt.Build()
		if err == nil {
			if i > 0 {
				logger.Infow("using fallback backend", "backend", attempt.Kind)
			}
			return interp, nil
		}
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", attempt.Kind, err))
		if i < len(attempts)-1 {
			logger.Warnw("backend unavailable, falling back",
				"backend", attempt.Kind, "next", attempts[i+1].Kind, "error", err)
		}
	}
	return nil, errs
}
