package solver

import "fmt"

// Status describes where a solve stands. Programs should not rely on the
// underlying numeric values.
type Status int

const (
	Unset Status = iota
	Unconverged
	Converged
	// ConvergedDeltaFailure means the radius collapsed while the residual
	// already satisfied the tolerance.
	ConvergedDeltaFailure
	DeltaFailure
	MaxIterationsReached
	EvaluationFailure
)

var statuses = []struct {
	name      string
	converged bool
	terminal  bool
	err       error
}{
	{name: "unset"},
	{name: "unconverged"},
	{name: "converged", converged: true, terminal: true},
	{name: "converged-delta-failure", converged: true, terminal: true},
	{name: "delta-failure", terminal: true, err: ErrDeltaFailure},
	{name: "max-iterations", terminal: true, err: ErrMaxIterations},
	{name: "evaluation-failure", terminal: true, err: ErrEvaluation},
}

func (s Status) valid() bool { return s >= 0 && int(s) < len(statuses) }

func (s Status) String() string {
	if !s.valid() {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statuses[s].name
}

// Converged reports whether the final iterate satisfies the residual
// tolerance and may be used as a solution.
func (s Status) Converged() bool { return s.valid() && statuses[s].converged }

// Terminal reports whether the status ends a solve.
func (s Status) Terminal() bool { return s.valid() && statuses[s].terminal }

// Err returns the sentinel error for a failed solve, or nil.
func (s Status) Err() error {
	if !s.valid() {
		return nil
	}
	return statuses[s].err
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("solver: unknown status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus returns the status whose String form is name.
func ParseStatus(name string) (Status, error) {
	for i, st := range statuses {
		if st.name == name {
			return Status(i), nil
		}
	}
	return Unset, fmt.Errorf("solver: unknown status %q", name)
}

// Statuses lists every status in declaration order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	for i := range out {
		out[i] = Status(i)
	}
	return out
}
