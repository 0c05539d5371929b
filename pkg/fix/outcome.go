package fix

import (
	"fmt"

	"github.com/sw33tLie/wphttp/pkg/scan"
)

// FailureKind says why a record was left unwritten.
type FailureKind int

const (
	// FailureWrite is a write the store refused.
	FailureWrite FailureKind = iota
	// FailureUnparseable is a value holding parts that cannot be rewritten safely.
	FailureUnparseable
	// FailurePrecondition is a record that changed between read and write.
	FailurePrecondition
)

func (k FailureKind) String() string {
	switch k {
	case FailureWrite:
		return "write failed"
	case FailureUnparseable:
		return "unparseable value"
	case FailurePrecondition:
		return "changed concurrently"
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

type Failure struct {
	Kind   scan.Kind
	Record string
	Reason FailureKind
	Err    error
}

func (f Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s %s: %s", f.Kind, f.Record, f.Reason)
	}
	return fmt.Sprintf("%s %s: %s: %v", f.Kind, f.Record, f.Reason, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Outcome counts what a replacement did. Failed records were not written.
type Outcome struct {
	Attempted    int       `json:"attempted" yaml:"attempted"`
	Fixed        int       `json:"fixed" yaml:"fixed"`
	AlreadyFixed int       `json:"already_fixed" yaml:"already_fixed"`
	Failed       int       `json:"failed" yaml:"failed"`
	Failures     []Failure `json:"-" yaml:"-"`
}

func (o Outcome) Errors() []string {
	out := make([]string, 0, len(o.Failures))
	for _, f := range o.Failures {
		out = append(out, f.Error())
	}
	return out
}

func (o *Outcome) merge(other Outcome) {
	o.Attempted += other.Attempted
	o.Fixed += other.Fixed
	o.AlreadyFixed += other.AlreadyFixed
	o.Failed += other.Failed
	o.Failures = append(o.Failures, other.Failures...)
}

func (o *Outcome) fail(f Failure) {
	o.Failed++
	o.Failures = append(o.Failures, f)
}
