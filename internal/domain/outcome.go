package domain

import (
	"errors"
	"fmt"
)

type FailureReason string

const (
	ReasonToolNotFound     FailureReason = "tool_not_found"
	ReasonToolExit         FailureReason = "tool_exit"
	ReasonToolTimeout      FailureReason = "tool_timeout"
	ReasonOutputMissing    FailureReason = "output_missing"
	ReasonTransform        FailureReason = "transform"
	ReasonDownload         FailureReason = "download"
	ReasonUpload           FailureReason = "upload"
	ReasonUnsupported      FailureReason = "unsupported"
	ReasonAlreadyConverted FailureReason = "already_converted"
)

// Failure is the error half of an Outcome.
type Failure struct {
	Reason FailureReason
	Err    error
}

func NewFailure(reason FailureReason, err error) *Failure {
	return &Failure{Reason: reason, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ReasonOf extracts the failure reason carried by err, defaulting to transform.
func ReasonOf(err error) FailureReason {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ReasonTransform
}

// Outcome is either a Success carrying a result or a Failure carrying a reason.
type Outcome struct {
	Result  *ConversionResult
	Failure *Failure
}

func Succeeded(result ConversionResult) Outcome {
	return Outcome{Result: &result}
}

func Failed(reason FailureReason, err error) Outcome {
	return Outcome{Failure: NewFailure(reason, err)}
}

// FailedWith wraps err into a failed Outcome, keeping any reason it already carries.
func FailedWith(err error) Outcome {
	var f *Failure
	if errors.As(err, &f) {
		return Outcome{Failure: f}
	}
	return Failed(ReasonTransform, err)
}

func (o Outcome) OK() bool {
	return o.Result != nil
}

// Status maps the outcome onto a ledger status.
func (o Outcome) Status() ConversionStatus {
	switch {
	case o.OK():
		return StatusConverted
	case o.Failure.Reason == ReasonUnsupported:
		return StatusUnsupported
	case o.Failure.Reason == ReasonAlreadyConverted:
		return StatusSkipped
	default:
		return StatusFailed
	}
}
