package v1

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ocm.software/open-component-model/managerproxy/manager"
)

// ErrorDomain is the domain of every errdetails.ErrorInfo attached by the service.
const ErrorDomain = "managerproxy.ocm.software"

const (
	ReasonUnknownIdentifier  = "UNKNOWN_IDENTIFIER"
	ReasonInvalidHandle      = "INVALID_HANDLE"
	ReasonBackendFault       = "BACKEND_FAULT"
	ReasonInvalidSettings    = "INVALID_SETTINGS"
	ReasonInstanceLimit      = "INSTANCE_LIMIT"
	ReasonBackendUnavailable = "BACKEND_UNAVAILABLE"
)

type reason struct {
	err    error
	code   codes.Code
	reason string
}

// reasons is ordered by precedence: the first matching sentinel classifies an error.
var reasons = []reason{
	{manager.ErrUnknownIdentifier, codes.NotFound, ReasonUnknownIdentifier},
	{manager.ErrInvalidHandle, codes.FailedPrecondition, ReasonInvalidHandle},
	{manager.ErrBackendUnavailable, codes.Unavailable, ReasonBackendUnavailable},
	{manager.ErrBackendFault, codes.Internal, ReasonBackendFault},
	{manager.ErrInvalidSettings, codes.InvalidArgument, ReasonInvalidSettings},
	{manager.ErrInstanceLimit, codes.ResourceExhausted, ReasonInstanceLimit},
}

// Status converts err into a gRPC status carrying an errdetails.ErrorInfo with the reason of err.
// Errors of unknown kind become codes.Unknown, context errors keep their canonical codes.
func Status(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if st, ok := status.FromError(err); ok {
		return st
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			st := status.New(r.code, err.Error())
			detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
				Reason: r.reason,
				Domain: ErrorDomain,
			})
			if derr != nil {
				return st
			}
			return detailed
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err)
	}
	return status.New(codes.Unknown, err.Error())
}

// Error is Status(err).Err().
func Error(err error) error {
	if err == nil {
		return nil
	}
	return Status(err).Err()
}

// ReasonOf returns the ErrorInfo reason attached to st, if it belongs to ErrorDomain.
func ReasonOf(st *status.Status) string {
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info.GetReason()
		}
	}
	return ""
}

// RemoteError is an error received from the service.
// It unwraps to the status error and, if the reason is known, to the matching manager sentinel.
type RemoteError struct {
	status   *status.Status
	sentinel error
}

func (e *RemoteError) Error() string {
	return e.status.Message()
}

func (e *RemoteError) Unwrap() []error {
	if e.sentinel == nil {
		return []error{e.status.Err()}
	}
	return []error{e.sentinel, e.status.Err()}
}

// GRPCStatus makes RemoteError compatible with status.FromError.
func (e *RemoteError) GRPCStatus() *status.Status {
	return e.status
}

// FromError converts an error returned by a ManagerProxyClient into a RemoteError so callers can
// classify it with errors.Is against the manager sentinels. Errors without a status are returned as is.
func FromError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	remote := &RemoteError{status: st}
	if r := ReasonOf(st); r != "" {
		for _, known := range reasons {
			if known.reason == r {
				remote.sentinel = known.err
				break
			}
		}
	}
	return remote
}
