package v1_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	v1 "ocm.software/open-component-model/managerproxy/api/v1"
	"ocm.software/open-component-model/managerproxy/manager"
)

func TestStatusRoundTrip(t *testing.T) {
	tests := []struct {
		err    error
		code   codes.Code
		reason string
	}{
		{fmt.Errorf("%w: %q", manager.ErrUnknownIdentifier, "nonexistent-plugin"), codes.NotFound, v1.ReasonUnknownIdentifier},
		{fmt.Errorf("%w: garbage-handle", manager.ErrInvalidHandle), codes.FailedPrecondition, v1.ReasonInvalidHandle},
		{fmt.Errorf("%w: nested", manager.ErrInvalidSettings), codes.InvalidArgument, v1.ReasonInvalidSettings},
		{manager.ErrInstanceLimit, codes.ResourceExhausted, v1.ReasonInstanceLimit},
		{fmt.Errorf("stopped: %w", manager.ErrBackendUnavailable), codes.Unavailable, v1.ReasonBackendUnavailable},
		{fmt.Errorf("%w: boom", manager.ErrBackendFault), codes.Internal, v1.ReasonBackendFault},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			r := require.New(t)
			st := v1.Status(tt.err)
			r.Equal(tt.code, st.Code())
			r.Equal(tt.err.Error(), st.Message())
			r.Equal(tt.reason, v1.ReasonOf(st))

			remote := v1.FromError(st.Err())
			var sentinel error
			switch tt.reason {
			case v1.ReasonUnknownIdentifier:
				sentinel = manager.ErrUnknownIdentifier
			case v1.ReasonInvalidHandle:
				sentinel = manager.ErrInvalidHandle
			case v1.ReasonInvalidSettings:
				sentinel = manager.ErrInvalidSettings
			case v1.ReasonInstanceLimit:
				sentinel = manager.ErrInstanceLimit
			case v1.ReasonBackendUnavailable:
				sentinel = manager.ErrBackendUnavailable
			case v1.ReasonBackendFault:
				sentinel = manager.ErrBackendFault
			}
			r.ErrorIs(remote, sentinel)
			r.Equal(tt.code, status.Code(remote))
			r.Equal(tt.err.Error(), remote.Error())
		})
	}
}

func TestStatusOther(t *testing.T) {
	r := require.New(t)
	r.Equal(codes.OK, v1.Status(nil).Code())
	r.NoError(v1.Error(nil))
	r.Equal(codes.DeadlineExceeded, v1.Status(context.DeadlineExceeded).Code())
	r.Equal(codes.Canceled, v1.Status(fmt.Errorf("queued: %w", context.Canceled)).Code())
	r.Equal(codes.Unknown, v1.Status(errors.New("unclassified")).Code())

	existing := status.Error(codes.Aborted, "aborted")
	r.Equal(codes.Aborted, v1.Status(existing).Code())

	plain := v1.FromError(status.Error(codes.Unavailable, "connection refused"))
	r.False(errors.Is(plain, manager.ErrBackendUnavailable), "status without error info must not classify")
	r.Equal(codes.Unavailable, status.Code(plain))

	other := errors.New("local")
	r.Same(other, v1.FromError(other))
}
