package simserver

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/state"
)

// ToStatusError maps simulation errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, state.ErrFieldNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidValue),
		errors.Is(err, field.ErrTypeMismatch):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, field.ErrNotWritable):
		return status.Error(codes.FailedPrecondition, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
