package grpccas

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/rcf/storage"
)

// mapErr converts storage errors to gRPC status errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrInvalidCID), errors.Is(err, storage.ErrNotCanonical):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrCIDMismatch):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, storage.ErrImmutable):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// mapRPC converts a gRPC status error back to the storage sentinel it carries.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.InvalidArgument:
		// InvalidArgument covers both malformed CIDs and rejected non-canonical bytes.
		if msg := st.Message(); strings.HasPrefix(msg, storage.ErrNotCanonical.Error()) {
			detail := strings.TrimPrefix(strings.TrimPrefix(msg, storage.ErrNotCanonical.Error()), ": ")
			if detail == "" {
				return storage.ErrNotCanonical
			}
			return fmt.Errorf("%w: %s", storage.ErrNotCanonical, detail)
		}
		return storage.ErrInvalidCID
	case codes.DataLoss:
		return storage.ErrCIDMismatch
	case codes.AlreadyExists:
		return storage.ErrImmutable
	default:
		return err
	}
}
