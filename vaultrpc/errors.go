package vaultrpc

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

// errorDomain tags ErrorInfo details carrying a protocol.Kind.
const errorDomain = "creditvault"

var kindCodes = map[protocol.Kind]codes.Code{
	protocol.KindUnauthorized:       codes.PermissionDenied,
	protocol.KindFrozen:             codes.FailedPrecondition,
	protocol.KindInsufficientOwned:  codes.FailedPrecondition,
	protocol.KindInsufficientEscrow: codes.FailedPrecondition,
	protocol.KindExpired:            codes.FailedPrecondition,
	protocol.KindSaltNotFound:       codes.NotFound,
	protocol.KindNotFound:           codes.NotFound,
	protocol.KindTransferFailed:     codes.Aborted,
	protocol.KindReentrancy:         codes.Aborted,
	protocol.KindAddressMismatch:    codes.DataLoss,
	protocol.KindInvalidArgument:    codes.InvalidArgument,
	protocol.KindOverflow:           codes.InvalidArgument,
	protocol.KindConflict:           codes.AlreadyExists,
}

// mapErr converts an operation error into a gRPC status. Protocol errors keep
// their Kind in an ErrorInfo detail so the client can restore it exactly.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	kind := protocol.KindOf(err)
	code, ok := kindCodes[kind]
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	st := status.New(code, err.Error())
	if withKind, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: string(kind), Domain: errorDomain}); derr == nil {
		st = withKind
	}
	return st.Err()
}

// mapRPC converts a gRPC status back into a protocol error where possible.
func mapRPC(op string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == errorDomain {
			return &protocol.Error{Kind: protocol.Kind(info.GetReason()), Op: op, Message: st.Message()}
		}
	}
	switch st.Code() {
	case codes.PermissionDenied, codes.Unauthenticated:
		return protocol.Wrap(protocol.KindUnauthorized, op, st.Message(), err)
	case codes.InvalidArgument:
		return protocol.Wrap(protocol.KindInvalidArgument, op, st.Message(), err)
	case codes.NotFound:
		return protocol.Wrap(protocol.KindNotFound, op, st.Message(), err)
	case codes.AlreadyExists:
		return protocol.Wrap(protocol.KindConflict, op, st.Message(), err)
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}
	return err
}
