package dynamostore

import (
	"context"
	"errors"
	"strconv"
	"strings"

	apperrors "taskboard-core/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// classify maps a DynamoDB error onto the application error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var conditional *types.ConditionalCheckFailedException
	if errors.As(err, &conditional) {
		return apperrors.ConditionFailed(op, "conditional check failed", err)
	}

	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		if len(canceled.CancellationReasons) == 0 {
			return apperrors.Aborted(op, "transaction cancelled", err)
		}
		if reasons := conflictReasons(canceled); reasons != "" {
			return apperrors.Aborted(op, "transaction cancelled: "+reasons, err)
		}
		return apperrors.BackendUnavailable(op, err)
	}

	var conflict *types.TransactionConflictException
	if errors.As(err, &conflict) {
		return apperrors.ConditionFailed(op, "conflicting transaction in progress", err)
	}

	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return apperrors.BackendUnavailable(op, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.BackendUnavailable(op, err)
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ConditionalCheckFailedException":
			return apperrors.ConditionFailed(op, "conditional check failed", err)
		case "ValidationException":
			return apperrors.Invalid(op, ae.ErrorMessage())
		}
	}

	return apperrors.BackendUnavailable(op, err)
}

// conflictReasons lists the cancellation reasons that stem from a condition
// or a concurrent transaction, joined for the error message. It returns "" when
// the cancellation had some other cause.
func conflictReasons(e *types.TransactionCanceledException) string {
	var codes []string
	for i, r := range e.CancellationReasons {
		code := aws.ToString(r.Code)
		switch code {
		case "ConditionalCheckFailed", "TransactionConflict":
			codes = append(codes, "op "+strconv.Itoa(i)+" "+code)
		}
	}
	return strings.Join(codes, ", ")
}
