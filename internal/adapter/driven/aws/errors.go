package aws

import (
	"context"
	"errors"
	"net"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

var transientCodes = map[string]bool{
	"ThrottlingException":      true,
	"Throttling":               true,
	"LimitExceededException":   true,
	"TooManyRequestsException": true,
	"RequestLimitExceeded":     true,
	"ServiceUnavailable":       true,
	"InternalServerError":      true,
	"InternalErrorException":   true,
}

var permanentCodes = map[string]bool{
	"AccessDeniedException":       true,
	"UnrecognizedClientException": true,
	"ExpiredTokenException":       true,
	"ValidationException":         true,
	"InvalidNextTokenException":   true,
	"DataUnavailableException":    true,
	"BillExpirationException":     true,
	"RequestChangedException":     true,
	"InvalidParameterException":   true,
	"NotFoundException":           true,
}

// classifyError maps an SDK error to a pipeline error kind. A per-call
// timeout is transient; the caller's deadline is handled by the retry loop.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return types.NewTransientError(op, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case transientCodes[code]:
			return types.NewTransientError(op, err)
		case permanentCodes[code]:
			return types.NewPermanentError(op, err)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		switch {
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			return types.NewTransientError(op, err)
		case status >= http.StatusBadRequest:
			return types.NewPermanentError(op, err)
		}
	}

	if apiErr != nil && apiErr.ErrorFault() == smithy.FaultServer {
		return types.NewTransientError(op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return types.NewTransientError(op, err)
	}

	return types.NewPermanentError(op, err)
}
