// Package errors provides structured error handling with error codes for devicelimit.
//
// Login rejections, admin API failures and validation problems are all reported as
// *Error values carrying an ErrorCode, so HTTP handlers can map them to a status code
// and the login pipeline can tell a device-limit rejection apart from a mail failure.
//
// # Basic Usage
//
//	import "github.com/tendant/devicelimit/pkg/errors"
//
//	err := errors.New(errors.ErrCodeInvalidInput, "device_id is required")
//	err := errors.Wrap(sendErr, errors.ErrCodeEmailDeliveryFailed, "could not send code")
//
//	if errors.IsCode(err, errors.ErrCodeDeviceLimitReached) {
//		// show the fixed limit message
//	}
//
//	status := errors.MapErrorCodeToHTTPStatus(errors.GetCode(err))
package errors
