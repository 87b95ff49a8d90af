package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/minio/minio-go/v7"
	"gocloud.dev/gcerrors"
)

// ErrBucketNotFound is returned when the configured bucket does not exist
var ErrBucketNotFound = errors.New("bucket not found")

// errorCode extracts the provider error code from MinIO or AWS errors
func errorCode(err error) (code, message string, ok bool) {
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) && minioErr.Code != "" {
		return minioErr.Code, minioErr.Message, true
	}

	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code(), aerr.Message(), true
	}

	return "", "", false
}

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrBucketNotFound) {
		return true
	}

	if code, _, ok := errorCode(err); ok {
		switch code {
		case "NoSuchBucket", "NoSuchKey", "NotFound":
			return true
		}
	}

	if gcerrors.Code(err) == gcerrors.NotFound {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "not found") || strings.Contains(errStr, "no such")
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	if code, _, ok := errorCode(err); ok {
		switch code {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AuthorizationHeaderMalformed":
			return true
		}
	}

	if gcerrors.Code(err) == gcerrors.PermissionDenied {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "invalid credential") ||
		strings.Contains(errStr, "permission denied")
}

// FormatError formats an error for display
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	if code, msg, ok := errorCode(err); ok {
		return fmt.Sprintf("S3 error: %s (code: %s)", msg, code)
	}

	return err.Error()
}
