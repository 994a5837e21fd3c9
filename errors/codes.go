package errors

// ErrorCode is a stable, string-based identifier for a failure, suitable for
// JSON responses and log aggregation.
type ErrorCode string

const (
	// CodeNotFound indicates a source object or compose input does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeRateLimit indicates the destination rate limit has been exceeded.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeSourceRead indicates the source stream could not be read.
	CodeSourceRead ErrorCode = "SOURCE_READ_FAILED"

	// CodeComposeFailed indicates a compose operation failed.
	CodeComposeFailed ErrorCode = "COMPOSE_FAILED"

	// CodeUploadFailed indicates a fragment upload failed.
	CodeUploadFailed ErrorCode = "UPLOAD_FAILED"

	// CodeCanceled indicates the operation was canceled by the caller.
	CodeCanceled ErrorCode = "CANCELED"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

func codeForKind(k Kind) ErrorCode {
	switch k {
	case KindSourceRead:
		return CodeSourceRead
	case KindRateLimitExhausted:
		return CodeRateLimit
	case KindComposeFailed:
		return CodeComposeFailed
	case KindConfiguration:
		return CodeInvalidConfig
	case KindUploadFailed:
		return CodeUploadFailed
	case KindCanceled:
		return CodeCanceled
	default:
		return CodeUnknown
	}
}
