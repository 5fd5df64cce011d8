package apperr

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodeAlreadyClaimed   Code = "ALREADY_CLAIMED"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeTooEarly         Code = "TOO_EARLY"
	CodeInvalidToken     Code = "INVALID_TOKEN"
	CodeLetterGone       Code = "LETTER_GONE"
	CodeInternal         Code = "INTERNAL"
)
