package apperr

var (
	// Domain errors returned by the letter service
	ErrNotFound       = NotFound("letter not found")
	ErrForbidden      = Forbidden("not allowed for this identity")
	ErrTooEarly       = New(CodeTooEarly, "letter is still sealed")
	ErrAlreadyClaimed = New(CodeAlreadyClaimed, "invite is not claimable")
	ErrAlreadyExists  = New(CodeAlreadyExists, "already submitted")
	ErrInvalidToken   = New(CodeInvalidToken, "malformed invite token")
	ErrLetterGone     = New(CodeLetterGone, "letter was deleted")
	ErrOwnInvite      = Forbidden("senders cannot claim their own invite")
	ErrSelfLetterLock = Forbidden("self letters cannot be deleted")
	ErrInternal       = Internal("internal server error")
)

func ErrInvalidAnswer(answer string) error {
	return InvalidArg("unknown reflection answer: " + answer)
}
