package errors

var (
	ErrInvalidIdentity     = InvalidArg("username and display name are required")
	ErrUnknownSender       = FailedPrecondition("join the chat before sending messages")
	ErrEmptyMessage        = InvalidArg("message cannot be empty")
	ErrMessageTooLong      = InvalidArg("message is too long")
	ErrEmptyRecipient      = InvalidArg("recipient is required")
	ErrDuplicateConnection = AlreadyExists("connection already registered")
	ErrUnknownConnection   = NotFound("connection not registered")
	ErrUnknownEvent        = InvalidArg("unknown event type")
	ErrMalformedEvent      = InvalidArg("malformed event")
	ErrForbiddenChannel    = New(CodePermissionDenied, "not a participant of this conversation")
)

func PersistenceFailure(cause error) error {
	return Wrap(CodeInternal, "persistence failure", cause)
}

func DeliveryFailure(cause error) error {
	return Wrap(CodeUnavailable, "delivery failure", cause)
}
