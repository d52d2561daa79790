package channels

import (
	"net/http"

	"github.com/Abraxas-365/craftable/errx"
)

var ErrRegistry = errx.NewRegistry("CHANNEL")

var (
	CodeInvalidPayload     = ErrRegistry.Register("INVALID_PAYLOAD", errx.TypeValidation, http.StatusBadRequest, "Invalid webhook payload")
	CodeSignatureMismatch  = ErrRegistry.Register("SIGNATURE_MISMATCH", errx.TypeAuthorization, http.StatusForbidden, "Webhook signature mismatch")
	CodeVerificationFailed = ErrRegistry.Register("VERIFICATION_FAILED", errx.TypeAuthorization, http.StatusForbidden, "Webhook verification failed")
	CodeSendFailed         = ErrRegistry.Register("SEND_FAILED", errx.TypeExternal, http.StatusBadGateway, "Failed to send message")
)

func ErrInvalidPayload() *errx.Error {
	return ErrRegistry.New(CodeInvalidPayload)
}

func ErrSignatureMismatch() *errx.Error {
	return ErrRegistry.New(CodeSignatureMismatch)
}

func ErrVerificationFailed() *errx.Error {
	return ErrRegistry.New(CodeVerificationFailed)
}

func ErrSendFailed() *errx.Error {
	return ErrRegistry.New(CodeSendFailed)
}
