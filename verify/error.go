package verify

import (
	"net/http"

	"github.com/Abraxas-365/craftable/errx"
)

var ErrRegistry = errx.NewRegistry("VERIFY")

var (
	CodeUnknownOperation      = ErrRegistry.Register("UNKNOWN_OPERATION", errx.TypeValidation, http.StatusBadRequest, "Unknown verification operation")
	CodeProviderNotConfigured = ErrRegistry.Register("PROVIDER_NOT_CONFIGURED", errx.TypeInternal, http.StatusInternalServerError, "Verification provider not configured")
	CodeCallFailed            = ErrRegistry.Register("CALL_FAILED", errx.TypeInternal, http.StatusBadGateway, "External call failed")
)

func ErrUnknownOperation() *errx.Error {
	return ErrRegistry.New(CodeUnknownOperation)
}

func ErrProviderNotConfigured() *errx.Error {
	return ErrRegistry.New(CodeProviderNotConfigured)
}

func ErrCallFailed() *errx.Error {
	return ErrRegistry.New(CodeCallFailed)
}
