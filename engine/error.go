package engine

import (
	"net/http"

	"github.com/Abraxas-365/craftable/errx"
)

var ErrRegistry = errx.NewRegistry("ENGINE")

var (
	// Workflow errors
	CodeWorkflowNotFound      = ErrRegistry.Register("WORKFLOW_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Workflow not found")
	CodeWorkflowAlreadyExists = ErrRegistry.Register("WORKFLOW_ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "Workflow already exists")
	CodeInvalidWorkflowConfig = ErrRegistry.Register("INVALID_WORKFLOW_CONFIG", errx.TypeValidation, http.StatusBadRequest, "Invalid workflow configuration")
	CodeWorkflowInactive      = ErrRegistry.Register("WORKFLOW_INACTIVE", errx.TypeBusiness, http.StatusForbidden, "Workflow is inactive")
	CodeNodeNotFound          = ErrRegistry.Register("NODE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Node not found")
	CodeInvalidNode           = ErrRegistry.Register("INVALID_NODE", errx.TypeValidation, http.StatusBadRequest, "Invalid workflow node")

	// Session errors
	CodeSessionNotFound = ErrRegistry.Register("SESSION_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Session not found")
	CodeSessionTerminal = ErrRegistry.Register("SESSION_TERMINAL", errx.TypeBusiness, http.StatusConflict, "Session is already terminal")

	// Execution errors
	CodeExecutionHalted   = ErrRegistry.Register("EXECUTION_HALTED", errx.TypeInternal, http.StatusInternalServerError, "Workflow execution halted")
	CodeLoopCeilingHit    = ErrRegistry.Register("LOOP_CEILING_HIT", errx.TypeBusiness, http.StatusTooManyRequests, "Node re-entry ceiling exceeded")
	CodeExternalCallError = ErrRegistry.Register("EXTERNAL_CALL_ERROR", errx.TypeInternal, http.StatusBadGateway, "External collaborator call failed")
)

// Error constructor functions
func ErrWorkflowNotFound() *errx.Error {
	return ErrRegistry.New(CodeWorkflowNotFound)
}

func ErrWorkflowAlreadyExists() *errx.Error {
	return ErrRegistry.New(CodeWorkflowAlreadyExists)
}

func ErrInvalidWorkflowConfig() *errx.Error {
	return ErrRegistry.New(CodeInvalidWorkflowConfig)
}

func ErrWorkflowInactive() *errx.Error {
	return ErrRegistry.New(CodeWorkflowInactive)
}

func ErrNodeNotFound() *errx.Error {
	return ErrRegistry.New(CodeNodeNotFound)
}

func ErrInvalidNode() *errx.Error {
	return ErrRegistry.New(CodeInvalidNode)
}

func ErrSessionNotFound() *errx.Error {
	return ErrRegistry.New(CodeSessionNotFound)
}

func ErrSessionTerminal() *errx.Error {
	return ErrRegistry.New(CodeSessionTerminal)
}

func ErrExecutionHalted() *errx.Error {
	return ErrRegistry.New(CodeExecutionHalted)
}

func ErrLoopCeilingHit() *errx.Error {
	return ErrRegistry.New(CodeLoopCeilingHit)
}

func ErrExternalCallError() *errx.Error {
	return ErrRegistry.New(CodeExternalCallError)
}
