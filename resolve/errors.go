package resolve

import (
	"context"
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/cypher"
)

// Values of the `code` extension of response errors.
const (
	CodeBadRequest            = "BAD_REQUEST"
	CodeValidationFailed      = "GRAPHQL_VALIDATION_FAILED"
	CodeOperationNotSupported = "OPERATION_NOT_SUPPORTED"
	CodeBadUserInput          = "BAD_USER_INPUT"
	CodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	CodeTimeout               = "TIMEOUT"
	CodeCancelled             = "REQUEST_CANCELLED"
	CodeQueryError            = "QUERY_ERROR"
	CodeInternal              = "INTERNAL_SERVER_ERROR"
)

// RequestError builds an error rejecting the whole request with the given code.
func RequestError(code, format string, args ...interface{}) *gqlerror.Error {
	err := gqlerror.Errorf(format, args...)
	err.Extensions = map[string]interface{}{"code": code}
	return err
}

func withCode(err *gqlerror.Error, code string) *gqlerror.Error {
	if err.Extensions == nil {
		err.Extensions = map[string]interface{}{}
	}
	if _, ok := err.Extensions["code"]; !ok {
		err.Extensions["code"] = code
	}
	return err
}

// fieldError reports a failed root field. Database and connection failures are
// classified by cause; unexpected failures keep their details out of the response.
func fieldError(path ast.Path, pos *ast.Position, err error) *gqlerror.Error {
	code, message, extra := classify(err)
	e := &gqlerror.Error{
		Message:    message,
		Path:       path,
		Extensions: map[string]interface{}{"code": code},
	}
	for k, v := range extra {
		e.Extensions[k] = v
	}
	if pos != nil {
		e.Locations = []gqlerror.Location{{Line: pos.Line, Column: pos.Column}}
	}
	return e
}

func classify(err error) (string, string, map[string]interface{}) {
	var (
		connErr  *neo4j.ConnectivityError
		limitErr *neo4j.TransactionExecutionLimit
		neoErr   *neo4j.Neo4jError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout, "query timed out", nil
	case errors.Is(err, context.Canceled):
		return CodeCancelled, "request cancelled", nil
	case errors.As(err, &connErr), errors.As(err, &limitErr):
		return CodeServiceUnavailable, "graph database unavailable", nil
	case errors.As(err, &neoErr):
		if strings.Contains(neoErr.Code, "TransactionTimedOut") {
			return CodeTimeout, "query timed out", nil
		}
		return CodeQueryError, neoErr.Msg, map[string]interface{}{"neo4jCode": neoErr.Code}
	case errors.Is(err, cypher.ErrInvalidArgument):
		return CodeBadUserInput, err.Error(), nil
	default:
		return CodeInternal, "internal error", nil
	}
}
