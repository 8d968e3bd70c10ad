package esologs

import "errors"

// Sentinel errors for the esologs client.
var (
	// ErrReportNotFound indicates the API resolved the query but the
	// report code does not exist.
	ErrReportNotFound = errors.New("report not found")

	// ErrMalformedPayload indicates a response decoded but did not carry
	// the shape the operation requires.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrGraphQL indicates the API returned errors in the GraphQL
	// response envelope.
	ErrGraphQL = errors.New("graphql error")
)
