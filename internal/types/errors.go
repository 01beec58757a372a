package types

import (
	"errors"
	"fmt"
)

var (
	// ErrDecisionParse means the oracle answered but no JSON object could be read from it.
	ErrDecisionParse = errors.New("decision parse error")
	// ErrDecisionValidation means the oracle JSON did not have the TradeIntent shape.
	ErrDecisionValidation = errors.New("decision validation error")
)

// FetchError is any collaborator I/O failure, including non-2xx responses
// and payloads missing an expected field.
type FetchError struct {
	Source string
	Op     string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s.%s: %v", e.Source, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func NewFetchError(source, op string, err error) error {
	return &FetchError{Source: source, Op: op, Err: err}
}

// OrderSubmissionError is an exchange rejection of a planned order.
type OrderSubmissionError struct {
	Side Side
	Err  error
}

func (e *OrderSubmissionError) Error() string {
	return fmt.Sprintf("submit %s order: %v", e.Side, e.Err)
}

func (e *OrderSubmissionError) Unwrap() error { return e.Err }

func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
