package domain

import "errors"

var (
	// ErrProjectNotFound indicates the requested project was not found.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidDefinition indicates a definition document that cannot
	// be parsed into a project: missing name, malformed dates, unknown
	// day names. Catalogue-level problems surface as the scheduling
	// domain's invalid-input error instead.
	ErrInvalidDefinition = errors.New("invalid project definition")
)
