package domain

import "errors"

// Sentinel errors for the error kinds callers need to distinguish. They
// are semantic, not type-named: callers compare with errors.Is.
var (
	ErrInputMalformed          = errors.New("docfind: input malformed")
	ErrBuilderInvariant        = errors.New("docfind: builder invariant violated")
	ErrTemplateMissingGlobal   = errors.New("docfind: template missing INDEX_BASE/INDEX_LEN global")
	ErrTemplateNoMemory        = errors.New("docfind: template declares no memory")
	ErrTemplateMalformed       = errors.New("docfind: template module malformed")
	ErrIndexVersionMismatch    = errors.New("docfind: index version mismatch")
	ErrIndexCorrupt            = errors.New("docfind: index corrupt")
)
