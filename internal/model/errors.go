package model

import "errors"

// Script integrity errors. Each indicates a broken rule script, never bad
// user input.
var (
	ErrUnknownSynonymClass   = errors.New("unknown synonym class")
	ErrInvalidBackReference  = errors.New("invalid back-reference")
	ErrUnknownRedirectTarget = errors.New("unknown redirect target")
	ErrMalformedScriptLine   = errors.New("malformed script line")
	ErrMissingDefaultKey     = errors.New("missing default key " + DefaultKey)
	ErrEmptyReassembly       = errors.New("decomposition has no reassembly templates")
	ErrEmptyKey              = errors.New("key has no decompositions")
	ErrRedirectDepth         = errors.New("redirect chain too deep")
)
