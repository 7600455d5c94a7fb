// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package parser provides the optional source-parsing capability behind the
// graph builder's behavioral pass. Implementations turn raw source text into
// an Outline: declared entities, imports, exports, bare-identifier call
// sites, simple variable declarations, and control-flow constructs. The
// capability may be absent in a given runtime; the Unavailable parser models
// that case explicitly so callers branch on ErrUnavailable instead of nil
// checks.
package parser

import "errors"

var (
	// ErrUnavailable indicates no parsing capability exists in this runtime.
	ErrUnavailable = errors.New("source parser unavailable")

	// ErrEmptyContent indicates the source content was empty.
	ErrEmptyContent = errors.New("empty content")

	// ErrFileTooLarge indicates the source exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrInvalidUTF8 indicates the source is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("content is not valid UTF-8")

	// ErrParseFailed indicates the grammar could not produce a syntax tree.
	ErrParseFailed = errors.New("parse failed")

	// ErrUnsupportedFile indicates no registered parser handles the file.
	ErrUnsupportedFile = errors.New("unsupported file type")
)
