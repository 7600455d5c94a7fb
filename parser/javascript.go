// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parser

import (
	"context"
	"log/slog"

	"github.com/smacker/go-tree-sitter/javascript"
)

// JavaScriptParser parses JavaScript sources via tree-sitter. It shares the
// extraction walk with the TypeScript parser; the JavaScript grammar simply
// never produces the TypeScript-only node types.
type JavaScriptParser struct {
	maxFileSize int
	logger      *slog.Logger
}

// JavaScriptOption configures a JavaScriptParser.
type JavaScriptOption func(*JavaScriptParser)

// WithJavaScriptMaxFileSize overrides the file size limit.
func WithJavaScriptMaxFileSize(n int) JavaScriptOption {
	return func(p *JavaScriptParser) {
		if n > 0 {
			p.maxFileSize = n
		}
	}
}

// WithJavaScriptLogger sets the logger.
func WithJavaScriptLogger(l *slog.Logger) JavaScriptOption {
	return func(p *JavaScriptParser) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewJavaScriptParser creates a JavaScript parser with default limits.
func NewJavaScriptParser(opts ...JavaScriptOption) *JavaScriptParser {
	p := &JavaScriptParser{
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns "javascript".
func (p *JavaScriptParser) Language() string { return "javascript" }

// Extensions returns the extensions handled by this parser.
func (p *JavaScriptParser) Extensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs"}
}

// Parse extracts an outline from JavaScript source. See
// TypeScriptParser.Parse for the pipeline; only the grammar differs.
func (p *JavaScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*Outline, error) {
	return runParse(ctx, content, filePath, p.Language(), javascript.GetLanguage(), p.maxFileSize, p.logger)
}
