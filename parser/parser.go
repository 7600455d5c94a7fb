// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// SourceParser turns raw source text into an Outline.
//
// Thread Safety: implementations must be safe for concurrent use; each Parse
// call operates on its own parser state.
type SourceParser interface {
	// Parse extracts an outline from content. filePath is used for grammar
	// dialect selection (e.g. .tsx) and error context only; the file is not
	// read from disk.
	Parse(ctx context.Context, content []byte, filePath string) (*Outline, error)

	// Language returns the language identifier (e.g. "typescript").
	Language() string

	// Extensions returns the file extensions this parser handles, with dots.
	Extensions() []string
}

// Unavailable is the no-op SourceParser for runtimes without a parsing
// capability. Every Parse call returns ErrUnavailable; the builder treats
// that as "skip the behavioral pass", never as a build failure.
type Unavailable struct{}

// Parse always fails with ErrUnavailable.
func (Unavailable) Parse(context.Context, []byte, string) (*Outline, error) {
	return nil, ErrUnavailable
}

// Language returns "none".
func (Unavailable) Language() string { return "none" }

// Extensions returns nil; the unavailable parser claims no files.
func (Unavailable) Extensions() []string { return nil }

// Registry maps languages and file extensions to parsers.
//
// Thread Safety: safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	byLanguage  map[string]SourceParser
	byExtension map[string]SourceParser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byLanguage:  make(map[string]SourceParser),
		byExtension: make(map[string]SourceParser),
	}
}

// DefaultRegistry returns a registry with the TypeScript and JavaScript
// parsers registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewTypeScriptParser())
	r.Register(NewJavaScriptParser())
	return r
}

// Register adds a parser, replacing any previous registration for the same
// language or extensions.
func (r *Registry) Register(p SourceParser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLanguage[p.Language()] = p
	for _, ext := range p.Extensions() {
		r.byExtension[strings.ToLower(ext)] = p
	}
}

// ForLanguage returns the parser registered for a language, or nil.
func (r *Registry) ForLanguage(language string) SourceParser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byLanguage[language]
}

// ForFile returns the parser registered for the file's extension, or nil.
func (r *Registry) ForFile(filePath string) SourceParser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byExtension[strings.ToLower(filepath.Ext(filePath))]
}

// Dispatch returns a SourceParser that routes each file to the parser
// registered for its extension. Files with no registered parser fail with
// ErrUnsupportedFile.
func (r *Registry) Dispatch() SourceParser { return dispatchParser{r: r} }

type dispatchParser struct {
	r *Registry
}

func (d dispatchParser) Parse(ctx context.Context, content []byte, filePath string) (*Outline, error) {
	p := d.r.ForFile(filePath)
	if p == nil {
		return nil, fmt.Errorf("%s: %w", filePath, ErrUnsupportedFile)
	}
	return p.Parse(ctx, content, filePath)
}

func (d dispatchParser) Language() string { return "registry" }

func (d dispatchParser) Extensions() []string { return d.r.Extensions() }

// Languages returns the registered language identifiers.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		out = append(out, lang)
	}
	return out
}

// Extensions returns the registered file extensions.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		out = append(out, ext)
	}
	return out
}
