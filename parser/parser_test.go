// Copyright (C) 2026 Halyard Labs (oss@halyardlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnavailableParser(t *testing.T) {
	var p Unavailable
	out, err := p.Parse(context.Background(), []byte("const x = 1"), "x.ts")
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "none", p.Language())
	assert.Empty(t, p.Extensions())
}

func TestRegistryLookup(t *testing.T) {
	r := DefaultRegistry()

	assert.NotNil(t, r.ForLanguage("typescript"))
	assert.NotNil(t, r.ForLanguage("javascript"))
	assert.Nil(t, r.ForLanguage("python"))

	assert.Equal(t, "typescript", r.ForFile("src/app.ts").Language())
	assert.Equal(t, "typescript", r.ForFile("src/App.TSX").Language())
	assert.Equal(t, "javascript", r.ForFile("lib/index.mjs").Language())
	assert.Nil(t, r.ForFile("README.md"))
	assert.Nil(t, r.ForFile("Makefile"))

	assert.ElementsMatch(t, []string{"typescript", "javascript"}, r.Languages())
	assert.Contains(t, r.Extensions(), ".tsx")
	assert.Contains(t, r.Extensions(), ".cjs")
}

func TestRegistryReplaceRegistration(t *testing.T) {
	r := NewRegistry()
	first := NewTypeScriptParser()
	second := NewTypeScriptParser(WithTypeScriptMaxFileSize(16))
	r.Register(first)
	r.Register(second)

	got, ok := r.ForLanguage("typescript").(*TypeScriptParser)
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestDispatchRoutesByExtension(t *testing.T) {
	d := DefaultRegistry().Dispatch()
	ctx := context.Background()

	out, err := d.Parse(ctx, []byte("export function a() {}"), "a.ts")
	require.NoError(t, err)
	assert.Equal(t, "typescript", out.Language)

	out, err = d.Parse(ctx, []byte("function b() {}"), "b.js")
	require.NoError(t, err)
	assert.Equal(t, "javascript", out.Language)

	_, err = d.Parse(ctx, []byte("# title"), "notes.md")
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestOutlineSnapshot(t *testing.T) {
	out, err := NewTypeScriptParser().Parse(context.Background(), []byte(tsSample), "sample.ts")
	require.NoError(t, err)

	snap := out.Snapshot(1700000000000)
	assert.Equal(t, out.Hash, snap.Hash)
	assert.Equal(t, int64(1700000000000), snap.Timestamp)
	assert.Equal(t, len(out.Entities), len(snap.Nodes))
	assert.Equal(t, len(out.Imports), len(snap.Imports))
	assert.Equal(t, len(out.Exports), len(snap.Exports))
	require.NoError(t, snap.Validate("sample.ts"))
}
