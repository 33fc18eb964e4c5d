// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "hello", TruncateRunes("hello", 10))
	assert.Equal(t, "hell...", TruncateRunes("hello world", 7))
	assert.Equal(t, "", TruncateRunes("hello", 0))
	// Multi-byte characters are never split.
	assert.Equal(t, "héllo", TruncateRunes("héllo", 5))
	assert.Equal(t, "日本...", TruncateRunes("日本語テキスト", 5))
}

func TestTruncateWidth(t *testing.T) {
	assert.Equal(t, "hello", TruncateWidth("hello", 10))
	// CJK characters occupy two columns each.
	assert.Equal(t, 4, StringWidth("日本"))
	out := TruncateWidth("日本語テキスト", 8)
	assert.LessOrEqual(t, StringWidth(out), 8)
}

func TestRuneLen(t *testing.T) {
	assert.Equal(t, 5, RuneLen("héllo"))
	assert.Equal(t, 2, RuneLen("世界"))
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	require.NoError(t, AtomicWriteFile(path, []byte(`{"ok":true}`), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	// Overwrite replaces content atomically.
	require.NoError(t, AtomicWriteFile(path, []byte("v2"), 0600))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}
