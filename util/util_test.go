// util/util_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name   string
	Tick   int
	Values []float64
	Tags   map[string]bool
}

func TestEncodeDecodeObject(t *testing.T) {
	in := record{
		Name:   "hover-1",
		Tick:   1234,
		Values: []float64{1.5, -2.25, 1e6},
		Tags:   map[string]bool{"airborne": true},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeObject(&buf, in))

	var out record
	require.NoError(t, DecodeObject(&buf, &out))
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("decoded object mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeObjectGarbage(t *testing.T) {
	var out record
	err := DecodeObject(bytes.NewReader([]byte("not zstd at all")), &out)
	assert.Error(t, err)
}

func TestStoreRetrieveObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "obj.msgpack.zst")
	in := []record{{Name: "a", Tick: 1}, {Name: "b", Tick: 2}}
	require.NoError(t, StoreObject(path, in))

	var out []record
	require.NoError(t, RetrieveObject(path, &out))
	assert.Equal(t, in, out)

	assert.ErrorIs(t, StoreObject("", in), ErrEmptyPath)
	assert.ErrorIs(t, RetrieveObject("", &out), ErrEmptyPath)
}

func TestSliceHelpers(t *testing.T) {
	assert.Equal(t, 3, Select(true, 3, 4))
	assert.Equal(t, "b", Select(false, "a", "b"))

	evens := FilterSlice([]int{1, 2, 3, 4}, func(i int) bool { return i%2 == 0 })
	assert.Equal(t, []int{2, 4}, evens)

	assert.Equal(t, []string{"1", "22"}, MapSlice([]int{1, 22}, strconv.Itoa))
}
