package model

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fittedThing struct {
	BaseEstimator
	Means []float64
	Name  string
}

func TestSaveLoadModelRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thing.gob")

	src := &fittedThing{Means: []float64{1.5, 2.5}, Name: "scaler"}
	src.SetFitted()
	require.NoError(t, SaveModel(src, path))

	var dst fittedThing
	require.NoError(t, LoadModel(&dst, path))
	assert.True(t, dst.IsFitted())
	assert.Equal(t, src.Means, dst.Means)
	assert.Equal(t, "scaler", dst.Name)

	// 一時ファイルは残らない
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadModelMissingFile(t *testing.T) {
	var dst fittedThing
	err := LoadModel(&dst, filepath.Join(t.TempDir(), "missing.gob"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open file")
}

func TestLoadModelFromReaderCorrupt(t *testing.T) {
	var dst fittedThing
	err := LoadModelFromReader(&dst, bytes.NewBufferString("not gob"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode model")
}

func TestBaseEstimatorState(t *testing.T) {
	var e BaseEstimator
	assert.False(t, e.IsFitted())
	e.SetFitted()
	assert.True(t, e.IsFitted())
	e.Reset()
	assert.False(t, e.IsFitted())
}
