package config

import (
	"flag"
	"io"
	"testing"

	"github.com/setanarut/sensimap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("sensimap", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(newFlagSet(), []string{"-input", "a.png"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.png"}, cfg.Inputs)
	assert.Equal(t, "morris", cfg.Method)
	assert.Equal(t, string(sensimap.KindPooledLinear), cfg.ModelKind)
	assert.Equal(t, sensimap.DefaultOptions(), cfg.Options)
	assert.Nil(t, cfg.TrueLabel())
	assert.Nil(t, cfg.ClassNames)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse(newFlagSet(), []string{
		"-input", "a.png, b.jpg,",
		"-method", "gradcam",
		"-patch", "32",
		"-samples", "3",
		"-delta", "0.1",
		"-workers", "-1",
		"-names", "cat,dog",
		"-label", "1",
		"-plot",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.png", "b.jpg"}, cfg.Inputs)
	assert.Equal(t, "gradcam", cfg.Method)
	assert.Equal(t, sensimap.Options{PatchSize: 32, NumSamples: 3, Delta: 0.1, Workers: -1}, cfg.Options)
	assert.Equal(t, []string{"cat", "dog"}, cfg.ClassNames)
	require.NotNil(t, cfg.TrueLabel())
	assert.Equal(t, 1, *cfg.TrueLabel())
	assert.True(t, cfg.Plot)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(newFlagSet(), nil)
	require.ErrorContains(t, err, "-input")

	_, err = Parse(newFlagSet(), []string{"-input", "a.png", "-method", "lime"})
	require.ErrorContains(t, err, "unknown method")

	_, err = Parse(newFlagSet(), []string{"-patch", "big"})
	require.Error(t, err)
}
