package etl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	typ string
	in  *Input
	err error
	got SourceConfig
}

func (s *stubSource) Spec() SourceSpec {
	return SourceSpec{
		Type:  s.typ,
		Label: "Stub",
		ConfigFields: []ConfigField{
			{Key: "path", Label: "Path", Type: "string", Required: true},
		},
	}
}

func (s *stubSource) Read(_ context.Context, cfg SourceConfig) (*Input, error) {
	s.got = cfg
	return s.in, s.err
}

func TestRegistry(t *testing.T) {
	RegisterSource(&stubSource{typ: "zz_stub_b"})
	RegisterSource(&stubSource{typ: "zz_stub_a"})

	src, err := GetSource("zz_stub_a")
	require.NoError(t, err)
	assert.Equal(t, "zz_stub_a", src.Spec().Type)

	_, err = GetSource("nope")
	assert.ErrorIs(t, err, ErrUnknownSource)

	var types []string
	for _, s := range ListSources() {
		types = append(types, s.Type)
	}
	assert.IsIncreasing(t, types)
	assert.Subset(t, types, []string{"zz_stub_a", "zz_stub_b"})
}

func TestFetch(t *testing.T) {
	stub := &stubSource{typ: "zz_fetch", in: &Input{Document: []any{}}}
	RegisterSource(stub)

	in, err := Fetch(context.Background(), "zz_fetch", SourceConfig{"path": "x"}, "stations")
	require.NoError(t, err)
	assert.Equal(t, "stations", in.Label)
	assert.Equal(t, "x", stub.got.String("path"))

	_, err = Fetch(context.Background(), "zz_fetch", SourceConfig{}, "stations")
	assert.ErrorContains(t, err, "path is required")

	stub.err = errors.New("boom")
	_, err = Fetch(context.Background(), "zz_fetch", SourceConfig{"path": "x"}, "stations")
	assert.ErrorContains(t, err, "zz_fetch source: boom")
}

func TestSourceConfig_String(t *testing.T) {
	cfg := SourceConfig{"s": "text", "n": 3, "b": true, "m": map[string]any{}}
	assert.Equal(t, "text", cfg.String("s"))
	assert.Equal(t, "3", cfg.String("n"))
	assert.Equal(t, "true", cfg.String("b"))
	assert.Equal(t, "", cfg.String("m"))
	assert.Equal(t, "", cfg.String("missing"))
}

func TestInput_IsEmpty(t *testing.T) {
	var in *Input
	assert.True(t, in.IsEmpty())
	assert.True(t, (&Input{Label: "x"}).IsEmpty())
	assert.False(t, (&Input{Table: &Table{}}).IsEmpty())
	assert.False(t, (&Input{Document: []any{}}).IsEmpty())
}
