package view

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestEngineDefinesEveryDocumentVariant(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	for _, name := range []string{"standard_tax", "simplified_tax", "non_tax", "credit_note"} {
		assert.True(t, engine.Has(name), name)
	}
	assert.False(t, engine.Has("debit_note"))
}

func TestNilEngineExecute(t *testing.T) {
	var e *Engine
	err := e.Execute(&bytes.Buffer{}, "non_tax", nil)
	assert.Error(t, err)
}

func TestExecuteUnknownTemplate(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	var buf bytes.Buffer
	assert.Error(t, engine.Execute(&buf, "debit_note", nil))
	assert.Zero(t, buf.Len())
}
