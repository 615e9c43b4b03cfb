package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/fatoora/internal/app"
	"github.com/odyssey-erp/fatoora/internal/zatca"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestQRDecodePrintsRecords(t *testing.T) {
	payload, err := zatca.BuildQR(zatca.Fields{
		SellerName:   "Acme",
		VATNumber:    "300000000000003",
		Timestamp:    "2024-01-01T10:00:00Z",
		InvoiceTotal: "115.00",
		VATTotal:     "15.00",
	})
	require.NoError(t, err)

	out, err := execute(t, "qr", "decode", payload)
	require.NoError(t, err)
	assert.Contains(t, out, "TAG")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "300000000000003")
	assert.Contains(t, out, "115.00")
}

func TestQRDecodeRejectsGarbage(t *testing.T) {
	_, err := execute(t, "qr", "decode", "!!!")
	assert.Error(t, err)
}

func TestJobsTriggerRejectsBadTenant(t *testing.T) {
	_, err := execute(t, "jobs", "trigger", "analytics-warmup", "--tenant", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --tenant")
}

func TestServeSkipsInTestMode(t *testing.T) {
	t.Setenv("FATOORA_TEST_MODE", "1")
	app.RefreshTestMode()
	_, err := execute(t, "serve")
	assert.NoError(t, err)
}
