package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/contactdex/internal/transport/dto"
)

const fixture = `[
  {"id": "SG COM-1", "phone": "+65 9123 0001", "company_name": "Acme Trading", "status": "valid"},
  {"id": "SG COM-2", "phone": "+65 9123 0002", "company_name": "Beta Logistics", "status": false},
  {"id": "SG COM-3", "phone": "+65 9123 0003", "company_name": "Acme Foods"}
]`

func writeRecords(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"contactdex-cli"}, args...))
	return out.String(), err
}

func TestSearch_Text(t *testing.T) {
	out, err := run(t, "search", "--records", writeRecords(t), "acme")
	require.NoError(t, err)

	assert.Contains(t, out, "SG COM-1")
	assert.Contains(t, out, "SG COM-3")
	assert.NotContains(t, out, "SG COM-2")
	assert.Contains(t, out, "2 results")
}

func TestSearch_JSON(t *testing.T) {
	out, err := run(t, "search", "-r", writeRecords(t), "--json", "--query", "SG COM-1*")
	require.NoError(t, err)

	var res dto.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "SG COM-1", res.Records[0].ID)
}

func TestSearch_StatusFilter(t *testing.T) {
	out, err := run(t, "search", "-r", writeRecords(t), "--status", "invalid")
	require.NoError(t, err)

	assert.Contains(t, out, "SG COM-2")
	assert.NotContains(t, out, "SG COM-1")
}

func TestSearch_StatusResolver(t *testing.T) {
	out, err := run(t, "--status-resolver", "phone_length", "search", "-r", writeRecords(t), "--status", "valid")
	require.NoError(t, err)

	assert.Contains(t, out, "SG COM-1")
	assert.Contains(t, out, "SG COM-3")
	assert.NotContains(t, out, "SG COM-2")

	_, err = run(t, "--status-resolver", "hlr", "search", "-r", writeRecords(t), "acme")
	require.Error(t, err)
}

func TestSearch_Progressive(t *testing.T) {
	out, err := run(t, "search", "-r", writeRecords(t), "--progressive", "--batch-size", "2", "SG COM")
	require.NoError(t, err)

	assert.Contains(t, out, "# batch 1")
	assert.Contains(t, out, "# batch 2")
	assert.Contains(t, out, "3 of 3 records in 2 batches")
}

func TestSearch_MissingRecordsFlag(t *testing.T) {
	_, err := run(t, "search", "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "records")
}

func TestSearch_UnreadableFile(t *testing.T) {
	_, err := run(t, "search", "-r", filepath.Join(t.TempDir(), "missing.json"), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open records")
}

func TestSearch_DuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"A"},{"id":"A"}]`), 0o600))

	_, err := run(t, "search", "-r", path, "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update records")
}

func TestSuggest(t *testing.T) {
	out, err := run(t, "suggest", "-r", writeRecords(t), "acme")
	require.NoError(t, err)

	assert.Contains(t, out, "Acme Trading")
	assert.Contains(t, out, "Acme Foods")
}

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", "SG COM-1*")
	require.NoError(t, err)
	assert.Equal(t, "valid wildcard query\n", out)

	out, err = run(t, "validate", "SG COM-9 to SG COM-1")
	require.ErrorIs(t, err, errInvalidQuery)
	assert.Contains(t, out, "invalid:")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "validate", "x")
	require.Error(t, err)
}
