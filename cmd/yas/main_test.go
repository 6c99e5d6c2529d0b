package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	catalogFixture = "../../catalog/testdata/catalog.yaml"
	curveFixture   = "../../curve/testdata/ust_par.yaml"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "yas version "+Version)
}

func TestValueCommand(t *testing.T) {
	out, err := run(t, "", "value",
		"--catalog", catalogFixture, "--curve", curveFixture,
		"--id", "US912810TL26", "--price", "71.66", "--settle", "2025-06-30")
	require.NoError(t, err)

	var got outputJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.Result)
	assert.Greater(t, got.Result.YieldSemiannual, 4.5)
	assert.Less(t, got.Result.YieldSemiannual, 5.5)
	assert.Nil(t, got.Result.SpreadToBenchmark)
	assert.Empty(t, got.Error)
}

func TestValueCommand_Table(t *testing.T) {
	out, err := run(t, "", "value",
		"--catalog", catalogFixture,
		"--desc", "GALAXY PIPELINE, 3.25%, 30-Sep-2040", "--price", "80", "--settle", "2025-06-30", "--table")
	require.NoError(t, err)
	assert.Contains(t, out, "ParsedDescriptionDefaults")
	assert.Contains(t, out, "80.0000")
}

func TestValueCommand_ReportsKind(t *testing.T) {
	out, err := run(t, "", "value",
		"--catalog", catalogFixture,
		"--id", "US912810TL26", "--price", "100", "--settle", "2053-01-02")
	require.Error(t, err)

	var got outputJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "MaturedInstrument", string(got.ErrorKind))
	assert.Nil(t, got.Result)
}

func TestBatchCommand(t *testing.T) {
	input := `[
  {"task_id": "a", "identifier": "US912810TL26", "price": 71.66, "settlement_date": "2025-06-30"},
  {"task_id": "b", "identifier": "XS0000000001", "price": 100, "settlement_date": "2025-06-30"},
  {"task_id": "c", "description": "T 3 15/08/52", "yield": 4.9, "settlement_date": "2025-06-30"},
  {"task_id": "d", "identifier": "US912810TL26", "price": 90, "settlement_date": "30/06/2025"}
]`
	out, err := run(t, input, "batch", "--catalog", catalogFixture)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 4 valuations failed")

	var got []outputJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 4)

	assert.Equal(t, "a", got[0].TaskID)
	require.NotNil(t, got[0].Result)
	assert.Equal(t, "IdentifierNotFound", string(got[1].ErrorKind))
	require.NotNil(t, got[2].Result)
	assert.InDelta(t, 4.9, got[2].Result.YieldSemiannual, 1e-9)
	assert.Contains(t, got[3].Error, "settlement_date")
}

func TestBatchCommand_YAML(t *testing.T) {
	input := `
- identifier: US912810TL26
  price: 71.66
  settlement_date: "2025-06-30"
- identifier: XS2241090088
  price: 85
  settlement_date: "2025-06-30"
`
	out, err := run(t, input, "batch", "--catalog", catalogFixture, "--curve", curveFixture)
	require.NoError(t, err)

	var got []outputJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	require.NotNil(t, got[1].Result)
	assert.NotNil(t, got[1].Result.SpreadToBenchmark)
}

func TestCatalogImportExport(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "catalog.db")

	_, err := run(t, "", "catalog", "import", catalogFixture, "--dsn", dsn)
	require.NoError(t, err)

	out, err := run(t, "", "catalog", "export", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "US912810TL26")
	assert.Contains(t, out, "XS2241090088")

	_, err = run(t, "", "catalog", "delete", "XS2241090088", "--dsn", dsn)
	require.NoError(t, err)
	out, err = run(t, "", "catalog", "export", "--dsn", dsn)
	require.NoError(t, err)
	assert.NotContains(t, out, "XS2241090088")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteTable_ReportsWriteError(t *testing.T) {
	t.Parallel()

	outs := []outputJSON{{Identifier: "XS0000000001", ErrorKind: "IdentifierNotFound"}}
	err := writeTable(failingWriter{}, outs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, outs))
	assert.Contains(t, buf.String(), "IdentifierNotFound")
}
