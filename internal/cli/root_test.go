package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/stepcat/internal/cli/config"
	"github.com/leapstack-labs/stepcat/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersDoc = `
job_step:
  step_name: clean_orders
  service_name: spark
  service_config:
    source_database: raw
    source_table: orders
    target_database: curated
    target_table: orders_clean
`

// run executes the root command against a catalog in dir.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--store-path", filepath.Join(dir, "catalog.db")))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestUploadThenTables(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	doc := writeDoc(t, dir, "orders.yml", ordersDoc)

	_, _, err := run(t, dir, "upload", doc)
	require.NoError(t, err)

	out, _, err := run(t, dir, "tables", "orders.yml", "-o", "json")
	require.NoError(t, err)

	var got struct {
		Tables []core.CatalogRow `json:"tables"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []core.CatalogRow{
		{Filename: "orders.yml", Type: core.KindSource, DatabaseName: "raw", TableName: "orders"},
		{Filename: "orders.yml", Type: core.KindTarget, DatabaseName: "curated", TableName: "orders_clean"},
	}, got.Tables)
}

func TestTables_TextOutput(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	doc := writeDoc(t, dir, "orders.yml", ordersDoc)
	_, _, err := run(t, dir, "upload", doc)
	require.NoError(t, err)

	out, _, err := run(t, dir, "tables", "orders.yml", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "orders_clean")
	assert.Contains(t, out, "(2 rows)")
}

func TestTables_UnknownFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, _, err := run(t, dir, "tables", "missing.yml")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpload_InvalidDocumentReportsError(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	good := writeDoc(t, dir, "good.yml", ordersDoc)
	bad := writeDoc(t, dir, "bad.yml", "job_step: {}\n")

	_, errOut, err := run(t, dir, "upload", bad, good)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
	assert.Contains(t, errOut, "job_step.step_name")

	_, _, err = run(t, dir, "tables", "good.yml")
	assert.NoError(t, err)
}

func TestExtract_DoesNotPersist(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	doc := writeDoc(t, dir, "orders.yml", ordersDoc)

	out, _, err := run(t, dir, "extract", doc, "--type", "source", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"step_name": "clean_orders",
		"service_name": "spark",
		"tables": [{"type":"source","database_name":"raw","table_name":"orders"}],
		"summary": {"sources": 1, "targets": 0, "databases": ["raw"]}
	}`, out)

	_, _, err = run(t, dir, "tables", "orders.yml")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestIngestListLineageDelete(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	jobs := filepath.Join(dir, "jobs")
	require.NoError(t, os.Mkdir(jobs, 0o750))
	writeDoc(t, jobs, "orders.yml", ordersDoc)
	writeDoc(t, jobs, "report.yaml", `
job_step:
  step_name: report
  service_name: sql
  service_config:
    source_database: curated
    source_table: orders_clean
`)

	_, _, err := run(t, dir, "ingest", jobs)
	require.NoError(t, err)

	out, _, err := run(t, dir, "list", "-o", "json")
	require.NoError(t, err)
	var list struct {
		Configurations []core.ConfigurationSummary `json:"configurations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list.Configurations, 2)

	out, _, err = run(t, dir, "lineage", "curated", "orders_clean", "-o", "json")
	require.NoError(t, err)
	var lineage struct {
		Tables []core.CatalogRow `json:"tables"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &lineage))
	assert.Len(t, lineage.Tables, 2)

	_, _, err = run(t, dir, "delete", "report.yaml")
	require.NoError(t, err)
	_, _, err = run(t, dir, "tables", "report.yaml")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	doc := writeDoc(t, dir, "orders.yml", ordersDoc)
	_, _, err := run(t, dir, "upload", doc)
	require.NoError(t, err)

	target := filepath.Join(dir, "catalog.duckdb")
	_, errOut, err := run(t, dir, "export", "--duckdb", target)
	require.NoError(t, err)
	assert.Contains(t, errOut, "exported 2 rows")
	assert.FileExists(t, target)
}

func TestInvalidConfigFails(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, _, err := run(t, dir, "list", "--store-type", "mysql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store type")
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, _, err := run(t, t.TempDir(), "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "stepcat")
		})
	}
}
