package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leapstack-labs/stepcat/internal/catalog"
	"github.com/leapstack-labs/stepcat/internal/state"
	"github.com/leapstack-labs/stepcat/internal/testutil"
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

const refineryDoc = `
job_step:
  step_name: refine
  service_name: spark
  service_config:
    refinery_database: db1
    refinery_tables:
      - a:
          table_name: t1
        b:
          table_name: t2
`

// aliasChain is a few hundred bytes that expand to millions of nodes.
const aliasChain = `
job_step:
  step_name: s
  service_name: x
  service_config:
    l0: &l0 [t, t, t, t, t, t, t, t, t, t]
    l1: &l1 [*l0, *l0, *l0, *l0, *l0, *l0, *l0, *l0, *l0, *l0]
    l2: &l2 [*l1, *l1, *l1, *l1, *l1, *l1, *l1, *l1, *l1, *l1]
    l3: &l3 [*l2, *l2, *l2, *l2, *l2, *l2, *l2, *l2, *l2, *l2]
    l4: &l4 [*l3, *l3, *l3, *l3, *l3, *l3, *l3, *l3, *l3, *l3]
    l5: &l5 [*l4, *l4, *l4, *l4, *l4, *l4, *l4, *l4, *l4, *l4]
    l6: &l6 [*l5, *l5, *l5, *l5, *l5, *l5, *l5, *l5, *l5, *l5]
`

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := state.Open(context.Background(), state.Config{Type: "sqlite", Path: state.MemoryPath}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc, err := catalog.New(catalog.Config{Store: store})
	require.NoError(t, err)

	ts := httptest.NewServer(New(Config{Service: svc, Logger: testutil.NewTestLogger(t)}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func upload(t *testing.T, ts *httptest.Server, filename, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/upload/", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestUploadAndQueryTables(t *testing.T) {
	ts := setupServer(t)

	resp := upload(t, ts, "orders.yml", ordersDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	up := decode[UploadResponse](t, resp)
	assert.Equal(t, uploadMessage, up.Message)
	assert.Equal(t, "orders.yml", up.Filename)
	assert.Equal(t, 2, up.Tables)

	resp = get(t, ts.URL+"/configuration/orders.yml/tables")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tables := decode[TablesResponse](t, resp)
	assert.ElementsMatch(t, []core.CatalogRow{
		{Filename: "orders.yml", Type: core.KindSource, DatabaseName: "raw", TableName: "orders"},
		{Filename: "orders.yml", Type: core.KindTarget, DatabaseName: "curated", TableName: "orders_clean"},
	}, tables.Tables)
}

func TestTablesJSONShape(t *testing.T) {
	ts := setupServer(t)
	upload(t, ts, "r.yml", refineryDoc)

	resp := get(t, ts.URL+"/configuration/r.yml/tables")
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.JSONEq(t, `{"tables":[
		{"filename":"r.yml","type":"source","database_name":"db1","table_name":"t1"},
		{"filename":"r.yml","type":"source","database_name":"db1","table_name":"t2"}
	]}`, string(raw))
}

func TestUploadReplaces(t *testing.T) {
	ts := setupServer(t)

	upload(t, ts, "f.yml", ordersDoc)
	resp := upload(t, ts, "f.yml", refineryDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(2), decode[UploadResponse](t, resp).Generation)

	tables := decode[TablesResponse](t, get(t, ts.URL+"/configuration/f.yml/tables"))
	require.Len(t, tables.Tables, 2)
	for _, row := range tables.Tables {
		assert.Equal(t, "db1", row.DatabaseName)
	}
}

func TestUnknownFilenameIsNotFound(t *testing.T) {
	ts := setupServer(t)

	resp := get(t, ts.URL+"/configuration/never.yml/tables")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Configuration not found", decode[ErrorResponse](t, resp).Detail)
}

func TestUploadErrors(t *testing.T) {
	ts := setupServer(t)

	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"invalid yaml", "job_step: [oops", "invalid YAML"},
		{"missing job_step", "a: 1\n", `"job_step"`},
		{"missing step_name", "job_step:\n  service_name: s\n  service_config: {}\n", "job_step.step_name"},
		{"excessive aliasing", aliasChain, "excessive aliasing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, ts, "bad.yml", tt.content)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, decode[ErrorResponse](t, resp).Detail, tt.errSubstr)
		})
	}
}

func TestUploadRequiresMultipartFile(t *testing.T) {
	ts := setupServer(t)

	resp, err := http.Post(ts.URL+"/upload/", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())
	resp2, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	assert.Contains(t, decode[ErrorResponse](t, resp2).Detail, `"file"`)
}

func TestConfigurationListDeleteLineage(t *testing.T) {
	ts := setupServer(t)
	upload(t, ts, "orders.yml", ordersDoc)
	upload(t, ts, "r.yml", refineryDoc)

	cfg := decode[core.Configuration](t, get(t, ts.URL+"/configuration/orders.yml"))
	assert.Equal(t, "clean_orders", cfg.StepName)

	list := decode[struct {
		Configurations []core.ConfigurationSummary `json:"configurations"`
	}](t, get(t, ts.URL+"/configurations"))
	assert.Len(t, list.Configurations, 2)

	lineage := decode[TablesResponse](t, get(t, ts.URL+"/tables/raw/orders"))
	require.Len(t, lineage.Tables, 1)
	assert.Equal(t, "orders.yml", lineage.Tables[0].Filename)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/configuration/orders.yml", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, http.StatusNotFound, get(t, ts.URL+"/configuration/orders.yml/tables").StatusCode)
}

func TestPathParamsAreDecodedOnce(t *testing.T) {
	ts := setupServer(t)

	resp := upload(t, ts, "a%41.yml", ordersDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	upload(t, ts, "aA.yml", refineryDoc)

	tables := decode[TablesResponse](t, get(t, ts.URL+"/configuration/a%2541.yml/tables"))
	require.Len(t, tables.Tables, 2)
	assert.Equal(t, "a%41.yml", tables.Tables[0].Filename)

	upload(t, ts, "slash.yml", `
job_step:
  step_name: s
  service_name: x
  service_config:
    target_database: raw
    target_table: or/ders
`)
	lineage := decode[TablesResponse](t, get(t, ts.URL+"/tables/raw/or%2Fders"))
	require.Len(t, lineage.Tables, 1)
	assert.Equal(t, "slash.yml", lineage.Tables[0].Filename)
}

type failingService struct{ CatalogService }

func (failingService) Tables(context.Context, string) ([]core.CatalogRow, error) {
	return nil, assert.AnError
}

func TestInternalErrorsAreHidden(t *testing.T) {
	ts := httptest.NewServer(New(Config{Service: failingService{}}).Handler())
	defer ts.Close()

	resp := get(t, ts.URL+"/configuration/f.yml/tables")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", decode[ErrorResponse](t, resp).Detail)
}

func TestHealthz(t *testing.T) {
	ts := setupServer(t)
	resp := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeListener_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := New(Config{Service: failingService{}, ShutdownTimeout: time.Second})

	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
