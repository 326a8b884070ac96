package commands

import (
	"bytes"
	"errors"
	"testing"

	"github.com/leapstack-labs/stepcat/internal/cli/output"
	"github.com/leapstack-labs/stepcat/internal/ingest"
	"github.com/leapstack-labs/stepcat/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCatalog_JSONNeverNull(t *testing.T) {
	var out bytes.Buffer
	r := output.NewRendererWithTTY(&out, &bytes.Buffer{}, false, output.ModeJSON)

	require.NoError(t, renderCatalog(r, nil))
	assert.JSONEq(t, `{"tables":[]}`, out.String())
}

func TestRenderIngest(t *testing.T) {
	boom := errors.New("boom")
	results := []ingest.Result{
		{Path: "a.yml", Upload: &core.UploadResult{Tables: make([]core.TableRef, 3)}},
		{Path: "b.yml", Err: boom},
	}

	var out bytes.Buffer
	r := output.NewRendererWithTTY(&out, &bytes.Buffer{}, false, output.ModeJSON)
	err := renderIngest(r, results)
	assert.ErrorIs(t, err, boom)
	assert.JSONEq(t, `[
		{"path":"a.yml","tables":3},
		{"path":"b.yml","tables":0,"error":"boom"}
	]`, out.String())

	out.Reset()
	r = output.NewRendererWithTTY(&out, &bytes.Buffer{}, false, output.ModeText)
	_ = renderIngest(r, results)
	assert.Contains(t, out.String(), "boom")
	assert.Contains(t, out.String(), "(2 rows)")
}
