package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/stepcat/pkg/confignode"
	"github.com/leapstack-labs/stepcat/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `
job_step:
  step_name: load_orders
  service_name: spark
  service_config:
    source_database: raw
    source_table: orders
`

func TestParse_Valid(t *testing.T) {
	step, err := Parse("orders.yml", []byte(validDoc))
	require.NoError(t, err)

	assert.Equal(t, "load_orders", step.StepName)
	assert.Equal(t, "spark", step.ServiceName)
	require.NotNil(t, step.ServiceConfig)
	assert.Equal(t, []string{"source_database", "source_table"}, step.ServiceConfig.Keys())
}

func TestParse_ScalarNamesAreText(t *testing.T) {
	step, err := Parse("", []byte(`
job_step:
  step_name: 42
  service_name: true
  service_config: {}
`))
	require.NoError(t, err)
	assert.Equal(t, "42", step.StepName)
	assert.Equal(t, "true", step.ServiceName)
	assert.Equal(t, 0, step.ServiceConfig.Len())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantType  any
		errSubstr string
	}{
		{
			name:      "invalid yaml",
			doc:       "job_step: [unclosed",
			wantType:  &ParseError{},
			errSubstr: "invalid YAML",
		},
		{
			name:      "empty document",
			doc:       "",
			wantType:  &ParseError{},
			errSubstr: "document is empty",
		},
		{
			name:      "root is a list",
			doc:       "- a\n- b\n",
			wantType:  &FieldTypeError{},
			errSubstr: `field "document" must be a mapping, got sequence`,
		},
		{
			name:      "missing job_step",
			doc:       "other: 1\n",
			wantType:  &MissingFieldError{},
			errSubstr: `missing required field "job_step"`,
		},
		{
			name:      "job_step is a scalar",
			doc:       "job_step: nope\n",
			wantType:  &FieldTypeError{},
			errSubstr: `field "job_step" must be a mapping, got scalar`,
		},
		{
			name: "missing step_name",
			doc: `
job_step:
  service_name: spark
  service_config: {}
`,
			wantType:  &MissingFieldError{},
			errSubstr: `"job_step.step_name"`,
		},
		{
			name: "null service_name",
			doc: `
job_step:
  step_name: s
  service_name:
  service_config: {}
`,
			wantType:  &FieldTypeError{},
			errSubstr: `field "job_step.service_name" must be a string, got null`,
		},
		{
			name: "missing service_config",
			doc: `
job_step:
  step_name: s
  service_name: spark
`,
			wantType:  &MissingFieldError{},
			errSubstr: `"job_step.service_config"`,
		},
		{
			name: "service_config is a list",
			doc: `
job_step:
  step_name: s
  service_name: spark
  service_config: [a]
`,
			wantType:  &FieldTypeError{},
			errSubstr: "got sequence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.yml", []byte(tt.doc))
			require.Error(t, err)

			assert.IsType(t, tt.wantType, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
			assert.Contains(t, err.Error(), "bad.yml")
			assert.True(t, errors.Is(err, core.ErrInvalidDocument))
			assert.True(t, IsInvalidDocument(err))
		})
	}
}

func TestParseError_Line(t *testing.T) {
	_, err := Parse("broken.yml", []byte("job_step:\n  step_name: a\n  bad: [x\n"))
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Positive(t, perr.Line)
}

func TestParse_ExcessiveAliasing(t *testing.T) {
	doc := "job_step:\n  step_name: s\n  service_name: x\n  service_config:\n    l0: &l0 [t, t, t, t, t, t, t, t, t, t]\n"
	for i := 1; i <= 6; i++ {
		doc += fmt.Sprintf("    l%d: &l%d [*l%d, *l%d, *l%d, *l%d, *l%d, *l%d, *l%d, *l%d, *l%d, *l%d]\n",
			i, i, i-1, i-1, i-1, i-1, i-1, i-1, i-1, i-1, i-1, i-1)
	}

	_, err := Parse("bomb.yml", []byte(doc))
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bomb.yml: document contains excessive aliasing", perr.Error())
	assert.True(t, IsInvalidDocument(err))
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "step.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDoc), 0o600))

	step, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "load_orders", step.StepName)

	_, err = ParseFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.False(t, IsInvalidDocument(err))
}

func TestFromNode(t *testing.T) {
	root := confignode.Object(
		"job_step", confignode.Object(
			"step_name", "s",
			"service_name", "svc",
			"service_config", confignode.Object("database_name", "db", "table_name", "t"),
		),
	)

	step, err := FromNode("", root)
	require.NoError(t, err)
	assert.Equal(t, 2, step.ServiceConfig.Len())
}
