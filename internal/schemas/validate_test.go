package schemas

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/13maks37/sanctions-checker/internal/types"
	embedded "github.com/13maks37/sanctions-checker/schemas"
)

func TestValidate_Config(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"empty object", `{}`, false},
		{"full", `{
			"threshold": 90, "scorer": "token_set", "workers": 2, "source_timeout": "90s",
			"log_level": "debug", "log_format": "json", "port": 8080,
			"sources": [
				{"name": "OFAC", "url": "https://example.com/sdn.csv", "format": "csv", "schema": {"kind": "column", "column": 1}},
				{"name": "UN", "url": "https://example.com/un.xml", "format": "xml", "schema": {"kind": "xml_records",
					"records": [{"element": "INDIVIDUAL", "fields": ["FIRST_NAME"], "alias": "INDIVIDUAL_ALIAS", "alias_field": "ALIAS_NAME"}]}}
			]
		}`, false},
		{"threshold too high", `{"threshold": 120}`, true},
		{"unknown scorer", `{"scorer": "partial_ratio"}`, true},
		{"bad duration", `{"source_timeout": "two minutes"}`, true},
		{"unknown key", `{"thresold": 80}`, true},
		{"source without url", `{"sources": [{"name": "X", "format": "csv"}]}`, true},
		{"ftp url", `{"sources": [{"name": "X", "url": "ftp://x", "format": "csv"}]}`, true},
		{"unknown kind", `{"sources": [{"name": "X", "url": "https://x", "format": "csv", "schema": {"kind": "regex"}}]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(embedded.Config, []byte(tt.doc))
			if tt.wantErr {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.NotEmpty(t, ve.Errors)
				assert.Contains(t, err.Error(), embedded.Config)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateValue_YAMLShapedDocument(t *testing.T) {
	doc := map[string]any{
		"workers": 3,
		"sources": []any{
			map[string]any{"name": "EU", "url": "https://example.com/eu.xml", "format": "xml"},
		},
	}
	assert.NoError(t, ValidateValue(embedded.Config, doc))

	doc["workers"] = 0
	assert.Error(t, ValidateValue(embedded.Config, doc))
}

func TestValidate_Report(t *testing.T) {
	r := types.NewScreeningReport(types.NewCompanies([]string{"Acme (UK) Ltd"}), []string{"OFAC"})
	r.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.Threshold = 85
	r.Statuses = []types.SourceStatus{{Name: "OFAC", Available: true, Candidates: 3, Duration: time.Second}}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NoError(t, Validate(embedded.Report, data))

	assert.Error(t, Validate(embedded.Report, []byte(`{"companies": []}`)))
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("missing.schema.json", []byte(`{}`))
	var le *SchemaLoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), "missing.schema.json")
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(embedded.Config, []byte(`{ invalid json }`))
	var le *SchemaLoadError
	assert.ErrorAs(t, err, &le)
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type": "object", "required": ["companies"], "properties": {"companies": {"type": "array", "items": {"type": "string"}}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"companies": ["Acme"]}`))

	err := ValidateJSONString(schema, `{"companies": [1]}`)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "companies.0", ve.Errors[0].Field)
}
