package extractor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmartin/nodeharvest/pkg/nodes"
)

func sampleResult() *Result {
	return &Result{
		RunID:       "run-1",
		Package:     "@acme/n8n-nodes-crm",
		Version:     "0.3.1",
		ExtractedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		TotalNodes:  1,
		Format:      FormatNodeDescriptions,
		Nodes: []*nodes.Description{
			{
				DisplayName: "Contact",
				Name:        "n8n-nodes-crm.contact",
				Inputs:      []string{"main"},
				Outputs:     []string{"main"},
				Properties:  []map[string]any{},
			},
		},
	}
}

func TestWriteResult(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteResult(dir, sampleResult())
	require.NoError(t, err)

	// Scoped names flatten into a single file stem.
	assert.Equal(t, filepath.Join(dir, "acme-n8n-nodes-crm.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, FormatNodeDescriptions, decoded.Format)
	assert.Equal(t, 1, decoded.TotalNodes)
	require.Len(t, decoded.Nodes, 1)
	assert.Equal(t, "n8n-nodes-crm.contact", decoded.Nodes[0].Name)
	assert.True(t, decoded.ExtractedAt.Equal(sampleResult().ExtractedAt))
}

func TestWriteResultCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")

	path, err := WriteResult(dir, sampleResult())
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestWriteMultiResult(t *testing.T) {
	dir := t.TempDir()
	res := &MultiResult{
		RunID:         "run-2",
		ExtractedAt:   time.Now().UTC(),
		TotalPackages: 1,
		TotalNodes:    2,
		Format:        FormatNodeDescriptions,
		Packages: map[string][]*nodes.Description{
			"n8n-nodes-weather": {
				{Name: "n8n-nodes-weather.current", Inputs: []string{"main"}, Outputs: []string{"main"}, Properties: []map[string]any{}},
				{Name: "n8n-nodes-weather.forecast", Inputs: []string{"main"}, Outputs: []string{"main"}, Properties: []map[string]any{}},
			},
		},
	}

	path, err := WriteMultiResult(dir, res)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, MultiResultFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded MultiResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, FormatNodeDescriptions, decoded.Format)
	require.Len(t, decoded.Packages["n8n-nodes-weather"], 2)
}

func TestWriteMultiResultEmptyPackages(t *testing.T) {
	dir := t.TempDir()
	res := &MultiResult{
		RunID:       "run-3",
		ExtractedAt: time.Now().UTC(),
		Format:      FormatNodeDescriptions,
		Packages:    map[string][]*nodes.Description{},
	}

	path, err := WriteMultiResult(dir, res)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"packages": {}`)
}

func TestPrintSummary(t *testing.T) {
	var sb strings.Builder
	res := sampleResult()
	res.Nodes[0].Group = []string{"transform"}
	res.Nodes[0].Description = "Manages CRM contacts"
	res.Nodes[0].Icon = "fa:address-book"

	PrintSummary(&sb, res)
	out := sb.String()

	assert.Contains(t, out, "Extracted 1 nodes from @acme/n8n-nodes-crm@0.3.1")
	assert.Contains(t, out, "n8n-nodes-crm.contact: Contact")
	assert.Contains(t, out, "Manages CRM contacts")
	assert.Contains(t, out, "icon: fa:address-book")
}

func TestPrintMultiSummary(t *testing.T) {
	var sb strings.Builder
	res := &MultiResult{
		TotalPackages: 2,
		TotalNodes:    3,
		Packages: map[string][]*nodes.Description{
			"n8n-nodes-b": {{Name: "n8n-nodes-b.one", DisplayName: "One"}},
			"n8n-nodes-a": {
				{Name: "n8n-nodes-a.two", DisplayName: "Two"},
				{Name: "n8n-nodes-a.three", DisplayName: "Three"},
			},
		},
	}

	PrintMultiSummary(&sb, res)
	out := sb.String()

	assert.Contains(t, out, "Extracted 3 nodes from 2 packages")
	// Packages print in name order.
	assert.Less(t, strings.Index(out, "n8n-nodes-a (2 nodes)"), strings.Index(out, "n8n-nodes-b (1 nodes)"))
}
