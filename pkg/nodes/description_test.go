package nodes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPackageID(t *testing.T) {
	tests := []struct {
		name        string
		packageName string
		want        string
	}{
		{
			name:        "conventional prefix",
			packageName: "n8n-nodes-weather",
			want:        "weather",
		},
		{
			name:        "scoped with prefix",
			packageName: "@acme/n8n-nodes-crm",
			want:        "crm",
		},
		{
			name:        "scoped without prefix",
			packageName: "@acme/crm-tools",
			want:        "crm-tools",
		},
		{
			name:        "no prefix at all",
			packageName: "custom-nodes",
			want:        "custom-nodes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanPackageID(tt.packageName))
		})
	}
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "n8n-nodes-weather.currentWeather", QualifiedName("n8n-nodes-weather", "currentWeather"))
	assert.Equal(t, "n8n-nodes-crm.contact", QualifiedName("@acme/n8n-nodes-crm", "contact"))
}

func TestQualifiedNameDistinctPairs(t *testing.T) {
	// Distinct package/name pairs must never collide.
	pairs := []struct{ pkg, node string }{
		{"n8n-nodes-weather", "current"},
		{"n8n-nodes-weather", "forecast"},
		{"n8n-nodes-climate", "current"},
		{"@acme/crm-tools", "contact"},
	}

	seen := make(map[string]bool)
	for _, p := range pairs {
		name := QualifiedName(p.pkg, p.node)
		assert.False(t, seen[name], "collision on %q", name)
		seen[name] = true
	}
}

func TestNormalize(t *testing.T) {
	raw := map[string]any{
		"displayName": "Current Weather",
		"name":        "currentWeather",
		"group":       []any{"transform"},
		"version":     int64(1),
		"description": "Fetches the current weather",
		"defaults":    map[string]any{"name": "Current Weather"},
		"inputs":      []any{"main"},
		"outputs":     []any{"main", "error"},
		"properties": []any{
			map[string]any{"displayName": "City", "name": "city", "type": "string"},
		},
		"credentials": []any{
			map[string]any{"name": "weatherApi", "required": true},
		},
	}
	origin := Origin{
		PackageName: "n8n-nodes-weather",
		PackageRoot: "/tmp/pkg",
		ModulePath:  "/tmp/pkg/dist/CurrentWeather.node.js",
	}

	d, err := Normalize(raw, origin, []string{"getCities", "getUnits"})
	require.NoError(t, err)

	assert.Equal(t, "n8n-nodes-weather.currentWeather", d.Name)
	assert.Equal(t, "Current Weather", d.DisplayName)
	assert.Equal(t, []string{"transform"}, d.Group)
	assert.Equal(t, int64(1), d.Version)
	assert.Equal(t, []string{"main"}, d.Inputs)
	assert.Equal(t, []string{"main", "error"}, d.Outputs)
	assert.Len(t, d.Properties, 1)
	assert.Equal(t, "city", d.Properties[0]["name"])
	assert.Len(t, d.Credentials, 1)
	assert.Equal(t, []string{"getCities", "getUnits"}, d.LoadOptionsMethods)
}

func TestNormalizeDefaults(t *testing.T) {
	raw := map[string]any{"name": "minimal"}

	d, err := Normalize(raw, Origin{PackageName: "n8n-nodes-min"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"main"}, d.Inputs)
	assert.Equal(t, []string{"main"}, d.Outputs)
	assert.NotNil(t, d.Properties)
	assert.Empty(t, d.Properties)
	assert.Empty(t, d.LoadOptionsMethods)
	assert.Empty(t, d.Description)
}

func TestNormalizeMissingName(t *testing.T) {
	_, err := Normalize(map[string]any{"displayName": "No Name"}, Origin{}, nil)
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = Normalize(map[string]any{"name": ""}, Origin{}, nil)
	assert.ErrorIs(t, err, ErrMissingName)
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := map[string]any{
		"name":  "stable",
		"group": []any{"output"},
	}
	origin := Origin{PackageName: "@acme/n8n-nodes-stable"}

	first, err := Normalize(raw, origin, []string{"b", "a"})
	require.NoError(t, err)
	second, err := Normalize(raw, origin, []string{"a", "b"})
	require.NoError(t, err)

	// Method names are sorted, so capture order must not matter.
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a", "b"}, first.LoadOptionsMethods)
}

func TestNormalizeStripsFunctions(t *testing.T) {
	raw := map[string]any{
		"name": "withFunc",
		"properties": []any{
			map[string]any{
				"name":    "field",
				"handler": func() {},
			},
		},
	}

	d, err := Normalize(raw, Origin{PackageName: "n8n-nodes-x"}, nil)
	require.NoError(t, err)

	// The record must serialize cleanly even when the engine exported
	// function-valued members.
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "handler")
}

func TestNormalizeVersionShapes(t *testing.T) {
	origin := Origin{PackageName: "n8n-nodes-v"}

	d, err := Normalize(map[string]any{"name": "multi", "version": []any{int64(1), int64(2)}}, origin, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, d.Version)

	d, err = Normalize(map[string]any{"name": "single", "version": float64(2.1)}, origin, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(2.1), d.Version)
}
