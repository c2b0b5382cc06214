package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestName is the npm manifest filename.
const ManifestName = "package.json"

// PackageJSON models the manifest fields the stager reads and rewrites.
// Unrecognized fields are dropped on rewrite. The n8n section declares
// the node module entry points.
type PackageJSON struct {
	Name             string            `json:"name"`
	Version          string            `json:"version,omitempty"`
	Private          bool              `json:"private,omitempty"`
	Main             string            `json:"main,omitempty"`
	Dependencies     map[string]string `json:"dependencies,omitempty"`
	DevDependencies  map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies map[string]string `json:"peerDependencies,omitempty"`
	N8N              *N8NSection       `json:"n8n,omitempty"`
}

// N8NSection is the community-package metadata block.
type N8NSection struct {
	APIVersion  any      `json:"n8nNodesApiVersion,omitempty"`
	Nodes       []string `json:"nodes,omitempty"`
	Credentials []string `json:"credentials,omitempty"`
}

// ReadManifest parses dir/package.json.
func ReadManifest(dir string) (*PackageJSON, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest PackageJSON
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &manifest, nil
}

// Write serializes the manifest back into dir/package.json.
func (m *PackageJSON) Write(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// NodePaths returns the declared node module paths, in declaration
// order. The result is empty when the package declares none.
func (m *PackageJSON) NodePaths() []string {
	if m.N8N == nil {
		return nil
	}
	return m.N8N.Nodes
}
