package extractor

import (
	"path/filepath"
	"time"

	"github.com/tcmartin/nodeharvest/pkg/nodes"
	"github.com/tcmartin/nodeharvest/pkg/utils"
)

// FormatNodeDescriptions tags every artifact this tool writes; single-
// and multi-package runs share it so consumers key on one value.
const FormatNodeDescriptions = "node-descriptions"

// MultiResultFileName is the artifact name for a multi-package run.
const MultiResultFileName = "multiple-packages.json"

// Result is the artifact produced by a single-package run.
type Result struct {
	RunID       string               `json:"runId"`
	Package     string               `json:"package"`
	Version     string               `json:"version"`
	ExtractedAt time.Time            `json:"extractedAt"`
	TotalNodes  int                  `json:"totalNodes"`
	Format      string               `json:"format"`
	Nodes       []*nodes.Description `json:"nodes"`
}

// MultiResult is the artifact produced by a multi-package run. The
// Packages map is keyed by full package name; packages that failed are
// absent.
type MultiResult struct {
	RunID         string                          `json:"runId"`
	ExtractedAt   time.Time                       `json:"extractedAt"`
	TotalPackages int                             `json:"totalPackages"`
	TotalNodes    int                             `json:"totalNodes"`
	Format        string                          `json:"format"`
	Packages      map[string][]*nodes.Description `json:"packages"`
}

// WriteResult serializes res into dir, named after the package with
// registry separators flattened. The artifact path is returned.
func WriteResult(dir string, res *Result) (string, error) {
	path := filepath.Join(dir, utils.SanitizeFileName(res.Package)+".json")
	if err := utils.WriteJSONFile(path, res); err != nil {
		return "", err
	}
	return path, nil
}

// WriteMultiResult serializes res into dir under the fixed
// multi-package artifact name. The artifact path is returned.
func WriteMultiResult(dir string, res *MultiResult) (string, error) {
	path := filepath.Join(dir, MultiResultFileName)
	if err := utils.WriteJSONFile(path, res); err != nil {
		return "", err
	}
	return path, nil
}
