package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tcmartin/nodeharvest/pkg/nodes"
	"github.com/tcmartin/nodeharvest/pkg/registry"
	"github.com/tcmartin/nodeharvest/pkg/staging"
)

// ExtractPackages resolves every specifier, installs all packages into
// one shared workspace, then extracts each package concurrently. A
// failure before the install, or the install itself failing, fails the
// whole run; after that point each package fails in isolation and is
// simply absent from the result map.
func (e *Extractor) ExtractPackages(ctx context.Context, rawSpecs []string) (*MultiResult, error) {
	infos := make([]*registry.PackageInfo, 0, len(rawSpecs))
	for _, raw := range rawSpecs {
		spec, err := registry.ParseSpecifier(raw)
		if err != nil {
			return nil, err
		}
		info, err := e.registry.Resolve(ctx, spec)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	runID := uuid.New().String()
	workDir, err := os.MkdirTemp("", "nodeharvest-multi-"+runID[:8]+"-")
	if err != nil {
		return nil, err
	}
	defer e.cleanup(workDir)

	e.logger.Info("extracting packages", "count", len(infos), "workDir", workDir)

	if err := e.stager.InstallShared(ctx, workDir, infos); err != nil {
		return nil, err
	}

	type packageResult struct {
		name  string
		nodes []*nodes.Description
		err   error
	}
	results := make([]packageResult, len(infos))

	var wg sync.WaitGroup
	for i, info := range infos {
		wg.Add(1)
		go func(i int, info *registry.PackageInfo) {
			defer wg.Done()
			list, err := e.extractInstalled(ctx, workDir, info)
			results[i] = packageResult{name: info.Name, nodes: list, err: err}
		}(i, info)
	}
	wg.Wait()

	packages := make(map[string][]*nodes.Description, len(infos))
	totalNodes := 0
	for _, r := range results {
		if r.err != nil {
			e.logger.Warn("skipping package", "package", r.name, "error", r.err)
			continue
		}
		packages[r.name] = r.nodes
		totalNodes += len(r.nodes)
	}

	return &MultiResult{
		RunID:         runID,
		ExtractedAt:   time.Now().UTC(),
		TotalPackages: len(packages),
		TotalNodes:    totalNodes,
		Format:        FormatNodeDescriptions,
		Packages:      packages,
	}, nil
}

// extractInstalled describes one package already present under the
// shared workspace's node_modules tree.
func (e *Extractor) extractInstalled(ctx context.Context, workDir string, info *registry.PackageInfo) ([]*nodes.Description, error) {
	root := filepath.Join(workDir, "node_modules", filepath.FromSlash(info.Name))
	manifest, err := staging.ReadManifest(root)
	if err != nil {
		return nil, fmt.Errorf("package %s not installed: %w", info.Name, err)
	}

	refs := e.locator.FindModules(ctx, root, manifest.NodePaths())
	depsDir := filepath.Join(workDir, "node_modules")
	return e.describeAll(ctx, info.Name, root, refs, depsDir), nil
}
