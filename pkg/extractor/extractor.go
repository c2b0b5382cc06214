// Package extractor orchestrates the end-to-end pipeline: resolve a
// package against the registry, stage it with its dependencies, locate
// its node modules, and describe each one.
package extractor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tcmartin/nodeharvest/pkg/loader"
	"github.com/tcmartin/nodeharvest/pkg/nodes"
	"github.com/tcmartin/nodeharvest/pkg/registry"
	"github.com/tcmartin/nodeharvest/pkg/staging"
)

// Options configures an Extractor. Nil fields get working defaults.
type Options struct {
	Registry *registry.Client
	Stager   *staging.Stager
	Locator  *loader.Locator
	Modules  *loader.ModuleLoader
	Logger   *slog.Logger
}

// Extractor runs extraction pipelines.
type Extractor struct {
	registry *registry.Client
	stager   *staging.Stager
	locator  *loader.Locator
	modules  *loader.ModuleLoader
	logger   *slog.Logger
}

// New creates an extractor from opts.
func New(opts Options) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		registry: opts.Registry,
		stager:   opts.Stager,
		locator:  opts.Locator,
		modules:  opts.Modules,
		logger:   logger,
	}
	if e.registry == nil {
		e.registry = registry.NewClient("", logger)
	}
	if e.stager == nil {
		e.stager = staging.NewStager(nil, logger)
	}
	if e.locator == nil {
		e.locator = loader.NewLocator(logger)
	}
	if e.modules == nil {
		e.modules = loader.NewModuleLoader(0, logger)
	}
	return e
}

// ExtractPackage resolves, stages, and describes a single package. The
// working directory is removed before returning, on success or
// failure; removal failures are logged and ignored.
func (e *Extractor) ExtractPackage(ctx context.Context, rawSpec string) (*Result, error) {
	spec, err := registry.ParseSpecifier(rawSpec)
	if err != nil {
		return nil, err
	}

	info, err := e.registry.Resolve(ctx, spec)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	workDir, err := os.MkdirTemp("", "nodeharvest-"+runID[:8]+"-")
	if err != nil {
		return nil, err
	}
	defer e.cleanup(workDir)

	e.logger.Info("extracting package", "package", info.Name, "version", info.Version, "workDir", workDir)

	staged, err := e.stager.Stage(ctx, info, workDir)
	if err != nil {
		return nil, err
	}
	if err := e.stager.PrepareDependencies(ctx, staged); err != nil {
		return nil, err
	}

	refs := e.locator.FindModules(ctx, staged.Root, staged.Manifest.NodePaths())
	depsDir := filepath.Join(staged.Root, "node_modules")
	descriptions := e.describeAll(ctx, info.Name, staged.Root, refs, depsDir)

	return &Result{
		RunID:       runID,
		Package:     info.Name,
		Version:     info.Version,
		ExtractedAt: time.Now().UTC(),
		TotalNodes:  len(descriptions),
		Format:      FormatNodeDescriptions,
		Nodes:       descriptions,
	}, nil
}

// describeAll loads and describes every located module concurrently.
// Results keep the declaration order of refs; modules that fail to
// load or describe are logged and dropped.
func (e *Extractor) describeAll(ctx context.Context, packageName, root string, refs []loader.ModuleRef, depsDir string) []*nodes.Description {
	slots := make([]*nodes.Description, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref loader.ModuleRef) {
			defer wg.Done()
			description, err := e.describeModule(ctx, packageName, root, ref, depsDir)
			if err != nil {
				e.logger.Warn("skipping node module", "package", packageName, "module", ref.Declared, "error", err)
				return
			}
			slots[i] = description
		}(i, ref)
	}
	wg.Wait()

	descriptions := make([]*nodes.Description, 0, len(refs))
	for _, d := range slots {
		if d != nil {
			descriptions = append(descriptions, d)
		}
	}
	return descriptions
}

func (e *Extractor) describeModule(ctx context.Context, packageName, root string, ref loader.ModuleRef, depsDir string) (*nodes.Description, error) {
	node, err := e.modules.Load(ctx, ref.Path, depsDir)
	if err != nil {
		return nil, err
	}

	raw, err := node.Describe()
	if err != nil {
		return nil, err
	}

	origin := nodes.Origin{
		PackageName: packageName,
		PackageRoot: root,
		ModulePath:  ref.Path,
	}
	return nodes.Normalize(raw, origin, node.LoadOptionsMethods())
}

func (e *Extractor) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		e.logger.Warn("failed to remove working directory", "dir", dir, "error", err)
	}
}
