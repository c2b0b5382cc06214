// Package staging downloads package tarballs, extracts them into a
// working directory, and installs their runtime dependencies through
// an external package manager.
package staging

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tcmartin/nodeharvest/pkg/registry"
)

// Common errors
var (
	ErrDownloadFailed = errors.New("package download failed")
	ErrExtractFailed  = errors.New("package archive extraction failed")
	ErrInstallFailed  = errors.New("dependency installation failed")
)

// CorePackages are the platform runtime libraries every staged package
// must be able to resolve at load time.
var CorePackages = []string{"n8n-core", "n8n-workflow"}

// DefaultInstallCommand is the package manager invocation used when
// none is configured.
var DefaultInstallCommand = []string{"npm", "install", "--omit=dev", "--no-audit", "--no-fund", "--loglevel=error"}

// StagedPackage is an extracted package on disk.
type StagedPackage struct {
	// Root is the directory holding the extracted package contents.
	Root string
	// Manifest is the parsed package.json from Root.
	Manifest *PackageJSON
}

// Stager stages packages into working directories.
type Stager struct {
	client  *http.Client
	install []string
	core    []string
	logger  *slog.Logger
}

// NewStager creates a stager. An empty installCommand selects
// DefaultInstallCommand.
func NewStager(installCommand []string, logger *slog.Logger) *Stager {
	if len(installCommand) == 0 {
		installCommand = DefaultInstallCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
		install: installCommand,
		core:    CorePackages,
		logger:  logger,
	}
}

// SetCorePackages overrides the platform packages pinned into every
// staged installation.
func (s *Stager) SetCorePackages(packages []string) {
	if len(packages) > 0 {
		s.core = packages
	}
}

// Stage downloads the package tarball into workDir and extracts it
// into workDir/extracted, dropping the archive's top-level wrapper
// folder so the package contents sit directly under the root.
func (s *Stager) Stage(ctx context.Context, info *registry.PackageInfo, workDir string) (*StagedPackage, error) {
	archive := filepath.Join(workDir, "package.tgz")
	if err := s.download(ctx, info.TarballURL, archive); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDownloadFailed, info.Name, err)
	}

	root := filepath.Join(workDir, "extracted")
	if err := extractTarball(archive, root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractFailed, info.Name, err)
	}

	manifest, err := ReadManifest(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s has no readable manifest: %v", ErrExtractFailed, info.Name, err)
	}

	s.logger.Debug("staged package", "package", info.Name, "version", info.Version, "root", root)
	return &StagedPackage{Root: root, Manifest: manifest}, nil
}

// PrepareDependencies rewrites the staged manifest so the package can
// be loaded outside a host installation, then runs the installer in
// the package root. Peer dependencies are promoted to regular ones,
// the core platform packages are pinned to any available version, and
// development dependencies are dropped.
func (s *Stager) PrepareDependencies(ctx context.Context, staged *StagedPackage) error {
	m := staged.Manifest
	if m.Dependencies == nil {
		m.Dependencies = make(map[string]string)
	}
	for name, version := range m.PeerDependencies {
		if _, ok := m.Dependencies[name]; !ok {
			m.Dependencies[name] = version
		}
	}
	for _, core := range s.core {
		if _, ok := m.Dependencies[core]; !ok {
			m.Dependencies[core] = "*"
		}
	}
	m.DevDependencies = nil
	m.PeerDependencies = nil

	if err := m.Write(staged.Root); err != nil {
		return err
	}
	return s.runInstaller(ctx, staged.Root)
}

// InstallShared writes a synthetic workspace manifest into dir that
// depends on every resolved package at its exact version, plus the
// core platform packages, and runs the installer once for all of them.
// Each package then sits under dir/node_modules/<name>.
func (s *Stager) InstallShared(ctx context.Context, dir string, infos []*registry.PackageInfo) error {
	deps := make(map[string]string, len(infos)+len(s.core))
	for _, info := range infos {
		deps[info.Name] = info.Version
	}
	for _, core := range s.core {
		if _, ok := deps[core]; !ok {
			deps[core] = "*"
		}
	}

	workspace := &PackageJSON{
		Name:         "nodeharvest-workspace",
		Version:      "1.0.0",
		Private:      true,
		Dependencies: deps,
	}
	if err := workspace.Write(dir); err != nil {
		return err
	}
	return s.runInstaller(ctx, dir)
}

func (s *Stager) download(ctx context.Context, tarballURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tarballURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return err
	}
	return out.Close()
}

// extractTarball unpacks a gzipped tarball into dest. npm archives wrap
// their contents in a single top-level folder, usually "package"; the
// wrapper segment is stripped regardless of its name. Entries that
// would escape dest are skipped.
func extractTarball(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("not a gzip archive: %w", err)
	}
	defer gzr.Close()

	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("corrupt archive: %w", err)
		}

		name := stripWrapperDir(header.Name)
		if name == "" {
			continue
		}

		clean := filepath.Clean(filepath.FromSlash(name))
		if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
			continue
		}
		target := filepath.Join(dest, clean)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := writeFileFromTar(target, tr, header); err != nil {
				return err
			}
		default:
			// Symlinks and special files are not extracted.
		}
	}
	return nil
}

func writeFileFromTar(target string, tr *tar.Reader, header *tar.Header) error {
	mode := header.FileInfo().Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, tr); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// stripWrapperDir drops the first path segment of a tar entry name.
// The wrapper directory entry itself maps to the empty string.
func stripWrapperDir(name string) string {
	name = strings.TrimPrefix(name, "./")
	if i := strings.Index(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// runInstaller executes the configured package manager in dir and
// blocks until it exits. Its combined output is captured for the
// error message on failure.
func (s *Stager) runInstaller(ctx context.Context, dir string) error {
	command := strings.Join(s.install, " ")
	s.logger.Debug("installing dependencies", "dir", dir, "command", command)

	cmd := exec.CommandContext(ctx, s.install[0], s.install[1:]...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			return fmt.Errorf("%w: %s: %v: %s", ErrInstallFailed, command, err, detail)
		}
		return fmt.Errorf("%w: %s: %v", ErrInstallFailed, command, err)
	}
	return nil
}
