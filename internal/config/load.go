package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
)

// ConfigFileName is the name of the forge configuration file.
const ConfigFileName = "forge.toml"

// FindConfigFile walks up from the given directory to find forge.toml.
// Returns the absolute path to the config file, or an empty string if not found.
// Stops at the filesystem root.
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root.
			return "", nil
		}
		dir = parent
	}
}

// LoadFromFile parses the TOML file at the given path and returns the
// configuration and TOML metadata. The metadata can be used to detect
// unknown keys via MetaData.Undecoded().
func LoadFromFile(path string) (*Config, toml.MetaData, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, md, fmt.Errorf("loading config %s: %w", path, err)
	}
	return &cfg, md, nil
}

// workflowFile is the layout of a standalone workflow file: a workflow table
// at the top level plus an optional name.
type workflowFile struct {
	Name string `toml:"name"`
	WorkflowConfig
}

// WorkflowSource is a workflow loaded from a standalone file.
type WorkflowSource struct {
	Name     string
	Path     string
	Workflow WorkflowConfig
	Meta     toml.MetaData
}

// LoadWorkflowFiles loads every file under root matching the doublestar
// pattern (for example "workflows/**/*.toml"). A file's workflow is named by
// its "name" key or, when absent, by the file name without extension.
// Results are sorted by path. A missing root directory yields no workflows.
func LoadWorkflowFiles(root, pattern string) ([]WorkflowSource, error) {
	if pattern == "" {
		return nil, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid workflow_files pattern %q", pattern)
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading workflow root %s: %w", root, err)
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("matching workflow files %q: %w", pattern, err)
	}
	sort.Strings(matches)

	sources := make([]WorkflowSource, 0, len(matches))
	for _, rel := range matches {
		full := filepath.Join(root, filepath.FromSlash(rel))
		var wf workflowFile
		md, err := toml.DecodeFile(full, &wf)
		if err != nil {
			return nil, fmt.Errorf("loading workflow file %s: %w", full, err)
		}
		name := wf.Name
		if name == "" {
			name = strings.TrimSuffix(path.Base(rel), path.Ext(rel))
		}
		sources = append(sources, WorkflowSource{
			Name:     name,
			Path:     full,
			Workflow: wf.WorkflowConfig,
			Meta:     md,
		})
	}
	return sources, nil
}

// MergeWorkflowFiles adds the loaded workflows to rc. Workflows already
// defined in forge.toml win over files; a name defined by two files keeps the
// first one (by path) and reports the clash in the returned list.
func MergeWorkflowFiles(rc *ResolvedConfig, sources []WorkflowSource) []string {
	if rc.Config.Workflows == nil {
		rc.Config.Workflows = make(map[string]WorkflowConfig)
	}
	var clashes []string
	seen := make(map[string]string, len(sources))
	for _, src := range sources {
		if _, ok := rc.Config.Workflows[src.Name]; ok {
			if first, dup := seen[src.Name]; dup {
				clashes = append(clashes, fmt.Sprintf("workflow %q in %s already defined by %s", src.Name, src.Path, first))
			} else {
				clashes = append(clashes, fmt.Sprintf("workflow %q in %s shadowed by %s", src.Name, src.Path, ConfigFileName))
			}
			continue
		}
		rc.Config.Workflows[src.Name] = copyWorkflowConfig(src.Workflow)
		rc.Sources["workflows."+src.Name] = SourceWorkflowFile
		seen[src.Name] = src.Path
	}
	return clashes
}
