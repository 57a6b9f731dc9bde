package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file markcheck looks for, walking up from the
// working directory.
const FileName = ".markcheck.yaml"

// File is the optional on-disk configuration. All option fields are pointers
// so that only keys present in the file override defaults.
type File struct {
	Paths []string `yaml:"paths,omitempty"`

	TimeoutSeconds  *int    `yaml:"timeout,omitempty"`
	CheckExternal   *bool   `yaml:"check_external,omitempty"`
	CheckLocal      *bool   `yaml:"check_local,omitempty"`
	FixRedirects    *bool   `yaml:"fix_redirects,omitempty"`
	FollowGitignore *bool   `yaml:"follow_gitignore,omitempty"`
	IncludePattern  *string `yaml:"include_pattern,omitempty"`
	ExcludePattern  *string `yaml:"exclude_pattern,omitempty"`
	Parallel        *bool   `yaml:"parallel,omitempty"`
	Workers         *int    `yaml:"workers,omitempty"`
	CheckLinks      *bool   `yaml:"check_links,omitempty"`
	CheckImages     *bool   `yaml:"check_images,omitempty"`

	Output string `yaml:"output,omitempty"`
	Fail   *bool  `yaml:"fail,omitempty"`
}

// Find walks up from start looking for the configuration file.
func Find(start string) (string, bool) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(current, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// Apply overrides opts with every option the file sets.
func (f *File) Apply(opts *Options) {
	if f == nil {
		return
	}
	if f.TimeoutSeconds != nil {
		opts.Timeout = time.Duration(*f.TimeoutSeconds) * time.Second
	}
	if f.CheckExternal != nil {
		opts.CheckExternal = *f.CheckExternal
	}
	if f.CheckLocal != nil {
		opts.CheckLocal = *f.CheckLocal
	}
	if f.FixRedirects != nil {
		opts.FixRedirects = *f.FixRedirects
	}
	if f.FollowGitignore != nil {
		opts.FollowGitignore = *f.FollowGitignore
	}
	if f.IncludePattern != nil {
		opts.IncludePattern = *f.IncludePattern
	}
	if f.ExcludePattern != nil {
		opts.ExcludePattern = *f.ExcludePattern
	}
	if f.Parallel != nil {
		opts.Parallel = *f.Parallel
	}
	if f.Workers != nil {
		opts.Workers = *f.Workers
	}
	if f.CheckLinks != nil {
		opts.CheckLinks = *f.CheckLinks
	}
	if f.CheckImages != nil {
		opts.CheckImages = *f.CheckImages
	}
}
