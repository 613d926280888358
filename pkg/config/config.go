// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/utils"
)

// SlotConflictPolicy decides which package is masked when two packages
// compete for a slot
type SlotConflictPolicy string

const (
	HighestVersion SlotConflictPolicy = "highest-version"
	LastPulled     SlotConflictPolicy = "last-pulled"
)

type RepositoryConfig struct {
	Name string `yaml:"name"`
	// Location is a repository document, or a directory holding repository.yaml
	Location string `yaml:"location"`
	// SyncType is one of git, local
	SyncType string `yaml:"sync-type,omitempty"`
	SyncURI  string `yaml:"sync-uri,omitempty"`
	// SyncBranch defaults to the remote HEAD
	SyncBranch string `yaml:"sync-branch,omitempty"`
}

// DocumentPath gives the repository document inside Location
func (r *RepositoryConfig) DocumentPath() string {
	if ok, _ := utils.DirExists(r.Location); ok {
		return filepath.Join(r.Location, RepositoryFileName)
	}
	return r.Location
}

const RepositoryFileName = "repository.yaml"

type Config struct {
	HomePath string `yaml:"-"`

	Root     string `yaml:"root,omitempty"`
	HostRoot string `yaml:"host-root,omitempty"`

	ProfilePath    string              `yaml:"profile,omitempty"`
	Repositories   []*RepositoryConfig `yaml:"repositories,omitempty"`
	BinaryPackages string              `yaml:"binary-packages,omitempty"`

	Backtrack  int  `yaml:"backtrack,omitempty"`
	Autounmask bool `yaml:"autounmask,omitempty"`
	Jobs       int  `yaml:"jobs,omitempty"`
	// MergeCommand runs once per merge-list entry. Entries are only
	// recorded in the installed database when it is empty.
	MergeCommand       []string           `yaml:"merge-command,omitempty"`
	SlotConflictPolicy SlotConflictPolicy `yaml:"slot-conflict-policy,omitempty"`
}

// InstalledPath is the installed package database of root
func (c *Config) InstalledPath(root string) string {
	return filepath.Join(root, InstalledDBPath)
}

func (c *Config) WorldPath() string {
	return filepath.Join(c.Root, WorldFilePath)
}

// Roots lists the target root, then the host root when it differs
func (c *Config) Roots() []string {
	return lo.Uniq([]string{c.Root, c.HostRoot})
}

func Get() (*Config, error) {
	homePath, err := getHomePath()
	if err != nil {
		return nil, err
	}
	return GetWithCustomHome(homePath)
}

func GetWithCustomHome(homePath string) (*Config, error) {
	config := Config{}

	// pmerge-config.yaml is optional
	configFilePath := filepath.Join(homePath, ConfigFileName)
	fileInfo, err := os.Stat(configFilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		if fileInfo.IsDir() {
			return nil, fmt.Errorf("%q is directory and not a file", configFilePath)
		}

		bytes, err := os.ReadFile(configFilePath)
		if err != nil {
			return nil, err
		}

		if err := yaml.UnmarshalWithOptions(bytes, &config, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", configFilePath, err)
		}
	}

	if root, ok := os.LookupEnv(RootEnvVar); ok {
		config.Root = root
	}
	if config.Root == "" {
		config.Root = "/"
	}
	if hostRoot, ok := os.LookupEnv(HostRootEnvVar); ok {
		config.HostRoot = hostRoot
	}
	if config.HostRoot == "" {
		config.HostRoot = "/"
	}
	config.Root = utils.ResolvePath(homePath, config.Root)
	config.HostRoot = utils.ResolvePath(homePath, config.HostRoot)

	if p, ok := os.LookupEnv(ProfileEnvVar); ok {
		config.ProfilePath = p
	}
	if config.ProfilePath == "" {
		config.ProfilePath = ProfileFileName
	}
	config.ProfilePath = utils.ResolvePath(homePath, config.ProfilePath)

	for _, r := range config.Repositories {
		if r.Name == "" || r.Location == "" {
			return nil, fmt.Errorf("invalid %s: repositories need a name and a location", configFilePath)
		}
		r.Location = utils.ResolvePath(homePath, r.Location)
	}
	if config.BinaryPackages != "" {
		config.BinaryPackages = utils.ResolvePath(homePath, config.BinaryPackages)
	}

	backtrack, ok, err := utils.IntEnvVar(BacktrackEnvVar)
	if err != nil {
		return nil, err
	}
	if ok {
		config.Backtrack = backtrack
	} else if config.Backtrack == 0 {
		config.Backtrack = DefaultBacktrack
	}

	autounmask, ok, err := utils.BoolEnvVar(AutounmaskEnvVar)
	if err != nil {
		return nil, err
	}
	if ok {
		config.Autounmask = autounmask
	}

	jobs, ok, err := utils.IntEnvVar(JobsEnvVar)
	if err != nil {
		return nil, err
	}
	if ok {
		config.Jobs = jobs
	}
	if config.Jobs <= 0 {
		config.Jobs = DefaultJobs
	}

	switch config.SlotConflictPolicy {
	case "":
		config.SlotConflictPolicy = HighestVersion
	case HighestVersion, LastPulled:
	default:
		return nil, fmt.Errorf("invalid slot-conflict-policy %q. expected one of %q, %q", config.SlotConflictPolicy, HighestVersion, LastPulled)
	}

	config.HomePath = homePath
	return &config, nil
}

func getHomePath() (string, error) {
	if v, ok := os.LookupEnv(HomeEnvVar); ok {
		return v, nil
	}

	return getAppUserDataDirectory("pmerge")
}

func getAppUserDataDirectory(appName string) (string, error) {
	switch runtime.GOOS {
	case "windows":
		dir, ok := os.LookupEnv("APPDATA")
		if !ok {
			return "", fmt.Errorf("APPDATA environment variable is not set")
		}
		return filepath.Join(dir, appName), nil
	default:
		dir, ok := os.LookupEnv("HOME")
		if !ok {
			return "", fmt.Errorf("HOME environment variable is not set")
		}
		return filepath.Join(dir, "."+appName), nil
	}
}
