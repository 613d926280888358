// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package buildinfo

import (
	"github.com/Masterminds/semver/v3"
)

// To be populated at build-time, e.g.:
// go build -ldflags "-X 'portage.dev/x/pmerge/pkg/buildinfo.Version=1.2.3'"
var (
	Version   string
	Build     string
	BuildDate string
)

type VersionInfo struct {
	Version   string `yaml:"version"`
	Build     string `yaml:"build"`
	BuildDate string `yaml:"build-date"`
}

func defaultUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func Get() VersionInfo {
	return VersionInfo{
		Version:   defaultUnknown(Version),
		Build:     defaultUnknown(Build),
		BuildDate: defaultUnknown(BuildDate),
	}
}

func GetVersion() string {
	return defaultUnknown(Version)
}

// SemVer parses the embedded version, nil for development builds
func SemVer() *semver.Version {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return nil
	}
	return v
}
