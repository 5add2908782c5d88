// ============================================================================
// taskdir - Control Task Discovery
// ============================================================================
//
// Package:     version
// Description: Version information for the taskdir binary and its protocols
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package version

import (
	"fmt"
	"runtime"
)

// Release versions
const (
	// Taskdir is the version of the discovery library and CLI
	Taskdir = "1.0.0"

	// Naming is the version of the naming wire protocol
	Naming = "1.0.0"

	// ControlTask is the version of the control-task wire protocol
	ControlTask = "1.0.0"
)

// Build metadata, set with -ldflags "-X github.com/msto63/taskdir/pkg/core/version.GitCommit=..."
var (
	GitCommit = "development"
	BuildDate = "unknown"
)

// Info summarizes the build for the version command and health reports
type Info struct {
	Version     string `json:"version" yaml:"version"`
	Naming      string `json:"naming" yaml:"naming"`
	ControlTask string `json:"control_task" yaml:"control_task"`
	GitCommit   string `json:"git_commit" yaml:"git_commit"`
	BuildDate   string `json:"build_date" yaml:"build_date"`
	GoVersion   string `json:"go_version" yaml:"go_version"`
	Platform    string `json:"platform" yaml:"platform"`
}

// Get returns the build information of the running binary
func Get() Info {
	return Info{
		Version:     Taskdir,
		Naming:      Naming,
		ControlTask: ControlTask,
		GitCommit:   GitCommit,
		BuildDate:   BuildDate,
		GoVersion:   runtime.Version(),
		Platform:    fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// ProtocolVersion returns the version for a given protocol name
func ProtocolVersion(name string) string {
	switch name {
	case "naming":
		return Naming
	case "controltask":
		return ControlTask
	default:
		return Taskdir
	}
}

// String renders the one-line version banner
func (i Info) String() string {
	return fmt.Sprintf("taskdir v%s (%s, %s)", i.Version, i.GitCommit, i.Platform)
}
