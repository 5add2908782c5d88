package version

import (
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// semverRegex validates semantic versioning format
var semverRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

func TestVersionConstants(t *testing.T) {
	tests := []struct {
		name    string
		version string
	}{
		{"Taskdir", Taskdir},
		{"Naming", Naming},
		{"ControlTask", ControlTask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !semverRegex.MatchString(tt.version) {
				t.Errorf("%s version %q does not match semver format (x.y.z)", tt.name, tt.version)
			}
		})
	}
}

func TestProtocolVersion(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		expected string
	}{
		{"naming protocol", "naming", Naming},
		{"control task protocol", "controltask", ControlTask},
		{"unknown protocol", "unknown", Taskdir},
		{"empty protocol", "", Taskdir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := ProtocolVersion(tt.protocol); result != tt.expected {
				t.Errorf("ProtocolVersion(%q) = %q, want %q", tt.protocol, result, tt.expected)
			}
		})
	}
}

func TestGet(t *testing.T) {
	info := Get()

	if info.Version != Taskdir {
		t.Errorf("Version = %q, want %q", info.Version, Taskdir)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
	if !strings.HasPrefix(info.String(), "taskdir v"+Taskdir) {
		t.Errorf("String() = %q", info.String())
	}
}
