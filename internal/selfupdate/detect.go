// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/conjure-dev/conjure/pkg/platform"
)

// modulePath confirms that a binary in GOPATH/bin came from go install.
const modulePath = "github.com/conjure-dev/conjure"

// Install methods.
const (
	InstallUnknown InstallMethod = iota
	InstallScript
	InstallHomebrew
	InstallGoInstall
	InstallMise
	InstallFlatpak
	InstallSnap
)

// installMethodHint may be set with -ldflags to skip detection.
//
//nolint:gochecknoglobals // ldflags injection
var installMethodHint string

type (
	// InstallMethod tells how the running binary was installed. Only
	// InstallScript and InstallUnknown binaries are replaced in place.
	InstallMethod int

	// detector inspects the environment for DetectInstallMethod.
	detector struct {
		getenv    func(string) string
		home      func() (string, error)
		buildInfo func() (*debug.BuildInfo, bool)
		sandbox   func() platform.SandboxType
	}
)

var methodNames = map[InstallMethod]string{
	InstallUnknown:   "unknown",
	InstallScript:    "script",
	InstallHomebrew:  "homebrew",
	InstallGoInstall: "goinstall",
	InstallMise:      "mise",
	InstallFlatpak:   "flatpak",
	InstallSnap:      "snap",
}

func (m InstallMethod) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return "unknown"
}

// Managed reports whether a package manager owns the binary.
func (m InstallMethod) Managed() bool {
	switch m {
	case InstallHomebrew, InstallGoInstall, InstallMise, InstallFlatpak, InstallSnap:
		return true
	}
	return false
}

// UpgradeHint is the command a managed install should be upgraded with.
func (m InstallMethod) UpgradeHint() string {
	switch m {
	case InstallHomebrew:
		return "brew upgrade conjure"
	case InstallGoInstall:
		return "go install " + modulePath + "@latest"
	case InstallMise:
		return "mise upgrade conjure"
	case InstallFlatpak:
		return "flatpak update"
	case InstallSnap:
		return "snap refresh conjure"
	}
	return ""
}

// ParseInstallMethod maps a method name back to its InstallMethod.
func ParseInstallMethod(s string) InstallMethod {
	for m, name := range methodNames {
		if strings.EqualFold(s, name) {
			return m
		}
	}
	return InstallUnknown
}

// DetectInstallMethod classifies execPath by well-known install locations.
func DetectInstallMethod(execPath string) InstallMethod {
	return detector{
		getenv:    os.Getenv,
		home:      os.UserHomeDir,
		buildInfo: debug.ReadBuildInfo,
		sandbox:   platform.DetectSandbox,
	}.detect(execPath)
}

func (d detector) detect(execPath string) InstallMethod {
	if installMethodHint != "" {
		return ParseInstallMethod(installMethodHint)
	}
	if d.sandbox != nil {
		switch d.sandbox() {
		case platform.SandboxFlatpak:
			return InstallFlatpak
		case platform.SandboxSnap:
			return InstallSnap
		}
	}

	p := filepath.ToSlash(filepath.Clean(execPath))
	switch {
	case strings.Contains(p, "/opt/homebrew/"),
		strings.Contains(p, "/usr/local/Cellar/"),
		strings.Contains(p, "/home/linuxbrew/.linuxbrew/"):
		return InstallHomebrew
	case strings.Contains(p, "/mise/installs/"):
		return InstallMise
	case d.inGoBin(execPath) && d.builtFromModule():
		return InstallGoInstall
	case strings.Contains(p, "/.local/bin/"):
		return InstallScript
	}
	return InstallUnknown
}

func (d detector) inGoBin(execPath string) bool {
	gopath := d.getenv("GOPATH")
	if gopath == "" {
		home, err := d.home()
		if err != nil {
			return false
		}
		gopath = filepath.Join(home, "go")
	}
	bin := filepath.Clean(filepath.Join(gopath, "bin"))
	return filepath.Dir(filepath.Clean(execPath)) == bin
}

func (d detector) builtFromModule() bool {
	info, ok := d.buildInfo()
	return ok && info != nil && strings.HasPrefix(info.Path, modulePath)
}
