// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"
)

type miseFile struct {
	Tools map[string]any `toml:"tools"`
}

// readMiseTools returns the tool versions pinned in a mise.toml. A missing
// file yields no versions.
//
// mise accepts three shapes per tool:
//
//	tuist = "4.43.2"
//	node = ["20.11.0", "18"]
//	python = { version = "3.12" }
//
// For a list the first entry wins. Non-version pins such as "latest" or
// "lts" are skipped.
func readMiseTools(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var f miseFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	versions := make(map[string]string, len(f.Tools))
	for name, raw := range f.Tools {
		v := miseVersion(raw)
		if _, err := semver.NewVersion(v); err == nil {
			versions[name] = v
		}
	}
	return versions, nil
}

func miseVersion(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			return miseVersion(v[0])
		}
	case map[string]any:
		return miseVersion(v["version"])
	}
	return ""
}
