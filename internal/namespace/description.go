// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package namespace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
)

// =============================================================================
// DESCRIPTION FORMAT
// =============================================================================

// Description is the declarative input a Tree is built from.
//
// Nodes is a pointer so that "present but empty" and "absent" can be told
// apart: a record with a nodes field, even `[]`, is a directory, a record
// without one is a leaf.
type Description struct {
	Name       string         `json:"name" toml:"name"`
	Nodes      *[]Description `json:"nodes,omitempty" toml:"nodes,omitempty"`
	DenyAccess bool           `json:"denyAccess,omitempty" toml:"denyAccess,omitempty"`
	Target     string         `json:"target,omitempty" toml:"target,omitempty"`
	Home       bool           `json:"home,omitempty" toml:"home,omitempty"`
}

// IsDir reports whether the record describes a directory.
func (d Description) IsDir() bool {
	return d.Nodes != nil
}

// Children returns the child records, nil for leaves.
func (d Description) Children() []Description {
	if d.Nodes == nil {
		return nil
	}
	return *d.Nodes
}

// Dir returns a directory record with the given children.
func Dir(name string, children ...Description) Description {
	nodes := make([]Description, len(children))
	copy(nodes, children)
	return Description{Name: name, Nodes: &nodes}
}

// Leaf returns a leaf record pointing at target.
func Leaf(name, target string) Description {
	return Description{Name: name, Target: target}
}

// Denied returns a copy of d with access denied.
func (d Description) Denied() Description {
	d.DenyAccess = true
	return d
}

// AsHome returns a copy of d flagged as the home anchor.
func (d Description) AsHome() Description {
	d.Home = true
	return d
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the whole description and reports every problem found.
func (d Description) Validate() error {
	var result *multierror.Error

	if !d.IsDir() {
		result = multierror.Append(result, fmt.Errorf("root %q: must be a directory (add a nodes field)", d.Name))
	}

	homes := 0
	if d.Home {
		homes++
	}
	result = validateChildren(result, Separator, d.Children(), &homes)

	if homes > 1 {
		result = multierror.Append(result, fmt.Errorf("home: %d records set home, at most one is allowed", homes))
	}

	return result.ErrorOrNil()
}

func validateChildren(result *multierror.Error, parentPath string, children []Description, homes *int) *multierror.Error {
	seen := make(map[string]bool, len(children))
	for _, c := range children {
		where := parentPath + c.Name

		switch {
		case c.Name == "":
			result = multierror.Append(result, fmt.Errorf("%s: empty name", parentPath))
		case c.Name == CurrentDir || c.Name == ParentDir:
			result = multierror.Append(result, fmt.Errorf("%s: reserved name", where))
		case strings.Contains(c.Name, Separator):
			result = multierror.Append(result, fmt.Errorf("%s: name contains %q", where, Separator))
		case c.Name == HomeMarker:
			result = multierror.Append(result, fmt.Errorf("%s: name clashes with the home marker", where))
		}

		if seen[c.Name] {
			result = multierror.Append(result, fmt.Errorf("%s: duplicate name", where))
		}
		seen[c.Name] = true

		if c.Home {
			*homes++
			if !c.IsDir() {
				result = multierror.Append(result, fmt.Errorf("%s: home must be a directory", where))
			}
		}
		if c.IsDir() {
			result = validateChildren(result, where+Separator, c.Children(), homes)
		}
	}
	return result
}

// =============================================================================
// LOADING
// =============================================================================

// LoadDescription reads a description file. Files ending in .toml are decoded
// as TOML, everything else as JSON.
func LoadDescription(path string) (Description, error) {
	var d Description

	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("failed to read tree description: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &d); err != nil {
			return d, fmt.Errorf("failed to decode TOML tree description %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &d); err != nil {
			return d, fmt.Errorf("failed to decode JSON tree description %s: %w", path, err)
		}
	}

	return d, nil
}

// LoadTree reads, validates and builds the tree described in path.
func LoadTree(path string) (*Tree, error) {
	d, err := LoadDescription(path)
	if err != nil {
		return nil, err
	}
	return Build(d)
}

// DefaultDescription is the layout used when no description file is configured.
func DefaultDescription() Description {
	home := Dir("tatetian",
		Dir("posts",
			Leaf("2015-01-05-why", "/posts/2015-01-05-why/"),
			Leaf("2015-07-05-ssh", "/posts/2015-07-05-ssh/"),
		),
		Dir("projects",
			Leaf("pseudocode.js", "https://github.com/tatetian/pseudocode.js"),
			Leaf("PaperClub", "https://github.com/tatetian/PaperClub"),
		),
		Leaf("index.html", "/index.html"),
		Leaf("about.html", "/about.html"),
	).AsHome()

	return Dir("",
		Dir("home", home).Denied(),
	).Denied()
}
