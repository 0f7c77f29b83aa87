package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/cider/pkg/domain"
)

// DefaultFile is the configuration file used when none is given.
const DefaultFile = "cider_config.json"

// Format is the serialization of a configuration document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by file extension. Anything but .yaml/.yml is JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Tree is the immutable parsed representation of a configuration document.
type Tree struct {
	Root   *Node
	Source string
	Format Format
}

// Load reads and parses the document at path.
func Load(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigError{Path: path, Reason: "cannot read configuration", Err: err}
	}
	tree, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, err
	}
	tree.Source = path
	return tree, nil
}

// Parse builds a Tree from raw document bytes.
// Every structural problem is reported; more than one yields a domain.AggregateError.
func Parse(data []byte, format Format) (*Tree, error) {
	var (
		root Value
		err  error
	)
	switch format {
	case FormatYAML:
		root, err = decodeYAML(data)
	default:
		format = FormatJSON
		root, err = decodeJSON(data)
	}
	if err != nil {
		return nil, &domain.ConfigError{Reason: fmt.Sprintf("malformed %s document", format), Err: err}
	}
	if root.Kind != KindObject {
		return nil, &domain.ConfigError{Reason: fmt.Sprintf("document root must be an object, got %s", root.Kind)}
	}

	b := &builder{}
	top := b.node("", "", root.Object, true)
	if err := domain.Join(b.errs); err != nil {
		return nil, err
	}
	return &Tree{Root: top, Source: "<inline>", Format: format}, nil
}
