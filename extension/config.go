package extension

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/salvage/model"
)

// Config is a declarative extension set, as read from YAML:
//
//	starter: true
//	extensions:
//	  - name: callout
//	    kind: node
//	    group: block
//	    content: inline*
//	    tags: ["div[data-callout]"]
//	    render: div
//	    attributes:
//	      - name: data-callout
//	        default: info
type Config struct {
	// Starter asks the caller to include the starter kit.
	Starter    bool         `yaml:"starter"`
	Extensions []ConfigItem `yaml:"extensions"`
}

// ConfigItem is one declared extension.
type ConfigItem struct {
	Name          string            `yaml:"name"`
	Kind          string            `yaml:"kind"`
	Priority      int               `yaml:"priority"`
	TopNode       bool              `yaml:"topNode"`
	Group         string            `yaml:"group"`
	Content       string            `yaml:"content"`
	Inline        bool              `yaml:"inline"`
	Atom          bool              `yaml:"atom"`
	Collaborative bool              `yaml:"collaborative"`
	Tags          []string          `yaml:"tags"`
	Render        string            `yaml:"render"`
	Attributes    []ConfigAttribute `yaml:"attributes"`
}

// ConfigAttribute is one declared attribute.
type ConfigAttribute struct {
	Name     string `yaml:"name"`
	Default  any    `yaml:"default"`
	Required bool   `yaml:"required"`
}

// ErrConfig marks invalid extension configuration.
var ErrConfig = errors.New("extension: invalid config")

// LoadConfig decodes a YAML extension set.
func LoadConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("extension: decode config: %w", err)
	}
	for i, it := range cfg.Extensions {
		if it.Name == "" {
			return Config{}, fmt.Errorf("%w: extensions[%d] has no name", ErrConfig, i)
		}
		if _, err := parseKind(it.Kind); err != nil {
			return Config{}, fmt.Errorf("%w: extensions[%d] (%s): %v", ErrConfig, i, it.Name, err)
		}
	}
	return cfg, nil
}

// Build converts the declared items into extensions.
func (c Config) Build() []Extension {
	out := make([]Extension, 0, len(c.Extensions))
	for _, it := range c.Extensions {
		kind, _ := parseKind(it.Kind)
		e := Extension{
			Name:          it.Name,
			Kind:          kind,
			Priority:      it.Priority,
			TopNode:       it.TopNode,
			Group:         it.Group,
			Content:       it.Content,
			Inline:        it.Inline,
			Atom:          it.Atom,
			Collaborative: it.Collaborative,
		}
		for _, a := range it.Attributes {
			e.Attributes = append(e.Attributes, Attribute{Name: a.Name, Default: a.Default, Required: a.Required})
		}
		for _, tag := range it.Tags {
			e.ParseHTML = append(e.ParseHTML, model.ParseRule{Tag: tag})
		}
		if it.Render != "" {
			tag := it.Render
			hole := kind == KindMark || it.Content != ""
			e.RenderHTML = func(in model.RenderInput) model.DOMSpec {
				return model.DOMSpec{Tag: tag, Attrs: in.HTMLAttributes, Hole: hole}
			}
		}
		out = append(out, e)
	}
	return out
}

func parseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "node":
		return KindNode, nil
	case "mark":
		return KindMark, nil
	case "", "extension":
		return KindExtension, nil
	}
	return KindExtension, fmt.Errorf("unknown kind %q", s)
}
