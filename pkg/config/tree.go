package config

import (
	"fmt"
	"strings"

	"github.com/aretw0/cider/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// NodeKind classifies a node by the tier-specific fields it declares.
type NodeKind int

const (
	// NodeGroup is an object that declares neither `actions` nor `manual`.
	NodeGroup NodeKind = iota
	NodeTop
	NodePipeline
	NodeAction
)

func (k NodeKind) String() string {
	switch k {
	case NodeTop:
		return "top-level"
	case NodePipeline:
		return "pipeline"
	case NodeAction:
		return "action"
	}
	return "object"
}

// Document keys with a fixed meaning. Any other object-valued key is a child node.
const (
	keyLanguage        = "language"
	keyImage           = "image"
	keyBackend         = "backend"
	keyOutputDirectory = "output_directory"
	keySourceDirectory = "source_directory"
	keyTitle           = "title"
	keyTags            = "tags"
	keyMetadata        = "metadata"
	keyPipelines       = "pipelines"
	keyActions         = "actions"
	keyManual          = "manual"
	keyConditions      = "conditions"
	keyRequires        = "requires"
	keyRetries         = "retries"
	keyAllowedFailure  = "allowed_failure"
)

var reservedKeys = map[string]bool{
	keyLanguage: true, keyImage: true, keyBackend: true, keyOutputDirectory: true,
	keySourceDirectory: true, keyTitle: true, keyTags: true, keyMetadata: true,
	keyPipelines: true, keyActions: true, keyManual: true, keyConditions: true,
	keyRequires: true, keyRetries: true, keyAllowedFailure: true,
}

// Node is one object of the configuration document. Nodes are immutable once built.
type Node struct {
	ID   string
	Path string
	Kind NodeKind

	Shared     domain.Shareable
	Decoration domain.Decoration
	Inert      domain.Inert

	// Pipelines is the top-level activation list.
	Pipelines []string
	// Actions is the activation list of the top level or of a pipeline.
	Actions []string
	// Manual holds the steps of an action in declaration order.
	Manual []domain.ManualStep

	hasActions bool
	hasManual  bool
	children   map[string]*Node
	order      []string
}

// Child returns the nested object declared under id.
func (n *Node) Child(id string) (*Node, bool) {
	c, ok := n.children[id]
	return c, ok
}

// ChildIDs returns the ids of nested objects in declaration order.
func (n *Node) ChildIDs() []string {
	return append([]string(nil), n.order...)
}

// DeclaresActions reports whether the node has an `actions` key, even an empty one.
func (n *Node) DeclaresActions() bool { return n.hasActions }

// DeclaresManual reports whether the node has a `manual` key.
func (n *Node) DeclaresManual() bool { return n.hasManual }

// builder collects every problem found while lifting values into nodes.
type builder struct {
	errs []error
}

func (b *builder) fail(path, format string, args ...any) {
	b.errs = append(b.errs, &domain.ConfigError{Path: path, Reason: fmt.Sprintf(format, args...)})
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func (b *builder) node(id, path string, obj *Object, top bool) *Node {
	n := &Node{ID: id, Path: path, children: make(map[string]*Node)}

	n.Shared = domain.Shareable{
		Language:        b.stringField(obj, path, keyLanguage),
		Image:           b.stringField(obj, path, keyImage),
		Backend:         b.stringField(obj, path, keyBackend),
		OutputDirectory: b.stringField(obj, path, keyOutputDirectory),
		SourceDirectory: b.stringField(obj, path, keySourceDirectory),
	}
	n.Decoration = b.decoration(obj, path)
	n.Inert = b.inert(obj, path)

	if top {
		n.Pipelines, _ = b.idList(obj, path, keyPipelines)
	}
	n.Actions, n.hasActions = b.idList(obj, path, keyActions)
	n.Manual, n.hasManual = b.manual(obj, path)

	switch {
	case top:
		n.Kind = NodeTop
	case n.hasManual:
		n.Kind = NodeAction
	case n.hasActions:
		n.Kind = NodePipeline
	default:
		n.Kind = NodeGroup
	}

	for _, key := range obj.Keys() {
		if reservedKeys[key] {
			continue
		}
		v, _ := obj.Get(key)
		if v.Kind != KindObject {
			continue
		}
		n.children[key] = b.node(key, joinPath(path, key), v.Object, false)
		n.order = append(n.order, key)
	}
	return n
}

func (b *builder) stringField(obj *Object, path, key string) string {
	v, ok := obj.Get(key)
	if !ok || v.IsNull() {
		return ""
	}
	if v.Kind != KindString {
		b.fail(joinPath(path, key), "must be a string, got %s", v.Kind)
		return ""
	}
	return strings.TrimSpace(v.Str)
}

func (b *builder) idList(obj *Object, path, key string) ([]string, bool) {
	v, ok := obj.Get(key)
	if !ok || v.IsNull() {
		return nil, false
	}
	if v.Kind != KindList {
		b.fail(joinPath(path, key), "must be a list of ids, got %s", v.Kind)
		return nil, true
	}
	ids := make([]string, 0, len(v.List))
	for i, item := range v.List {
		if item.Kind != KindString || item.Str == "" {
			b.fail(fmt.Sprintf("%s[%d]", joinPath(path, key), i), "must be a non-empty string id")
			continue
		}
		ids = append(ids, item.Str)
	}
	return ids, true
}

func (b *builder) manual(obj *Object, path string) ([]domain.ManualStep, bool) {
	v, ok := obj.Get(keyManual)
	if !ok || v.IsNull() {
		return nil, false
	}
	p := joinPath(path, keyManual)
	if v.Kind != KindObject {
		b.fail(p, "must map step names to scripts, got %s", v.Kind)
		return nil, true
	}
	steps := make([]domain.ManualStep, 0, v.Object.Len())
	for _, name := range v.Object.Keys() {
		sv, _ := v.Object.Get(name)
		script, ok := sv.Scalar()
		if !ok {
			b.fail(joinPath(p, name), "script must be text, got %s", sv.Kind)
			continue
		}
		steps = append(steps, domain.ManualStep{Name: name, Script: script})
	}
	return steps, true
}

func (b *builder) decoration(obj *Object, path string) domain.Decoration {
	input := presentFields(obj, keyTitle, keyTags, keyMetadata)
	var d domain.Decoration
	if len(input) == 0 {
		return d
	}
	if err := decode(input, &d, true); err != nil {
		b.errs = append(b.errs, &domain.ConfigError{Path: path, Reason: "invalid decorative field", Err: err})
	}
	return d
}

func (b *builder) inert(obj *Object, path string) domain.Inert {
	var in domain.Inert

	if v, ok := obj.Get(keyConditions); ok && !v.IsNull() {
		p := joinPath(path, keyConditions)
		if v.Kind != KindObject {
			b.fail(p, "must map condition names to expressions, got %s", v.Kind)
		} else {
			for _, name := range v.Object.Keys() {
				cv, _ := v.Object.Get(name)
				expr, ok := cv.Scalar()
				if !ok {
					b.fail(joinPath(p, name), "expression must be text, got %s", cv.Kind)
					continue
				}
				in.Conditions = append(in.Conditions, domain.Condition{Name: name, Expression: expr})
			}
		}
	}

	if v, ok := obj.Get(keyRetries); ok && v.Kind == KindNumber {
		if _, integral := v.Interface().(int64); !integral {
			b.fail(joinPath(path, keyRetries), "must be an integer")
			return in
		}
	}

	input := presentFields(obj, keyRequires, keyRetries, keyAllowedFailure)
	if len(input) == 0 {
		return in
	}
	if err := decode(input, &in, false); err != nil {
		b.errs = append(b.errs, &domain.ConfigError{Path: path, Reason: "invalid field", Err: err})
	}
	return in
}

func presentFields(obj *Object, keys ...string) map[string]any {
	out := make(map[string]any)
	for _, k := range keys {
		if v, ok := obj.Get(k); ok && !v.IsNull() {
			out[k] = v.Interface()
		}
	}
	return out
}

func decode(input map[string]any, out any, weak bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: weak,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
