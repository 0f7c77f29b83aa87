// Package resolver folds the configuration tree into the executable Plan of one pass.
//
// Shareable fields flow top-down: a node's own value wins, then the nearest
// ancestor's resolved value, then the fixed default. Only ids named in the
// governing `pipelines`/`actions` lists become part of the Plan.
package resolver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"dario.cat/mergo"
	"github.com/aretw0/cider/internal/logging"
	"github.com/aretw0/cider/pkg/config"
	"github.com/aretw0/cider/pkg/domain"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Resolver turns a config.Tree into a domain.Plan.
type Resolver struct {
	baseDir string
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBaseDir sets the directory relative paths are resolved against.
// Defaults to the process working directory.
func WithBaseDir(dir string) Option {
	return func(r *Resolver) {
		r.baseDir = dir
	}
}

// WithLogger sets the logger used for configuration warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			r.baseDir = wd
		}
	}
	return r
}

// Resolve builds the Plan with default options.
func Resolve(tree *config.Tree) (*domain.Plan, error) {
	return New().Resolve(tree)
}

// Resolve validates the activation lists of tree and computes the EffectiveConfig
// of every active Pipeline and Action. All problems are reported together.
func (r *Resolver) Resolve(tree *config.Tree) (*domain.Plan, error) {
	if tree == nil || tree.Root == nil {
		return nil, &domain.ConfigError{Reason: "empty configuration"}
	}

	pass := &pass{Resolver: r}
	root := tree.Root

	top, err := pass.effective(domain.Defaults(), root)
	if err != nil {
		return nil, err
	}
	plan := &domain.Plan{Config: top}

	for i, id := range root.Pipelines {
		node := pass.lookup(root, id, fmt.Sprintf("pipelines[%d]", i), "pipeline")
		if node == nil {
			continue
		}
		if !node.DeclaresActions() {
			pass.fail(node.Path, "pipeline %q must declare an actions list", id)
			continue
		}
		cfg, ok := pass.listed(top.Shareable, node)
		if !ok {
			continue
		}
		pipeline := domain.Pipeline{ID: id, Config: cfg}
		for j, actionID := range node.Actions {
			action, ok := pass.action(node, cfg.Shareable, actionID, fmt.Sprintf("%s.actions[%d]", node.Path, j))
			if !ok {
				continue
			}
			action.PipelineID = id
			pipeline.Actions = append(pipeline.Actions, action)
		}
		plan.Pipelines = append(plan.Pipelines, pipeline)
	}

	for i, id := range root.Actions {
		action, ok := pass.action(root, top.Shareable, id, fmt.Sprintf("actions[%d]", i))
		if ok {
			plan.Actions = append(plan.Actions, action)
		}
	}

	if err := domain.Join(pass.errs); err != nil {
		return nil, err
	}
	return plan, nil
}

// Effective computes the shareable fields of node given its parent's resolved fields.
// It applies no validation and never mutates either argument.
func Effective(parent domain.Shareable, node *config.Node) (domain.Shareable, error) {
	own := node.Shared
	if err := mergo.Merge(&own, parent); err != nil {
		return domain.Shareable{}, fmt.Errorf("merge %s: %w", node.Path, err)
	}
	return own, nil
}

// pass holds the errors of a single Resolve call.
type pass struct {
	*Resolver
	errs []error
}

func (p *pass) fail(path, format string, args ...any) {
	p.errs = append(p.errs, &domain.ConfigError{Path: path, Reason: fmt.Sprintf(format, args...)})
}

func (p *pass) lookup(scope *config.Node, id, path, what string) *config.Node {
	node, ok := scope.Child(id)
	if ok {
		return node
	}
	reason := fmt.Sprintf("unknown %s %q", what, id)
	if hint := closest(id, scope.ChildIDs()); hint != "" {
		reason += fmt.Sprintf(" (did you mean %q?)", hint)
	}
	p.errs = append(p.errs, &domain.ConfigError{Path: path, Reason: reason})
	return nil
}

func (p *pass) action(scope *config.Node, parent domain.Shareable, id, path string) (domain.Action, bool) {
	node := p.lookup(scope, id, path, "action")
	if node == nil {
		return domain.Action{}, false
	}
	if !node.DeclaresManual() || len(node.Manual) == 0 {
		p.fail(node.Path, "action %q must declare at least one manual step", id)
		return domain.Action{}, false
	}
	cfg, ok := p.listed(parent, node)
	if !ok {
		return domain.Action{}, false
	}
	return domain.Action{
		ID:     id,
		Config: cfg,
		Steps:  append([]domain.ManualStep(nil), node.Manual...),
	}, true
}

// listed resolves a node that will execute, so its backend must be usable.
func (p *pass) listed(parent domain.Shareable, node *config.Node) (domain.EffectiveConfig, bool) {
	cfg, err := p.effective(parent, node)
	if err != nil {
		p.errs = append(p.errs, err)
		return cfg, false
	}
	kind, err := domain.ParseBackend(cfg.Backend)
	if err != nil {
		p.errs = append(p.errs, &domain.ConfigError{Path: node.Path, Reason: "invalid backend", Err: err})
		return cfg, false
	}
	cfg.Backend = string(kind)
	if node.Shared.Image != "" && !kind.IsContainer() {
		p.logger.Warn("image is ignored by non-container backend",
			"node", node.Path, "image", node.Shared.Image, "backend", kind)
	}
	return cfg, true
}

func (p *pass) effective(parent domain.Shareable, node *config.Node) (domain.EffectiveConfig, error) {
	shared, err := Effective(parent, node)
	if err != nil {
		return domain.EffectiveConfig{}, &domain.ConfigError{Path: node.Path, Reason: "cannot resolve", Err: err}
	}
	shared.SourceDirectory = p.abs(shared.SourceDirectory)
	shared.OutputDirectory = p.abs(shared.OutputDirectory)
	return domain.EffectiveConfig{
		Shareable:  shared,
		Decoration: node.Decoration,
		Inert:      node.Inert,
	}, nil
}

func (p *pass) abs(dir string) string {
	if dir == "" {
		return ""
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(p.baseDir, dir)
}

// closest suggests the existing id nearest to a mistyped one.
func closest(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	if ranks := fuzzy.RankFindFold(target, candidates); len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	best, bestDist := "", len(target)/2+2
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(target, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
