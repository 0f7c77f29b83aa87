/*
Package config parses CIder configuration documents into an immutable ConfigTree.

Documents are JSON (the default, e.g. cider_config.json) or YAML. Both formats are
decoded into an ordered value tree first so that the declaration order of `manual`
steps and nested objects is preserved, then lifted into typed Nodes.

The tree is purely syntactic: it records what each node declares. Inheritance and
activation are applied later by the resolver package.
*/
package config
