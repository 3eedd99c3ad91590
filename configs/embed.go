// Package configs embeds the configuration template and the sample corpus.
//
// The templates are used by:
//   - cmd/contentsearch/cmd/init.go: writes ProjectConfigTemplate to .contentsearch.yaml
//   - cmd/contentsearch/cmd/index.go: loads the sample corpus with --sample
package configs

import "embed"

// ProjectConfigTemplate is the commented project configuration written by
// `contentsearch init`.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

// Sample holds the sample corpus and the media files it references.
//
//go:embed sample-corpus.yaml corpus
var Sample embed.FS

// SampleCorpusPath is the corpus file inside Sample.
const SampleCorpusPath = "sample-corpus.yaml"
