package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the per-repository configuration looked up in the target.
const FileName = ".autolint.yml"

// BundledSource names the embedded default configuration in errors and logs.
const BundledSource = "<bundled " + FileName + ">"

//go:embed default.autolint.yml
var bundled []byte

// Bundled returns the embedded default configuration, verbatim.
func Bundled() []byte {
	out := make([]byte, len(bundled))
	copy(out, bundled)
	return out
}

// Config is the parsed configuration. Mapping order in the file is kept:
// languages and linters are dispatched in the order they were written.
type Config struct {
	Source  string
	Langs   []Lang
	Linters []Linter

	hasLangs   bool
	hasLinters bool
}

// Lang is one entry under `langs`.
type Lang struct {
	Name    string
	Include []string
	Linters []string

	hasInclude bool
	hasLinters bool
}

// Linter is one entry under `linters`.
type Linter struct {
	Name   string
	Cmd    string
	Flags  []string
	Runner string

	hasCmd bool
}

type langSpec struct {
	Include *[]string `yaml:"include"`
	Linters *[]string `yaml:"linters"`
}

type linterSpec struct {
	Cmd    *string  `yaml:"cmd"`
	Flags  []string `yaml:"flags"`
	Runner string   `yaml:"runner"`
}

// Load reads the configuration at path. An empty path loads the bundled
// default.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(bundled, BundledSource)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes configuration YAML. Syntax errors and wrongly shaped
// sections fail here; missing keys are reported later, when the key is
// needed, so a run can lint the languages that are well formed.
func Parse(data []byte, source string) (*Config, error) {
	cfg := &Config{Source: source}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return cfg, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return cfg, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, &Error{Msg: fmt.Sprintf("%s: top level must be a mapping", source)}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i].Value, root.Content[i+1]
		switch key {
		case "langs":
			cfg.hasLangs = true
			langs, err := parseLangs(value)
			if err != nil {
				return nil, err
			}
			cfg.Langs = langs
		case "linters":
			cfg.hasLinters = true
			linters, err := parseLinters(value)
			if err != nil {
				return nil, err
			}
			cfg.Linters = linters
		}
	}
	return cfg, nil
}

func parseLangs(node *yaml.Node) ([]Lang, error) {
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, &Error{Key: "langs", Msg: "langs must be a mapping of language names"}
	}
	langs := make([]Lang, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		lang := Lang{Name: name}
		value := node.Content[i+1]
		if !isNull(value) {
			if value.Kind != yaml.MappingNode {
				return nil, &Error{Lang: name, Msg: fmt.Sprintf("language %q must be a mapping", name)}
			}
			var spec langSpec
			if err := value.Decode(&spec); err != nil {
				return nil, &Error{Lang: name, Msg: fmt.Sprintf("language %q: %v", name, err)}
			}
			if spec.Include != nil {
				lang.Include = *spec.Include
				lang.hasInclude = true
			}
			if spec.Linters != nil {
				lang.Linters = *spec.Linters
				lang.hasLinters = true
			}
		}
		langs = append(langs, lang)
	}
	return langs, nil
}

func parseLinters(node *yaml.Node) ([]Linter, error) {
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, &Error{Key: "linters", Msg: "linters must be a mapping of linter names"}
	}
	linters := make([]Linter, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		linter := Linter{Name: name}
		value := node.Content[i+1]
		if !isNull(value) {
			if value.Kind != yaml.MappingNode {
				return nil, &Error{Msg: fmt.Sprintf("linter %q must be a mapping", name)}
			}
			var spec linterSpec
			if err := value.Decode(&spec); err != nil {
				return nil, &Error{Msg: fmt.Sprintf("linter %q: %v", name, err)}
			}
			if spec.Cmd != nil {
				linter.Cmd = *spec.Cmd
				linter.hasCmd = strings.TrimSpace(*spec.Cmd) != ""
			}
			linter.Flags = spec.Flags
			linter.Runner = strings.TrimSpace(spec.Runner)
		}
		linters = append(linters, linter)
	}
	return linters, nil
}

func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}

// Languages returns the `langs` section, or an error when it is missing.
func (c *Config) Languages() ([]Lang, error) {
	if c == nil || !c.hasLangs {
		return nil, &Error{Key: "langs"}
	}
	return c.Langs, nil
}

// Patterns returns the include globs of the language.
func (l Lang) Patterns() ([]string, error) {
	if !l.hasInclude {
		return nil, &Error{Lang: l.Name, Key: "include"}
	}
	return l.Include, nil
}

// Linter looks up a linter definition by name.
func (c *Config) Linter(name string) (Linter, bool) {
	if c == nil {
		return Linter{}, false
	}
	for _, l := range c.Linters {
		if l.Name == name {
			return l, true
		}
	}
	return Linter{}, false
}

// LintersFor resolves every linter configured for lang, in order. It fails
// before returning anything if the language has no `linters` key, or one
// of its linters is undefined or has no `cmd`.
func (c *Config) LintersFor(lang string) ([]Linter, error) {
	var entry *Lang
	for i := range c.Langs {
		if c.Langs[i].Name == lang {
			entry = &c.Langs[i]
			break
		}
	}
	if entry == nil {
		return nil, &Error{Lang: lang, Msg: fmt.Sprintf("language %q is not configured", lang)}
	}
	if !entry.hasLinters {
		return nil, &Error{Lang: lang, Key: "linters"}
	}
	if !c.hasLinters {
		return nil, &Error{Key: "linters"}
	}

	out := make([]Linter, 0, len(entry.Linters))
	for _, name := range entry.Linters {
		linter, ok := c.Linter(name)
		if !ok {
			return nil, &Error{
				Lang: lang,
				Key:  name,
				Msg:  fmt.Sprintf("linter %q used by language %q is not defined under linters", name, lang),
			}
		}
		if !linter.hasCmd {
			return nil, &Error{Lang: lang, Key: "cmd", Msg: fmt.Sprintf("linter %q has no cmd", name)}
		}
		out = append(out, linter)
	}
	return out, nil
}

// RunnerName is the registry key used to pick this linter's runner: the
// explicit `runner` value when set, the linter name otherwise.
func (l Linter) RunnerName() string {
	if l.Runner != "" {
		return l.Runner
	}
	return l.Name
}

// Argv is cmd followed by flags, in configured order.
func (l Linter) Argv() []string {
	argv := make([]string, 0, len(l.Flags)+1)
	argv = append(argv, l.Cmd)
	argv = append(argv, l.Flags...)
	return argv
}

// ResolvePath picks the configuration file for a run: the explicit path
// when given, target/.autolint.yml when it exists, otherwise "" (the
// bundled default).
func ResolvePath(target, explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	candidate := filepath.Join(target, FileName)
	if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
		return candidate
	}
	return ""
}
