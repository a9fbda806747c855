// Package taintconfig loads the YAML taint configuration consumed by the
// pointer analysis' taint overlay: where taint is born (sources), where it
// is reported (sinks), and how it moves across method boundaries
// (transfers).
//
// Methods are named "Class.method". Transfer endpoints are parameter
// indices or the distinguished values "base" and "result".
package taintconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"sigs.k8s.io/yaml"

	"github.com/barrowsr/ptaint/ir"
)

// Transfer endpoints besides plain parameter indices.
const (
	Base   = -1
	Result = -2
)

type Source struct {
	Method *ir.Method
	Type   ir.Type
}

type Sink struct {
	Method *ir.Method
	Index  int
}

type Transfer struct {
	Method   *ir.Method
	From, To int
	Type     ir.Type
}

type sinkKey struct {
	m     *ir.Method
	index int
}

type transferKey struct {
	m        *ir.Method
	from, to int
}

// Config is a taint configuration resolved against a program. The
// configuration returned by Empty is valid and turns the overlay into a
// no-op.
type Config struct {
	Sources   []Source
	Sinks     []Sink
	Transfers []Transfer

	sources   map[*ir.Method][]ir.Type
	sinks     map[sinkKey]struct{}
	transfers map[transferKey][]ir.Type
}

func Empty() *Config {
	return &Config{
		sources:   make(map[*ir.Method][]ir.Type),
		sinks:     make(map[sinkKey]struct{}),
		transfers: make(map[transferKey][]ir.Type),
	}
}

func (c *Config) IsEmpty() bool {
	return len(c.Sources) == 0 && len(c.Sinks) == 0 && len(c.Transfers) == 0
}

// SourcesOf returns the taint types produced by calls to m.
func (c *Config) SourcesOf(m *ir.Method) []ir.Type { return c.sources[m] }

func (c *Config) IsSink(m *ir.Method, index int) bool {
	_, ok := c.sinks[sinkKey{m, index}]
	return ok
}

// TransfersOf returns the rewrite types of transfers on m from one
// endpoint to another.
func (c *Config) TransfersOf(m *ir.Method, from, to int) []ir.Type {
	return c.transfers[transferKey{m, from, to}]
}

func (c *Config) addSource(s Source) {
	c.Sources = append(c.Sources, s)
	c.sources[s.Method] = append(c.sources[s.Method], s.Type)
}

func (c *Config) addSink(s Sink) {
	c.Sinks = append(c.Sinks, s)
	c.sinks[sinkKey{s.Method, s.Index}] = struct{}{}
}

func (c *Config) addTransfer(t Transfer) {
	c.Transfers = append(c.Transfers, t)
	key := transferKey{t.Method, t.From, t.To}
	c.transfers[key] = append(c.transfers[key], t.Type)
}

func (c *Config) String() string {
	return fmt.Sprintf("taint config: %d sources, %d sinks, %d transfers",
		len(c.Sources), len(c.Sinks), len(c.Transfers))
}

// endpoint is a transfer endpoint in the file schema: an index, "base",
// or "result".
type endpoint int

func (e *endpoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "base":
			*e = Base
		case "result":
			*e = Result
		default:
			return fmt.Errorf("unknown transfer endpoint %q", s)
		}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("transfer endpoint must be an index, \"base\" or \"result\": %w", err)
	}
	if n < 0 {
		return fmt.Errorf("negative parameter index %d", n)
	}
	*e = endpoint(n)
	return nil
}

type fileConfig struct {
	Sources []struct {
		Method string
		Type   string
	}
	Sinks []struct {
		Method string
		Index  int
	}
	Transfers []struct {
		Method string
		From   endpoint
		To     endpoint
		Type   string
	}
}

// Load reads and parses a configuration file and resolves it against
// prog. Entries naming methods the program does not declare are skipped
// with a warning. An empty path yields the empty configuration.
func Load(path string, prog *ir.Program) (*Config, error) {
	if path == "" {
		return Empty(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taint config: %w", err)
	}
	return Parse(data, prog)
}

// Parse is Load for in-memory configuration bytes.
func Parse(data []byte, prog *ir.Program) (*Config, error) {
	var file fileConfig
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, fmt.Errorf("parsing taint config: %w", err)
	}

	c := Empty()
	for _, s := range file.Sources {
		m := resolveMethod(prog, s.Method)
		if m == nil {
			continue
		}
		c.addSource(Source{Method: m, Type: ir.Type(s.Type)})
	}
	for _, s := range file.Sinks {
		m := resolveMethod(prog, s.Method)
		if m == nil {
			continue
		}
		c.addSink(Sink{Method: m, Index: s.Index})
	}
	for _, t := range file.Transfers {
		m := resolveMethod(prog, t.Method)
		if m == nil {
			continue
		}
		c.addTransfer(Transfer{
			Method: m,
			From:   int(t.From),
			To:     int(t.To),
			Type:   ir.Type(t.Type),
		})
	}
	return c, nil
}

func resolveMethod(prog *ir.Program, name string) *ir.Method {
	cls, method, ok := strings.Cut(name, ".")
	if !ok {
		log.Warnf("taint config: method %q is not of the form Class.method, skipping", name)
		return nil
	}
	c := prog.Classes[cls]
	if c == nil {
		log.Warnf("taint config: unknown class in %q, skipping", name)
		return nil
	}
	m := c.Methods[method]
	if m == nil {
		log.Warnf("taint config: class %s has no method %s, skipping", cls, method)
		return nil
	}
	return m
}
