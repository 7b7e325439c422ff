package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	json "github.com/goccy/go-json"
	"github.com/k0kubun/pp"

	salvage "github.com/reoring/salvage"
	"github.com/reoring/salvage/extension"
	"github.com/reoring/salvage/extension/starter"
	"github.com/reoring/salvage/model"
)

// Exit codes.
const (
	exitOK      = 0
	exitInvalid = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return exitUsage
	}
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	var err error
	switch args[0] {
	case "check":
		err = c.checkCmd(args[1:])
	case "probe":
		err = c.probeCmd(args[1:])
	case "placeholders":
		err = c.placeholdersCmd(args[1:])
	case "recover":
		err = c.recoverCmd(args[1:])
	default:
		usage(stderr)
		return exitUsage
	}
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errInvalid):
		return exitInvalid
	case errors.Is(err, flag.ErrHelp), errors.Is(err, errUsage):
		return exitUsage
	}
	fmt.Fprintf(stderr, "salvage: %v\n", err)
	return exitInvalid
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `salvage CLI

Usage:
  salvage check        [-schema exts.yaml] [-in file] [-json]
  salvage probe        [-schema exts.yaml] [-in file]
  salvage placeholders [-schema exts.yaml] [-in file] [-json]
  salvage recover      [-schema exts.yaml] [-in file] [-slice] [-placeholders] [-repair] [-html]

Notes:
  - Input is read from -in, or stdin when -in is empty or "-".
  - Input starting with '{' or '[' is JSON; anything else is HTML.
  - Without -schema the starter extensions are used.`)
}

var (
	errInvalid = errors.New("content is invalid")
	errUsage   = errors.New("usage")
)

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// common holds the flags every subcommand accepts.
type common struct {
	schema  string
	in      string
	verbose bool
	debug   bool
}

func (c *cli) flags(name string, opts *common) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&opts.schema, "schema", "", "YAML extension set (default: starter extensions)")
	fs.StringVar(&opts.in, "in", "", "input file, '-' for stdin")
	fs.BoolVar(&opts.verbose, "v", false, "enable verbose logs")
	fs.BoolVar(&opts.debug, "debug", false, "dump intermediate values to stderr")
	return fs
}

func (c *cli) logger(opts common) *slog.Logger {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
}

func (c *cli) dump(opts common, label string, v any) {
	if !opts.debug {
		return
	}
	fmt.Fprintf(c.stderr, "%s: ", label)
	pp.Fprintln(c.stderr, v)
}

// input is the loaded command input.
type input struct {
	data []byte
	json bool
}

// content returns the value salvage functions take: bytes for JSON, a
// string for HTML.
func (in input) content() any {
	if in.json {
		return in.data
	}
	return string(in.data)
}

func (c *cli) readInput(opts common, log *slog.Logger) (input, error) {
	var (
		data []byte
		err  error
	)
	if opts.in == "" || opts.in == "-" {
		data, err = io.ReadAll(c.stdin)
	} else {
		data, err = os.ReadFile(opts.in)
	}
	if err != nil {
		return input{}, fmt.Errorf("reading input: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	in := input{data: data, json: len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')}
	log.Debug("input loaded", "source", opts.in, "size", humanize.Bytes(uint64(len(data))), "json", in.json)
	return in, nil
}

func (c *cli) loadExtensions(opts common, log *slog.Logger) ([]extension.Extension, error) {
	if opts.schema == "" {
		return starter.Extensions(), nil
	}
	data, err := os.ReadFile(opts.schema)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	cfg, err := extension.LoadConfig(data)
	if err != nil {
		return nil, err
	}
	var exts []extension.Extension
	if cfg.Starter {
		exts = starter.Extensions()
	}
	exts = append(exts, cfg.Build()...)
	log.Debug("extensions loaded", "path", opts.schema, "names", extension.Resolve(exts).Names())
	return exts, nil
}

func (c *cli) writeJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) checkCmd(args []string) error {
	var opts common
	var asJSON bool
	fs := c.flags("check", &opts)
	fs.BoolVar(&asJSON, "json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := c.logger(opts)
	exts, err := c.loadExtensions(opts, log)
	if err != nil {
		return err
	}
	in, err := c.readInput(opts, log)
	if err != nil {
		return err
	}

	var iss salvage.Issues
	if in.json {
		tree, err := salvage.DecodeJSON(in.data, salvage.DecodeOpt{
			Strictness: salvage.Strictness{OnDuplicateKey: salvage.Warn},
			IssueSink:  func(i salvage.Issue) { log.Warn("salvage: duplicate key", "path", i.Path, "message", i.Message) },
		})
		if err != nil {
			return err
		}
		schema, err := extension.SchemaFor(exts)
		if err != nil {
			return err
		}
		blocks := salvage.Validate(tree, schema)
		c.dump(opts, "invalid content", blocks)
		iss = salvage.Report(blocks)
	} else {
		elements, err := salvage.FindUnknownElements(string(in.data), exts)
		if err != nil {
			return err
		}
		c.dump(opts, "unknown elements", elements)
		for _, e := range elements {
			iss = salvage.AppendIssues(iss, salvage.Issue{
				Code:    salvage.CodeUnknownNode,
				Message: fmt.Sprintf("unknown element <%s>", e.TagName),
				Params:  map[string]any{"name": e.TagName, "attributes": e.AttributeNames},
			})
		}
	}

	if asJSON {
		if err := c.writeJSON(issuesJSON(iss)); err != nil {
			return err
		}
	} else {
		for _, i := range iss {
			fmt.Fprintf(c.stdout, "%s\t%s\t%s\n", i.Path, i.Code, i.Message)
		}
		fmt.Fprintln(c.stdout, summary(len(iss), "invalid block"))
	}
	if len(iss) > 0 {
		return errInvalid
	}
	return nil
}

type issueJSON struct {
	Path    string         `json:"path,omitempty"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Params  map[string]any `json:"params,omitempty"`
}

func issuesJSON(iss salvage.Issues) []issueJSON {
	out := make([]issueJSON, 0, len(iss))
	for _, i := range iss {
		out = append(out, issueJSON{Path: i.Path, Code: i.Code, Message: i.Message, Params: i.Params})
	}
	return out
}

func summary(n int, noun string) string {
	if n == 0 {
		return "no " + english.PluralWord(2, noun, "") + " found"
	}
	return english.Plural(n, noun, "") + " found"
}

func (c *cli) probeCmd(args []string) error {
	var opts common
	fs := c.flags("probe", &opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := c.logger(opts)
	exts, err := c.loadExtensions(opts, log)
	if err != nil {
		return err
	}
	in, err := c.readInput(opts, log)
	if err != nil {
		return err
	}
	if in.json {
		fmt.Fprintln(c.stderr, "probe expects HTML input; use check for JSON")
		return errUsage
	}
	elements, err := salvage.FindUnknownElements(string(in.data), exts)
	if err != nil {
		return err
	}
	c.dump(opts, "unknown elements", elements)
	for _, e := range elements {
		fmt.Fprintf(c.stdout, "<%s> %s\n", e.TagName, strings.Join(e.AttributeNames, " "))
	}
	fmt.Fprintln(c.stdout, summary(len(elements), "unknown element"))
	return nil
}

type placeholderJSON struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Attributes []string `json:"attributes,omitempty"`
}

func (c *cli) placeholdersCmd(args []string) error {
	var opts common
	var asJSON bool
	fs := c.flags("placeholders", &opts)
	fs.BoolVar(&asJSON, "json", false, "print placeholders as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := c.logger(opts)
	exts, err := c.loadExtensions(opts, log)
	if err != nil {
		return err
	}
	in, err := c.readInput(opts, log)
	if err != nil {
		return err
	}
	extended, err := salvage.CreatePlaceholderExtensions(in.content(), exts, salvage.PlaceholderOptions{})
	if err != nil {
		return err
	}
	added := addedExtensions(exts, extended)
	c.dump(opts, "placeholders", added)

	out := make([]placeholderJSON, 0, len(added))
	for _, e := range added {
		p := placeholderJSON{Name: e.Name, Kind: e.Kind.String()}
		for _, a := range e.Attributes {
			p.Attributes = append(p.Attributes, a.Name)
		}
		out = append(out, p)
	}
	if asJSON {
		return c.writeJSON(out)
	}
	for _, p := range out {
		fmt.Fprintf(c.stdout, "%s %s %s\n", p.Kind, p.Name, strings.Join(p.Attributes, " "))
	}
	if dropped := len(exts) + len(added) - len(extended); dropped > 0 {
		fmt.Fprintf(c.stdout, "removed %s\n", english.Plural(dropped, "collaboration extension", ""))
	}
	fmt.Fprintln(c.stdout, summary(len(out), "placeholder"))
	return nil
}

// addedExtensions returns the tail of extended that base does not hold.
// Placeholders are always appended after the caller's extensions.
func addedExtensions(base, extended []extension.Extension) []extension.Extension {
	if len(extended) == len(base) {
		return nil
	}
	kept := len(extended)
	for kept > 0 && extended[kept-1].Priority == extension.Lowest {
		kept--
	}
	return extended[kept:]
}

func (c *cli) recoverCmd(args []string) error {
	var opts common
	var slice, placeholders, repair, asHTML bool
	fs := c.flags("recover", &opts)
	fs.BoolVar(&slice, "slice", false, "parse HTML as an open fragment")
	fs.BoolVar(&placeholders, "placeholders", false, "extend the schema with placeholders before building")
	fs.BoolVar(&repair, "repair", false, "drop invalid blocks instead of falling back to empty content")
	fs.BoolVar(&asHTML, "html", false, "print HTML instead of JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := c.logger(opts)
	exts, err := c.loadExtensions(opts, log)
	if err != nil {
		return err
	}
	in, err := c.readInput(opts, log)
	if err != nil {
		return err
	}
	if placeholders {
		exts, err = salvage.CreatePlaceholderExtensions(in.content(), exts, salvage.PlaceholderOptions{})
		if err != nil {
			return err
		}
	}
	schema, err := extension.SchemaFor(exts)
	if err != nil {
		return err
	}
	bopts := salvage.BuildOptions{Slice: slice, Logger: log}
	if repair {
		bopts.Repair = salvage.RemoveInvalidBlocks
	}
	out := salvage.Build(in.content(), schema, bopts)
	c.dump(opts, "invalid content", out.Invalid)
	log.Info("built content", "result", out.Describe())

	if asHTML {
		html, err := model.NewDOMSerializer(schema).Serialize(out.AsFragment())
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, html)
	} else {
		var v any
		if out.Node != nil {
			v = out.Node.ToJSON()
		} else {
			v = out.Fragment.ToJSON()
		}
		if err := c.writeJSON(v); err != nil {
			return err
		}
	}
	if out.Recovered {
		fmt.Fprintf(c.stderr, "recovered: %s\n", summary(len(out.Invalid), "invalid block"))
	}
	return nil
}
