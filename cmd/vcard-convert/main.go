package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/emersion/go-vcardio"
	"github.com/emersion/go-vcardio/filter"
)

type options struct {
	from      string
	format    string
	toVersion string
	caret     bool
	fold      int
	strict    bool
	indent    bool
	match     []string
}

var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "vcard-convert",
})

func main() {
	var opts options
	cmd := &cobra.Command{
		Use:   "vcard-convert [options...] [file...]",
		Short: "Convert vCards between versions and representations",
		Long: `vcard-convert reads vCards, jCards or xCards from the provided files
(or standard input) and writes them as vCard 2.1, 3.0 or 4.0, jCard, xCard
or hCard to standard output.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), args, &opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.from, "from", "", "input format: vcard, json or xml (default guessed from the file extension)")
	flags.StringVarP(&opts.format, "format", "f", "vcard", "output format: vcard, json, xml or html")
	flags.StringVar(&opts.toVersion, "to-version", "", "vCard version to write: 2.1, 3.0 or 4.0 (default is the version of each card)")
	flags.BoolVar(&opts.caret, "caret", false, "encode parameter values with RFC 6868 caret encoding")
	flags.IntVar(&opts.fold, "fold", 75, "maximum line length, zero disables folding")
	flags.BoolVar(&opts.strict, "strict", false, "fail on the first warning")
	flags.BoolVar(&opts.indent, "indent", false, "pretty-print jCard and xCard output")
	flags.StringArrayVar(&opts.match, "match", nil, "only keep cards with a property containing a text, e.g. EMAIL=example.com (repeatable, all must match)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(w io.Writer, args []string, opts *options) error {
	query, err := parseMatch(opts.match)
	if err != nil {
		return err
	}

	var cards []*vcardio.Card
	if len(args) == 0 {
		l, err := readCards(os.Stdin, opts.from, opts.strict)
		if err != nil {
			return fmt.Errorf("failed to read standard input: %w", err)
		}
		cards = l
	}
	for _, name := range args {
		l, err := readFile(name, opts)
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", name, err)
		}
		cards = append(cards, l...)
	}

	cards, err = filter.Filter(query, cards)
	if err != nil {
		return err
	}
	logger.Debug("converting cards", "count", len(cards), "format", opts.format)

	return writeCards(w, cards, opts)
}

func readFile(name string, opts *options) ([]*vcardio.Card, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	from := opts.from
	if from == "" {
		from = formatFromExt(name)
	}
	return readCards(f, from, opts.strict)
}

func formatFromExt(name string) string {
	switch {
	case strings.HasSuffix(name, ".json"):
		return "json"
	case strings.HasSuffix(name, ".xml"):
		return "xml"
	}
	return "vcard"
}

type cardDecoder interface {
	Decode() (*vcardio.Card, []vcardio.Warning, error)
}

func readCards(r io.Reader, from string, strict bool) ([]*vcardio.Card, error) {
	var dec cardDecoder
	switch from {
	case "vcard", "":
		d := vcardio.NewDecoder(r)
		if strict {
			d.Strict = func(vcardio.Warning) bool { return true }
		}
		dec = d
	case "json":
		dec = vcardio.NewJSONDecoder(r)
	case "xml":
		dec = vcardio.NewXMLDecoder(r)
	default:
		return nil, fmt.Errorf("unknown input format %q", from)
	}

	var cards []*vcardio.Card
	for {
		card, warnings, err := dec.Decode()
		for _, w := range warnings {
			logWarning(w)
		}
		if err == io.EOF {
			return cards, nil
		} else if err != nil {
			return nil, err
		}
		if strict && len(warnings) > 0 {
			return nil, &vcardio.WarningError{Warning: warnings[0]}
		}
		cards = append(cards, card)
	}
}

func writeCards(w io.Writer, cards []*vcardio.Card, opts *options) error {
	switch opts.format {
	case "vcard":
		enc := vcardio.NewEncoder(w)
		if opts.toVersion != "" {
			v, err := vcardio.ParseVersion(opts.toVersion)
			if err != nil {
				return err
			}
			enc.Version = v
		}
		enc.CaretEncoding = opts.caret
		enc.FoldLength = opts.fold
		if opts.fold == 0 {
			enc.FoldLength = -1
		}
		enc.OnWarning = logWarning
		for _, card := range cards {
			if err := enc.Encode(card); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := vcardio.NewJSONEncoder(w)
		enc.Indent = opts.indent
		enc.OnWarning = logWarning
		for _, card := range cards {
			if err := enc.Encode(card); err != nil {
				return err
			}
		}
		return enc.Close()
	case "xml":
		enc := vcardio.NewXMLEncoder(w)
		enc.Indent = opts.indent
		enc.OnWarning = logWarning
		for _, card := range cards {
			if err := enc.Encode(card); err != nil {
				return err
			}
		}
		return enc.Close()
	case "html":
		return vcardio.WriteHTML(w, cards...)
	default:
		return fmt.Errorf("unknown output format %q", opts.format)
	}
}

func logWarning(w vcardio.Warning) {
	logger.Warn(w.Message, "property", w.Property, "line", w.Line, "code", w.Code)
}

// parseMatch builds a query from NAME=TEXT arguments.
func parseMatch(args []string) (*filter.Query, error) {
	if len(args) == 0 {
		return nil, nil
	}
	query := &filter.Query{Test: filter.AllOf}
	for _, arg := range args {
		name, text, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid match %q: expected NAME=TEXT", arg)
		}
		query.PropFilters = append(query.PropFilters, filter.PropFilter{
			Name:        strings.ToUpper(name),
			TextMatches: []filter.TextMatch{{Text: text}},
		})
	}
	return query, nil
}
