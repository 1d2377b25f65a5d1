package contentline

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// SanitizeEvent describes a lossy change made to a parameter value so that it
// could be written.
type SanitizeEvent struct {
	Property  string
	Param     string
	Value     string
	Sanitized string
}

// Writer writes content lines, folding them as needed.
type Writer struct {
	Syntax Syntax
	// CaretEncoding enables RFC 6868 encoding of parameter values. It only
	// applies to SyntaxNew. When disabled, double quotes are replaced with
	// single quotes and newlines with ParamNewline.
	CaretEncoding bool
	// FoldLength is the maximum length of a physical line, in characters.
	// Zero or a negative value disables folding.
	FoldLength int
	// Indent is prepended to folded lines. It must be a space or a tab.
	Indent string
	// Newline is the physical line separator.
	Newline string
	// ParamNewline replaces newlines in parameter values when caret encoding
	// is disabled.
	ParamNewline string
	// OnSanitize is called whenever a parameter value can't be written
	// as-is.
	OnSanitize func(SanitizeEvent)

	bw  *bufio.Writer
	len int // length of the current physical line
}

// NewWriter creates a writer with the default settings: lines folded at 75
// characters with a single space, CRLF line endings.
func NewWriter(w io.Writer, syntax Syntax) *Writer {
	return &Writer{
		Syntax:       syntax,
		FoldLength:   75,
		Indent:       " ",
		Newline:      "\r\n",
		ParamNewline: " ",
		bw:           bufio.NewWriter(w),
	}
}

// WriteLine writes a content line. The value is written as-is, except for
// newlines: with SyntaxOld the line is quoted-printable encoded, with
// SyntaxNew newlines are escaped as "\n".
//
// The line's parameters are never modified.
func (w *Writer) WriteLine(l *Line) error {
	if l.Group != "" && !ValidName(l.Group) {
		return fmt.Errorf("%w: group %q", ErrInvalidName, l.Group)
	}
	if !ValidName(l.Name) {
		return fmt.Errorf("%w: property %q", ErrInvalidName, l.Name)
	}

	params := l.Params
	val := l.Value
	if strings.ContainsAny(val, "\r\n") {
		if w.Syntax == SyntaxOld {
			if !l.HasParamValue("ENCODING", "QUOTED-PRINTABLE") {
				params = append(append([]Param(nil), params...), Param{Name: "ENCODING", Values: []string{"QUOTED-PRINTABLE"}})
				if l.Param("CHARSET") == nil {
					params = append(params, Param{Name: "CHARSET", Values: []string{"UTF-8"}})
				}
			}
		} else {
			val = escapeNewlines(val)
		}
	}

	qp := false
	charset := ""
	for _, p := range params {
		switch strings.ToUpper(p.Name) {
		case "ENCODING":
			for _, v := range p.Values {
				if strings.EqualFold(v, "QUOTED-PRINTABLE") {
					qp = true
				}
			}
		case "CHARSET":
			if len(p.Values) > 0 {
				charset = p.Values[0]
			}
		}
	}
	if qp {
		encoded, err := EncodeQuotedPrintable(val, charset)
		if err != nil {
			// fall back to UTF-8 rather than losing the value
			encoded, err = EncodeQuotedPrintable(val, "")
			if err != nil {
				return err
			}
		}
		val = encoded
	}

	var sb strings.Builder
	if l.Group != "" {
		sb.WriteString(l.Group)
		sb.WriteByte('.')
	}
	sb.WriteString(l.Name)
	for _, p := range params {
		w.writeParam(&sb, l.Name, p)
	}
	sb.WriteByte(':')

	w.fold(sb.String(), false)
	w.fold(val, qp)
	w.endLine()
	return w.bw.Flush()
}

func escapeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\n`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func (w *Writer) writeParam(sb *strings.Builder, propName string, p Param) {
	if len(p.Values) == 0 {
		return
	}

	values := make([]string, len(p.Values))
	for i, v := range p.Values {
		values[i] = w.sanitizeParamValue(propName, p.Name, v)
	}

	if w.Syntax == SyntaxOld {
		if strings.EqualFold(p.Name, "TYPE") {
			for i, v := range values {
				sb.WriteByte(';')
				// keywords would be read back as VALUE or ENCODING
				if BareParamName(p.Values[i]) != "TYPE" {
					sb.WriteString(p.Name)
					sb.WriteByte('=')
				}
				sb.WriteString(v)
			}
			return
		}
		for _, v := range values {
			sb.WriteByte(';')
			sb.WriteString(p.Name)
			sb.WriteByte('=')
			sb.WriteString(v)
		}
		return
	}

	sb.WriteByte(';')
	sb.WriteString(p.Name)
	sb.WriteByte('=')
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(',')
		}
		if strings.ContainsAny(v, ",:;") {
			sb.WriteByte('"')
			sb.WriteString(v)
			sb.WriteByte('"')
		} else {
			sb.WriteString(v)
		}
	}
}

func isInvalidParamChar(c rune) bool {
	if c == '\t' || c == '\n' || c == '\r' {
		return false
	}
	return c < ' ' || c == 0x7F
}

func (w *Writer) sanitizeParamValue(propName, paramName, v string) string {
	clean := strings.Map(func(c rune) rune {
		if isInvalidParamChar(c) {
			return -1
		}
		return c
	}, v)

	var out string
	if w.Syntax == SyntaxOld {
		clean = replaceNewlines(clean, " ")
		out = escapeOldParamValue(clean)
	} else if w.CaretEncoding {
		out = caretEncode(clean)
	} else {
		clean = strings.ReplaceAll(clean, `"`, "'")
		clean = replaceNewlines(clean, w.ParamNewline)
		out = clean
	}

	if clean != v && w.OnSanitize != nil {
		w.OnSanitize(SanitizeEvent{
			Property:  propName,
			Param:     paramName,
			Value:     v,
			Sanitized: clean,
		})
	}
	return out
}

func replaceNewlines(s, repl string) string {
	s = strings.ReplaceAll(s, "\r\n", repl)
	s = strings.ReplaceAll(s, "\r", repl)
	return strings.ReplaceAll(s, "\n", repl)
}

func escapeOldParamValue(s string) string {
	if !strings.ContainsAny(s, `\;:,=`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if c := s[i]; isOldParamEscape(c) {
			sb.WriteByte('\\')
			sb.WriteByte(c)
		} else {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func caretEncode(s string) string {
	if !strings.ContainsAny(s, "^\"\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "^", "^^")
	s = strings.ReplaceAll(s, `"`, "^'")
	return replaceNewlines(s, "^n")
}

// fold writes s to the current physical line, starting new physical lines as
// needed. In quoted-printable mode, lines are broken with soft line breaks
// and "=XX" sequences are never split.
func (w *Writer) fold(s string, qp bool) {
	if qp {
		w.foldQuotedPrintable(s)
		return
	}

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if w.FoldLength > 0 && w.len >= w.FoldLength {
			w.bw.WriteString(w.Newline)
			w.bw.WriteString(w.Indent)
			w.len = utf8.RuneCountInString(w.Indent)
		}
		w.bw.WriteRune(r)
		w.len++
		s = s[size:]
	}
}

func (w *Writer) foldQuotedPrintable(s string) {
	for len(s) > 0 {
		n := 1
		if s[0] == '=' && len(s) >= 3 {
			n = 3
		}
		if w.FoldLength > 0 && w.len > 0 && w.len+n > w.FoldLength-1 {
			w.bw.WriteString("=")
			w.bw.WriteString(w.Newline)
			w.len = 0
		}
		w.bw.WriteString(s[:n])
		w.len += n
		s = s[n:]
	}
}

func (w *Writer) endLine() {
	w.bw.WriteString(w.Newline)
	w.len = 0
}
