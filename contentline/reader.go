package contentline

import (
	"bufio"
	"io"
	"strings"
)

// Reader reads logical content lines from a stream of physical lines.
type Reader struct {
	// Syntax is used to tokenize parameters. It can be changed between calls
	// to ReadLine, e.g. after a VERSION property has been read.
	Syntax Syntax
	// CaretDecoding enables RFC 6868 decoding of parameter values. It only
	// applies to SyntaxNew.
	CaretDecoding bool

	br *bufio.Reader

	num    int // number of physical lines read so far
	peeked bool
	peek   string
	peekNo int
	eof    bool
}

// NewReader creates a reader. The syntax defaults to SyntaxOld until the
// caller switches it, and caret decoding is enabled.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		Syntax:        SyntaxOld,
		CaretDecoding: true,
		br:            bufio.NewReader(r),
	}
}

func (r *Reader) readPhysical() (line string, num int, err error) {
	if r.peeked {
		r.peeked = false
		return r.peek, r.peekNo, nil
	}
	if r.eof {
		return "", 0, io.EOF
	}

	s, err := r.br.ReadString('\n')
	if err == io.EOF {
		r.eof = true
		if s == "" {
			return "", 0, io.EOF
		}
	} else if err != nil {
		return "", 0, err
	}

	r.num++
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, r.num, nil
}

func (r *Reader) unread(line string, num int) {
	r.peeked = true
	r.peek = line
	r.peekNo = num
}

// isQuotedPrintable reports whether the line read so far carries a
// quoted-printable encoding parameter and has reached its value.
func isQuotedPrintable(line string) bool {
	i := valueStart(line)
	if i < 0 {
		return false
	}
	return strings.Contains(strings.ToUpper(line[:i]), "QUOTED-PRINTABLE")
}

// valueStart returns the index of the colon separating the name part from
// the value, skipping quoted and backslash-escaped characters. It returns -1
// if there is none.
func valueStart(line string) int {
	quoted := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case '\\':
			if !quoted {
				i++
			}
		case ':':
			if !quoted {
				return i
			}
		}
	}
	return -1
}

// Unfold returns the next logical line and the number of its first physical
// line.
func (r *Reader) Unfold() (line string, num int, err error) {
	var sb strings.Builder

	// skip blank lines
	for {
		line, num, err = r.readPhysical()
		if err != nil {
			return "", 0, err
		}
		if line != "" {
			break
		}
	}
	sb.WriteString(line)
	qp := isQuotedPrintable(line) && strings.HasSuffix(line, "=")

	for {
		next, nextNum, err := r.readPhysical()
		if err == io.EOF {
			break
		} else if err != nil {
			return "", 0, err
		}

		if qp {
			// soft line break: drop the trailing "=" and append the next line
			// as-is
			s := sb.String()
			sb.Reset()
			sb.WriteString(s[:len(s)-1])
			sb.WriteString(next)
			qp = strings.HasSuffix(next, "=")
			continue
		}

		if next == "" {
			// some producers emit blank lines in the middle of folded values
			continue
		}

		if next[0] != ' ' && next[0] != '\t' {
			r.unread(next, nextNum)
			break
		}

		sb.WriteString(next[1:])
		qp = isQuotedPrintable(sb.String()) && strings.HasSuffix(next, "=")
	}

	s := sb.String()
	if qp {
		s = s[:len(s)-1]
	}
	return s, num, nil
}

// ReadLine reads and tokenizes the next logical line. It returns io.EOF at
// the end of the stream and a *ParseError for malformed lines, in which case
// the caller may keep reading.
func (r *Reader) ReadLine() (*Line, error) {
	s, num, err := r.Unfold()
	if err != nil {
		return nil, err
	}

	l, err := parseLine(s, r.Syntax, r.CaretDecoding)
	if err != nil {
		return nil, &ParseError{Line: num, Text: s, Err: err}
	}
	l.Num = num
	return l, nil
}

// Parse tokenizes an unfolded content line. Caret decoding is enabled for
// SyntaxNew.
func Parse(s string, syntax Syntax) (*Line, error) {
	return parseLine(s, syntax, true)
}

type lineParser struct {
	s      string
	pos    int
	syntax Syntax
	caret  bool
}

func parseLine(s string, syntax Syntax, caret bool) (*Line, error) {
	p := lineParser{s: s, syntax: syntax, caret: caret}

	end := strings.IndexAny(s, ";:")
	if end < 0 {
		return nil, ErrMalformedLine
	}

	l := &Line{Name: strings.TrimSpace(s[:end])}
	if i := strings.LastIndexByte(l.Name, '.'); i >= 0 {
		l.Group = l.Name[:i]
		l.Name = l.Name[i+1:]
		if !ValidName(l.Group) {
			return nil, ErrInvalidName
		}
	}
	if !ValidName(l.Name) {
		return nil, ErrInvalidName
	}

	p.pos = end
	for p.pos < len(s) && s[p.pos] == ';' {
		p.pos++
		param, err := p.param()
		if err != nil {
			return nil, err
		}
		if param != nil {
			l.Params = append(l.Params, *param)
		}
	}

	if p.pos >= len(s) || s[p.pos] != ':' {
		return nil, ErrMalformedLine
	}
	l.Value = s[p.pos+1:]
	return l, nil
}

func (p *lineParser) param() (*Param, error) {
	var sb strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == '=' || c == ';' || c == ':' {
			break
		}
		// bare vCard 2.1 tokens are escaped like parameter values
		if c == '\\' && p.syntax == SyntaxOld && p.pos+1 < len(p.s) && isOldParamEscape(p.s[p.pos+1]) {
			sb.WriteByte(p.s[p.pos+1])
			p.pos += 2
			continue
		}
		sb.WriteByte(c)
		p.pos++
	}
	if p.pos >= len(p.s) {
		return nil, ErrMalformedLine
	}

	name := strings.TrimSpace(sb.String())
	if p.s[p.pos] != '=' {
		// bare parameter, vCard 2.1 style
		if name == "" {
			return nil, nil
		}
		return &Param{Name: BareParamName(name), Values: []string{name}}, nil
	}
	p.pos++ // skip '='

	var values []string
	for {
		v, quoted, err := p.paramValue()
		if err != nil {
			return nil, err
		}
		if quoted && strings.EqualFold(name, "TYPE") && strings.IndexByte(v, ',') >= 0 {
			// Non-conformant producers put comma-separated lists inside
			// a single quoted TYPE value.
			for _, part := range strings.Split(v, ",") {
				values = append(values, strings.TrimSpace(part))
			}
		} else {
			values = append(values, v)
		}

		if p.pos < len(p.s) && p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		break
	}

	if name == "" {
		return nil, nil
	}
	return &Param{Name: name, Values: values}, nil
}

func (p *lineParser) paramValue() (v string, quoted bool, err error) {
	var sb strings.Builder

	if p.pos < len(p.s) && p.s[p.pos] == '"' {
		end := strings.IndexByte(p.s[p.pos+1:], '"')
		if end < 0 {
			return "", false, ErrMalformedLine
		}
		sb.WriteString(p.s[p.pos+1 : p.pos+1+end])
		p.pos += end + 2
		quoted = true
	}

	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == ',' || c == ';' || c == ':' {
			break
		}
		if c == '\\' && p.syntax == SyntaxOld && p.pos+1 < len(p.s) && isOldParamEscape(p.s[p.pos+1]) {
			sb.WriteByte(p.s[p.pos+1])
			p.pos += 2
			continue
		}
		sb.WriteByte(c)
		p.pos++
	}
	if p.pos >= len(p.s) {
		return "", false, ErrMalformedLine
	}

	v = sb.String()
	if p.syntax == SyntaxNew && p.caret {
		v = caretDecode(v)
	}
	return v, quoted, nil
}

func isOldParamEscape(c byte) bool {
	switch c {
	case '\\', ';', ':', ',', '=':
		return true
	}
	return false
}

func caretDecode(s string) string {
	if strings.IndexByte(s, '^') < 0 {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '^' || i == len(s)-1 {
			sb.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '^':
			sb.WriteByte('^')
		case 'n':
			sb.WriteByte('\n')
		case '\'':
			sb.WriteByte('"')
		default:
			sb.WriteByte(c)
			continue
		}
		i++
	}
	return sb.String()
}
