package dump

import (
	"bufio"
	"io"
	"strings"
)

// Split reconstructs the ordered statement sequence from raw dump text.
//
// It is a small state machine rather than a line heuristic: a terminator
// inside a single-quoted literal (common in serialized WordPress options)
// does not end a statement. Comment lines starting with -- and blank lines
// are dropped. Whatever is left unterminated at end of input is flushed as
// a final statement.
func Split(r io.Reader) ([]string, error) {
	const (
		stateNormal = iota
		stateQuote
		stateQuoteEscape
		stateComment
	)

	br := bufio.NewReader(r)

	var (
		stmts       []string
		buf         strings.Builder
		state       = stateNormal
		atLineStart = true
	)

	flush := func() {
		s := strings.TrimSpace(buf.String())
		buf.Reset()
		if s != "" {
			stmts = append(stmts, s)
		}
	}

	for {
		c, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch state {
		case stateComment:
			if c == '\n' {
				state = stateNormal
				atLineStart = true
			}
			continue

		case stateQuote:
			buf.WriteByte(c)
			switch c {
			case '\\':
				state = stateQuoteEscape
			case '\'':
				state = stateNormal
			}
			continue

		case stateQuoteEscape:
			buf.WriteByte(c)
			state = stateQuote
			continue
		}

		// stateNormal
		if atLineStart && c == '-' {
			if next, err := br.Peek(1); err == nil && next[0] == '-' {
				br.ReadByte()
				state = stateComment
				continue
			}
		}

		switch c {
		case '\'':
			buf.WriteByte(c)
			state = stateQuote
			atLineStart = false
		case ';':
			buf.WriteByte(c)
			flush()
			atLineStart = false
		case '\n':
			buf.WriteByte(c)
			atLineStart = true
		case ' ', '\t', '\r':
			buf.WriteByte(c)
		default:
			buf.WriteByte(c)
			atLineStart = false
		}
	}

	flush()
	return stmts, nil
}
