// Package wpamsg implements the line-oriented message grammar spoken over
// the wpa_supplicant control socket: requests we send, and the replies and
// unsolicited events we receive back.
package wpamsg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a parsed or constructed Message.
type Kind int

const (
	// KindEvent is an unsolicited notification, identified by a leading
	// "<N>" priority token.
	KindEvent Kind = iota
	// KindLine is everything else: a request we build ourselves, or a
	// reply line read off the socket. The two are distinguished only by
	// where the queue is in its FIFO, never by content.
	KindLine
)

// ErrMalformed is returned by Parse for empty input or an unterminated quote.
var ErrMalformed = errors.New("wpamsg: malformed message")

// ErrMissingField is returned by Reader methods when a requested field is
// absent from the message.
var ErrMissingField = errors.New("wpamsg: missing field")

// Message is a parsed or constructed supplicant protocol line.
//
// Name holds the event name for events, or the first whitespace-separated
// token for anything else (a request's verb, or a reply's leading "OK" /
// "FAIL" / body token). Args holds every token after Name in original
// order, quotes stripped. Attrs holds the subset of Args that were
// "key=value" tokens, keyed by key, with quotes stripped from the value.
type Message struct {
	Kind  Kind
	Name  string
	Args  []string
	Attrs map[string]string
}

// NewRequest builds an outgoing request message. Arguments are rendered
// with fmt.Sprint, so both strings and integers can be passed directly.
func NewRequest(verb string, args ...interface{}) Message {
	m := Message{Kind: KindLine, Name: verb, Attrs: map[string]string{}}
	for _, a := range args {
		tok := fmt.Sprint(a)
		m.Args = append(m.Args, tok)
		if k, v, ok := splitAttr(tok); ok {
			m.Attrs[k] = v
		}
	}
	return m
}

// IsOK reports whether this is a plain "OK" reply.
func (m Message) IsOK() bool { return m.Kind == KindLine && m.Name == "OK" }

// IsFail reports whether this is a plain "FAIL" reply.
func (m Message) IsFail() bool { return m.Kind == KindLine && m.Name == "FAIL" }

// IsEvent reports whether the message is an unsolicited event.
func (m Message) IsEvent() bool { return m.Kind == KindEvent }

// Serialize renders m as a single newline-terminated line, suitable for
// writing to the control socket. Arguments are joined with a single space
// and are not re-quoted: callers must only pass arguments that need no
// quoting (see the package-level round-trip law in the tests).
func (m Message) Serialize() []byte {
	parts := make([]string, 0, len(m.Args)+1)
	parts = append(parts, m.Name)
	parts = append(parts, m.Args...)
	return []byte(strings.Join(parts, " ") + "\n")
}

// Parse classifies and tokenizes a single line read from the control
// socket. A leading "<N>" priority token (N a single digit) marks an
// event; anything else is returned as KindLine, which the command queue
// interprets as the reply to whatever request is currently in flight.
func Parse(line []byte) (Message, error) {
	s := strings.TrimRight(string(line), "\r\n")
	if strings.TrimSpace(s) == "" {
		return Message{}, fmt.Errorf("%w: empty line", ErrMalformed)
	}

	kind := KindLine
	if len(s) >= 3 && s[0] == '<' {
		if end := strings.IndexByte(s, '>'); end > 0 && end <= 2 {
			prio := s[1:end]
			if len(prio) == 1 && prio[0] >= '0' && prio[0] <= '9' {
				kind = KindEvent
				s = s[end+1:]
			}
		}
	}

	tokens, err := tokenize(s)
	if err != nil {
		return Message{}, err
	}
	if len(tokens) == 0 {
		return Message{}, fmt.Errorf("%w: no tokens", ErrMalformed)
	}

	m := Message{Kind: kind, Name: tokens[0], Attrs: map[string]string{}}
	for _, tok := range tokens[1:] {
		m.Args = append(m.Args, tok)
		if k, v, ok := splitAttr(tok); ok {
			m.Attrs[k] = v
		}
	}
	return m, nil
}

// tokenize splits on whitespace while honoring single- and double-quoted
// values (wpa_supplicant uses both, e.g. name='Aquaris M10' and
// ssid="DIRECT-hB" in the same event stream).
func tokenize(s string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	var quote byte
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inToken = true
		case c == ' ' || c == '\t':
			flush()
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: unterminated quote", ErrMalformed)
	}
	flush()
	return tokens, nil
}

// splitAttr splits a "key=value" token, stripping quotes from the value.
// Bare tokens (no '=') return ok=false.
func splitAttr(tok string) (key, value string, ok bool) {
	i := strings.IndexByte(tok, '=')
	if i <= 0 {
		return "", "", false
	}
	key = tok[:i]
	value = unquote(tok[i+1:])
	return key, value, true
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Reader provides fluent, order-independent field extraction from a
// Message: Skip/Positional walk Args in order, Named looks up Attrs by
// key regardless of position. The first error encountered is sticky and
// returned by Err.
type Reader struct {
	m   Message
	pos int
	err error
}

// Read returns a Reader positioned at the start of m's positional
// arguments.
func (m Message) Read() *Reader { return &Reader{m: m} }

// Skip advances past one positional argument without reading it.
func (r *Reader) Skip() *Reader {
	if r.err == nil {
		r.pos++
	}
	return r
}

// Positional reads the next positional argument into dest.
func (r *Reader) Positional(dest *string) *Reader {
	if r.err != nil {
		return r
	}
	if r.pos >= len(r.m.Args) {
		r.err = fmt.Errorf("%w: positional index %d", ErrMissingField, r.pos)
		return r
	}
	*dest = unquote(r.m.Args[r.pos])
	r.pos++
	return r
}

// PositionalInt reads the next positional argument as an integer.
func (r *Reader) PositionalInt(dest *int) *Reader {
	var s string
	r.Positional(&s)
	if r.err != nil {
		return r
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		r.err = fmt.Errorf("%w: positional index %d not an int", ErrMissingField, r.pos-1)
		return r
	}
	*dest = v
	return r
}

// Named reads attribute key into dest, independent of Skip/Positional
// position.
func (r *Reader) Named(key string, dest *string) *Reader {
	if r.err != nil {
		return r
	}
	v, ok := r.m.Attrs[key]
	if !ok {
		r.err = fmt.Errorf("%w: %s", ErrMissingField, key)
		return r
	}
	*dest = v
	return r
}

// NamedOptional reads attribute key into dest if present, leaving dest
// untouched otherwise. Never fails.
func (r *Reader) NamedOptional(key string, dest *string) *Reader {
	if r.err != nil {
		return r
	}
	if v, ok := r.m.Attrs[key]; ok {
		*dest = v
	}
	return r
}

// Err returns the first error encountered during reading, if any.
func (r *Reader) Err() error { return r.err }
