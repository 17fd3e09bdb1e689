package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

type repairState int

const (
	expectKey repairState = iota
	expectColon
	expectValue
	afterValue
)

type openContainer struct {
	kind  rune
	state repairState
}

type jsonRepairer struct {
	src          []rune
	pos          int
	out          strings.Builder
	stack        []openContainer
	pendingComma bool
	done         bool
	err          error
}

// RepairError reports near-JSON that cannot be repaired without guessing
type RepairError struct {
	Offset int
	Reason string
}

func (e *RepairError) Error() string {
	return fmt.Sprintf("cannot repair JSON at offset %d: %s", e.Offset, e.Reason)
}

// RepairJSON rewrites almost-JSON into parseable JSON. It inserts missing
// commas, drops trailing and doubled commas, converts single-quoted, smart-quoted
// and bare strings, maps Python literals, closes unterminated strings and closes
// or rebalances brackets. Text after the first complete top-level value is dropped.
//
// Input whose repair would invent structure, such as an object key with no
// colon or a number written with a thousands separator, returns a *RepairError.
func RepairJSON(s string) (string, error) {
	r := &jsonRepairer{src: []rune(s)}
	r.run()
	if r.err != nil {
		return "", r.err
	}
	return r.out.String(), nil
}

func (r *jsonRepairer) run() {
	for r.pos < len(r.src) && !r.done {
		c := r.src[r.pos]
		switch {
		case unicode.IsSpace(c):
			r.out.WriteRune(c)
			r.pos++
		case c == '/' && r.peek(1) == '/':
			r.skipLineComment()
		case c == '/' && r.peek(1) == '*':
			r.skipBlockComment()
		case isQuote(c):
			r.readString(c)
		case c == '{' || c == '[':
			r.prepare(false)
			r.out.WriteRune(c)
			state := expectValue
			if c == '{' {
				state = expectKey
			}
			r.stack = append(r.stack, openContainer{kind: c, state: state})
			r.pos++
		case c == '}' || c == ']':
			r.closeUntil(c)
			r.pos++
		case c == ':':
			if top := r.top(); top != nil && top.kind == '{' && top.state == expectColon {
				r.out.WriteRune(':')
				top.state = expectValue
			}
			r.pos++
		case c == ',':
			if top := r.top(); top != nil && top.state == afterValue {
				if top.kind == '{' {
					top.state = expectKey
				} else {
					top.state = expectValue
				}
				r.pendingComma = true
			}
			r.pos++
		default:
			r.readBareword()
		}
	}

	r.pendingComma = false
	for len(r.stack) > 0 {
		r.closeTop()
	}
}

func (r *jsonRepairer) fail(reason string) {
	if r.err == nil {
		r.err = &RepairError{Offset: r.pos, Reason: reason}
	}
	r.done = true
}

func isQuote(c rune) bool {
	switch c {
	case '"', '\'', '“', '”', '„', '‘', '’':
		return true
	}
	return false
}

// closesQuote reports whether c ends a string opened with open. Smart quotes
// pair with either their counterpart or the plain quote of the same kind.
func closesQuote(open, c rune) bool {
	switch open {
	case '“', '”', '„':
		return c == '”' || c == '“' || c == '"'
	case '‘', '’':
		return c == '’' || c == '\''
	}
	return c == open
}

// expectColonNext reports whether the next significant rune after pos is ':'
func (r *jsonRepairer) expectColonNext() bool {
	for i := r.pos; i < len(r.src); i++ {
		c := r.src[i]
		if unicode.IsSpace(c) {
			continue
		}
		return c == ':'
	}
	return false
}

func isSingleQuote(c rune) bool {
	return c == '\'' || c == '‘' || c == '’'
}

func isLetterAt(src []rune, i int) bool {
	return i >= 0 && i < len(src) && unicode.IsLetter(src[i])
}

func (r *jsonRepairer) peek(offset int) rune {
	if r.pos+offset < len(r.src) {
		return r.src[r.pos+offset]
	}
	return 0
}

func (r *jsonRepairer) top() *openContainer {
	if len(r.stack) == 0 {
		return nil
	}
	return &r.stack[len(r.stack)-1]
}

// prepare emits whatever separators are needed before the next token and
// reports whether the token should be written as an object key.
func (r *jsonRepairer) prepare(keyCandidate bool) bool {
	top := r.top()
	if top == nil {
		return false
	}
	if r.pendingComma {
		r.out.WriteRune(',')
		r.pendingComma = false
	}

	if top.kind == '[' {
		if top.state == afterValue {
			r.out.WriteRune(',')
		}
		top.state = afterValue
		return false
	}

	switch top.state {
	case expectColon:
		r.out.WriteRune(':')
		top.state = afterValue
		return false
	case expectValue:
		top.state = afterValue
		return false
	case afterValue:
		r.out.WriteRune(',')
	}
	if keyCandidate {
		top.state = expectColon
		return true
	}
	r.out.WriteString(`"_":`)
	top.state = afterValue
	return false
}

func (r *jsonRepairer) closeUntil(closer rune) {
	opener := '{'
	if closer == ']' {
		opener = '['
	}
	found := false
	for _, c := range r.stack {
		if c.kind == opener {
			found = true
		}
	}
	if !found {
		return
	}
	r.pendingComma = false
	for len(r.stack) > 0 {
		kind := r.top().kind
		r.closeTop()
		if kind == opener {
			break
		}
	}
	if len(r.stack) == 0 {
		r.done = true
	}
}

func (r *jsonRepairer) closeTop() {
	top := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	if top.kind == '{' {
		switch top.state {
		case expectColon:
			r.out.WriteString(":null")
		case expectValue:
			r.out.WriteString("null")
		}
		r.out.WriteRune('}')
		return
	}
	r.out.WriteRune(']')
}

func (r *jsonRepairer) readString(quote rune) {
	isKey := r.prepare(true)
	r.out.WriteRune('"')
	r.pos++
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == '\\' && r.pos+1 < len(r.src):
			next := r.src[r.pos+1]
			if next == '\'' {
				r.out.WriteRune('\'')
			} else {
				r.out.WriteRune(c)
				r.out.WriteRune(next)
			}
			r.pos += 2
			continue
		case isSingleQuote(quote) && closesQuote(quote, c) && isLetterAt(r.src, r.pos-1) && isLetterAt(r.src, r.pos+1):
			// apostrophe inside a single-quoted word, as in 'Rome's'
			r.out.WriteRune(c)
		case closesQuote(quote, c):
			r.out.WriteRune('"')
			r.pos++
			r.finishKey(isKey)
			r.finishScalar()
			return
		case c == '"':
			r.out.WriteString(`\"`)
		case c == '\n':
			r.out.WriteString(`\n`)
		case c == '\r':
			r.out.WriteString(`\r`)
		case c == '\t':
			r.out.WriteString(`\t`)
		default:
			r.out.WriteRune(c)
		}
		r.pos++
	}
	r.out.WriteRune('"')
	r.finishKey(isKey)
	r.finishScalar()
}

// finishKey rejects a key that is not followed by a colon. Writing such a
// token as a key would turn a stray word into a member with a null value.
func (r *jsonRepairer) finishKey(isKey bool) {
	if isKey && !r.expectColonNext() {
		r.fail("object key is not followed by ':'")
	}
}

var leadingZeroDigits = regexp.MustCompile(`^0\d+$`)

// isThousandsGroup reports a digit group like the "000" of 1,000, which no
// JSON number can start with
func isThousandsGroup(src []rune, start int, word string) bool {
	return start >= 2 && src[start-1] == ',' && unicode.IsDigit(src[start-2]) && leadingZeroDigits.MatchString(word)
}

var jsonNumberPattern = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?$`)

func isBareRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '-' || c == '+' || c == '.'
}

func (r *jsonRepairer) readBareword() {
	start := r.pos
	for r.pos < len(r.src) && isBareRune(r.src[r.pos]) {
		r.pos++
	}
	if r.pos == start {
		r.pos++
		return
	}
	word := string(r.src[start:r.pos])

	if isThousandsGroup(r.src, start, word) {
		r.fail("number with a thousands separator")
		return
	}

	if r.prepare(true) {
		r.writeQuoted(word)
		r.finishKey(true)
		r.finishScalar()
		return
	}

	switch word {
	case "true", "True", "TRUE":
		r.out.WriteString("true")
	case "false", "False", "FALSE":
		r.out.WriteString("false")
	case "null", "None", "NULL", "Null", "nil", "undefined":
		r.out.WriteString("null")
	default:
		if jsonNumberPattern.MatchString(word) {
			r.out.WriteString(word)
		} else if f, err := strconv.ParseFloat(word, 64); err == nil {
			r.out.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		} else {
			r.writeQuoted(word)
		}
	}
	r.finishScalar()
}

func (r *jsonRepairer) writeQuoted(s string) {
	b, _ := json.Marshal(s)
	r.out.Write(b)
}

func (r *jsonRepairer) finishScalar() {
	if len(r.stack) == 0 {
		r.done = true
	}
}

func (r *jsonRepairer) skipLineComment() {
	for r.pos < len(r.src) && r.src[r.pos] != '\n' {
		r.pos++
	}
}

func (r *jsonRepairer) skipBlockComment() {
	r.pos += 2
	for r.pos < len(r.src) {
		if r.src[r.pos] == '*' && r.peek(1) == '/' {
			r.pos += 2
			return
		}
		r.pos++
	}
}
