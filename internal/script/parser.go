package script

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// The action language is a flat sequence of capability calls:
//
//	toggleRoleById("123456789")
//	log(member.tag); messageChannelById("987", "hello")
//
// Arguments are double-quoted strings, integers, booleans, or identifiers
// with optional dotted field access resolving against the bound snapshots.
// There are no expressions, no control flow, and no user definitions.

type ArgKind uint8

const (
	ArgString ArgKind = iota
	ArgInt
	ArgBool
	ArgIdent
)

type Arg struct {
	Kind  ArgKind
	Str   string
	Int   int64
	Bool  bool
	Ident string
}

type Call struct {
	Name string
	Args []Arg
}

type parser struct {
	src []rune
	pos int
}

// Parse turns script source into its call sequence. A syntax error aborts
// the whole script; partially parsed calls are never executed.
func Parse(source string) ([]Call, error) {
	p := &parser{src: []rune(source)}

	var calls []Call
	for {
		p.skipSeparators()
		if p.eof() {
			return calls, nil
		}

		call, err := p.parseCall()
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() rune {
	return p.src[p.pos]
}

func (p *parser) skipSeparators() {
	for !p.eof() {
		r := p.peek()
		if unicode.IsSpace(r) || r == ';' {
			p.pos++
			continue
		}
		return
	}
}

func (p *parser) parseCall() (Call, error) {
	name, err := p.parseIdent()
	if err != nil {
		return Call{}, err
	}

	p.skipSeparators()
	if p.eof() || p.peek() != '(' {
		return Call{}, fmt.Errorf("expected '(' after %q at offset %d", name, p.pos)
	}
	p.pos++

	call := Call{Name: name}
	for {
		p.skipSeparators()
		if p.eof() {
			return Call{}, fmt.Errorf("unterminated call %q", name)
		}
		if p.peek() == ')' {
			p.pos++
			return call, nil
		}
		if len(call.Args) > 0 {
			if p.peek() != ',' {
				return Call{}, fmt.Errorf("expected ',' or ')' in call %q at offset %d", name, p.pos)
			}
			p.pos++
			p.skipSeparators()
		}

		arg, err := p.parseArg()
		if err != nil {
			return Call{}, fmt.Errorf("call %q: %w", name, err)
		}
		call.Args = append(call.Args, arg)
	}
}

func (p *parser) parseArg() (Arg, error) {
	if p.eof() {
		return Arg{}, fmt.Errorf("unexpected end of input")
	}

	switch r := p.peek(); {
	case r == '"':
		str, err := p.parseString()
		if err != nil {
			return Arg{}, err
		}
		return Arg{Kind: ArgString, Str: str}, nil

	case r == '-' || unicode.IsDigit(r):
		return p.parseNumber()

	case isIdentStart(r):
		ident, err := p.parseIdentPath()
		if err != nil {
			return Arg{}, err
		}
		switch ident {
		case "true":
			return Arg{Kind: ArgBool, Bool: true}, nil
		case "false":
			return Arg{Kind: ArgBool, Bool: false}, nil
		}
		return Arg{Kind: ArgIdent, Ident: ident}, nil

	default:
		return Arg{}, fmt.Errorf("unexpected character %q at offset %d", r, p.pos)
	}
}

func (p *parser) parseString() (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for !p.eof() {
		r := p.peek()
		p.pos++
		switch r {
		case '"':
			return b.String(), nil
		case '\\':
			if p.eof() {
				return "", fmt.Errorf("unterminated escape in string literal")
			}
			esc := p.peek()
			p.pos++
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(r)
		}
	}
	return "", fmt.Errorf("unterminated string literal")
}

func (p *parser) parseNumber() (Arg, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.eof() && unicode.IsDigit(p.peek()) {
		p.pos++
	}
	text := string(p.src[start:p.pos])
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Arg{}, fmt.Errorf("bad number %q", text)
	}
	return Arg{Kind: ArgInt, Int: n}, nil
}

func (p *parser) parseIdent() (string, error) {
	if p.eof() || !isIdentStart(p.peek()) {
		return "", fmt.Errorf("expected identifier at offset %d", p.pos)
	}
	start := p.pos
	for !p.eof() && isIdentPart(p.peek()) {
		p.pos++
	}
	return string(p.src[start:p.pos]), nil
}

func (p *parser) parseIdentPath() (string, error) {
	ident, err := p.parseIdent()
	if err != nil {
		return "", err
	}
	for !p.eof() && p.peek() == '.' {
		p.pos++
		field, err := p.parseIdent()
		if err != nil {
			return "", fmt.Errorf("bad field access after %q: %w", ident, err)
		}
		ident += "." + field
	}
	return ident, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
