// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package directive

import (
	"strconv"

	"github.com/cparanoid/cpreproc/internal/macro"
	"github.com/cparanoid/cpreproc/internal/perr"
	"github.com/cparanoid/cpreproc/internal/token"
)

// resolveDefined rewrites every `defined(NAME)` or `defined NAME` in
// tokens into a single NUMERIC "1"/"0" token (spec §4.7), ahead of macro
// expansion — the NAME operand of `defined` must never itself be
// macro-expanded, which is why this pass runs before expandConditionTokens.
func resolveDefined(macros *macro.Table, tokens []token.Token) ([]token.Token, error) {
	out := make([]token.Token, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if !(t.Kind == token.IDENTIFIER && t.Literal == "defined") {
			out = append(out, t)
			continue
		}

		var nameTok token.Token
		switch {
		case i+3 < len(tokens) && tokens[i+1].Kind == token.LPAREN &&
			tokens[i+2].IsWord() && tokens[i+3].Kind == token.RPAREN:
			nameTok = tokens[i+2]
			i += 3
		case i+1 < len(tokens) && tokens[i+1].IsWord():
			nameTok = tokens[i+1]
			i++
		default:
			return nil, perr.At(perr.MalformedDefine, t.Location, "operator 'defined' requires an identifier, optionally parenthesized")
		}

		lit := "0"
		if macros.IsDefined(nameTok.Literal) {
			lit = "1"
		}
		out = append(out, token.Token{Kind: token.NUMERIC, Literal: lit, Location: t.Location})
	}
	return out, nil
}

// exprParser is a small recursive-descent evaluator for the minimal
// #if/#elif grammar spec §4.7 allows: integer literals, the logical and
// comparison operators, with C precedence. Identifiers reaching this
// stage (i.e. ones that were not consumed by resolveDefined and did not
// expand to anything via macro substitution) evaluate to 0, per spec's
// explicit rule and the open question in spec §9 flagging this as the
// deliberately simple behavior.
type exprParser struct {
	toks []token.Token
	pos  int
}

func evaluate(tokens []token.Token) (int64, error) {
	p := &exprParser{toks: tokens}
	v, err := p.parseOr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.toks) {
		return 0, perr.At(perr.MalformedDefine, p.peek().Location, "unexpected token %q in #if expression", p.peek().Literal)
	}
	return v, nil
}

func (p *exprParser) peek() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *exprParser) next() token.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (p *exprParser) parseOr() (int64, error) {
	v, err := p.parseAnd()
	if err != nil {
		return 0, err
	}
	for p.peek().Kind == token.PIPEPIPE {
		p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return 0, err
		}
		v = boolInt(v != 0 || rhs != 0)
	}
	return v, nil
}

func (p *exprParser) parseAnd() (int64, error) {
	v, err := p.parseEquality()
	if err != nil {
		return 0, err
	}
	for p.peek().Kind == token.AMPAMP {
		p.next()
		rhs, err := p.parseEquality()
		if err != nil {
			return 0, err
		}
		v = boolInt(v != 0 && rhs != 0)
	}
	return v, nil
}

func (p *exprParser) parseEquality() (int64, error) {
	v, err := p.parseRelational()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().Kind {
		case token.EQ:
			p.next()
			rhs, err := p.parseRelational()
			if err != nil {
				return 0, err
			}
			v = boolInt(v == rhs)
		case token.NE:
			p.next()
			rhs, err := p.parseRelational()
			if err != nil {
				return 0, err
			}
			v = boolInt(v != rhs)
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parseRelational() (int64, error) {
	v, err := p.parseAdditive()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek().Kind
		if op != token.LT && op != token.GT && op != token.LE && op != token.GE {
			return v, nil
		}
		p.next()
		rhs, err := p.parseAdditive()
		if err != nil {
			return 0, err
		}
		switch op {
		case token.LT:
			v = boolInt(v < rhs)
		case token.GT:
			v = boolInt(v > rhs)
		case token.LE:
			v = boolInt(v <= rhs)
		case token.GE:
			v = boolInt(v >= rhs)
		}
	}
}

func (p *exprParser) parseAdditive() (int64, error) {
	v, err := p.parseMultiplicative()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek().Kind
		if op != token.PLUS && op != token.MINUS {
			return v, nil
		}
		p.next()
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return 0, err
		}
		if op == token.PLUS {
			v += rhs
		} else {
			v -= rhs
		}
	}
}

func (p *exprParser) parseMultiplicative() (int64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek().Kind
		if op != token.STAR && op != token.SLASH && op != token.PERCENT {
			return v, nil
		}
		opTok := p.next()
		rhs, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch op {
		case token.STAR:
			v *= rhs
		case token.SLASH:
			if rhs == 0 {
				return 0, perr.At(perr.MalformedDefine, opTok.Location, "division by zero in #if expression")
			}
			v /= rhs
		case token.PERCENT:
			if rhs == 0 {
				return 0, perr.At(perr.MalformedDefine, opTok.Location, "division by zero in #if expression")
			}
			v %= rhs
		}
	}
}

func (p *exprParser) parseUnary() (int64, error) {
	switch p.peek().Kind {
	case token.BANG:
		p.next()
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return boolInt(v == 0), nil
	case token.MINUS:
		p.next()
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	case token.PLUS:
		p.next()
		return p.parseUnary()
	case token.TILDE:
		p.next()
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return ^v, nil
	default:
		return p.parsePrimary()
	}
}

func (p *exprParser) parsePrimary() (int64, error) {
	t := p.peek()
	switch t.Kind {
	case token.NUMERIC:
		p.next()
		v, err := strconv.ParseInt(t.Literal, 0, 64)
		if err != nil {
			return 0, perr.At(perr.MalformedDefine, t.Location, "invalid integer literal %q in #if expression", t.Literal)
		}
		return v, nil
	case token.LPAREN:
		p.next()
		v, err := p.parseOr()
		if err != nil {
			return 0, err
		}
		if p.peek().Kind != token.RPAREN {
			return 0, perr.At(perr.MalformedDefine, p.peek().Location, "expected ')' in #if expression")
		}
		p.next()
		return v, nil
	case token.EOF:
		return 0, perr.At(perr.MalformedDefine, t.Location, "expected an expression after #if/#elif")
	default:
		// Any identifier left unresolved by macro expansion — including a
		// keyword-classified spelling like "sizeof" appearing bare, outside
		// defined(...) — evaluates to 0 (spec §4.7: "Identifiers not inside
		// defined(...) evaluate to 0").
		if t.IsWord() {
			p.next()
			return 0, nil
		}
		return 0, perr.At(perr.MalformedDefine, t.Location, "unexpected token %q in #if expression", t.Literal)
	}
}
