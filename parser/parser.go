package parser

import (
	"fmt"
	"strconv"

	"github.com/thiremani/oslogopt/ir"
	"github.com/thiremani/oslogopt/lexer"
	"github.com/thiremani/oslogopt/token"
	"github.com/thiremani/oslogopt/types"
)

type Parser struct {
	l      *lexer.Lexer
	errors []*token.CompileError

	curToken  token.Token
	peekToken token.Token
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []*token.CompileError{},
	}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// Errors returns lexer and parser errors in the order they were found.
func (p *Parser) Errors() []*token.CompileError {
	return append(append([]*token.CompileError{}, p.l.Errors...), p.errors...)
}

func (p *Parser) addError(tok token.Token, format string, args ...any) {
	p.errors = append(p.errors, &token.CompileError{Token: tok, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) peekError(t token.TokenType) {
	p.addError(p.peekToken, "expected next token to be %s, got %s instead", t, p.peekToken)
}

// skipLine advances to the NEWLINE (or closing brace) ending the current line.
func (p *Parser) skipLine() {
	for !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

// Parse reads every function in the input. Functions with errors are
// dropped from the module; the errors are available from Errors.
func (p *Parser) Parse() *ir.Module {
	m := ir.NewModule(p.l.FileName)

	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) {
			p.nextToken()
			continue
		}
		if !p.curTokenIs(token.FUNC) {
			p.addError(p.curToken, "expected func, got %s", p.curToken)
			p.skipLine()
			p.nextToken()
			continue
		}

		oldErrs := len(p.errors)
		fn := p.parseFunc()
		if fn != nil && len(p.errors) == oldErrs {
			if m.Lookup(fn.Name) != nil {
				p.addError(p.curToken, "duplicate function @%s", fn.Name)
			} else {
				m.Funcs = append(m.Funcs, fn)
			}
		}
		p.nextToken()
	}
	return m
}

func (p *Parser) parseFunc() *ir.Func {
	if !p.expectPeek(token.GLOBAL) {
		p.skipFunc()
		return nil
	}
	if types.IsReservedFuncName(p.curToken.Literal) {
		p.addError(p.curToken, "function name %q is reserved", p.curToken.Literal)
	}
	fn := ir.NewFunc(p.curToken.Literal)
	scope := make(map[string]ir.Value)

	if !p.parseParams(fn, scope) || !p.expectPeek(token.LBRACE) {
		p.skipFunc()
		return nil
	}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) {
		switch {
		case p.curTokenIs(token.EOF):
			p.addError(p.curToken, "unexpected end of input in @%s", fn.Name)
			return nil
		case p.curTokenIs(token.NEWLINE):
			p.nextToken()
			continue
		}

		in := p.parseInstr(scope)
		if in == nil {
			p.skipLine()
			continue
		}
		if !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.RBRACE) {
			p.addError(p.peekToken, "unexpected %s after %s", p.peekToken, in.Op)
			p.skipLine()
			continue
		}
		if in.Result != "" {
			if _, dup := scope[in.Result]; dup {
				p.addError(p.curToken, "value %%%s is defined more than once", in.Result)
			}
			scope[in.Result] = in
		}
		fn.Append(in)
		p.nextToken()
	}
	return fn
}

// skipFunc discards tokens up to the closing brace of a malformed function.
func (p *Parser) skipFunc() {
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

func (p *Parser) parseParams(fn *ir.Func, scope map[string]ir.Value) bool {
	if !p.expectPeek(token.LPAREN) {
		return false
	}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return true
	}
	for {
		if !p.expectPeek(token.VALUE) {
			return false
		}
		name := p.curToken.Literal
		if !p.expectPeek(token.COLON) || !p.expectPeek(token.TYPE) {
			return false
		}
		param := ir.NewParam(name, ir.Type(p.curToken.Literal))
		if _, dup := scope[name]; dup {
			p.addError(p.curToken, "duplicate parameter %%%s", name)
		}
		scope[name] = param
		fn.Params = append(fn.Params, param)

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	return p.expectPeek(token.RPAREN)
}

// parseInstr parses one instruction line. On success curToken is the last
// token of the instruction.
func (p *Parser) parseInstr(scope map[string]ir.Value) *ir.Instr {
	in := &ir.Instr{}
	if p.curTokenIs(token.VALUE) && p.peekTokenIs(token.ASSIGN) {
		in.Result = p.curToken.Literal
		p.nextToken()
		p.nextToken()
	}

	opTok := p.curToken
	if !p.curTokenIs(token.IDENT) {
		p.addError(opTok, "expected an instruction, got %s", opTok)
		return nil
	}
	op, ok := ir.LookupOp(opTok.Literal)
	if !ok {
		p.addError(opTok, "unknown instruction %q", opTok.Literal)
		return nil
	}
	in.Op = op

	if in.Result != "" && !op.HasResult() {
		p.addError(opTok, "%s does not produce a value", op)
		return nil
	}
	if in.Result == "" && op.HasResult() && op != ir.OpApply {
		p.addError(opTok, "result of %s must be named", op)
		return nil
	}

	if !p.parseOperands(in, scope) {
		return nil
	}
	return in
}

func (p *Parser) parseOperands(in *ir.Instr, scope map[string]ir.Value) bool {
	var ok bool
	switch in.Op {
	case ir.OpIntegerLiteral:
		in.Ty, ok = p.parseType()
		ok = ok && p.expectPeek(token.COMMA)
		if ok {
			in.Int, ok = p.parseInt()
		}
		if ok {
			if _, isInt := ir.BuiltinIntBits(in.Ty); !isInt {
				p.addError(p.curToken, "integer_literal requires a builtin integer type, got $%s", in.Ty)
				return false
			}
		}

	case ir.OpStringLiteral:
		if !p.expectPeek(token.IDENT) {
			return false
		}
		in.Encoding = p.curToken.Literal
		if !p.expectPeek(token.STRING) {
			return false
		}
		in.Text, ok = p.curToken.Literal, true

	case ir.OpStruct, ir.OpArrayLiteral:
		in.Ty, ok = p.parseType()
		if ok {
			in.Args, ok = p.parseOperandList(scope)
		}

	case ir.OpTuple:
		in.Args, ok = p.parseOperandList(scope)

	case ir.OpEnum:
		in.Ty, ok = p.parseType()
		ok = ok && p.expectPeek(token.COMMA) && p.expectPeek(token.CASE)
		if !ok {
			return false
		}
		in.Text = p.curToken.Literal
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			var payload ir.Value
			payload, ok = p.parseOperand(scope)
			in.Args = []ir.Value{payload}
		}

	case ir.OpStructExtract, ir.OpTupleExtract:
		var agg ir.Value
		agg, ok = p.parseOperand(scope)
		ok = ok && p.expectPeek(token.COMMA)
		if ok {
			in.Args = []ir.Value{agg}
			in.Int, ok = p.parseInt()
		}
		if ok {
			in.Ty, ok = p.parseAnnotation()
		}

	case ir.OpBuiltin:
		if !p.expectPeek(token.STRING) {
			return false
		}
		in.Text = p.curToken.Literal
		in.Args, ok = p.parseOperandList(scope)
		if ok {
			in.Ty, ok = p.parseAnnotation()
		}

	case ir.OpFunctionRef:
		if !p.expectPeek(token.GLOBAL) {
			return false
		}
		in.Text, ok = p.curToken.Literal, true

	case ir.OpApply, ir.OpPartialApply:
		var callee ir.Value
		callee, ok = p.parseOperand(scope)
		if !ok {
			return false
		}
		var args []ir.Value
		args, ok = p.parseOperandList(scope)
		in.Args = append([]ir.Value{callee}, args...)
		if ok {
			in.Ty, ok = p.parseAnnotation()
		}

	case ir.OpAllocStack:
		in.Ty, ok = p.parseType()

	case ir.OpStore:
		var val, addr ir.Value
		val, ok = p.parseOperand(scope)
		ok = ok && p.expectPeek(token.TO)
		if ok {
			addr, ok = p.parseAddress(scope)
		}
		in.Args = []ir.Value{val, addr}

	case ir.OpLoad, ir.OpDeallocStack:
		var addr ir.Value
		addr, ok = p.parseAddress(scope)
		in.Args = []ir.Value{addr}

	case ir.OpDebugValue:
		var v ir.Value
		v, ok = p.parseOperand(scope)
		in.Args = []ir.Value{v}

	case ir.OpReturn:
		ok = true
		if p.peekTokenIs(token.VALUE) {
			var v ir.Value
			v, ok = p.parseOperand(scope)
			in.Args = []ir.Value{v}
		}
	}
	return ok
}

func (p *Parser) parseType() (ir.Type, bool) {
	if !p.expectPeek(token.TYPE) {
		return ir.NoType, false
	}
	return ir.Type(p.curToken.Literal), true
}

// parseAnnotation parses an optional trailing ": $T".
func (p *Parser) parseAnnotation() (ir.Type, bool) {
	if !p.peekTokenIs(token.COLON) {
		return ir.NoType, true
	}
	p.nextToken()
	return p.parseType()
}

func (p *Parser) parseInt() (int64, bool) {
	if !p.expectPeek(token.INT) {
		return 0, false
	}
	lit := p.curToken.Literal
	if v, err := strconv.ParseInt(lit, 0, 64); err == nil {
		return v, true
	}
	// Unsigned 64-bit bit patterns are kept as their two's complement.
	if u, err := strconv.ParseUint(lit, 0, 64); err == nil {
		return int64(u), true
	}
	p.addError(p.curToken, "invalid integer literal %q", lit)
	return 0, false
}

func (p *Parser) parseOperand(scope map[string]ir.Value) (ir.Value, bool) {
	if !p.expectPeek(token.VALUE) {
		return nil, false
	}
	v, ok := scope[p.curToken.Literal]
	if !ok {
		p.addError(p.curToken, "value %%%s used before definition", p.curToken.Literal)
		return nil, false
	}
	return v, true
}

func (p *Parser) parseAddress(scope map[string]ir.Value) (ir.Value, bool) {
	v, ok := p.parseOperand(scope)
	if !ok {
		return nil, false
	}
	if !v.Type().IsAddress() {
		p.addError(p.curToken, "%s is not an address", v.Ref())
		return nil, false
	}
	return v, true
}

func (p *Parser) parseOperandList(scope map[string]ir.Value) ([]ir.Value, bool) {
	if !p.expectPeek(token.LPAREN) {
		return nil, false
	}
	vals := []ir.Value{}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return vals, true
	}
	for {
		v, ok := p.parseOperand(scope)
		if !ok {
			return nil, false
		}
		vals = append(vals, v)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	return vals, p.expectPeek(token.RPAREN)
}
