package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"slate/internal/ast"
	"slate/internal/diag"
	"slate/internal/lexer"
	"slate/internal/source"
	"slate/internal/token"
)

// ErrParse is returned for any syntax error; the diagnostic has already been
// reported by the time the parser unwinds.
var ErrParse = errors.New("parse error")

// Parser consumes a token stream and produces statements. Parsing stops at
// the first error.
type Parser struct {
	tokens   []token.Token
	pos      int
	path     string
	reporter diag.Reporter
}

// New creates a parser over a token stream.
func New(path string, tokens []token.Token, reporter diag.Reporter) *Parser {
	return &Parser{tokens: tokens, path: path, reporter: reporter}
}

// ParseFile lexes and parses one file's content in a single call.
func ParseFile(file source.FileID, path string, content []byte, reporter diag.Reporter) ([]ast.Stmt, error) {
	tokens, ok := lexer.Tokenize(file, content, reporter)
	if !ok {
		return nil, ErrParse
	}
	return New(path, tokens, reporter).Parse()
}

// Parse consumes the whole stream and returns top-level statements.
func (p *Parser) Parse() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for !p.at(token.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// Cursor helpers ------------------------------------------------------------

func (p *Parser) current() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) at(kind token.Kind) bool {
	return p.current().Kind == kind
}

func (p *Parser) advance() token.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) accept(kind token.Kind) (token.Token, bool) {
	if p.at(kind) {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	if p.at(kind) {
		return p.advance(), nil
	}
	return token.Token{}, p.errorf(p.current().Span, diag.SynUnexpectedToken,
		"expected %s, got %s", kind, p.current().Kind)
}

func (p *Parser) errorf(span source.Span, code diag.Code, format string, args ...any) error {
	if p.reporter != nil {
		p.reporter.Report(code, diag.SevError, span, fmt.Sprintf(format, args...), nil)
	}
	return ErrParse
}

// Statements ----------------------------------------------------------------

func (p *Parser) parseStatement() (ast.Stmt, error) {
	tok := p.current()
	switch tok.Kind {
	case token.KwReturn:
		return p.parseReturn()
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwUsing:
		return p.parseUsing()
	case token.KwImport:
		return p.parseImport()
	case token.Ident:
		next := p.peekKind(1)
		switch next {
		case token.ColonColon:
			return p.parseDeclaration()
		case token.Colon, token.ColonEq:
			return p.parseVariableDeclaration()
		}
	}
	return p.parseExpressionStatement()
}

func (p *Parser) peekKind(n int) token.Kind {
	if p.pos+n >= len(p.tokens) {
		return token.EOF
	}
	return p.tokens[p.pos+n].Kind
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	kw := p.advance()
	if semi, ok := p.accept(token.Semicolon); ok {
		return &ast.Return{Range: kw.Span.Cover(semi.Span)}, nil
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	semi, err := p.expect(token.Semicolon)
	if err != nil {
		return nil, err
	}
	return &ast.Return{Value: value, Range: kw.Span.Cover(semi.Span)}, nil
}

func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	stmts := []ast.Stmt{}
	for !p.at(token.RBrace) {
		if p.at(token.EOF) {
			return nil, p.errorf(p.current().Span, diag.SynUnclosedDelimiter, "unclosed block")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	p.advance() // '}'
	return stmts, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	kw := p.advance()
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.If{Condition: condition, Body: body, Range: kw.Span}
	for p.at(token.KwElse) {
		p.advance()
		if p.at(token.KwIf) {
			p.advance()
			elseCondition, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			elseBody, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.ElseIfs = append(stmt.ElseIfs, ast.ElseIf{Condition: elseCondition, Body: elseBody})
			continue
		}
		elseBody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBody
		break
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	kw := p.advance()
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Condition: condition, Body: body, Range: kw.Span}, nil
}

func (p *Parser) parseUsing() (ast.Stmt, error) {
	kw := p.advance()
	module, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	semi, err := p.expect(token.Semicolon)
	if err != nil {
		return nil, err
	}
	return &ast.Using{Module: module, Range: kw.Span.Cover(semi.Span)}, nil
}

func (p *Parser) parseImport() (ast.Stmt, error) {
	kw := p.advance()
	path, err := p.expect(token.String)
	if err != nil {
		return nil, err
	}
	semi, err := p.expect(token.Semicolon)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(path.Text)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return &ast.Import{
		Path:      path.Text,
		PathRange: path.Span,
		Name:      name,
		Range:     kw.Span.Cover(semi.Span),
	}, nil
}

// parseDeclaration handles 'name :: ...' forms: functions, structs/unions,
// and constants.
func (p *Parser) parseDeclaration() (ast.Stmt, error) {
	name := p.advance()
	p.advance() // '::'

	switch p.current().Kind {
	case token.KwStruct, token.KwUnion:
		return p.parseStructDefinition(name)
	case token.LParen:
		// Either a function declaration or a constant whose value starts
		// with a parenthesis (grouping or a function type). Try the
		// function form first and backtrack on failure.
		mark := p.pos
		if stmt, ok := p.tryParseFunctionDeclaration(name); ok {
			return stmt, nil
		}
		p.pos = mark
	}

	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	semi, err := p.expect(token.Semicolon)
	if err != nil {
		return nil, err
	}
	return &ast.ConstantDefinition{
		Name:      name.Text,
		NameRange: name.Span,
		Value:     value,
		Range:     name.Span.Cover(semi.Span),
	}, nil
}

// tryParseFunctionDeclaration speculatively parses a function declaration.
// It reports nothing on failure; the caller backtracks and re-parses the
// tokens as a constant definition.
func (p *Parser) tryParseFunctionDeclaration(name token.Token) (ast.Stmt, bool) {
	saveReporter := p.reporter
	p.reporter = diag.NopReporter{}
	stmt, err := p.parseFunctionDeclaration(name)
	p.reporter = saveReporter
	if err != nil {
		return nil, false
	}
	return stmt, true
}

func (p *Parser) parseFunctionDeclaration(name token.Token) (ast.Stmt, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	var parameters []ast.FunctionParameter
	for !p.at(token.RParen) {
		if len(parameters) > 0 {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
		}
		isConstant := false
		if _, ok := p.accept(token.Dollar); ok {
			isConstant = true
		}
		paramName, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		paramType, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		parameters = append(parameters, ast.FunctionParameter{
			Name:       paramName.Text,
			NameRange:  paramName.Span,
			Type:       paramType,
			IsConstant: isConstant,
		})
	}
	p.advance() // ')'

	var returnType ast.Expr
	if _, ok := p.accept(token.Arrow); ok {
		var err error
		returnType, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}

	decl := &ast.FunctionDeclaration{
		Name:       name.Text,
		NameRange:  name.Span,
		Parameters: parameters,
		ReturnType: returnType,
		Range:      name.Span,
	}
	switch p.current().Kind {
	case token.KwExtern:
		p.advance()
		semi, err := p.expect(token.Semicolon)
		if err != nil {
			return nil, err
		}
		decl.IsExternal = true
		decl.Range = name.Span.Cover(semi.Span)
		return decl, nil
	case token.LBrace:
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		decl.Body = body
		return decl, nil
	}
	return nil, p.errorf(p.current().Span, diag.SynBadDeclaration,
		"expected '{' or 'extern', got %s", p.current().Kind)
}

func (p *Parser) parseStructDefinition(name token.Token) (ast.Stmt, error) {
	kw := p.advance()
	isUnion := kw.Kind == token.KwUnion

	var parameters []ast.StructParameter
	if _, ok := p.accept(token.LParen); ok {
		for !p.at(token.RParen) {
			if len(parameters) > 0 {
				if _, err := p.expect(token.Comma); err != nil {
					return nil, err
				}
			}
			paramName, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.Colon); err != nil {
				return nil, err
			}
			paramType, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			parameters = append(parameters, ast.StructParameter{
				Name:      paramName.Text,
				NameRange: paramName.Span,
				Type:      paramType,
			})
		}
		p.advance() // ')'
	}

	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var members []ast.StructMember
	for !p.at(token.RBrace) {
		memberName, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		memberType, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semicolon); err != nil {
			return nil, err
		}
		members = append(members, ast.StructMember{
			Name:      memberName.Text,
			NameRange: memberName.Span,
			Type:      memberType,
		})
	}
	end := p.advance() // '}'

	return &ast.StructDefinition{
		Name:       name.Text,
		NameRange:  name.Span,
		IsUnion:    isUnion,
		Parameters: parameters,
		Members:    members,
		Range:      name.Span.Cover(end.Span),
	}, nil
}

func (p *Parser) parseVariableDeclaration() (ast.Stmt, error) {
	name := p.advance()
	decl := &ast.VariableDeclaration{Name: name.Text, NameRange: name.Span, Range: name.Span}

	if _, ok := p.accept(token.ColonEq); ok {
		init, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		decl.Initializer = init
	} else {
		p.advance() // ':'
		typeExpr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		decl.Type = typeExpr
		if _, ok := p.accept(token.Assign); ok {
			init, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			decl.Initializer = init
		}
	}
	semi, err := p.expect(token.Semicolon)
	if err != nil {
		return nil, err
	}
	decl.Range = name.Span.Cover(semi.Span)
	return decl, nil
}

func (p *Parser) parseExpressionStatement() (ast.Stmt, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept(token.Assign); ok {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		semi, err := p.expect(token.Semicolon)
		if err != nil {
			return nil, err
		}
		return &ast.Assignment{Target: expr, Value: value, Range: expr.Span().Cover(semi.Span)}, nil
	}
	semi, err := p.expect(token.Semicolon)
	if err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Expression: expr, Range: expr.Span().Cover(semi.Span)}, nil
}

// Expressions ---------------------------------------------------------------

// binaryPrecedence returns the precedence for a binary operator token, or 0
// when the token is not a binary operator. Higher binds tighter.
func binaryPrecedence(kind token.Kind) (ast.BinaryOp, int) {
	switch kind {
	case token.PipePipe:
		return ast.BinBoolOr, 1
	case token.AmpAmp:
		return ast.BinBoolAnd, 2
	case token.Pipe:
		return ast.BinBitOr, 3
	case token.Amp:
		return ast.BinBitAnd, 4
	case token.Eq:
		return ast.BinEqual, 5
	case token.NotEq:
		return ast.BinNotEqual, 5
	case token.Lt:
		return ast.BinLess, 6
	case token.Gt:
		return ast.BinGreater, 6
	case token.Plus:
		return ast.BinAdd, 7
	case token.Minus:
		return ast.BinSubtract, 7
	case token.Star:
		return ast.BinMultiply, 8
	case token.Slash:
		return ast.BinDivide, 8
	case token.Percent:
		return ast.BinModulo, 8
	}
	return 0, 0
}

func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrecedence int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, precedence := binaryPrecedence(p.current().Kind)
		if precedence < minPrecedence || precedence == 0 {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(precedence + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOperation{
			Op: op, Left: left, Right: right,
			Range: left.Span().Cover(right.Span()),
		}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	tok := p.current()
	var op ast.UnaryOp
	switch tok.Kind {
	case token.Minus:
		op = ast.UnaryNegate
	case token.Bang:
		op = ast.UnaryInvert
	case token.Star:
		op = ast.UnaryPointer
	case token.Amp:
		op = ast.UnaryAddressOf
	case token.Dollar:
		p.advance()
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		return &ast.PolymorphicDeterminer{Name: name.Text, Range: tok.Span.Cover(name.Span)}, nil
	default:
		return p.parsePostfix()
	}
	p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.UnaryOperation{Op: op, Operand: operand, Range: tok.Span.Cover(operand.Span())}, nil
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.current().Kind {
		case token.Dot:
			p.advance()
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			expr = &ast.MemberReference{
				Object: expr, Name: name.Text, NameRange: name.Span,
				Range: expr.Span().Cover(name.Span),
			}
		case token.LBracket:
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			end, err := p.expect(token.RBracket)
			if err != nil {
				return nil, err
			}
			expr = &ast.IndexReference{Object: expr, Index: index, Range: expr.Span().Cover(end.Span)}
		case token.LParen:
			p.advance()
			var args []ast.Expr
			for !p.at(token.RParen) {
				if len(args) > 0 {
					if _, err := p.expect(token.Comma); err != nil {
						return nil, err
					}
				}
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
			end := p.advance() // ')'
			expr = &ast.FunctionCall{Callee: expr, Arguments: args, Range: expr.Span().Cover(end.Span)}
		case token.KwAs:
			p.advance()
			target, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			expr = &ast.Cast{Value: expr, Target: target, Range: expr.Span().Cover(target.Span())}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.current()
	switch tok.Kind {
	case token.Int:
		p.advance()
		text := tok.Text
		base := 10
		if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
			text = text[2:]
			base = 16
		}
		value, err := strconv.ParseUint(text, base, 64)
		if err != nil {
			return nil, p.errorf(tok.Span, diag.LexBadNumber, "integer literal out of range")
		}
		return &ast.IntegerLiteral{Value: value, Range: tok.Span}, nil
	case token.Float:
		p.advance()
		value, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, p.errorf(tok.Span, diag.LexBadNumber, "malformed float literal")
		}
		return &ast.FloatLiteral{Value: value, Range: tok.Span}, nil
	case token.String:
		p.advance()
		return &ast.StringLiteral{Value: tok.Text, Range: tok.Span}, nil
	case token.Ident:
		p.advance()
		return &ast.NamedReference{Name: tok.Text, Range: tok.Span}, nil
	case token.LParen:
		return p.parseParenOrFunctionType()
	case token.LBracket:
		return p.parseArrayType()
	case token.Dot:
		return p.parseAggregateLiteral()
	}
	return nil, p.errorf(tok.Span, diag.SynUnexpectedToken, "expected an expression, got %s", tok.Kind)
}

// parseParenOrFunctionType disambiguates '(expr)' from '(T, U) -> R'.
func (p *Parser) parseParenOrFunctionType() (ast.Expr, error) {
	open := p.advance() // '('

	if p.at(token.RParen) {
		// '()' must be a function type.
		p.advance()
		return p.parseFunctionTypeTail(open, nil)
	}

	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept(token.Comma); ok {
		params := []ast.Expr{first}
		for !p.at(token.RParen) {
			if len(params) > 1 {
				if _, err := p.expect(token.Comma); err != nil {
					return nil, err
				}
			}
			param, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
		}
		p.advance() // ')'
		return p.parseFunctionTypeTail(open, params)
	}

	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if p.at(token.Arrow) {
		return p.parseFunctionTypeTail(open, []ast.Expr{first})
	}
	return first, nil
}

func (p *Parser) parseFunctionTypeTail(open token.Token, params []ast.Expr) (ast.Expr, error) {
	fnType := &ast.FunctionType{Parameters: params, Range: open.Span}
	if _, ok := p.accept(token.Arrow); ok {
		returnType, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		fnType.ReturnType = returnType
		fnType.Range = open.Span.Cover(returnType.Span())
	}
	return fnType, nil
}

func (p *Parser) parseArrayType() (ast.Expr, error) {
	open := p.advance() // '['
	var length ast.Expr
	if !p.at(token.RBracket) {
		var err error
		length, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RBracket); err != nil {
		return nil, err
	}
	element, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.ArrayType{Length: length, Element: element, Range: open.Span.Cover(element.Span())}, nil
}

// parseAggregateLiteral handles '.[a, b]' and '.{ name = e }'.
func (p *Parser) parseAggregateLiteral() (ast.Expr, error) {
	dot := p.advance() // '.'
	switch p.current().Kind {
	case token.LBracket:
		p.advance()
		var elements []ast.Expr
		for !p.at(token.RBracket) {
			if len(elements) > 0 {
				if _, err := p.expect(token.Comma); err != nil {
					return nil, err
				}
				if p.at(token.RBracket) {
					break
				}
			}
			element, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			elements = append(elements, element)
		}
		end := p.advance() // ']'
		return &ast.ArrayLiteral{Elements: elements, Range: dot.Span.Cover(end.Span)}, nil
	case token.LBrace:
		p.advance()
		var members []ast.StructLiteralMember
		for !p.at(token.RBrace) {
			if len(members) > 0 {
				if _, err := p.expect(token.Comma); err != nil {
					return nil, err
				}
				if p.at(token.RBrace) {
					break
				}
			}
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.Assign); err != nil {
				return nil, err
			}
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			members = append(members, ast.StructLiteralMember{
				Name: name.Text, NameRange: name.Span, Value: value,
			})
		}
		end := p.advance() // '}'
		return &ast.StructLiteral{Members: members, Range: dot.Span.Cover(end.Span)}, nil
	}
	return nil, p.errorf(p.current().Span, diag.SynUnexpectedToken,
		"expected '[' or '{' after '.', got %s", p.current().Kind)
}
