// Package parser implements the recursive-descent, precedence-climbing
// parser described in spec.md §6. It consumes the token.Token stream
// produced by pkg/lexer and builds pkg/ast nodes directly — rather than a
// separate parse-tree layer — via the pkg/ast.Builder seam, per
// SPEC_FULL.md §4.11.
package parser

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/its-hmny/hrlc/pkg/ast"
	"github.com/its-hmny/hrlc/pkg/token"
)

// Parser holds the token stream and cursor for one compilation unit.
type Parser struct {
	tokens  []token.Token
	pos     int
	builder *ast.Builder
}

// New returns a Parser ready to parse tokens into a *ast.CompilationUnit.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens, builder: ast.NewBuilder()}
}

func (p *Parser) peek() token.Token  { return p.tokens[p.pos] }
func (p *Parser) atEnd() bool        { return p.peek().Kind == token.END }
func (p *Parser) advance() token.Token {
	tok := p.tokens[p.pos]
	if tok.Kind != token.END {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool { return p.peek().Kind == kind }

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	if !p.check(kind) {
		return token.Token{}, errors.Errorf("parser: expected %s, got %s at %s", kind, p.peek().Kind, p.peek().Pos)
	}
	return p.advance(), nil
}

func (p *Parser) span(start int) []token.Token {
	end := p.pos
	if end <= start {
		end = start + 1
	}
	return p.tokens[start:end]
}

// Parse parses the full token stream into a *ast.CompilationUnit.
func (p *Parser) Parse() (*ast.CompilationUnit, error) {
	start := p.pos
	unit := &ast.CompilationUnit{}

	for !p.atEnd() {
		switch p.peek().Kind {
		case token.IMPORT:
			imp, err := p.parseImport()
			if err != nil {
				return nil, err
			}
			unit.Imports = append(unit.Imports, imp)

		case token.INIT:
			switch p.tokens[p.pos+1].Kind {
			case token.FLOOR:
				fb, err := p.parseFloorBoxInit()
				if err != nil {
					return nil, err
				}
				unit.FloorInits = append(unit.FloorInits, fb)
			case token.FLOOR_MAX:
				fm, err := p.parseFloorMaxInit()
				if err != nil {
					return nil, err
				}
				unit.FloorMax = &fm
			default:
				return nil, errors.Errorf("parser: expected 'floor' or 'floor_max' after 'init', got %s", p.tokens[p.pos+1].Kind)
			}

		case token.LET:
			vd, err := p.parseVarDecl()
			if err != nil {
				return nil, err
			}
			unit.VarDecls = append(unit.VarDecls, vd)

		case token.SUBWORD:
			sub, err := p.parseSubprocedure()
			if err != nil {
				return nil, err
			}
			unit.Subroutines = append(unit.Subroutines, sub)

		case token.FUNCTION:
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			unit.Subroutines = append(unit.Subroutines, fn)

		default:
			return nil, errors.Errorf("parser: unexpected top-level token %s at %s", p.peek().Kind, p.peek().Pos)
		}
	}

	unit.Node = p.builder.Header(p.span(start)...)
	return unit, nil
}

func (p *Parser) parseImport() (*ast.Import, error) {
	start := p.pos
	if _, err := p.expect(token.IMPORT); err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return &ast.Import{Node: p.builder.Header(p.span(start)...), Path: name.Text}, nil
}

func (p *Parser) parseFloorBoxInit() (*ast.FloorBoxInit, error) {
	start := p.pos
	if _, err := p.expect(token.INIT); err != nil {
		return nil, err
	}
	assign, err := p.parseFloorAssignment()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return &ast.FloorBoxInit{Node: p.builder.Header(p.span(start)...), Assignment: assign}, nil
}

func (p *Parser) parseFloorMaxInit() (int, error) {
	if _, err := p.expect(token.INIT); err != nil {
		return 0, err
	}
	if _, err := p.expect(token.FLOOR_MAX); err != nil {
		return 0, err
	}
	if _, err := p.expect(token.EQ); err != nil {
		return 0, err
	}
	lit, err := p.expect(token.INTEGER)
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(lit.Text)
	if convErr != nil {
		return 0, errors.Wrapf(convErr, "parser: invalid floor_max literal %q", lit.Text)
	}
	return n, nil
}

// parseFloorAssignment parses "floor" "[" expr "]" "=" expr, without the
// trailing semicolon (the caller decides whether one is expected).
func (p *Parser) parseFloorAssignment() (*ast.FloorAssignment, error) {
	start := p.pos
	if _, err := p.expect(token.FLOOR); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACKET); err != nil {
		return nil, err
	}
	idx, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.EQ); err != nil {
		return nil, err
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.FloorAssignment{Node: p.builder.Header(p.span(start)...), Index: idx, Value: val}, nil
}

func (p *Parser) parseVarDecl() (*ast.VariableDeclaration, error) {
	start := p.pos
	if _, err := p.expect(token.LET); err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	vd := &ast.VariableDeclaration{Name: name.Text}
	if p.match(token.EQ) {
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		vd.Assignment = val
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	vd.Node = p.builder.Header(p.span(start)...)
	return vd, nil
}

func (p *Parser) parseParam() (*string, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var param *string
	if p.check(token.IDENTIFIER) {
		name := p.advance()
		param = &name.Text
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return param, nil
}

func (p *Parser) parseSubprocedure() (*ast.Subprocedure, error) {
	start := p.pos
	if _, err := p.expect(token.SUBWORD); err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	param, err := p.parseParam()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Subprocedure{Node: p.builder.Header(p.span(start)...), Name: name.Text, Param: param, Body: body}, nil
}

func (p *Parser) parseFunction() (*ast.Function, error) {
	start := p.pos
	if _, err := p.expect(token.FUNCTION); err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	param, err := p.parseParam()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Function{Node: p.builder.Header(p.span(start)...), Name: name.Text, Param: param, Body: body}, nil
}

// parseBlock parses "{" stmt* "}" and returns the contained statements
// (the braces do not become an AST node of their own; StatementBlock is
// reserved for blocks that are themselves a Statement, e.g. unused here
// but retained for nested-block constructs a future grammar extension
// might add).
func (p *Parser) parseBlock() ([]ast.Statement, error) {
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var stmts []ast.Statement
	for !p.check(token.RBRACE) && !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	start := p.pos
	switch p.peek().Kind {
	case token.SEMI:
		p.advance()
		return &ast.EmptyStatement{Node: p.builder.Header(p.span(start)...)}, nil

	case token.LET:
		return p.parseVarDecl()

	case token.INIT:
		if p.tokens[p.pos+1].Kind == token.FLOOR {
			return p.parseFloorBoxInit()
		}
		return nil, errors.Errorf("parser: 'init floor_max' is only valid at the top level, at %s", p.peek().Pos)

	case token.FLOOR:
		fa, err := p.parseFloorAssignment()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		fa.Node = p.builder.Header(p.span(start)...)
		return fa, nil

	case token.IF:
		return p.parseIf()

	case token.WHILE:
		return p.parseWhile()

	case token.FOR:
		return p.parseFor()

	case token.RETURN:
		return p.parseReturn()

	case token.BREAK:
		p.advance()
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return &ast.BreakStatement{Node: p.builder.Header(p.span(start)...)}, nil

	case token.CONTINUE:
		p.advance()
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return &ast.ContinueStatement{Node: p.builder.Header(p.span(start)...)}, nil

	case token.IDENTIFIER:
		return p.parseIdentifierLedStatement()

	default:
		return nil, errors.Errorf("parser: unexpected statement-starting token %s at %s", p.peek().Kind, p.peek().Pos)
	}
}

// parseIdentifierLedStatement disambiguates the four statement forms that
// begin with an identifier: assignment, increment, decrement, and a
// call-as-statement invocation.
func (p *Parser) parseIdentifierLedStatement() (ast.Statement, error) {
	start := p.pos
	name := p.advance()

	switch p.peek().Kind {
	case token.EQ:
		p.advance()
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return &ast.VariableAssignment{Node: p.builder.Header(p.span(start)...), Name: name.Text, Value: val}, nil

	case token.INC:
		p.advance()
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return &ast.Increment{Node: p.builder.Header(p.span(start)...), Name: name.Text}, nil

	case token.DEC:
		p.advance()
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return &ast.Decrement{Node: p.builder.Header(p.span(start)...), Name: name.Text}, nil

	case token.LPAREN:
		inv, err := p.parseInvocationArgs(name.Text, start)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return inv, nil

	default:
		return nil, errors.Errorf("parser: expected '=', '++', '--' or '(' after identifier %q at %s", name.Text, p.peek().Pos)
	}
}

func (p *Parser) parseInvocationArgs(name string, start int) (*ast.Invocation, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var arg ast.Expression
	if !p.check(token.RPAREN) {
		var err error
		arg, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.Invocation{Node: p.builder.Header(p.span(start)...), FuncName: name, Argument: arg}, nil
}

func (p *Parser) parseIf() (*ast.IfStatement, error) {
	start := p.pos
	if _, err := p.expect(token.IF); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	ifStmt := &ast.IfStatement{Cond: cond, Then: then}
	if p.match(token.ELSE) {
		if p.check(token.IF) {
			nested, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			ifStmt.Else = []ast.Statement{nested}
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			ifStmt.Else = elseBlock
		}
	}
	ifStmt.Node = p.builder.Header(p.span(start)...)
	return ifStmt, nil
}

func (p *Parser) parseWhile() (*ast.WhileStatement, error) {
	start := p.pos
	if _, err := p.expect(token.WHILE); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Node: p.builder.Header(p.span(start)...), Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (*ast.ForStatement, error) {
	start := p.pos
	if _, err := p.expect(token.FOR); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	var init ast.Statement
	if !p.check(token.SEMI) {
		var err error
		if p.check(token.LET) {
			// parseVarDecl consumes its own trailing ';', which doubles as
			// the for-loop's init/cond separator.
			init, err = p.parseVarDecl()
		} else {
			init, err = p.parseBareAssignment()
			if err == nil {
				_, err = p.expect(token.SEMI)
			}
		}
		if err != nil {
			return nil, err
		}
	} else {
		p.advance()
	}

	var cond ast.Expression
	if !p.check(token.SEMI) {
		var err error
		cond, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}

	var update ast.Statement
	if !p.check(token.RPAREN) {
		var err error
		update, err = p.parseBareUpdate()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForStatement{
		Node: p.builder.Header(p.span(start)...),
		Init: init, Cond: cond, Update: update, Body: body,
	}, nil
}

// parseBareAssignment parses "IDENT = expr" without a trailing semicolon,
// for use in the for-loop init clause.
func (p *Parser) parseBareAssignment() (*ast.VariableAssignment, error) {
	start := p.pos
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.EQ); err != nil {
		return nil, err
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.VariableAssignment{Node: p.builder.Header(p.span(start)...), Name: name.Text, Value: val}, nil
}

// parseBareUpdate parses the for-loop update clause: an assignment, an
// increment, or a decrement, none terminated by a semicolon.
func (p *Parser) parseBareUpdate() (ast.Statement, error) {
	start := p.pos
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	switch p.peek().Kind {
	case token.EQ:
		p.advance()
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.VariableAssignment{Node: p.builder.Header(p.span(start)...), Name: name.Text, Value: val}, nil
	case token.INC:
		p.advance()
		return &ast.Increment{Node: p.builder.Header(p.span(start)...), Name: name.Text}, nil
	case token.DEC:
		p.advance()
		return &ast.Decrement{Node: p.builder.Header(p.span(start)...), Name: name.Text}, nil
	default:
		return nil, errors.Errorf("parser: expected '=', '++' or '--' in for-loop update, got %s", p.peek().Kind)
	}
}

func (p *Parser) parseReturn() (*ast.ReturnStatement, error) {
	start := p.pos
	if _, err := p.expect(token.RETURN); err != nil {
		return nil, err
	}
	var expr ast.Expression
	if !p.check(token.SEMI) {
		var err error
		expr, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return &ast.ReturnStatement{Node: p.builder.Header(p.span(start)...), Expr: expr}, nil
}

// ----------------------------------------------------------------------------
// Expressions — precedence climbing per spec.md §6.
//
// Precedence (high to low): unary ++/--/!, * / %, + -, </<=/>/>=, ==/!=, &, |.
// All binary tiers are left-associative; unary and ! are right-associative.
// (Assignment is parsed only at the statement level: the AST has no
// assignment-expression node, so the "=" tier of the external precedence
// table has no expression-level counterpart to produce here.)

var binaryPrecedence = map[token.Kind]int{
	token.STAR: 6, token.SLASH: 6, token.PERCENT: 6,
	token.PLUS: 5, token.MINUS: 5,
	token.LT: 4, token.LT_EQ: 4, token.GT: 4, token.GT_EQ: 4,
	token.EQ_EQ: 3, token.NOT_EQ: 3,
	token.AMP: 2,
	token.PIPE: 1,
}

var binaryOps = map[token.Kind]ast.BinaryOp{
	token.PLUS: ast.ADD, token.MINUS: ast.SUB, token.STAR: ast.MUL,
	token.SLASH: ast.DIV, token.PERCENT: ast.MOD,
	token.AMP: ast.AND, token.PIPE: ast.OR,
	token.EQ_EQ: ast.EQ, token.NOT_EQ: ast.NE,
	token.GT: ast.GT, token.GT_EQ: ast.GE, token.LT: ast.LT, token.LT_EQ: ast.LE,
}

func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) (ast.Expression, error) {
	start := p.pos
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		prec, ok := binaryPrecedence[p.peek().Kind]
		if !ok || prec < minPrec {
			return left, nil
		}
		opTok := p.advance()
		right, err := p.parseBinary(prec + 1) // left-associative: next tier excludes this precedence
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{
			Node:  p.builder.Header(p.span(start)...),
			Op:    binaryOps[opTok.Kind],
			Left:  left,
			Right: right,
		}
	}
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	start := p.pos
	switch p.peek().Kind {
	case token.MINUS:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Negative{Node: p.builder.Header(p.span(start)...), Operand: operand}, nil

	case token.BANG:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Not{Node: p.builder.Header(p.span(start)...), Operand: operand}, nil

	default:
		return p.parsePostfix()
	}
}

// parsePostfix handles the IDENT++ / IDENT-- unary forms when they appear
// inside an expression (as opposed to as a standalone statement).
func (p *Parser) parsePostfix() (ast.Expression, error) {
	start := p.pos
	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if access, ok := primary.(*ast.VariableAccess); ok {
		switch p.peek().Kind {
		case token.INC:
			p.advance()
			return &ast.Increment{Node: p.builder.Header(p.span(start)...), Name: access.Name}, nil
		case token.DEC:
			p.advance()
			return &ast.Decrement{Node: p.builder.Header(p.span(start)...), Name: access.Name}, nil
		}
	}
	return primary, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	start := p.pos
	switch tok := p.peek(); tok.Kind {
	case token.INTEGER:
		p.advance()
		n, err := strconv.Atoi(tok.Text)
		if err != nil {
			return nil, errors.Wrapf(err, "parser: invalid integer literal %q", tok.Text)
		}
		return &ast.Integer{Node: p.builder.Header(p.span(start)...), Value: int32(n)}, nil

	case token.BOOLEAN:
		p.advance()
		return &ast.Boolean{Node: p.builder.Header(p.span(start)...), Value: tok.Text == "true"}, nil

	case token.FLOOR:
		p.advance()
		if _, err := p.expect(token.LBRACKET); err != nil {
			return nil, err
		}
		idx, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
		return &ast.FloorAccess{Node: p.builder.Header(p.span(start)...), Index: idx}, nil

	case token.LPAREN:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil

	case token.IDENTIFIER:
		p.advance()
		if p.check(token.LPAREN) {
			return p.parseInvocationArgs(tok.Text, start)
		}
		return &ast.VariableAccess{Node: p.builder.Header(p.span(start)...), Name: tok.Text}, nil

	default:
		return nil, errors.Errorf("parser: unexpected token %s at %s while parsing an expression", tok.Kind, tok.Pos)
	}
}
