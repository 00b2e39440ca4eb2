package compiler

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for VL syntax
// ---------------------------------------------------------------------------

// Parser parses VL source code into an AST. Parsing stops at the first
// syntax error; there is no multi-error recovery.
type Parser struct {
	lexer      *Lexer
	curToken   Token
	peekToken  Token
	err        *ParseError
	inPipeline bool
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect consumes a token of the expected type or records an error.
func (p *Parser) expect(t TokenType) Token {
	if p.curTokenIs(t) {
		tok := p.curToken
		p.nextToken()
		return tok
	}
	p.failExpect(t.String())
	return p.curToken
}

// expectName consumes an identifier. Keyword and type words are accepted as
// names here since short keywords (i, o, v, map) double as identifiers in
// name position.
func (p *Parser) expectName() Token {
	if p.curTokenIs(TokenIdentifier) || p.curToken.Type.IsKeyword() || p.curToken.Type.IsTypeWord() {
		tok := p.curToken
		p.nextToken()
		return tok
	}
	p.failExpect("identifier")
	return p.curToken
}

// fail records the first parse error. Later productions bail out once err is
// set.
func (p *Parser) fail(kind ParseErrorKind, msg string) {
	if p.err != nil {
		return
	}
	if p.curTokenIs(TokenEOF) {
		kind = ParseUnexpectedEOF
	}
	p.err = &ParseError{Kind: kind, Msg: msg, Pos: p.curToken.Pos}
}

func (p *Parser) failExpect(expected string) {
	if p.err != nil {
		return
	}
	kind := ParseUnexpectedToken
	if p.curTokenIs(TokenEOF) {
		kind = ParseUnexpectedEOF
	}
	p.err = &ParseError{
		Kind:     kind,
		Msg:      "unexpected token",
		Pos:      p.curToken.Pos,
		Expected: expected,
		Got:      p.curToken.Type.String(),
	}
}

func (p *Parser) skipNewlines() {
	for p.curTokenIs(TokenNewline) {
		p.nextToken()
	}
}

// pipeAhead reports whether the current pipe opens a pipeline stage rather
// than separating statements. One token of lookahead decides: a stage keyword
// after the pipe commits to the pipeline reading.
func (p *Parser) pipeAhead() bool {
	return p.curTokenIs(TokenPipe) && p.peekToken.Type.IsStageKeyword()
}

func (p *Parser) span(start Position) Span {
	return Span{Start: start, End: p.curToken.Pos}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// Parse parses an entire VL program.
func (p *Parser) Parse() (*Program, error) {
	start := p.curToken.Pos
	prog := &Program{}

	p.skipNewlines()

	if p.curTokenIs(TokenMeta) {
		prog.Metadata = p.parseMetadata()
		p.skipNewlines()
	}
	if p.curTokenIs(TokenDeps) {
		prog.Deps = p.parseDeps()
		p.skipNewlines()
	}

	for !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenExport) && p.err == nil {
		if p.curTokenIs(TokenNewline) {
			p.skipNewlines()
			continue
		}
		// Pipe as top-level statement separator (v:x=1|v:y=2)
		if p.curTokenIs(TokenPipe) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
	}

	if p.curTokenIs(TokenExport) && p.err == nil {
		prog.Export = p.parseExport()
		p.skipNewlines()
	}

	if p.err != nil {
		return nil, p.err
	}
	prog.SpanVal = p.span(start)
	return prog, nil
}

// parseMetadata parses meta:name,kind,target.
func (p *Parser) parseMetadata() *Metadata {
	tok := p.expect(TokenMeta)
	p.expect(TokenColon)
	name := p.expectName().Literal
	p.expect(TokenComma)
	kind := p.expectName().Literal
	p.expect(TokenComma)
	target := p.expectName().Literal

	return &Metadata{
		SpanVal: p.span(tok.Pos),
		Name:    name,
		Kind:    kind,
		Target:  target,
	}
}

// parseDeps parses deps:name or deps:[name,name].
func (p *Parser) parseDeps() *Deps {
	tok := p.expect(TokenDeps)
	p.expect(TokenColon)

	var names []string
	if p.curTokenIs(TokenLBracket) {
		p.nextToken()
		for !p.curTokenIs(TokenRBracket) && p.err == nil {
			names = append(names, p.expectName().Literal)
			if p.curTokenIs(TokenComma) {
				p.nextToken()
			}
		}
		p.expect(TokenRBracket)
	} else {
		names = append(names, p.expectName().Literal)
	}

	return &Deps{SpanVal: p.span(tok.Pos), Names: names}
}

// parseExport parses export:name.
func (p *Parser) parseExport() *Export {
	tok := p.expect(TokenExport)
	p.expect(TokenColon)
	name := p.expectName().Literal
	return &Export{SpanVal: p.span(tok.Pos), Name: name}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() Stmt {
	if p.err != nil {
		return nil
	}

	switch p.curToken.Type {
	case TokenAt:
		return p.parseDirectCall()
	case TokenFn:
		return p.parseFunctionDef(false)
	case TokenVar:
		return p.parseVariableDef()
	case TokenRet:
		return p.parseReturn()
	case TokenIf:
		return p.parseIfStmt()
	case TokenFor:
		return p.parseForLoop()
	case TokenWhile:
		return p.parseWhileLoop()
	case TokenAsync:
		return p.parseAsyncStatement()
	case TokenAPI:
		return p.parseAPICall(false)
	case TokenUI:
		return p.parseUIComponent()
	case TokenData:
		return p.parseDataPipeline()
	case TokenFile:
		return p.parseFileOp()
	case TokenIdentifier:
		switch p.peekToken.Type {
		case TokenAssign:
			return p.parseImplicitVariable()
		case TokenPlusAssign, TokenMinusAssign, TokenStarAssign, TokenSlashAssign:
			return p.parseCompoundAssign()
		case TokenLParen, TokenDot:
			return p.parseImplicitCall()
		}
	}

	p.fail(ParseUnexpectedToken, "unexpected token "+p.curToken.Type.String())
	return nil
}

// parseAsyncStatement parses async|api:... or async|fn:...
func (p *Parser) parseAsyncStatement() Stmt {
	p.expect(TokenAsync)
	p.expect(TokenPipe)
	switch p.curToken.Type {
	case TokenAPI:
		return p.parseAPICall(true)
	case TokenFn:
		return p.parseFunctionDef(true)
	}
	p.failExpect("api or fn after async")
	return nil
}

// functionBodyStops are the tokens that end a top-level function body.
var functionBodyStops = map[TokenType]bool{
	TokenEOF:    true,
	TokenExport: true,
	TokenFn:     true,
	TokenMeta:   true,
	TokenDeps:   true,
}

// parseFunctionDef parses fn:name|i:types|o:type|body.
func (p *Parser) parseFunctionDef(async bool) Stmt {
	name, inputs, output, body, start := p.parseFunctionCommon(functionBodyStops)
	if p.err != nil {
		return nil
	}
	return &FunctionDef{
		SpanVal:    p.span(start),
		Name:       name,
		InputTypes: inputs,
		OutputType: output,
		Body:       body,
		Async:      async,
	}
}

// parseFunctionExpr parses a function literal inside an object.
func (p *Parser) parseFunctionExpr() Expr {
	stops := map[TokenType]bool{
		TokenEOF:    true,
		TokenRBrace: true,
		TokenComma:  true,
	}
	name, inputs, output, body, start := p.parseFunctionCommon(stops)
	if p.err != nil {
		return nil
	}
	return &FunctionExpr{
		SpanVal:    p.span(start),
		Name:       name,
		InputTypes: inputs,
		OutputType: output,
		Body:       body,
	}
}

func (p *Parser) parseFunctionCommon(stops map[TokenType]bool) (string, []*TypeRef, *TypeRef, []Stmt, Position) {
	tok := p.expect(TokenFn)
	p.expect(TokenColon)
	name := p.expectName().Literal
	p.expect(TokenPipe)

	// Inputs: i:type,type
	p.expect(TokenInput)
	p.expect(TokenColon)
	inputs := p.parseTypeList()
	p.expect(TokenPipe)

	// Output: o:type
	p.expect(TokenOutput)
	p.expect(TokenColon)
	output := p.parseType()
	p.expect(TokenPipe)

	// Body: statements separated by pipes or newlines
	var body []Stmt
	for p.err == nil && !stops[p.curToken.Type] {
		if p.curTokenIs(TokenNewline) {
			p.skipNewlines()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			body = append(body, stmt)
		}
		if p.curTokenIs(TokenPipe) && !p.pipeAhead() {
			p.nextToken()
		}
	}

	return name, inputs, output, body, tok.Pos
}

// parseTypeList parses comma-separated type annotations.
func (p *Parser) parseTypeList() []*TypeRef {
	var types []*TypeRef
	types = append(types, p.parseType())
	for p.curTokenIs(TokenComma) && p.err == nil {
		p.nextToken()
		types = append(types, p.parseType())
	}
	return types
}

// parseType parses a single type annotation.
func (p *Parser) parseType() *TypeRef {
	if !p.curToken.Type.IsTypeWord() {
		p.failExpect("type")
		return nil
	}
	tok := p.curToken
	p.nextToken()
	return &TypeRef{
		SpanVal: Span{Start: tok.Pos, End: tok.Pos},
		Name:    tok.Literal,
	}
}

// parseVariableDef parses v:name=value or v:name:type=value.
func (p *Parser) parseVariableDef() Stmt {
	tok := p.expect(TokenVar)
	p.expect(TokenColon)
	name := p.expectName().Literal

	var typeAnn *TypeRef
	if p.curTokenIs(TokenColon) {
		p.nextToken()
		typeAnn = p.parseType()
	}

	p.expect(TokenAssign)
	value := p.parseExpression()

	return &VariableDef{
		SpanVal: p.span(tok.Pos),
		Name:    name,
		TypeAnn: typeAnn,
		Value:   value,
	}
}

// parseImplicitVariable parses name=value without the v: prefix.
func (p *Parser) parseImplicitVariable() Stmt {
	tok := p.expect(TokenIdentifier)
	p.expect(TokenAssign)
	value := p.parseExpression()

	return &VariableDef{
		SpanVal: p.span(tok.Pos),
		Name:    tok.Literal,
		Value:   value,
	}
}

// parseCompoundAssign parses name+=value and the -, *, / variants.
func (p *Parser) parseCompoundAssign() Stmt {
	tok := p.expect(TokenIdentifier)

	var op string
	switch p.curToken.Type {
	case TokenPlusAssign:
		op = "+"
	case TokenMinusAssign:
		op = "-"
	case TokenStarAssign:
		op = "*"
	case TokenSlashAssign:
		op = "/"
	default:
		p.failExpect("compound assignment operator")
		return nil
	}
	p.nextToken()
	value := p.parseExpression()

	return &CompoundAssign{
		SpanVal:  p.span(tok.Pos),
		Name:     tok.Literal,
		Operator: op,
		Value:    value,
	}
}

// parseReturn parses ret:value.
func (p *Parser) parseReturn() Stmt {
	tok := p.expect(TokenRet)
	p.expect(TokenColon)
	value := p.parseExpression()
	return &ReturnStmt{SpanVal: p.span(tok.Pos), Value: value}
}

// parseDirectCall parses @func(args).
func (p *Parser) parseDirectCall() Stmt {
	tok := p.expect(TokenAt)
	call := p.parseExpression()
	return &DirectCall{SpanVal: p.span(tok.Pos), Call: call}
}

// parseImplicitCall parses func(args) or obj.method(args) in statement
// position.
func (p *Parser) parseImplicitCall() Stmt {
	start := p.curToken.Pos
	call := p.parseExpression()
	return &DirectCall{SpanVal: p.span(start), Call: call}
}

// parseIfStmt parses if:cond?then:else. Either branch may be an early
// return: if:cond?ret:A:ret:B.
func (p *Parser) parseIfStmt() Stmt {
	tok := p.expect(TokenIf)
	p.expect(TokenColon)

	cond := p.parseExpression()
	p.expect(TokenQuestion)

	thenExpr, thenRet := p.parseIfBranch()
	p.expect(TokenColon)
	elseExpr, elseRet := p.parseIfBranch()

	return &IfStmt{
		SpanVal:     p.span(tok.Pos),
		Cond:        cond,
		Then:        thenExpr,
		Else:        elseExpr,
		ThenReturns: thenRet,
		ElseReturns: elseRet,
	}
}

// parseIfBranch parses one branch of a conditional, which is either ret:expr
// or a plain expression.
func (p *Parser) parseIfBranch() (Expr, bool) {
	if p.curTokenIs(TokenRet) {
		p.nextToken()
		p.expect(TokenColon)
		return p.parseExpression(), true
	}
	return p.parseExpression(), false
}

// parseForLoop parses for:var,iterable|body.
func (p *Parser) parseForLoop() Stmt {
	tok := p.expect(TokenFor)
	p.expect(TokenColon)
	variable := p.expectName().Literal
	p.expect(TokenComma)
	iterable := p.parseExpression()
	p.expect(TokenPipe)
	body := p.parseInlineBody()

	return &ForLoop{
		SpanVal:  p.span(tok.Pos),
		Variable: variable,
		Iterable: iterable,
		Body:     body,
	}
}

// parseWhileLoop parses while:cond|body.
func (p *Parser) parseWhileLoop() Stmt {
	tok := p.expect(TokenWhile)
	p.expect(TokenColon)
	cond := p.parseExpression()
	p.expect(TokenPipe)
	body := p.parseInlineBody()

	return &WhileLoop{
		SpanVal: p.span(tok.Pos),
		Cond:    cond,
		Body:    body,
	}
}

// parseInlineBody parses pipe-separated statements up to the end of the
// line. Loop bodies are single-line in VL.
func (p *Parser) parseInlineBody() []Stmt {
	var body []Stmt
	for p.err == nil && !p.curTokenIs(TokenNewline) && !p.curTokenIs(TokenEOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			body = append(body, stmt)
		}
		if p.curTokenIs(TokenPipe) && !p.pipeAhead() {
			p.nextToken()
			continue
		}
		break
	}
	return body
}

// parseAPICall parses api:METHOD,endpoint[,options] with optional chained
// response stages.
func (p *Parser) parseAPICall(async bool) Stmt {
	tok := p.expect(TokenAPI)
	p.expect(TokenColon)
	method := p.expectName().Literal
	p.expect(TokenComma)

	// The response chain belongs to the api call, not to the endpoint or
	// options expressions.
	wasInPipeline := p.inPipeline
	p.inPipeline = true
	endpoint := p.parseExpression()

	var options *ObjectLiteral
	if p.curTokenIs(TokenComma) {
		p.nextToken()
		expr := p.parseExpression()
		obj, ok := expr.(*ObjectLiteral)
		if !ok {
			p.inPipeline = wasInPipeline
			p.fail(ParseBadStructure, "api options must be an object literal")
			return nil
		}
		options = obj
	}
	p.inPipeline = wasInPipeline

	stages := p.parseStages()

	return &APICall{
		SpanVal:  p.span(tok.Pos),
		Method:   method,
		Endpoint: endpoint,
		Options:  options,
		Async:    async,
		Stages:   stages,
	}
}

// parseStages parses a chain of |stage:... operations.
func (p *Parser) parseStages() []Stage {
	var stages []Stage
	for p.pipeAhead() && p.err == nil {
		p.nextToken() // consume pipe

		switch p.curToken.Type {
		case TokenFilter:
			stages = append(stages, p.parseFilterStage())
		case TokenMap:
			stages = append(stages, p.parseMapStage())
		case TokenParse:
			stages = append(stages, p.parseParseStage())
		case TokenSort:
			stages = append(stages, p.parseSortStage())
		case TokenGroupBy:
			stages = append(stages, p.parseGroupByStage())
		case TokenAgg:
			stages = append(stages, p.parseAggStage())
		}
	}
	return stages
}

func (p *Parser) parseFilterStage() Stage {
	tok := p.expect(TokenFilter)
	p.expect(TokenColon)
	cond := p.parseStageExpression()
	return &FilterStage{SpanVal: p.span(tok.Pos), Cond: cond}
}

// parseStageExpression parses a stage's expression with pipeline mode on,
// so a following |stage stays part of the enclosing chain.
func (p *Parser) parseStageExpression() Expr {
	wasInPipeline := p.inPipeline
	p.inPipeline = true
	expr := p.parseExpression()
	p.inPipeline = wasInPipeline
	return expr
}

// parseMapStage parses map:expr or the field projection form
// map:field1,field2.
func (p *Parser) parseMapStage() Stage {
	tok := p.expect(TokenMap)
	p.expect(TokenColon)

	// Two or more comma-separated identifiers are a projection; a single
	// identifier or anything else is a transform expression.
	if p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenComma) {
		var fields []string
		fields = append(fields, p.expect(TokenIdentifier).Literal)
		for p.curTokenIs(TokenComma) && p.err == nil {
			p.nextToken()
			fields = append(fields, p.expectName().Literal)
		}
		return &MapStage{SpanVal: p.span(tok.Pos), Fields: fields}
	}

	expr := p.parseStageExpression()
	return &MapStage{SpanVal: p.span(tok.Pos), Transform: expr}
}

func (p *Parser) parseParseStage() Stage {
	tok := p.expect(TokenParse)
	p.expect(TokenColon)
	format := p.expectName().Literal
	return &ParseStage{SpanVal: p.span(tok.Pos), Format: format}
}

// parseSortStage parses sort:field[,order].
func (p *Parser) parseSortStage() Stage {
	tok := p.expect(TokenSort)
	p.expect(TokenColon)
	field := p.expectName().Literal
	order := "asc"
	if p.curTokenIs(TokenComma) {
		p.nextToken()
		order = p.expectName().Literal
		if order != "asc" && order != "desc" {
			p.fail(ParseBadStructure, "sort order must be asc or desc")
			return nil
		}
	}
	return &SortStage{SpanVal: p.span(tok.Pos), Field: field, Order: order}
}

func (p *Parser) parseGroupByStage() Stage {
	tok := p.expect(TokenGroupBy)
	p.expect(TokenColon)
	field := p.expectName().Literal
	return &GroupByStage{SpanVal: p.span(tok.Pos), Field: field}
}

// parseAggStage parses agg:function[,field].
func (p *Parser) parseAggStage() Stage {
	tok := p.expect(TokenAgg)
	p.expect(TokenColon)
	fn := p.expectName().Literal
	switch fn {
	case "sum", "avg", "count", "min", "max":
	default:
		p.fail(ParseBadStructure, "unknown aggregate function "+fn)
		return nil
	}
	field := ""
	if p.curTokenIs(TokenComma) {
		p.nextToken()
		field = p.expectName().Literal
	}
	return &AggStage{SpanVal: p.span(tok.Pos), Function: fn, Field: field}
}

// parseDataPipeline parses data:source|stage|stage|...
func (p *Parser) parseDataPipeline() Stmt {
	tok := p.expect(TokenData)
	p.expect(TokenColon)

	wasInPipeline := p.inPipeline
	p.inPipeline = true
	source := p.parseExpression()
	p.inPipeline = wasInPipeline

	stages := p.parseStages()

	return &DataPipeline{
		SpanVal: p.span(tok.Pos),
		Source:  source,
		Stages:  stages,
	}
}

// parseFileOp parses file:verb,path[,args].
func (p *Parser) parseFileOp() Stmt {
	tok := p.expect(TokenFile)
	p.expect(TokenColon)
	verb := p.expectName().Literal
	p.expect(TokenComma)
	path := p.parseExpression()

	var args []Expr
	for p.curTokenIs(TokenComma) && p.err == nil {
		p.nextToken()
		args = append(args, p.parseExpression())
	}

	return &FileOp{
		SpanVal: p.span(tok.Pos),
		Verb:    verb,
		Path:    path,
		Args:    args,
	}
}

// parseUIComponent parses ui:name|props:...|state:...|on:...|render:...
func (p *Parser) parseUIComponent() Stmt {
	tok := p.expect(TokenUI)
	p.expect(TokenColon)
	name := p.expectName().Literal

	comp := &UIComponent{Name: name}

	for p.curTokenIs(TokenPipe) && p.err == nil {
		switch p.peekToken.Type {
		case TokenProps:
			p.nextToken()
			p.parsePropsSection(comp)
		case TokenState:
			p.nextToken()
			p.parseStateSection(comp)
		case TokenOn:
			p.nextToken()
			comp.Body = append(comp.Body, p.parseEventHandler())
		case TokenRender:
			p.nextToken()
			comp.Body = append(comp.Body, p.parseRenderStmt())
		default:
			comp.SpanVal = p.span(tok.Pos)
			return comp
		}
	}

	comp.SpanVal = p.span(tok.Pos)
	return comp
}

// parsePropsSection parses props:name:type[,name:type].
func (p *Parser) parsePropsSection(comp *UIComponent) {
	p.expect(TokenProps)
	p.expect(TokenColon)
	for p.err == nil {
		nameTok := p.expectName()
		p.expect(TokenColon)
		typ := p.parseType()
		comp.Props = append(comp.Props, &PropDef{
			SpanVal: Span{Start: nameTok.Pos, End: p.curToken.Pos},
			Name:    nameTok.Literal,
			Type:    typ,
		})
		if !p.curTokenIs(TokenComma) {
			return
		}
		p.nextToken()
	}
}

// parseStateSection parses state:name[:type]=value[,name[:type]=value].
func (p *Parser) parseStateSection(comp *UIComponent) {
	p.expect(TokenState)
	p.expect(TokenColon)
	for p.err == nil {
		nameTok := p.expectName()
		var typ *TypeRef
		if p.curTokenIs(TokenColon) {
			p.nextToken()
			typ = p.parseType()
		}
		p.expect(TokenAssign)
		initial := p.parseExpression()
		comp.State = append(comp.State, &StateDef{
			SpanVal: Span{Start: nameTok.Pos, End: p.curToken.Pos},
			Name:    nameTok.Literal,
			Type:    typ,
			Initial: initial,
		})
		if !p.curTokenIs(TokenComma) {
			return
		}
		p.nextToken()
	}
}

// parseEventHandler parses on:event[|body] where the body runs to the next
// ui section or end of line.
func (p *Parser) parseEventHandler() Stmt {
	tok := p.expect(TokenOn)
	p.expect(TokenColon)
	event := p.expectName().Literal

	var body []Stmt
	for p.curTokenIs(TokenPipe) && p.err == nil {
		switch p.peekToken.Type {
		case TokenProps, TokenState, TokenOn, TokenRender:
			return &EventHandler{SpanVal: p.span(tok.Pos), Event: event, Body: body}
		case TokenNewline, TokenEOF:
			return &EventHandler{SpanVal: p.span(tok.Pos), Event: event, Body: body}
		}
		if p.pipeAhead() {
			break
		}
		p.nextToken()
		stmt := p.parseStatement()
		if stmt != nil {
			body = append(body, stmt)
		}
	}

	return &EventHandler{SpanVal: p.span(tok.Pos), Event: event, Body: body}
}

// parseRenderStmt parses render:element[,{attrs}].
func (p *Parser) parseRenderStmt() Stmt {
	tok := p.expect(TokenRender)
	p.expect(TokenColon)
	element := p.expectName().Literal

	var attrs *ObjectLiteral
	if p.curTokenIs(TokenComma) {
		p.nextToken()
		expr := p.parseExpression()
		obj, ok := expr.(*ObjectLiteral)
		if !ok {
			p.fail(ParseBadStructure, "render attributes must be an object literal")
			return nil
		}
		attrs = obj
	}

	return &RenderStmt{SpanVal: p.span(tok.Pos), Element: element, Attrs: attrs}
}

// ---------------------------------------------------------------------------
// Expressions (precedence climbing)
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() Expr {
	return p.parseLogicalOr()
}

func (p *Parser) parseLogicalOr() Expr {
	left := p.parseLogicalAnd()
	for p.curTokenIs(TokenOr) && p.err == nil {
		tok := p.curToken
		p.nextToken()
		right := p.parseLogicalAnd()
		left = p.binary(tok, left, right)
	}
	return left
}

func (p *Parser) parseLogicalAnd() Expr {
	left := p.parseEquality()
	for p.curTokenIs(TokenAnd) && p.err == nil {
		tok := p.curToken
		p.nextToken()
		right := p.parseEquality()
		left = p.binary(tok, left, right)
	}
	return left
}

func (p *Parser) parseEquality() Expr {
	left := p.parseRelational()
	for (p.curTokenIs(TokenEq) || p.curTokenIs(TokenNotEq)) && p.err == nil {
		tok := p.curToken
		p.nextToken()
		right := p.parseRelational()
		left = p.binary(tok, left, right)
	}
	return left
}

func (p *Parser) parseRelational() Expr {
	left := p.parseAdditive()
	for p.err == nil {
		switch p.curToken.Type {
		case TokenLess, TokenGreater, TokenLessEq, TokenGreaterEq:
			tok := p.curToken
			p.nextToken()
			right := p.parseAdditive()
			left = p.binary(tok, left, right)
		default:
			return left
		}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for (p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus)) && p.err == nil {
		tok := p.curToken
		p.nextToken()
		right := p.parseMultiplicative()
		left = p.binary(tok, left, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parsePower()
	for p.err == nil {
		switch p.curToken.Type {
		case TokenStar, TokenSlash, TokenPercent:
			tok := p.curToken
			p.nextToken()
			right := p.parsePower()
			left = p.binary(tok, left, right)
		default:
			return left
		}
	}
	return left
}

// parsePower parses **, right-associative.
func (p *Parser) parsePower() Expr {
	left := p.parseUnary()
	if p.curTokenIs(TokenPower) && p.err == nil {
		tok := p.curToken
		p.nextToken()
		right := p.parsePower()
		left = p.binary(tok, left, right)
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	if p.curTokenIs(TokenMinus) || p.curTokenIs(TokenBang) {
		tok := p.curToken
		p.nextToken()
		operand := p.parseUnary()
		return &Operation{
			SpanVal:  Span{Start: tok.Pos, End: p.curToken.Pos},
			Operator: tok.Literal,
			Operands: []Expr{operand},
		}
	}
	return p.parsePostfix()
}

func (p *Parser) binary(op Token, left, right Expr) Expr {
	return &Operation{
		SpanVal:  Span{Start: op.Pos, End: p.curToken.Pos},
		Operator: op.Literal,
		Operands: []Expr{left, right},
	}
}

// parsePostfix parses member access, indexing, calls, ranges, and pipeline
// chains hanging off a primary expression.
func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}

	// Range: start..end
	if p.curTokenIs(TokenDotDot) {
		p.nextToken()
		end := p.parseUnary()
		return &RangeExpr{
			SpanVal: Span{Start: expr.Span().Start, End: p.curToken.Pos},
			Start:   expr,
			End:     end,
		}
	}

	for p.err == nil {
		switch {
		case p.curTokenIs(TokenDot):
			p.nextToken()
			prop := p.expectName()
			expr = &MemberAccess{
				SpanVal:  Span{Start: expr.Span().Start, End: p.curToken.Pos},
				Object:   expr,
				Property: prop.Literal,
			}

		case p.curTokenIs(TokenLParen):
			expr = p.parseCallArgs(expr)

		case p.curTokenIs(TokenLBracket):
			p.nextToken()
			index := p.parseExpression()
			p.expect(TokenRBracket)
			expr = &IndexAccess{
				SpanVal: Span{Start: expr.Span().Start, End: p.curToken.Pos},
				Object:  expr,
				Index:   index,
			}

		case p.pipeAhead() && !p.inPipeline:
			stages := p.parseStages()
			return &PipelineExpr{
				SpanVal: Span{Start: expr.Span().Start, End: p.curToken.Pos},
				Source:  expr,
				Stages:  stages,
			}

		default:
			return expr
		}
	}
	return expr
}

// parseCallArgs parses (arg1,arg2,...) after a callee.
func (p *Parser) parseCallArgs(callee Expr) Expr {
	p.expect(TokenLParen)
	var args []Expr
	for !p.curTokenIs(TokenRParen) && p.err == nil {
		args = append(args, p.parseExpression())
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		}
	}
	p.expect(TokenRParen)
	return &FunctionCall{
		SpanVal: Span{Start: callee.Span().Start, End: p.curToken.Pos},
		Callee:  callee,
		Args:    args,
	}
}

func (p *Parser) parsePrimary() Expr {
	if p.err != nil {
		return nil
	}
	tok := p.curToken

	switch tok.Type {
	case TokenNumber:
		p.nextToken()
		lit, err := parseNumberToken(tok)
		if err != nil {
			p.fail(ParseBadStructure, "malformed number "+tok.Literal)
			return nil
		}
		return lit

	case TokenString:
		p.nextToken()
		return p.parseStringToken(tok)

	case TokenDollar:
		p.nextToken()
		name := p.expectName()
		return &VarRef{
			SpanVal: Span{Start: tok.Pos, End: p.curToken.Pos},
			Name:    name.Literal,
		}

	case TokenAt:
		p.nextToken()
		name := p.expectName()
		callee := &Identifier{
			SpanVal: Span{Start: tok.Pos, End: p.curToken.Pos},
			Name:    name.Literal,
		}
		if !p.curTokenIs(TokenLParen) {
			p.failExpect("(")
			return nil
		}
		return p.parseCallArgs(callee)

	case TokenOp:
		return p.parseOperationExpr()

	case TokenIf:
		return p.parseTernary()

	case TokenData:
		stmt := p.parseDataPipeline()
		if stmt == nil {
			return nil
		}
		dp := stmt.(*DataPipeline)
		return &PipelineExpr{SpanVal: dp.SpanVal, Source: dp.Source, Stages: dp.Stages}

	case TokenAPI, TokenAsync:
		return p.parseAPIExpr()

	case TokenFn:
		return p.parseFunctionExpr()

	case TokenIdentifier:
		p.nextToken()
		switch tok.Literal {
		case "true", "false":
			return &BoolLiteral{
				SpanVal: Span{Start: tok.Pos, End: tok.Pos},
				Value:   tok.Literal == "true",
			}
		}
		return &Identifier{
			SpanVal: Span{Start: tok.Pos, End: tok.Pos},
			Name:    tok.Literal,
		}

	case TokenInput, TokenOutput, TokenVar:
		// Short keywords double as identifiers in expression position (loop
		// variables named i, o, v).
		p.nextToken()
		return &Identifier{
			SpanVal: Span{Start: tok.Pos, End: tok.Pos},
			Name:    tok.Literal,
		}

	case TokenLParen:
		p.nextToken()
		expr := p.parseExpression()
		p.expect(TokenRParen)
		return expr

	case TokenLBracket:
		return p.parseArrayLiteral()

	case TokenLBrace:
		return p.parseObjectLiteral()
	}

	p.fail(ParseUnexpectedToken, "unexpected token in expression: "+tok.Type.String())
	return nil
}

// parseTernary parses if:cond?then:else in expression position.
func (p *Parser) parseTernary() Expr {
	tok := p.expect(TokenIf)
	p.expect(TokenColon)
	cond := p.parseExpression()
	p.expect(TokenQuestion)
	thenExpr := p.parseExpression()
	p.expect(TokenColon)
	elseExpr := p.parseExpression()

	return &TernaryExpr{
		SpanVal: p.span(tok.Pos),
		Cond:    cond,
		Then:    thenExpr,
		Else:    elseExpr,
	}
}

// parseAPIExpr parses an api call in expression position.
func (p *Parser) parseAPIExpr() Expr {
	async := false
	if p.curTokenIs(TokenAsync) {
		async = true
		p.nextToken()
		p.expect(TokenPipe)
	}
	stmt := p.parseAPICall(async)
	if stmt == nil {
		return nil
	}
	call := stmt.(*APICall)
	return &APIExpr{
		SpanVal:  call.SpanVal,
		Method:   call.Method,
		Endpoint: call.Endpoint,
		Options:  call.Options,
		Async:    call.Async,
		Stages:   call.Stages,
	}
}

// parseOperationExpr parses op:operator(arg1,arg2,...).
func (p *Parser) parseOperationExpr() Expr {
	tok := p.expect(TokenOp)
	p.expect(TokenColon)

	op := p.curToken
	switch op.Type {
	case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent, TokenPower,
		TokenEq, TokenNotEq, TokenLess, TokenGreater, TokenLessEq, TokenGreaterEq,
		TokenAnd, TokenOr, TokenBang:
		p.nextToken()
	default:
		p.failExpect("operator")
		return nil
	}

	p.expect(TokenLParen)
	var operands []Expr
	for !p.curTokenIs(TokenRParen) && p.err == nil {
		operands = append(operands, p.parseExpression())
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		}
	}
	p.expect(TokenRParen)

	return &Operation{
		SpanVal:  p.span(tok.Pos),
		Operator: op.Literal,
		Operands: operands,
	}
}

// parseArrayLiteral parses [e1,e2,...].
func (p *Parser) parseArrayLiteral() Expr {
	tok := p.expect(TokenLBracket)
	var elements []Expr
	for !p.curTokenIs(TokenRBracket) && p.err == nil {
		elements = append(elements, p.parseExpression())
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		}
	}
	p.expect(TokenRBracket)
	return &ArrayLiteral{SpanVal: p.span(tok.Pos), Elements: elements}
}

// parseObjectLiteral parses {key:value,...}. Values may be function literals
// for method-style properties.
func (p *Parser) parseObjectLiteral() Expr {
	tok := p.expect(TokenLBrace)
	var pairs []ObjectPair
	for !p.curTokenIs(TokenRBrace) && p.err == nil {
		key := p.expectName().Literal
		p.expect(TokenColon)
		var value Expr
		if p.curTokenIs(TokenFn) {
			value = p.parseFunctionExpr()
		} else {
			value = p.parseExpression()
		}
		pairs = append(pairs, ObjectPair{Key: key, Value: value})
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		}
	}
	p.expect(TokenRBrace)
	return &ObjectLiteral{SpanVal: p.span(tok.Pos), Pairs: pairs}
}

// ---------------------------------------------------------------------------
// String interpolation
// ---------------------------------------------------------------------------

// parseStringToken splits a string literal into (text, expression) segments.
// Each ${...} span is parsed as a full expression here; generators reassemble
// the segments without re-scanning the text.
func (p *Parser) parseStringToken(tok Token) Expr {
	lit := &StringLiteral{
		SpanVal: Span{Start: tok.Pos, End: tok.Pos},
	}

	s := tok.Literal
	text := ""
	for i := 0; i < len(s); {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '{' {
			span, end, ok := interpolationSpan(s, i+2)
			if !ok {
				p.err = &ParseError{
					Kind: ParseBadStructure,
					Msg:  "unterminated interpolation span",
					Pos:  tok.Pos,
				}
				return nil
			}
			expr := p.parseInterpolated(span, tok.Pos)
			if expr == nil {
				return nil
			}
			lit.Segments = append(lit.Segments, StringSegment{Text: text, Expr: expr})
			text = ""
			i = end
			continue
		}
		text += string(s[i])
		i++
	}
	lit.Segments = append(lit.Segments, StringSegment{Text: text})

	return lit
}

// interpolationSpan returns the body of a ${...} span starting after the
// opening brace, tracking nested braces.
func interpolationSpan(s string, start int) (string, int, bool) {
	depth := 1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start:i], i + 1, true
			}
		}
	}
	return "", 0, false
}

// parseInterpolated parses one interpolation span as an expression. Nested
// ternaries and calls are allowed; the span must be a single complete
// expression.
func (p *Parser) parseInterpolated(span string, at Position) Expr {
	sub := NewParser(span)
	expr := sub.parseExpression()
	if sub.err != nil {
		p.err = &ParseError{
			Kind: ParseBadStructure,
			Msg:  "invalid interpolation expression: " + sub.err.Msg,
			Pos:  at,
		}
		return nil
	}
	if !sub.curTokenIs(TokenEOF) {
		p.err = &ParseError{
			Kind: ParseBadStructure,
			Msg:  "interpolation span must be a single expression",
			Pos:  at,
		}
		return nil
	}
	return expr
}

// Parse parses VL source text into a Program.
func Parse(source string) (*Program, error) {
	// Surface lex errors before grammar errors
	if _, err := Tokenize(source); err != nil {
		return nil, err
	}
	return NewParser(source).Parse()
}
