package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// buildScopes walks the syntax tree once and constructs the scope tree:
// every module/function/class body becomes a Scope node, parameters and
// import targets become bindings in the scope where they appear, and
// TYPE_CHECKING-guarded blocks are recorded so later stages can exclude
// them from runtime-cost counting.
func buildScopes(mod *Module, root *sitter.Node) *Scope {
	b := &scopeBuilder{mod: mod}
	module := newScope(ScopeModule, "", nil, root)
	mod.scopes[root.StartByte()] = module
	module.BodyStart, module.BodyIndent = bodyInsertionPoint(mod, root)
	b.walkChildren(root, module)
	return module
}

type scopeBuilder struct {
	mod *Module
}

func (b *scopeBuilder) walkChildren(node *sitter.Node, scope *Scope) {
	for i := uint(0); i < node.ChildCount(); i++ {
		b.walk(node.Child(i), scope)
	}
}

func (b *scopeBuilder) walk(node *sitter.Node, scope *Scope) {
	switch node.Kind() {
	case "function_definition":
		b.enterFunction(node, scope)
	case "class_definition":
		b.enterClass(node, scope)
	case "import_statement":
		b.bindImport(node, scope)
	case "import_from_statement":
		b.bindFromImport(node, scope)
	case "assignment":
		b.bindAssignment(node, scope)
	case "augmented_assignment":
		if left := node.ChildByFieldName("left"); left != nil {
			b.bindTargets(left, scope, BindLocal)
		}
		if right := node.ChildByFieldName("right"); right != nil {
			b.walk(right, scope)
		}
	case "named_expression":
		if name := node.ChildByFieldName("name"); name != nil {
			b.bindTargets(name, scope, BindLocal)
		}
		if value := node.ChildByFieldName("value"); value != nil {
			b.walk(value, scope)
		}
	case "for_statement", "for_in_clause":
		if left := node.ChildByFieldName("left"); left != nil {
			b.bindTargets(left, scope, BindLocal)
		}
		b.walkNonField(node, scope, "left")
	case "as_pattern":
		if alias := node.ChildByFieldName("alias"); alias != nil {
			b.bindTargets(alias, scope, BindLocal)
		}
		b.walkNonField(node, scope, "alias")
	case "except_clause":
		b.bindExceptTarget(node, scope)
		b.walkChildren(node, scope)
	case "global_statement", "nonlocal_statement":
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "identifier" {
				scope.Globals[b.mod.Text(child)] = true
			}
		}
	case "if_statement":
		if b.enterTypeCheckingGuard(node, scope) {
			return
		}
		b.walkChildren(node, scope)
	case "lambda":
		// Lambdas are not modeled as scopes; their bodies are walked in
		// the enclosing scope and their parameters stay unbound.
		if body := node.ChildByFieldName("body"); body != nil {
			b.walk(body, scope)
		}
	default:
		b.walkChildren(node, scope)
	}
}

// walkNonField recurses into every child except the one bound to the given
// field name, which has already been handled.
func (b *scopeBuilder) walkNonField(node *sitter.Node, scope *Scope, field string) {
	skip := node.ChildByFieldName(field)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if skip != nil && child.StartByte() == skip.StartByte() && child.EndByte() == skip.EndByte() {
			continue
		}
		b.walk(child, scope)
	}
}

func (b *scopeBuilder) enterFunction(node *sitter.Node, scope *Scope) {
	name := b.mod.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}

	scope.Bind(&Binding{
		Name:     name,
		Kind:     BindFunction,
		Line:     line(node),
		TypeOnly: scope.TypeOnly,
	})
	if scope.Kind == ScopeClass {
		scope.Methods = append(scope.Methods, name)
	}

	fn := newScope(ScopeFunction, name, scope, node)
	b.mod.scopes[node.StartByte()] = fn
	fn.BodyStart, fn.BodyIndent = bodyInsertionPoint(b.mod, node.ChildByFieldName("body"))

	if params := node.ChildByFieldName("parameters"); params != nil {
		b.bindParameters(params, fn)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		b.walkChildren(body, fn)
	}
}

func (b *scopeBuilder) enterClass(node *sitter.Node, scope *Scope) {
	name := b.mod.Text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}

	scope.Bind(&Binding{
		Name:     name,
		Kind:     BindClass,
		Line:     line(node),
		TypeOnly: scope.TypeOnly,
	})

	cls := newScope(ScopeClass, name, scope, node)
	b.mod.scopes[node.StartByte()] = cls
	cls.BodyStart, cls.BodyIndent = bodyInsertionPoint(b.mod, node.ChildByFieldName("body"))

	if body := node.ChildByFieldName("body"); body != nil {
		b.walkChildren(body, cls)
	}
}

func (b *scopeBuilder) bindParameters(params *sitter.Node, fn *Scope) {
	for i := uint(0); i < params.ChildCount(); i++ {
		child := params.Child(i)
		switch child.Kind() {
		case "identifier":
			fn.Bind(&Binding{Name: b.mod.Text(child), Kind: BindParam, Line: line(child)})
		case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				if sub.Kind() == "identifier" {
					fn.Bind(&Binding{Name: b.mod.Text(sub), Kind: BindParam, Line: line(sub)})
					break
				}
			}
		case "default_parameter", "typed_default_parameter":
			if name := child.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
				fn.Bind(&Binding{Name: b.mod.Text(name), Kind: BindParam, Line: line(name)})
			}
		case "tuple_pattern":
			b.bindTargets(child, fn, BindParam)
		}
	}
}

// bindImport handles `import a.b` and `import a.b as c`. Plain dotted
// imports bind the first segment; aliased imports bind the alias.
func (b *scopeBuilder) bindImport(node *sitter.Node, scope *Scope) {
	stmt := statementSpan(b.mod, node)
	targets := 0
	for i := uint(0); i < node.ChildCount(); i++ {
		if k := node.Child(i).Kind(); k == "dotted_name" || k == "aliased_import" {
			targets++
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name":
			module := b.mod.Text(child)
			bound := module
			if idx := strings.IndexByte(module, '.'); idx >= 0 {
				bound = module[:idx]
			}
			scope.Bind(&Binding{
				Name:       bound,
				Kind:       BindImportModule,
				Line:       line(child),
				TypeOnly:   scope.TypeOnly || b.mod.IsTypeOnly(node.StartByte()),
				Module:     module,
				OrigName:   bound,
				Stmt:       stmt,
				SoleTarget: targets == 1,
			})
		case "aliased_import":
			module := b.mod.Text(child.ChildByFieldName("name"))
			alias := b.mod.Text(child.ChildByFieldName("alias"))
			if alias == "" {
				continue
			}
			scope.Bind(&Binding{
				Name:       alias,
				Kind:       BindImportModule,
				Line:       line(child),
				TypeOnly:   scope.TypeOnly || b.mod.IsTypeOnly(node.StartByte()),
				Module:     module,
				OrigName:   module,
				Stmt:       stmt,
				SoleTarget: targets == 1,
			})
		}
	}
}

// bindFromImport handles `from a.b import x, y as z` and relative forms.
func (b *scopeBuilder) bindFromImport(node *sitter.Node, scope *Scope) {
	stmt := statementSpan(b.mod, node)
	module := b.mod.Text(node.ChildByFieldName("module_name"))

	type target struct {
		name, orig string
		ln         int
	}
	var targets []target

	seenImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "import":
			seenImport = true
		case "dotted_name", "identifier":
			if !seenImport {
				continue // module part
			}
			name := b.mod.Text(child)
			targets = append(targets, target{name: name, orig: name, ln: line(child)})
		case "aliased_import":
			orig := b.mod.Text(child.ChildByFieldName("name"))
			alias := b.mod.Text(child.ChildByFieldName("alias"))
			if alias != "" {
				targets = append(targets, target{name: alias, orig: orig, ln: line(child)})
			}
		}
	}

	for _, t := range targets {
		scope.Bind(&Binding{
			Name:       t.name,
			Kind:       BindImportSymbol,
			Line:       t.ln,
			TypeOnly:   scope.TypeOnly || b.mod.IsTypeOnly(node.StartByte()),
			Module:     module,
			OrigName:   t.orig,
			Stmt:       stmt,
			SoleTarget: len(targets) == 1,
		})
	}
}

func (b *scopeBuilder) bindAssignment(node *sitter.Node, scope *Scope) {
	right := node.ChildByFieldName("right")
	if right == nil {
		return // annotation-only declaration, no runtime binding
	}

	left := node.ChildByFieldName("left")
	if left != nil && left.Kind() == "identifier" {
		bind := &Binding{
			Name:        b.mod.Text(left),
			Kind:        BindLocal,
			Line:        line(left),
			TypeOnly:    scope.TypeOnly,
			AssignCount: 1,
		}
		if scope.Kind == ScopeModule {
			bind.ConstCall = isConstCall(b.mod, right)
			bind.IntLiteral = right.Kind() == "integer"
			if bind.ConstCall {
				bind.Kind = BindConst
			}
		}
		scope.Bind(bind)
	} else if left != nil {
		b.bindTargets(left, scope, BindLocal)
	}

	b.walk(right, scope)
}

// bindTargets recursively binds plain-name assignment targets; attribute
// and subscript targets are not bindings.
func (b *scopeBuilder) bindTargets(node *sitter.Node, scope *Scope, kind BindKind) {
	switch node.Kind() {
	case "identifier", "as_pattern_target":
		name := b.mod.Text(node)
		if node.Kind() == "as_pattern_target" {
			// as_pattern_target wraps the identifier
			if node.ChildCount() > 0 {
				name = b.mod.Text(node.Child(0))
			}
		}
		scope.Bind(&Binding{
			Name:        name,
			Kind:        kind,
			Line:        line(node),
			TypeOnly:    scope.TypeOnly,
			AssignCount: 1,
		})
	case "attribute", "subscript":
		return
	default:
		for i := uint(0); i < node.ChildCount(); i++ {
			b.bindTargets(node.Child(i), scope, kind)
		}
	}
}

func (b *scopeBuilder) bindExceptTarget(node *sitter.Node, scope *Scope) {
	sawAs := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "as" {
			sawAs = true
			continue
		}
		if sawAs && child.Kind() == "identifier" {
			scope.Bind(&Binding{
				Name:        b.mod.Text(child),
				Kind:        BindLocal,
				Line:        line(child),
				TypeOnly:    scope.TypeOnly,
				AssignCount: 1,
			})
			return
		}
	}
}

// enterTypeCheckingGuard recognizes `if TYPE_CHECKING:` (bare or
// typing-qualified) and tags the guarded block type-only. Returns true when
// the statement was consumed.
func (b *scopeBuilder) enterTypeCheckingGuard(node *sitter.Node, scope *Scope) bool {
	cond := node.ChildByFieldName("condition")
	if cond == nil {
		return false
	}
	condText := b.mod.Text(cond)
	if condText != "TYPE_CHECKING" && !strings.HasSuffix(condText, ".TYPE_CHECKING") {
		return false
	}

	if body := node.ChildByFieldName("consequence"); body != nil {
		b.mod.TypeOnlySpans = append(b.mod.TypeOnlySpans, Span{Start: body.StartByte(), End: body.EndByte()})
		wasTypeOnly := scope.TypeOnly
		scope.TypeOnly = true
		b.walkChildren(body, scope)
		scope.TypeOnly = wasTypeOnly
	}

	// An else branch on a TYPE_CHECKING guard is ordinary runtime code.
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "else_clause" || child.Kind() == "elif_clause" {
			b.walk(child, scope)
		}
	}
	return true
}

func isConstCall(mod *Module, node *sitter.Node) bool {
	if node.Kind() != "call" {
		return false
	}
	fn := node.ChildByFieldName("function")
	return fn != nil && fn.Kind() == "identifier" && mod.Text(fn) == "const"
}

// bodyInsertionPoint finds where a cache alias line can be inserted: the
// start of the first statement in the block, skipping a leading docstring.
func bodyInsertionPoint(mod *Module, body *sitter.Node) (uint, int) {
	if body == nil {
		return 0, 0
	}
	var first *sitter.Node
	for i := uint(0); i < body.NamedChildCount(); i++ {
		child := body.NamedChild(i)
		if child.Kind() == "comment" {
			continue
		}
		if first == nil && isDocstring(child) {
			continue
		}
		first = child
		break
	}
	if first == nil {
		return body.StartByte(), int(body.StartPosition().Column)
	}
	return first.StartByte(), int(first.StartPosition().Column)
}

func isDocstring(node *sitter.Node) bool {
	return node.Kind() == "expression_statement" &&
		node.NamedChildCount() == 1 &&
		node.NamedChild(0).Kind() == "string"
}

func statementSpan(mod *Module, node *sitter.Node) Span {
	end := node.EndByte()
	if int(end) < len(mod.Source) && mod.Source[end] == '\n' {
		end++
	}
	return Span{Start: node.StartByte(), End: end}
}

func line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}
