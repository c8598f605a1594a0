// Package collector walks a parsed module once and records every
// read-reference to a name or attribute chain, tagged with its enclosing
// scope and syntactic role, plus the structural facts (writes, call counts,
// dispatch chains) the classifier needs.
package collector

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"upysize/internal/parser"
)

type Role int

const (
	RolePlain Role = iota
	RoleAttribute
	RoleCall
	RoleKeywordCall
	RoleImportTarget
)

func (r Role) String() string {
	switch r {
	case RolePlain:
		return "plain"
	case RoleAttribute:
		return "attribute"
	case RoleCall:
		return "call"
	case RoleKeywordCall:
		return "call-keyword-arg"
	case RoleImportTarget:
		return "import-target"
	default:
		return "unknown"
	}
}

// Reference is one read occurrence of a name or attribute chain. Attribute
// chains are collapsed to their maximal extent: `a.b.c` yields a single
// Reference rooted at `a` with path [b c], never three.
type Reference struct {
	Root  string
	Path  []string
	Scope *parser.Scope
	Role  Role
	Line  int

	// RootSpan covers the root identifier token; ChainSpan the whole
	// chain. They are equal for plain references.
	RootSpan  parser.Span
	ChainSpan parser.Span

	// TypeOnly references live in annotations or TYPE_CHECKING blocks and
	// carry no runtime cost.
	TypeOnly bool
}

// Chain renders the full dotted form, e.g. "wire.DataError".
func (r Reference) Chain() string {
	if len(r.Path) == 0 {
		return r.Root
	}
	return r.Root + "." + strings.Join(r.Path, ".")
}

// KeywordCall is one call site passing at least one argument by keyword.
type KeywordCall struct {
	Callee string
	Kwargs int
	Line   int
	Scope  *parser.Scope
}

// DispatchChain is an if/elif chain where every branch compares the same
// name to a literal and assigns the same target.
type DispatchChain struct {
	Subject  string
	Target   string
	Branches int
	Line     int
	Scope    *parser.Scope
}

type Result struct {
	Refs []Reference

	// NameWrites counts assignments per name per scope; AttrWrites records
	// attribute chains that appear as assignment targets.
	NameWrites map[*parser.Scope]map[string]int
	AttrWrites map[*parser.Scope]map[string]bool

	// Calls counts plain-name call sites file-wide, excluding type-only
	// regions.
	Calls map[string]int

	KeywordCalls []KeywordCall
	Dispatches   []DispatchChain
}

func (r *Result) nameWrite(scope *parser.Scope, name string) {
	m, ok := r.NameWrites[scope]
	if !ok {
		m = make(map[string]int)
		r.NameWrites[scope] = m
	}
	m[name]++
}

func (r *Result) attrWrite(scope *parser.Scope, chain string) {
	m, ok := r.AttrWrites[scope]
	if !ok {
		m = make(map[string]bool)
		r.AttrWrites[scope] = m
	}
	m[chain] = true
}

// WrittenIn reports whether a name is assigned anywhere in the scope.
func (r *Result) WrittenIn(scope *parser.Scope, name string) bool {
	return r.NameWrites[scope][name] > 0
}

// ChainWrittenIn reports whether the chain or any of its prefixes is
// mutated in the scope; caching `a.b.c` is unsafe if `a.b` is reassigned.
func (r *Result) ChainWrittenIn(scope *parser.Scope, chain string) bool {
	writes := r.AttrWrites[scope]
	for written := range writes {
		if written == chain || strings.HasPrefix(chain, written+".") {
			return true
		}
	}
	return false
}

// Collect produces the reference set for one module in source order. Pure
// function of the module; references are owned by the returned Result and
// only borrowed by later stages.
func Collect(mod *parser.Module) *Result {
	res := &Result{
		NameWrites: make(map[*parser.Scope]map[string]int),
		AttrWrites: make(map[*parser.Scope]map[string]bool),
		Calls:      make(map[string]int),
	}
	w := &walker{mod: mod, res: res}
	w.walkChildren(mod.RootNode(), mod.Root, false)
	return res
}

type walker struct {
	mod *parser.Module
	res *Result
}

func (w *walker) walkChildren(node *sitter.Node, scope *parser.Scope, typeOnly bool) {
	for i := uint(0); i < node.ChildCount(); i++ {
		w.walk(node.Child(i), scope, typeOnly)
	}
}

func (w *walker) walk(node *sitter.Node, scope *parser.Scope, typeOnly bool) {
	switch node.Kind() {
	case "function_definition":
		w.enterFunction(node, scope, typeOnly)
	case "class_definition":
		w.enterClass(node, scope, typeOnly)
	case "import_statement", "import_from_statement":
		w.collectImportTargets(node, scope, typeOnly)
	case "assignment":
		w.handleAssignment(node, scope, typeOnly)
	case "augmented_assignment":
		if left := node.ChildByFieldName("left"); left != nil {
			w.handleWriteTarget(left, scope, typeOnly)
		}
		if right := node.ChildByFieldName("right"); right != nil {
			w.walk(right, scope, typeOnly)
		}
	case "named_expression":
		if name := node.ChildByFieldName("name"); name != nil {
			w.handleWriteTarget(name, scope, typeOnly)
		}
		if value := node.ChildByFieldName("value"); value != nil {
			w.walk(value, scope, typeOnly)
		}
	case "for_statement", "for_in_clause":
		w.handleFor(node, scope, typeOnly)
	case "as_pattern":
		if alias := node.ChildByFieldName("alias"); alias != nil {
			w.handleWriteTarget(alias, scope, typeOnly)
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() != "as_pattern_target" && child.Kind() != "as" {
				w.walk(child, scope, typeOnly)
			}
		}
	case "if_statement":
		w.handleIf(node, scope, typeOnly)
	case "call":
		w.handleCall(node, scope, typeOnly)
	case "attribute":
		w.emitChain(node, scope, RoleAttribute, typeOnly)
	case "keyword_argument":
		// The key is a QSTR, not a reference; only the value is read.
		if value := node.ChildByFieldName("value"); value != nil {
			w.walk(value, scope, typeOnly)
		}
	case "parameters":
		w.handleParameters(node, scope, typeOnly)
	case "type":
		w.walkChildren(node, scope, true)
	case "global_statement", "nonlocal_statement":
		// Declarations, not reads.
	case "identifier":
		w.emit(Reference{
			Root:      w.mod.Text(node),
			Scope:     scope,
			Role:      RolePlain,
			Line:      line(node),
			RootSpan:  span(node),
			ChainSpan: span(node),
			TypeOnly:  typeOnly,
		})
	default:
		w.walkChildren(node, scope, typeOnly)
	}
}

func (w *walker) emit(ref Reference) {
	w.res.Refs = append(w.res.Refs, ref)
}

func (w *walker) enterFunction(node *sitter.Node, scope *parser.Scope, typeOnly bool) {
	fn := w.mod.ScopeAt(node.StartByte())
	if fn == nil {
		return
	}
	// Decorators, default values and annotations are evaluated in the
	// enclosing scope at definition time.
	if params := node.ChildByFieldName("parameters"); params != nil {
		w.handleParameters(params, scope, typeOnly)
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		w.walk(ret, scope, typeOnly)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.walkChildren(body, fn, typeOnly)
	}
}

func (w *walker) enterClass(node *sitter.Node, scope *parser.Scope, typeOnly bool) {
	cls := w.mod.ScopeAt(node.StartByte())
	if cls == nil {
		return
	}
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		w.walk(supers, scope, typeOnly)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.walkChildren(body, cls, typeOnly)
	}
}

func (w *walker) handleParameters(params *sitter.Node, scope *parser.Scope, typeOnly bool) {
	for i := uint(0); i < params.ChildCount(); i++ {
		child := params.Child(i)
		switch child.Kind() {
		case "typed_parameter":
			if t := child.ChildByFieldName("type"); t != nil {
				w.walk(t, scope, typeOnly)
			}
		case "default_parameter", "typed_default_parameter":
			if t := child.ChildByFieldName("type"); t != nil {
				w.walk(t, scope, typeOnly)
			}
			if v := child.ChildByFieldName("value"); v != nil {
				w.walk(v, scope, typeOnly)
			}
		}
	}
}

func (w *walker) collectImportTargets(node *sitter.Node, scope *parser.Scope, typeOnly bool) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name", "aliased_import":
			w.emit(Reference{
				Root:      w.mod.Text(child),
				Scope:     scope,
				Role:      RoleImportTarget,
				Line:      line(child),
				RootSpan:  span(child),
				ChainSpan: span(child),
				TypeOnly:  typeOnly,
			})
		}
	}
}

func (w *walker) handleAssignment(node *sitter.Node, scope *parser.Scope, typeOnly bool) {
	if left := node.ChildByFieldName("left"); left != nil {
		w.handleWriteTarget(left, scope, typeOnly)
	}
	if t := node.ChildByFieldName("type"); t != nil {
		w.walk(t, scope, typeOnly)
	}
	if right := node.ChildByFieldName("right"); right != nil {
		w.walk(right, scope, typeOnly)
	}
}

func (w *walker) handleFor(node *sitter.Node, scope *parser.Scope, typeOnly bool) {
	left := node.ChildByFieldName("left")
	if left != nil {
		w.handleWriteTarget(left, scope, typeOnly)
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if left != nil && child.StartByte() == left.StartByte() && child.EndByte() == left.EndByte() {
			continue
		}
		w.walk(child, scope, typeOnly)
	}
}

// handleWriteTarget records assignment targets. Writes are not reads:
// bindings used only for writing never count toward caching suggestions.
func (w *walker) handleWriteTarget(node *sitter.Node, scope *parser.Scope, typeOnly bool) {
	switch node.Kind() {
	case "identifier", "as_pattern_target":
		name := w.mod.Text(node)
		if node.Kind() == "as_pattern_target" && node.ChildCount() > 0 {
			name = w.mod.Text(node.Child(0))
		}
		if !typeOnly {
			w.res.nameWrite(scope, name)
		}
	case "attribute":
		if root, path, ok := w.flattenChain(node); ok {
			if !typeOnly {
				chain := w.mod.Text(root)
				if len(path) > 0 {
					chain += "." + strings.Join(path, ".")
				}
				w.res.attrWrite(scope, chain)
			}
		} else if obj := node.ChildByFieldName("object"); obj != nil {
			w.walk(obj, scope, typeOnly)
		}
	case "subscript":
		// `a[i] = x` still reads a and i.
		if v := node.ChildByFieldName("value"); v != nil {
			w.walk(v, scope, typeOnly)
		}
		if sub := node.ChildByFieldName("subscript"); sub != nil {
			w.walk(sub, scope, typeOnly)
		}
	default:
		for i := uint(0); i < node.ChildCount(); i++ {
			w.handleWriteTarget(node.Child(i), scope, typeOnly)
		}
	}
}

func (w *walker) handleCall(node *sitter.Node, scope *parser.Scope, typeOnly bool) {
	kwargs := 0
	args := node.ChildByFieldName("arguments")
	if args != nil {
		for i := uint(0); i < args.ChildCount(); i++ {
			if args.Child(i).Kind() == "keyword_argument" {
				kwargs++
			}
		}
	}

	role := RoleCall
	if kwargs > 0 {
		role = RoleKeywordCall
	}

	fn := node.ChildByFieldName("function")
	var callee string
	switch {
	case fn == nil:
	case fn.Kind() == "identifier":
		callee = w.mod.Text(fn)
		if !typeOnly {
			w.res.Calls[callee]++
		}
		w.emit(Reference{
			Root:      callee,
			Scope:     scope,
			Role:      role,
			Line:      line(fn),
			RootSpan:  span(fn),
			ChainSpan: span(fn),
			TypeOnly:  typeOnly,
		})
	case fn.Kind() == "attribute":
		if ref, ok := w.emitChainRef(fn, scope, role, typeOnly); ok {
			callee = ref.Chain()
		} else if obj := fn.ChildByFieldName("object"); obj != nil {
			w.walk(obj, scope, typeOnly)
		}
	default:
		w.walk(fn, scope, typeOnly)
	}

	if kwargs > 0 && callee != "" && !typeOnly {
		w.res.KeywordCalls = append(w.res.KeywordCalls, KeywordCall{
			Callee: callee,
			Kwargs: kwargs,
			Line:   line(node),
			Scope:  scope,
		})
	}

	if args != nil {
		w.walkChildren(args, scope, typeOnly)
	}
}

// emitChain emits the maximal attribute chain rooted at an identifier, or
// falls back to walking the object expression when the root is dynamic.
func (w *walker) emitChain(node *sitter.Node, scope *parser.Scope, role Role, typeOnly bool) {
	if _, ok := w.emitChainRef(node, scope, role, typeOnly); !ok {
		if obj := node.ChildByFieldName("object"); obj != nil {
			w.walk(obj, scope, typeOnly)
		}
	}
}

func (w *walker) emitChainRef(node *sitter.Node, scope *parser.Scope, role Role, typeOnly bool) (Reference, bool) {
	root, path, ok := w.flattenChain(node)
	if !ok {
		return Reference{}, false
	}
	ref := Reference{
		Root:      w.mod.Text(root),
		Path:      path,
		Scope:     scope,
		Role:      role,
		Line:      line(root),
		RootSpan:  span(root),
		ChainSpan: span(node),
		TypeOnly:  typeOnly,
	}
	w.emit(ref)
	return ref, true
}

// flattenChain walks `a.b.c` down to its root. Chains rooted in anything
// but a plain identifier (calls, subscripts) cannot be cached and are
// reported as not-ok.
func (w *walker) flattenChain(node *sitter.Node) (*sitter.Node, []string, bool) {
	var path []string
	cur := node
	for cur.Kind() == "attribute" {
		attr := cur.ChildByFieldName("attribute")
		if attr == nil {
			return nil, nil, false
		}
		path = append([]string{w.mod.Text(attr)}, path...)
		cur = cur.ChildByFieldName("object")
		if cur == nil {
			return nil, nil, false
		}
	}
	if cur.Kind() != "identifier" {
		return nil, nil, false
	}
	return cur, path, true
}

func (w *walker) handleIf(node *sitter.Node, scope *parser.Scope, typeOnly bool) {
	cond := node.ChildByFieldName("condition")
	condText := w.mod.Text(cond)
	if condText == "TYPE_CHECKING" || strings.HasSuffix(condText, ".TYPE_CHECKING") {
		if cond != nil {
			w.walk(cond, scope, typeOnly)
		}
		if body := node.ChildByFieldName("consequence"); body != nil {
			w.walkChildren(body, scope, true)
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "else_clause" || child.Kind() == "elif_clause" {
				w.walk(child, scope, typeOnly)
			}
		}
		return
	}

	if d, ok := w.detectDispatch(node, scope); ok && !typeOnly {
		w.res.Dispatches = append(w.res.Dispatches, d)
	}
	w.walkChildren(node, scope, typeOnly)
}

// detectDispatch recognizes if/elif chains of the shape
//
//	if x == "a": out = 1
//	elif x == "b": out = 2
//
// which compile smaller as a dict lookup.
func (w *walker) detectDispatch(node *sitter.Node, scope *parser.Scope) (DispatchChain, bool) {
	subject, target, ok := w.dispatchBranch(node.ChildByFieldName("condition"), node.ChildByFieldName("consequence"))
	if !ok {
		return DispatchChain{}, false
	}

	branches := 1
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "elif_clause":
			s, t, ok := w.dispatchBranch(child.ChildByFieldName("condition"), child.ChildByFieldName("consequence"))
			if !ok || s != subject || t != target {
				return DispatchChain{}, false
			}
			branches++
		case "else_clause":
			t, ok := w.singleAssignTarget(child.ChildByFieldName("body"))
			if !ok || t != target {
				return DispatchChain{}, false
			}
		}
	}

	if branches < 2 {
		return DispatchChain{}, false
	}
	return DispatchChain{
		Subject:  subject,
		Target:   target,
		Branches: branches,
		Line:     line(node),
		Scope:    scope,
	}, true
}

func (w *walker) dispatchBranch(cond, body *sitter.Node) (subject, target string, ok bool) {
	if cond == nil || body == nil || cond.Kind() != "comparison_operator" {
		return "", "", false
	}
	if cond.NamedChildCount() != 2 {
		return "", "", false
	}
	hasEq := false
	for i := uint(0); i < cond.ChildCount(); i++ {
		if cond.Child(i).Kind() == "==" {
			hasEq = true
		}
	}
	left := cond.NamedChild(0)
	right := cond.NamedChild(1)
	if !hasEq || left.Kind() != "identifier" || !isLiteral(right) {
		return "", "", false
	}

	target, ok = w.singleAssignTarget(body)
	if !ok {
		return "", "", false
	}
	return w.mod.Text(left), target, true
}

func (w *walker) singleAssignTarget(body *sitter.Node) (string, bool) {
	if body == nil {
		return "", false
	}
	var stmt *sitter.Node
	for i := uint(0); i < body.NamedChildCount(); i++ {
		child := body.NamedChild(i)
		if child.Kind() == "comment" {
			continue
		}
		if stmt != nil {
			return "", false
		}
		stmt = child
	}
	if stmt == nil || stmt.Kind() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return "", false
	}
	assign := stmt.NamedChild(0)
	if assign.Kind() != "assignment" {
		return "", false
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return "", false
	}
	return w.mod.Text(left), true
}

func isLiteral(node *sitter.Node) bool {
	switch node.Kind() {
	case "string", "integer", "float", "true", "false", "none":
		return true
	default:
		return false
	}
}

func line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

func span(node *sitter.Node) parser.Span {
	return parser.Span{Start: node.StartByte(), End: node.EndByte()}
}
