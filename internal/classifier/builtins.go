package classifier

// pythonBuiltins covers the builtin namespace of micropython plus the
// CPython names commonly available through compatibility shims. Chain
// roots resolving here are external by construction and never warned
// about.
var pythonBuiltins = map[string]bool{
	"abs": true, "all": true, "any": true, "bin": true, "bool": true,
	"bytearray": true, "bytes": true, "callable": true, "chr": true,
	"classmethod": true, "delattr": true, "dict": true, "dir": true,
	"divmod": true, "enumerate": true, "eval": true, "exec": true,
	"filter": true, "float": true, "frozenset": true, "getattr": true,
	"globals": true, "hasattr": true, "hash": true, "hex": true,
	"id": true, "input": true, "int": true, "isinstance": true,
	"issubclass": true, "iter": true, "len": true, "list": true,
	"locals": true, "map": true, "max": true, "memoryview": true,
	"min": true, "next": true, "object": true, "oct": true, "open": true,
	"ord": true, "pow": true, "print": true, "property": true,
	"range": true, "repr": true, "reversed": true, "round": true,
	"set": true, "setattr": true, "slice": true, "sorted": true,
	"staticmethod": true, "str": true, "sum": true, "super": true,
	"tuple": true, "type": true, "vars": true, "zip": true,

	"ArithmeticError": true, "AssertionError": true, "AttributeError": true,
	"BaseException": true, "EOFError": true, "Exception": true,
	"GeneratorExit": true, "ImportError": true, "IndentationError": true,
	"IndexError": true, "KeyError": true, "KeyboardInterrupt": true,
	"LookupError": true, "MemoryError": true, "NameError": true,
	"NotImplementedError": true, "OSError": true, "OverflowError": true,
	"RuntimeError": true, "StopAsyncIteration": true, "StopIteration": true,
	"SyntaxError": true, "SystemExit": true, "TypeError": true,
	"UnicodeError": true, "ValueError": true, "ZeroDivisionError": true,

	"True": true, "False": true, "None": true, "NotImplemented": true,
	"Ellipsis": true, "__name__": true, "__file__": true,
	"__import__": true,
}

func isBuiltin(name string) bool {
	return pythonBuiltins[name]
}
