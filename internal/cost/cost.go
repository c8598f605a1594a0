// Package cost holds the byte-cost model for mpy-cross output. The
// constants approximate frozen-bytecode sizes: a global load carries a
// qstr lookup, a local load is a single slot index. They are deliberately
// coarse; the model ranks suggestions, it does not promise exact savings.
package cost

import (
	"upysize/internal/classifier"
)

type Table struct {
	GlobalLoad     int
	LocalLoad      int
	AttrLoad       int
	Store          int
	KwargKey       int
	GlobalImport   int
	LocalImport    int
	TypeOnlyImport int
	ConstPrefix    int
	MissingConst   int
	FunctionInline int
	DispatchBranch int
	ModuleAttrUse  int
}

func Default() Table {
	return Table{
		GlobalLoad:     3,
		LocalLoad:      1,
		AttrLoad:       3,
		Store:          1,
		KwargKey:       3,
		GlobalImport:   16,
		LocalImport:    14,
		TypeOnlyImport: 7,
		ConstPrefix:    4,
		MissingConst:   4,
		FunctionInline: 50,
		DispatchBranch: 2,
		ModuleAttrUse:  1,
	}
}

// Apply overrides individual constants from a config map keyed by
// snake_case name. Unknown keys are ignored so old configs keep working
// when constants are renamed.
func (t Table) Apply(overrides map[string]int) Table {
	for key, v := range overrides {
		switch key {
		case "global_load":
			t.GlobalLoad = v
		case "local_load":
			t.LocalLoad = v
		case "attr_load":
			t.AttrLoad = v
		case "store":
			t.Store = v
		case "kwarg_key":
			t.KwargKey = v
		case "global_import":
			t.GlobalImport = v
		case "local_import":
			t.LocalImport = v
		case "type_only_import":
			t.TypeOnlyImport = v
		case "const_prefix":
			t.ConstPrefix = v
		case "missing_const":
			t.MissingConst = v
		case "function_inline":
			t.FunctionInline = v
		case "dispatch_branch":
			t.DispatchBranch = v
		case "module_attr_use":
			t.ModuleAttrUse = v
		}
	}
	return t
}

// Estimate computes the net byte savings for one candidate. Caching
// patterns pay an investment (one evaluation plus a store) up front, so
// the estimate only turns positive past a break-even count.
func (t Table) Estimate(c classifier.Candidate) int {
	switch c.Kind {
	case classifier.PatternRepeatedGlobal:
		invest := t.GlobalLoad + t.Store
		return c.Count*(t.GlobalLoad-t.LocalLoad) - invest

	case classifier.PatternAttributeChain:
		rootLoad := t.LocalLoad
		if c.RootGlobal {
			rootLoad = t.GlobalLoad
		}
		before := rootLoad + c.ChainDepth*t.AttrLoad
		invest := before + t.Store
		return c.Count*(before-t.LocalLoad) - invest

	case classifier.PatternLocalImport:
		return c.Count*(t.GlobalLoad-t.LocalLoad) + (t.GlobalImport - t.LocalImport)

	case classifier.PatternKeywordCall:
		return c.Count * t.KwargKey

	case classifier.PatternDictDispatch:
		return c.Count * t.DispatchBranch

	case classifier.PatternDataTuple:
		return 0

	case classifier.PatternTypeOnlyImport:
		return t.TypeOnlyImport

	case classifier.PatternUnderscoreConst:
		return t.ConstPrefix

	case classifier.PatternMissingConst:
		return t.MissingConst

	case classifier.PatternSingleCallFunc:
		return t.FunctionInline

	case classifier.PatternModuleAttrCache:
		return c.Count * t.ModuleAttrUse

	default:
		return 0
	}
}

// CachingPattern reports whether the estimate scales with occurrence
// count and can go non-positive below break-even. Only those candidates
// are dropped on a non-positive estimate; flat advisories stay visible.
func CachingPattern(kind classifier.PatternKind) bool {
	switch kind {
	case classifier.PatternRepeatedGlobal, classifier.PatternAttributeChain, classifier.PatternLocalImport:
		return true
	default:
		return false
	}
}
