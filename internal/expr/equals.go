package expr

import "fmt"

// Equals reports whether a and b are structurally equal. Equality is
// referentially transparent: it compares kind and component fields and
// ignores the resolved ordinal on ColRef, since two column references
// written the same way name the same column regardless of where resolution
// happened to place it.
func Equals(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case ExprLiteral:
		x, y := a.(*Literal), b.(*Literal)
		if x.Ty != y.Ty {
			return false
		}
		switch x.Ty {
		case TypeBool:
			return x.Bool == y.Bool
		case TypeInt:
			return x.Int == y.Int
		case TypeReal:
			return x.Real == y.Real
		case TypeString:
			return x.Str == y.Str
		default:
			return true // TypeNull
		}
	case ExprColRef:
		x, y := a.(*ColRef), b.(*ColRef)
		if x.OuterRef != y.OuterRef || x.Alias != y.Alias {
			return false
		}
		return tableRefEquals(x.TabRef, y.TabRef)
	case ExprBinary:
		x, y := a.(*Binary), b.(*Binary)
		return x.Op == y.Op && Equals(x.L, y.L) && Equals(x.R, y.R)
	case ExprFunction:
		x, y := a.(*Function), b.(*Function)
		if x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equals(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case ExprAggFunc:
		x, y := a.(*AggFunc), b.(*AggFunc)
		return x.AggKind == y.AggKind && Equals(x.Arg, y.Arg)
	case ExprSubquery:
		x, y := a.(*Subquery), b.(*Subquery)
		return x.Plan == y.Plan
	case ExprExprRef:
		x, y := a.(*ExprRef), b.(*ExprRef)
		return x.Ordinal == y.Ordinal && Equals(x.Inner, y.Inner)
	default:
		return false
	}
}

// tableRefEquals compares two table refs by identity, so same-alias columns
// across distinct tables are disambiguated correctly: two distinct TableRef
// instances are never the same table even if they share a name, which is
// what keeps self-join aliasing apart.
func tableRefEquals(a, b TableRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}

// Hash computes a structural hash of e, consistent with Equals.
func Hash(e Expr) uint64 {
	if e == nil {
		return 0
	}
	const prime = 1099511628211
	h := uint64(14695981039346656037)
	mix := func(s string) {
		for i := 0; i < len(s); i++ {
			h ^= uint64(s[i])
			h *= prime
		}
	}
	switch e.Kind() {
	case ExprLiteral:
		l := e.(*Literal)
		mix(fmt.Sprintf("lit:%d:%v:%v:%v:%s", l.Ty, l.Bool, l.Int, l.Real, l.Str))
	case ExprColRef:
		c := e.(*ColRef)
		tbl := ""
		if c.TabRef != nil {
			tbl = fmt.Sprintf("%p", c.TabRef)
		}
		mix(fmt.Sprintf("col:%s:%v:%s", c.Alias, c.OuterRef, tbl))
	case ExprBinary:
		b := e.(*Binary)
		mix(fmt.Sprintf("bin:%d:", b.Op))
		h ^= Hash(b.L)
		h *= prime
		h ^= Hash(b.R)
		h *= prime
	case ExprFunction:
		f := e.(*Function)
		mix(fmt.Sprintf("fn:%s:%d:", f.Name, len(f.Args)))
		for _, a := range f.Args {
			h ^= Hash(a)
			h *= prime
		}
	case ExprAggFunc:
		a := e.(*AggFunc)
		mix(fmt.Sprintf("agg:%d:", a.AggKind))
		h ^= Hash(a.Arg)
		h *= prime
	case ExprSubquery:
		s := e.(*Subquery)
		mix(fmt.Sprintf("sub:%p", s.Plan))
	case ExprExprRef:
		r := e.(*ExprRef)
		mix(fmt.Sprintf("ref:%d:", r.Ordinal))
		h ^= Hash(r.Inner)
		h *= prime
	}
	return h
}
