package fusion

import "math"

// The scripting surface receives arguments dynamically (samples carry them
// as plain Go values), so every operator entry point coerces its arguments
// to the declared parameter types here. A value that cannot be represented —
// a float where an integer vector is expected, an unsigned value above the
// int64 range — raises a type error naming the operator, mirroring how a
// binding layer rejects incompatible call signatures.

func incompatibleArguments(opName string) {
	throwf(KindType, "%s(): incompatible function arguments", opName)
}

// coerceInt accepts any Go integer kind that fits an int64.
func coerceInt(opName string, value any) int64 {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		if uint64(v) > math.MaxInt64 {
			incompatibleArguments(opName)
		}
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		if v > math.MaxInt64 {
			incompatibleArguments(opName)
		}
		return int64(v)
	}
	incompatibleArguments(opName)
	return 0
}

// coerceIntSlice accepts integer vectors in the representations samples use:
// []int64, []int, []uint64, a single integer (promoted to a 1-element
// vector), or []any of integers. A nil value stays nil.
func coerceIntSlice(opName string, value any) []int64 {
	switch v := value.(type) {
	case nil:
		return nil
	case []int64:
		out := make([]int64, len(v))
		copy(out, v)
		return out
	case []int:
		out := make([]int64, len(v))
		for ii, e := range v {
			out[ii] = int64(e)
		}
		return out
	case []uint64:
		out := make([]int64, len(v))
		for ii, e := range v {
			if e > math.MaxInt64 {
				incompatibleArguments(opName)
			}
			out[ii] = int64(e)
		}
		return out
	case []any:
		out := make([]int64, len(v))
		for ii, e := range v {
			out[ii] = coerceInt(opName, e)
		}
		return out
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return []int64{coerceInt(opName, v)}
	}
	incompatibleArguments(opName)
	return nil
}

// coerceBool accepts only a Go bool.
func coerceBool(opName string, value any) bool {
	b, ok := value.(bool)
	if !ok {
		incompatibleArguments(opName)
	}
	return b
}

// coerceBoolSlice accepts []bool or []any of bools. A nil value stays nil.
func coerceBoolSlice(opName string, value any) []bool {
	switch v := value.(type) {
	case nil:
		return nil
	case []bool:
		out := make([]bool, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]bool, len(v))
		for ii, e := range v {
			out[ii] = coerceBool(opName, e)
		}
		return out
	}
	incompatibleArguments(opName)
	return nil
}
