package build

import "reflect"

// A Var holds a release-dependent value. Each field carries the value used
// when the corresponding Release is compiled. No field may be nil, and all
// fields must share one type.
type Var struct {
	Standard interface{}
	Dev      interface{}
	Testing  interface{}
	// prevent unkeyed literals
	_ struct{}
}

// Select returns the field of v matching the current Release. The caller is
// expected to type-assert the result, and type assertions are stricter than
// conversions: a Var{0, 0, 0} cannot be asserted to a defined integer type,
// each field must be cast explicitly at the literal.
func Select(v Var) interface{} {
	if v.Standard == nil || v.Dev == nil || v.Testing == nil {
		panic("nil value in build variable")
	}
	st, dt, tt := reflect.TypeOf(v.Standard), reflect.TypeOf(v.Dev), reflect.TypeOf(v.Testing)
	if !dt.AssignableTo(st) || !tt.AssignableTo(st) {
		// AssignableTo instead of ConvertibleTo, type assertions require
		// the former.
		panic("build variables must have a single type")
	}
	switch Release {
	case "standard":
		return v.Standard
	case "dev":
		return v.Dev
	case "testing":
		return v.Testing
	default:
		panic("unrecognized Release: " + Release)
	}
}
