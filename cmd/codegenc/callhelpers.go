package main

import (
	"math"
	"unsafe"

	"codegen/ir"
)

// callInt64 invokes fn (which must already have a CallHandler installed by
// a backend) with a single i64 argument and reads back an i64 result. This
// sits at the same Go<->IR boundary interp.VM's own call marshaling does,
// just from the opposite end: here Go is the caller, not the callee.
func callInt64(fn ir.Function, a int64) int64 {
	var arg uint64 = uint64(a)
	argPtrs := []uintptr{uintptr(unsafe.Pointer(&arg))}

	var ret uint64
	fn.CallHandler().Call(uintptr(unsafe.Pointer(&ret)), argPtrs)
	return int64(ret)
}

// callInt64Int64 invokes fn with two i64 arguments and reads back an i64
// result.
func callInt64Int64(fn ir.Function, a, b int64) int64 {
	var argA, argB uint64 = uint64(a), uint64(b)
	argPtrs := []uintptr{uintptr(unsafe.Pointer(&argA)), uintptr(unsafe.Pointer(&argB))}

	var ret uint64
	fn.CallHandler().Call(uintptr(unsafe.Pointer(&ret)), argPtrs)
	return int64(ret)
}

// callFloat64 invokes fn with a single i64 argument and reads back an f64
// result.
func callFloat64(fn ir.Function, a int64) float64 {
	var arg uint64 = uint64(a)
	argPtrs := []uintptr{uintptr(unsafe.Pointer(&arg))}

	var retBits uint64
	fn.CallHandler().Call(uintptr(unsafe.Pointer(&retBits)), argPtrs)
	return math.Float64frombits(retBits)
}
