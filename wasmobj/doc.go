// Package wasmobj hosts a WebAssembly module instance on a dedicated
// worker thread.
//
// An Object owns a wazero runtime and one instantiated core module. It
// implements the host lifecycle interfaces, so the runtime is created,
// the module compiled and instantiated, and everything closed again on
// the same OS thread:
//
//	mod, err := wasmobj.Open(wasmobj.Config{Name: "math", Wasm: wasmBytes})
//	if err != nil {
//	    return err
//	}
//	defer mod.Close()
//
//	sig := wasmobj.Signature{
//	    Params:  []wit.Type{wit.S32{}, wit.S32{}},
//	    Results: []wit.Type{wit.S32{}},
//	}
//	out, err := mod.Call(ctx, "add", sig, int32(2), int32(3))
//
// Calls are typed with WIT primitive types. Each parameter and result must
// flatten to exactly one core value whose type matches the export's
// signature.
package wasmobj
