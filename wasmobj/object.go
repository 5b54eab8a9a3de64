package wasmobj

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/stickyhost/errors"
)

const (
	// CapModule is answered by every Object.
	CapModule = "wasm:module"
	// CapExportPrefix followed by a function name is answered when the
	// module exports that function.
	CapExportPrefix = "wasm:export/"
)

// Config describes the module an Object instantiates.
type Config struct {
	// Name is the module instance name. Empty means anonymous.
	Name string
	// Wasm is the binary core module.
	Wasm []byte
	// MemoryLimitPages caps linear memory in 64KiB pages. 0 keeps the
	// wazero default.
	MemoryLimitPages uint32
}

// Object is a hosted wazero module instance. All of its methods must run
// on the host worker that constructed it.
type Object struct {
	cfg      Config
	ctx      context.Context
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	module   api.Module
	log      *zap.Logger
	calls    uint64
}

// New returns an Object that will instantiate cfg when constructed.
func New(cfg Config) *Object {
	return &Object{
		cfg: cfg,
		ctx: context.Background(),
		log: Logger().With(zap.String("module", cfg.Name)),
	}
}

// InitialConstruct creates the wazero runtime.
func (o *Object) InitialConstruct() error {
	if len(o.cfg.Wasm) == 0 {
		return errors.InvalidInput(errors.PhaseLoad, "empty wasm binary")
	}

	rc := wazero.NewRuntimeConfig()
	if o.cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(o.cfg.MemoryLimitPages)
	}
	o.runtime = wazero.NewRuntimeWithConfig(o.ctx, rc)
	return nil
}

// FinalConstruct compiles and instantiates the module.
func (o *Object) FinalConstruct() error {
	compiled, err := o.runtime.CompileModule(o.ctx, o.cfg.Wasm)
	if err != nil {
		return errors.Load("compile module", err)
	}
	o.compiled = compiled

	mod, err := o.runtime.InstantiateModule(o.ctx, compiled, wazero.NewModuleConfig().WithName(o.cfg.Name))
	if err != nil {
		return errors.Load("instantiate module", err)
	}
	o.module = mod

	o.log.Debug("module instantiated", zap.Int("exports", len(compiled.ExportedFunctions())))
	return nil
}

// FinalRelease closes the module and the runtime.
func (o *Object) FinalRelease() {
	var err error
	if o.module != nil {
		err = multierr.Append(err, o.module.Close(o.ctx))
	}
	if o.compiled != nil {
		err = multierr.Append(err, o.compiled.Close(o.ctx))
	}
	if o.runtime != nil {
		err = multierr.Append(err, o.runtime.Close(o.ctx))
	}
	if err != nil {
		o.log.Warn("close module failed",
			zap.String("phase", string(errors.PhaseShutdown)),
			zap.Error(err))
	}
	o.log.Debug("module closed", zap.Uint64("calls", o.calls))
}

// QueryCapability answers CapModule and CapExportPrefix+name.
func (o *Object) QueryCapability(name string) bool {
	if name == CapModule {
		return true
	}
	if fn, ok := strings.CutPrefix(name, CapExportPrefix); ok {
		return o.module != nil && o.module.ExportedFunction(fn) != nil
	}
	return false
}

// Exports returns the names of the exported functions, sorted.
func (o *Object) Exports() []string {
	if o.compiled == nil {
		return nil
	}
	defs := o.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calls returns how many calls completed successfully.
func (o *Object) Calls() uint64 {
	return o.calls
}

// Call invokes export name with args typed by sig.
func (o *Object) Call(ctx context.Context, name string, sig Signature, args ...any) ([]any, error) {
	if o.module == nil {
		return nil, errors.Disconnected(errors.PhaseDispatch)
	}
	fn := o.module.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseDispatch, "export", name)
	}

	def := fn.Definition()
	if err := checkFlat("param", sig.Params, def.ParamTypes()); err != nil {
		return nil, err
	}
	if err := checkFlat("result", sig.Results, def.ResultTypes()); err != nil {
		return nil, err
	}
	if len(args) != len(sig.Params) {
		return nil, errors.InvalidInput(errors.PhaseDispatch,
			fmt.Sprintf("%s takes %d arguments, got %d", name, len(sig.Params), len(args)))
	}

	raw := make([]uint64, len(args))
	for i, arg := range args {
		v, err := lower(sig.Params[i], arg)
		if err != nil {
			return nil, err
		}
		raw[i] = v
	}

	out, err := fn.Call(ctx, raw...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDispatch, errors.KindGeneric, err, fmt.Sprintf("call %s", name))
	}

	results := make([]any, len(out))
	for i, r := range out {
		v, err := lift(sig.Results[i], r)
		if err != nil {
			return nil, err
		}
		results[i] = v
	}
	o.calls++
	return results, nil
}
