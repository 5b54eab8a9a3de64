package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.bytecodealliance.org/wit"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/stickyhost/errors"
	"github.com/wippyai/stickyhost/host"
	"github.com/wippyai/stickyhost/wasmobj"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Hosts     int
	Calls     int
	Scheduled int

	Wasm    string
	Func    string
	Args    []string
	Sig     string
	MemPage uint32
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create hosts, call them and release them",
		Long: `Create hosts, call each one from concurrent goroutines, then release
them and wait for their worker threads to exit.

Without --wasm the built-in counter object is hosted. With --wasm the
module is instantiated on each worker and --func is called with --args.

Example:
  hostctl run --hosts 4 --calls 100
  hostctl run --wasm add.wasm --func add --sig "s32,s32->s32" --args 2,3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Wasm == "" {
				opts.Wasm = opts.cfg.WasmPath
			}
			if opts.MemPage == 0 {
				opts.MemPage = opts.cfg.WasmPages
			}
			if opts.Wasm != "" {
				return runWasm(cmd.Context(), opts, cmd.OutOrStdout())
			}
			return runCounters(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.Hosts, "hosts", 1, "number of hosts to create")
	cmd.Flags().IntVar(&opts.Calls, "calls", 10, "calls per host")
	cmd.Flags().IntVar(&opts.Scheduled, "scheduled", 0, "increments each counter posts to its own loop")
	cmd.Flags().StringVar(&opts.Wasm, "wasm", "", "path to a core wasm module")
	cmd.Flags().StringVar(&opts.Func, "func", "", "export to call")
	cmd.Flags().StringSliceVar(&opts.Args, "args", nil, "arguments, comma-separated")
	cmd.Flags().StringVar(&opts.Sig, "sig", "", `WIT signature, e.g. "s32,s32->s32"`)
	cmd.Flags().Uint32Var(&opts.MemPage, "memory-pages", 0, "linear memory limit in 64KiB pages")

	return cmd
}

func runCounters(ctx context.Context, opts *RunOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Hosts < 1 {
		return errors.InvalidInput(errors.PhaseConfig, "--hosts must be at least 1")
	}

	refs := make([]*host.Ref, 0, opts.Hosts)
	for i := 0; i < opts.Hosts; i++ {
		ref, err := host.Create(newCounter, opts.hostOptions()...)
		if err != nil {
			return multierr.Append(err, releaseAll(refs))
		}
		refs = append(refs, ref)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, ref := range refs {
		for i := 0; i < opts.Calls; i++ {
			wg.Add(1)
			go func(ref *host.Ref) {
				defer wg.Done()
				_, err := host.Call(ctx, ref, func(_ context.Context, c *counter) (int, error) {
					return c.Inc(), nil
				})
				if err != nil {
					mu.Lock()
					errs = multierr.Append(errs, err)
					mu.Unlock()
				}
			}(ref)
		}
	}
	wg.Wait()
	if errs != nil {
		return multierr.Append(errs, releaseAll(refs))
	}

	if opts.Scheduled > 0 {
		for _, ref := range refs {
			err := ref.Invoke(ctx, func(_ context.Context, obj any) error {
				return obj.(*counter).Schedule(opts.Scheduled)
			})
			if err != nil {
				return multierr.Append(err, releaseAll(refs))
			}
		}
	}

	for _, ref := range refs {
		total, err := host.Call(ctx, ref, func(_ context.Context, c *counter) (int, error) {
			return c.calls, nil
		})
		if err != nil {
			return multierr.Append(err, releaseAll(refs))
		}
		fmt.Fprintf(out, "%s: %d calls, refs %d, %s\n", ref, total, ref.Refs(), ref.State())
	}

	if err := releaseAll(refs); err != nil {
		return err
	}
	fmt.Fprintf(out, "released %d hosts\n", len(refs))
	return nil
}

// releaseAll drops one reference from each ref and waits for the workers
// whose count reached zero.
func releaseAll(refs []*host.Ref) error {
	var err error
	for _, ref := range refs {
		n, rerr := ref.Release()
		if rerr != nil {
			err = multierr.Append(err, rerr)
			continue
		}
		if n == 0 {
			<-ref.Done()
		}
	}
	return err
}

func runWasm(ctx context.Context, opts *RunOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := os.ReadFile(opts.Wasm)
	if err != nil {
		return errors.Load(fmt.Sprintf("read %s", opts.Wasm), err)
	}

	mod, err := wasmobj.Open(wasmobj.Config{
		Name:             opts.cfg.Name,
		Wasm:             data,
		MemoryLimitPages: opts.MemPage,
	}, opts.hostOptions()...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := mod.Close(); cerr != nil {
			opts.logger.Warn("close module failed", zap.Error(cerr))
		}
	}()

	if opts.Func == "" {
		names, err := mod.Exports(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	sig, err := parseSignature(opts.Sig)
	if err != nil {
		return err
	}
	if len(opts.Args) != len(sig.Params) {
		return errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("%s takes %d arguments, got %d", opts.Func, len(sig.Params), len(opts.Args)))
	}
	args := make([]any, len(opts.Args))
	for i, raw := range opts.Args {
		v, err := convertArg(raw, sig.Params[i])
		if err != nil {
			return err
		}
		args[i] = v
	}

	results, err := mod.Call(ctx, opts.Func, sig, args...)
	if err != nil {
		return err
	}
	strs := make([]string, len(results))
	for i, r := range results {
		strs[i] = fmt.Sprint(r)
	}
	fmt.Fprintf(out, "%s(%s) = %s\n", opts.Func, strings.Join(opts.Args, ", "), strings.Join(strs, ", "))
	return nil
}

// parseSignature parses "t1,t2->r1" where each t is a WIT primitive name.
func parseSignature(s string) (wasmobj.Signature, error) {
	var sig wasmobj.Signature
	params, results, _ := strings.Cut(s, "->")

	var err error
	if sig.Params, err = parseTypes(params); err != nil {
		return sig, err
	}
	if sig.Results, err = parseTypes(results); err != nil {
		return sig, err
	}
	return sig, nil
}

func parseTypes(s string) ([]wit.Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var types []wit.Type
	for _, name := range strings.Split(s, ",") {
		t, ok := witTypes[strings.TrimSpace(name)]
		if !ok {
			return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown WIT type %q", name))
		}
		types = append(types, t)
	}
	return types, nil
}

var witTypes = map[string]wit.Type{
	"bool": wit.Bool{},
	"u8":   wit.U8{},
	"s8":   wit.S8{},
	"u16":  wit.U16{},
	"s16":  wit.S16{},
	"u32":  wit.U32{},
	"s32":  wit.S32{},
	"u64":  wit.U64{},
	"s64":  wit.S64{},
	"f32":  wit.F32{},
	"f64":  wit.F64{},
	"char": wit.Char{},
}

func convertArg(value string, t wit.Type) (any, error) {
	var (
		v   any
		err error
	)
	switch t.(type) {
	case wit.Bool:
		v, err = strconv.ParseBool(value)
	case wit.U8:
		var n uint64
		n, err = strconv.ParseUint(value, 10, 8)
		v = uint8(n)
	case wit.S8:
		var n int64
		n, err = strconv.ParseInt(value, 10, 8)
		v = int8(n)
	case wit.U16:
		var n uint64
		n, err = strconv.ParseUint(value, 10, 16)
		v = uint16(n)
	case wit.S16:
		var n int64
		n, err = strconv.ParseInt(value, 10, 16)
		v = int16(n)
	case wit.U32:
		var n uint64
		n, err = strconv.ParseUint(value, 10, 32)
		v = uint32(n)
	case wit.S32:
		var n int64
		n, err = strconv.ParseInt(value, 10, 32)
		v = int32(n)
	case wit.U64:
		v, err = strconv.ParseUint(value, 10, 64)
	case wit.S64:
		v, err = strconv.ParseInt(value, 10, 64)
	case wit.F32:
		var f float64
		f, err = strconv.ParseFloat(value, 32)
		v = float32(f)
	case wit.F64:
		v, err = strconv.ParseFloat(value, 64)
	case wit.Char:
		r := []rune(value)
		if len(r) != 1 {
			return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("char argument %q must be one character", value))
		}
		v = r[0]
	default:
		return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unsupported argument type %T", t))
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, fmt.Sprintf("argument %q", value))
	}
	return v, nil
}
