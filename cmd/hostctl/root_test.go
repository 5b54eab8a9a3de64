package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/stickyhost/errors"
	"github.com/wippyai/stickyhost/host"
)

// addWasm exports add(i32, i32) -> i32.
var addWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 0x61, 0x64, 0x64, 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRun_Counters(t *testing.T) {
	out, err := execute(t, "run", "--hosts", "3", "--calls", "5", "--scheduled", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines[:3] {
		assert.Contains(t, line, "7 calls, refs 1, running")
	}
	assert.Equal(t, "released 3 hosts", lines[3])
}

func TestRun_ConfigFile(t *testing.T) {
	cfg := writeTemp(t, "hostctl.yaml", []byte("host:\n  name: cfgname\n  queueSize: 4\n"))

	out, err := execute(t, "run", "--config", cfg, "--calls", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "host(cfgname ")
}

func TestRun_InvalidHosts(t *testing.T) {
	_, err := execute(t, "run", "--hosts", "0")
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
}

func TestRun_Wasm(t *testing.T) {
	path := writeTemp(t, "add.wasm", addWasm)

	out, err := execute(t, "run", "--wasm", path, "--func", "add", "--sig", "s32,s32->s32", "--args", "2,-5")
	require.NoError(t, err)
	assert.Equal(t, "add(2, -5) = -3\n", out)

	out, err = execute(t, "run", "--wasm", path)
	require.NoError(t, err)
	assert.Equal(t, "add\n", out)

	_, err = execute(t, "run", "--wasm", path, "--func", "add", "--sig", "s32,s32->s32", "--args", "2")
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))

	_, err = execute(t, "run", "--wasm", filepath.Join(t.TempDir(), "missing.wasm"))
	assert.Equal(t, errors.KindInvalidData, errors.KindOf(err))
}

func TestWatch_RequiresTerminal(t *testing.T) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		t.Skip("stdout is a terminal")
	}
	_, err := execute(t, "watch")
	assert.Equal(t, errors.KindNotSupported, errors.KindOf(err))
}

func TestParseSignature(t *testing.T) {
	sig, err := parseSignature("s32, u64 -> f64")
	require.NoError(t, err)
	assert.Len(t, sig.Params, 2)
	assert.Len(t, sig.Results, 1)

	sig, err = parseSignature("")
	require.NoError(t, err)
	assert.Empty(t, sig.Params)
	assert.Empty(t, sig.Results)

	_, err = parseSignature("string->s32")
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
}

func TestConvertArg(t *testing.T) {
	tests := []struct {
		value string
		typ   string
		want  any
	}{
		{"true", "bool", true},
		{"255", "u8", uint8(255)},
		{"-128", "s8", int8(-128)},
		{"65535", "u16", uint16(65535)},
		{"-2", "s16", int16(-2)},
		{"4294967295", "u32", uint32(4294967295)},
		{"-7", "s32", int32(-7)},
		{"18446744073709551615", "u64", uint64(18446744073709551615)},
		{"-9", "s64", int64(-9)},
		{"1.5", "f32", float32(1.5)},
		{"-0.25", "f64", -0.25},
		{"λ", "char", 'λ'},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			got, err := convertArg(tt.value, witTypes[tt.typ])
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := convertArg("256", witTypes["u8"])
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
	_, err = convertArg("ab", witTypes["char"])
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	srv, err := serveMetrics("127.0.0.1:0", reg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, srv.Close())

	_, err = serveMetrics("not an address", reg, zap.NewNop())
	assert.Error(t, err)
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			require.NotEmpty(t, f.GetMetric())
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestRootOptions_ObservesExports(t *testing.T) {
	opts := &RootOptions{}
	require.NoError(t, opts.setup())

	ref, err := host.Create(newCounter, opts.hostOptions()...)
	require.NoError(t, err)
	assert.Equal(t, float64(1), gaugeValue(t, opts.registry, "stickyhost_exports_live"))

	_, err = ref.Release()
	require.NoError(t, err)
	<-ref.Done()
	assert.Zero(t, gaugeValue(t, opts.registry, "stickyhost_exports_live"))

	require.NoError(t, opts.teardown())
}
