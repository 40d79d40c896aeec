package benchmarks

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/sarchlab/bpsim/timing/predictor"
	"github.com/sarchlab/bpsim/trace"
)

// MaxScriptRecords bounds how many branches a script may emit.
const MaxScriptRecords = 50_000_000

// FromLuaFile runs a Lua workload script and returns its branch stream.
// The benchmark is named after the file.
func FromLuaFile(path string) (Benchmark, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Benchmark{}, fmt.Errorf("failed to read workload script: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return FromLua(name, string(src))
}

// FromLua runs a Lua workload script. The script sees these globals:
//
//	branch(addr, taken [, flags [, insts]])  emit one branch (flags default "C");
//	                                         addr is a number or a hex string
//	seed(n)                                  reseed rand
//	rand(n)                                  integer in [0, n)
//	description                              optional string describing the workload
func FromLua(name, source string) (Benchmark, error) {
	L := lua.NewState()
	defer L.Close()

	rng := rand.New(rand.NewSource(1))
	var records []trace.Record

	L.SetGlobal("branch", L.NewFunction(func(L *lua.LState) int {
		addr, ok := checkAddress(L, 1)
		if !ok {
			return 0
		}
		taken := L.CheckBool(2)
		flags, err := trace.ParseFlags(L.OptString(3, "C"))
		if err != nil {
			L.ArgError(3, err.Error())
			return 0
		}
		insts := L.OptInt64(4, 1)
		if insts <= 0 {
			L.ArgError(4, "instruction count must be positive")
			return 0
		}
		if len(records) >= MaxScriptRecords {
			L.RaiseError("workload exceeds %d branches", MaxScriptRecords)
			return 0
		}

		records = append(records, trace.Record{
			Branch:       predictor.BranchInfo{Address: addr, Flags: flags},
			Taken:        taken,
			Instructions: uint64(insts),
		})
		return 0
	}))

	L.SetGlobal("seed", L.NewFunction(func(L *lua.LState) int {
		rng.Seed(L.CheckInt64(1))
		return 0
	}))

	L.SetGlobal("rand", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n <= 0 {
			L.ArgError(1, "bound must be positive")
			return 0
		}
		L.Push(lua.LNumber(rng.Intn(n)))
		return 1
	}))

	if err := L.DoString(source); err != nil {
		return Benchmark{}, fmt.Errorf("workload script %s failed: %w", name, err)
	}

	bench := Benchmark{
		Name:        name,
		Description: "Lua workload",
		Records:     records,
	}
	if desc, ok := L.GetGlobal("description").(lua.LString); ok {
		bench.Description = string(desc)
	}

	return bench, nil
}

// maxExactAddress is the largest address a Lua number holds exactly.
const maxExactAddress = 1 << 53

// checkAddress reads argument n as a branch address. Numbers must be
// non-negative integers below 2^53; wider addresses are passed as hex
// strings such as "0xffff800000001000".
func checkAddress(L *lua.LState, n int) (uint64, bool) {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		f := float64(v)
		if f < 0 || f >= maxExactAddress || f != math.Trunc(f) {
			L.ArgError(n, "address must be a non-negative integer below 2^53, use a hex string for wider addresses")
			return 0, false
		}
		return uint64(f), true
	case lua.LString:
		s := strings.TrimPrefix(strings.TrimPrefix(string(v), "0x"), "0X")
		addr, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			L.ArgError(n, fmt.Sprintf("invalid hex address %q", string(v)))
			return 0, false
		}
		return addr, true
	default:
		L.ArgError(n, "address must be a number or a hex string")
		return 0, false
	}
}
