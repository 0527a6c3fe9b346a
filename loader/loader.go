package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/nathoo/questlogic/types"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	game        *lua.LTable
	scenes      []rawEntity
	counters    []rawEntity
	gameEnds    []rawEntity
	inventories []rawEntity
	chains      []rawEntity
	music       []rawEntity // every MusicTrack built, scene-owned or not
}

// Option configures Load and Dump.
type Option func(*options)

type options struct {
	log *zap.Logger
	enc encoding.Encoding
}

// WithLogger receives the validation warnings.
func WithLogger(log *zap.Logger) Option { return func(o *options) { o.log = log } }

// WithEncoding sets the byte encoding of script files. Scripts are read
// through its decoder and dumped through its encoder. nil means UTF-8.
func WithEncoding(enc encoding.Encoding) Option { return func(o *options) { o.enc = enc } }

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

// LookupEncoding maps an IANA charset name such as "windows-1251" to its
// encoding. The empty name and UTF-8 return nil.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("script encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("script encoding %q is not supported", name)
	}
	return enc, nil
}

// Load reads all .lua files from dir, compiles them into definitions,
// validates them, and returns the Defs. The Lua VM is discarded after
// loading. Warnings are logged; any error fails the load with a
// *ValidationError.
func Load(dir string, opts ...Option) (*types.Defs, error) {
	o := buildOptions(opts)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading script directory %s: %w", dir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}
	luaFiles = sortedLuaFiles(luaFiles)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		src, err := readScript(filepath.Join(dir, f), o.enc)
		if err != nil {
			return nil, err
		}
		fn, err := L.Load(bytes.NewReader(src), f)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f, err)
		}
		L.Push(fn)
		if err := L.PCall(0, lua.MultRet, nil); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	ve := &ValidationError{}
	defs, err := compile(coll, ve)
	if err != nil {
		return nil, fmt.Errorf("compiling scripts: %w", err)
	}
	validate(defs, ve)

	for _, w := range ve.Warnings {
		o.log.Warn("script warning", zap.String("dir", dir), zap.String("warning", w))
	}
	if len(ve.Errors) > 0 {
		return nil, ve
	}
	o.log.Info("scripts loaded",
		zap.String("title", defs.Game.Title),
		zap.Int("files", len(luaFiles)),
		zap.Int("scenes", len(defs.Scenes)),
		zap.Int("chains", len(defs.Chains)))
	return defs, nil
}

// readScript returns the file content as UTF-8.
func readScript(path string, enc encoding.Encoding) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if enc == nil {
		return data, nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return out, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the VM or break determinism.
func sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	} {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
	}
}

// sortedLuaFiles puts game.lua first, the rest alphabetical.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
