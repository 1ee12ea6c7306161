// Package artifact loads compiled contract creation bytecode from build
// output on disk.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/pwollemi/liquidator/deploy"
)

var ErrNotFound = errors.New("artifact not found")

type Artifact struct {
	Name     string
	Path     string
	Bytecode []byte
}

// Load reads <dir>/<name>.json, accepting Truffle and Hardhat artifacts
// (string "bytecode") and Foundry artifacts ("bytecode.object"). When no
// JSON artifact exists <dir>/<name>.bin is read as raw hex.
func Load(dir, name string) (Artifact, error) {
	jsonPath := filepath.Join(dir, name+".json")
	data, err := os.ReadFile(jsonPath)
	switch {
	case err == nil:
		return parseJSON(name, jsonPath, data)
	case !errors.Is(err, os.ErrNotExist):
		return Artifact{}, fmt.Errorf("read %s: %w", jsonPath, err)
	}

	binPath := filepath.Join(dir, name+".bin")
	data, err = os.ReadFile(binPath)
	if errors.Is(err, os.ErrNotExist) {
		return Artifact{}, fmt.Errorf("%w: %s in %s", ErrNotFound, name, dir)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("read %s: %w", binPath, err)
	}
	return decode(name, binPath, string(data))
}

func parseJSON(name, path string, data []byte) (Artifact, error) {
	if !gjson.ValidBytes(data) {
		return Artifact{}, fmt.Errorf("parse %s: invalid json", path)
	}
	if declared := gjson.GetBytes(data, "contractName").String(); declared != "" && declared != name {
		return Artifact{}, fmt.Errorf("parse %s: contractName is %q, want %q", path, declared, name)
	}

	bytecode := gjson.GetBytes(data, "bytecode")
	if bytecode.IsObject() {
		bytecode = bytecode.Get("object")
	}
	if !bytecode.Exists() {
		return Artifact{}, fmt.Errorf("parse %s: no bytecode field", path)
	}
	return decode(name, path, bytecode.String())
}

func decode(name, path, hexStr string) (Artifact, error) {
	hexStr = strings.TrimSpace(hexStr)
	if hexStr == "" || hexStr == "0x" {
		return Artifact{}, fmt.Errorf("%s: %w (abstract contract or interface?)", path, deploy.ErrEmptyBytecode)
	}
	if strings.Contains(hexStr, "__") {
		return Artifact{}, fmt.Errorf("%s: bytecode has unlinked library placeholders", path)
	}
	code, err := deploy.DecodeHex(hexStr)
	if err != nil {
		return Artifact{}, fmt.Errorf("%s: %w", path, err)
	}
	return Artifact{Name: name, Path: path, Bytecode: code}, nil
}

// Store caches artifacts loaded from one build directory.
type Store struct {
	dir   string
	mu    sync.Mutex
	cache map[string]Artifact
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, cache: make(map[string]Artifact)}
}

// Bytecode returns a copy of the named contract's creation bytecode.
func (s *Store) Bytecode(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.cache[name]
	if !ok {
		var err error
		a, err = Load(s.dir, name)
		if err != nil {
			return nil, err
		}
		s.cache[name] = a
	}
	return append([]byte(nil), a.Bytecode...), nil
}
