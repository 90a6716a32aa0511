package chain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// Artifact is a compiled contract: its ABI and creation bytecode.
type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

// artifactJSON accepts both the Hardhat layout ("bytecode": "0x...") and the
// Foundry layout ("bytecode": {"object": "0x..."}).
type artifactJSON struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

// ParseArtifact decodes an artifact file body.
func ParseArtifact(name string, data []byte) (*Artifact, error) {
	var raw artifactJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("chain: artifact %s: %w", name, err)
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("%w: artifact %s has no abi", domain.ErrConfiguration, name)
	}
	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("chain: artifact %s abi: %w", name, err)
	}

	code, err := decodeBytecode(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("%w: artifact %s: %v", domain.ErrConfiguration, name, err)
	}

	if raw.ContractName != "" {
		name = raw.ContractName
	}
	return &Artifact{Name: name, ABI: parsed, Bytecode: code}, nil
}

func decodeBytecode(raw json.RawMessage) ([]byte, error) {
	var hexCode string
	if err := json.Unmarshal(raw, &hexCode); err != nil {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, errors.New("bytecode is neither a string nor an object")
		}
		hexCode = obj.Object
	}
	if strings.Contains(hexCode, "__") {
		return nil, errors.New("bytecode has unlinked library placeholders")
	}
	code := common.FromHex(hexCode)
	if len(code) == 0 {
		return nil, errors.New("bytecode is empty (abstract contract or interface?)")
	}
	return code, nil
}

// LoadArtifact reads <dir>/<name>.json, falling back to the first
// <name>.json found below dir (Hardhat nests artifacts as
// contracts/<File>.sol/<Name>.json).
func LoadArtifact(dir, name string) (*Artifact, error) {
	path := filepath.Join(dir, name+".json")
	if _, err := os.Stat(path); err != nil {
		path, err = findArtifact(dir, name)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chain: read artifact %s: %w", path, err)
	}
	return ParseArtifact(name, data)
}

func findArtifact(dir, name string) (string, error) {
	var found string
	target := name + ".json"
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "build-info" {
			return filepath.SkipDir
		}
		if !d.IsDir() && d.Name() == target {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chain: search artifacts in %s: %w", dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: artifact %s not found under %s", domain.ErrNotFound, name, dir)
	}
	return found, nil
}
