package chain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/peakdefi/fund-deployer/internal/deployerr"
	"github.com/peakdefi/fund-deployer/internal/infra/filesystem"
	"github.com/peakdefi/fund-deployer/internal/logger"
)

type (
	// Artifact is a compiled contract: its ABI and creation bytecode.
	Artifact struct {
		Name     string
		ABI      abi.ABI
		RawABI   string
		Bytecode []byte
	}

	// Artifacts loads <dir>/<Name>.json compiler output on first use.
	Artifacts struct {
		dir    string
		reader filesystem.Reader
		loaded map[string]*Artifact
		logger *slog.Logger
	}

	artifactFile struct {
		ContractName string          `json:"contractName"`
		ABI          json.RawMessage `json:"abi"`
		Bytecode     string          `json:"bytecode"`
	}
)

// NewArtifacts reads artifacts from dir through reader.
func NewArtifacts(dir string, reader filesystem.Reader) *Artifacts {
	return &Artifacts{
		dir:    dir,
		reader: reader,
		loaded: make(map[string]*Artifact),
		logger: logger.Named("artifacts"),
	}
}

// Get returns the named artifact. A missing or malformed file is a ConfigurationError.
func (a *Artifacts) Get(name string) (*Artifact, error) {
	if artifact, ok := a.loaded[name]; ok {
		return artifact, nil
	}

	path := filepath.Join(a.dir, name+".json")
	if !a.reader.Exists(path) {
		return nil, deployerr.Newf(deployerr.ErrConfiguration, name, "artifact not found at %s", path)
	}

	var file artifactFile
	if err := a.reader.ReadJSON(path, &file); err != nil {
		return nil, deployerr.New(deployerr.ErrConfiguration, name, err)
	}
	if len(file.ABI) == 0 {
		return nil, deployerr.Newf(deployerr.ErrConfiguration, name, "artifact %s has no abi", path)
	}

	parsed, err := abi.JSON(bytes.NewReader(file.ABI))
	if err != nil {
		return nil, deployerr.New(deployerr.ErrConfiguration, name, fmt.Errorf("failed to parse ABI: %w", err))
	}

	artifact := &Artifact{
		Name:     name,
		ABI:      parsed,
		RawABI:   string(file.ABI),
		Bytecode: common.FromHex(file.Bytecode),
	}
	a.loaded[name] = artifact

	a.logger.With("artifact", name, "path", path).Debug("artifact loaded")

	return artifact, nil
}

// Require loads every named artifact and reports all failures at once.
func (a *Artifacts) Require(names ...string) error {
	var errs []error
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		if _, err := a.Get(name); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("artifact check failed: %w", errors.Join(errs...))
	}
	return nil
}
