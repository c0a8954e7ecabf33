package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"

	"github.com/peakdefi/fund-deployer/internal/chain"
	"github.com/peakdefi/fund-deployer/internal/infra/filesystem"
	"github.com/peakdefi/fund-deployer/internal/logger"
	"github.com/peakdefi/fund-deployer/internal/orchestrator"
)

type (
	abiSource interface {
		Get(name string) (*chain.Artifact, error)
	}

	// Run identifies one invocation in its report.
	Run struct {
		ID        string
		StartedAt time.Time
	}

	// Files lists what Generate wrote.
	Files struct {
		Report    string
		Addresses string
	}

	Generator struct {
		dir    string
		writer filesystem.Writer
		clock  clockwork.Clock
		abis   abiSource
		logger *slog.Logger
	}
)

// NewGenerator writes reports under dir. abis is optional; when set, each
// contract in the report carries its compacted ABI.
func NewGenerator(dir string, writer filesystem.Writer, clock clockwork.Clock, abis abiSource) *Generator {
	return &Generator{
		dir:    dir,
		writer: writer,
		clock:  clock,
		abis:   abis,
		logger: logger.Named("output"),
	}
}

// Begin stamps a new run with an id and its start time.
func (g *Generator) Begin() Run {
	return Run{ID: uuid.NewString(), StartedAt: g.clock.Now().UTC()}
}

// Generate writes <dir>/<network>-<scenario>.yaml with the full report and
// <dir>/<network>-<scenario>.addresses.json with the name to address map.
// A failed run is reported with what it committed before failing.
func (g *Generator) Generate(run Run, network string, result orchestrator.Result, runErr error) (Files, error) {
	report := g.build(run, network, result, runErr)

	base := filepath.Join(g.dir, fmt.Sprintf("%s-%s", network, report.Scenario))
	files := Files{Report: base + ".yaml", Addresses: base + ".addresses.json"}

	data, err := yaml.Marshal(report)
	if err != nil {
		return Files{}, fmt.Errorf("could not marshal report. Err: '%w'", err)
	}
	if err := g.writer.WriteBytes(files.Report, data); err != nil {
		return Files{}, fmt.Errorf("could not write report: %w", err)
	}

	addresses := make(map[string]string, len(report.Contracts))
	for _, contract := range report.Contracts {
		addresses[contract.Name] = string(contract.Address)
	}
	if err := g.writer.WriteJSON(files.Addresses, addresses); err != nil {
		return Files{}, fmt.Errorf("could not write address book: %w", err)
	}

	g.logger.With("report", files.Report, "addresses", files.Addresses, "status", report.Status).Info("report written")

	return files, nil
}

func (g *Generator) build(run Run, network string, result orchestrator.Result, runErr error) Report {
	report := Report{
		RunID:      run.ID,
		Network:    network,
		Scenario:   string(result.Scenario.Kind),
		Status:     StatusSucceeded,
		StartedAt:  run.StartedAt,
		FinishedAt: g.clock.Now().UTC(),
		Contracts:  []Contract{},
	}
	if runErr != nil {
		report.Status = StatusFailed
		report.Error = SingleQuotedString(runErr.Error())
	}

	if result.Registry != nil {
		for _, entry := range result.Registry.Entries() {
			report.Contracts = append(report.Contracts, Contract{
				Name:     entry.Name,
				Address:  SingleQuotedString(entry.Address.Hex()),
				Artifact: entry.Artifact,
				ABI:      g.abi(entry.Artifact),
			})
		}
	}

	if env := result.Environment; env != nil {
		report.Environment = &Environment{}
		for i, token := range env.Tokens {
			t := Token{
				Address: SingleQuotedString(token.Hex()),
				Market:  SingleQuotedString(env.Markets[token].Hex()),
			}
			if i < len(env.Symbols) {
				t.Symbol = env.Symbols[i]
			}
			if i < len(env.Prices) && env.Prices[i] != nil {
				t.Price = env.Prices[i].String()
			}
			report.Environment.Tokens = append(report.Environment.Tokens, t)
		}
	}

	if f := result.Fund; f != nil {
		report.Fund = &FundState{
			Name:            f.Name,
			Address:         SingleQuotedString(f.Address.Hex()),
			PhasesCompleted: f.PhasesCompleted(),
			CurrentPhase:    f.CurrentPhase(),
			Operational:     f.Operational(),
		}
		if f.PhasesCompleted() == 0 {
			report.Fund.CurrentPhase = -1
		}
	}

	for _, step := range result.Pending {
		ms := ManualStep{Target: step.Target, Method: step.Method, Args: step.Args, Note: step.Note}
		if step.Address != (common.Address{}) {
			ms.Address = SingleQuotedString(step.Address.Hex())
		}
		report.ManualSteps = append(report.ManualSteps, ms)
	}

	return report
}

func (g *Generator) abi(artifact string) SingleQuotedString {
	if g.abis == nil || artifact == "" {
		return ""
	}
	loaded, err := g.abis.Get(artifact)
	if err != nil {
		g.logger.With("artifact", artifact, "err", err).Debug("abi left out of report")
		return ""
	}
	return SingleQuotedString(compactJSON(loaded.RawABI))
}

func compactJSON(jsonStr string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(jsonStr)); err != nil {
		return jsonStr
	}
	return buf.String()
}
