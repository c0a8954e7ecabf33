package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/peakdefi/fund-deployer/configs"
	"github.com/peakdefi/fund-deployer/internal/chain"
	"github.com/peakdefi/fund-deployer/internal/infra/filesystem/json"
	"github.com/peakdefi/fund-deployer/internal/orchestrator"
	"github.com/peakdefi/fund-deployer/internal/output"
	"github.com/peakdefi/fund-deployer/internal/scenario"
)

// overrides are per-run connection settings applied to the selected network.
var overrides struct {
	rpcURL       string
	privateKey   string
	artifactsDir string
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run a deployment scenario against the selected network",
}

func init() {
	descriptions := map[configs.Scenario]string{
		configs.ScenarioFactory: "Deploy the factory suite against existing protocols",
		configs.ScenarioFund:    "Create a fund under an existing factory and bring it to operation",
		configs.ScenarioOracle:  "Deploy the configured price oracle",
		configs.ScenarioFixture: "Build synthetic protocols, the factory suite and an operational fund",
		configs.ScenarioFork:    "Deploy the factory suite and a fund in one run",
	}

	for _, kind := range configs.Scenarios() {
		deployCmd.AddCommand(&cobra.Command{
			Use:   string(kind),
			Short: descriptions[kind],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return deploy(cmd.Context(), kind)
			},
		})
	}
}

func deploy(ctx context.Context, kind configs.Scenario) error {
	cfg := configs.Values
	if err := applyOverrides(&cfg); err != nil {
		return err
	}

	slog.With("scenario", kind, "network", cfg.Network).Info("validating configuration")
	s, err := scenario.Build(kind, &cfg)
	if err != nil {
		return err
	}
	name, network, err := cfg.Selected()
	if err != nil {
		return err
	}

	artifacts := chain.NewArtifacts(network.ArtifactsDir, json.NewReader())
	generator := output.NewGenerator(cfg.Output.Dir, json.NewWriter(), clockwork.NewRealClock(), artifacts)
	run := generator.Begin()

	result, runErr := execute(ctx, network, artifacts, s)

	files, err := generator.Generate(run, name, result, runErr)
	if err != nil {
		slog.With("err", err).Error("failed to write deployment report")
		return errors.Join(runErr, err)
	}
	slog.With("report", files.Report, "addresses", files.Addresses, "run_id", run.ID).Info("deployment report written")

	return runErr
}

func execute(ctx context.Context, network configs.Network, artifacts *chain.Artifacts, s scenario.Scenario) (orchestrator.Result, error) {
	client, err := chain.Dial(ctx, network.RPCURL, network.PrivateKey, network.ChainID, network.GasLimit, artifacts)
	if err != nil {
		return orchestrator.Result{Scenario: s}, fmt.Errorf("could not connect to network: %w", err)
	}
	defer client.Close()

	return orchestrator.NewOrchestrator(client, artifacts, output.NewConsole(os.Stdout)).Run(ctx, s)
}

// applyOverrides copies the selected network so flag overrides never leak
// into configs.Values.
func applyOverrides(cfg *configs.Config) error {
	name, network, err := cfg.Selected()
	if err != nil {
		return err
	}

	if overrides.rpcURL != "" {
		network.RPCURL = overrides.rpcURL
	}
	if overrides.privateKey != "" {
		network.PrivateKey = strings.TrimSpace(overrides.privateKey)
	}
	if overrides.artifactsDir != "" {
		network.ArtifactsDir = overrides.artifactsDir
	}

	networks := make(map[string]configs.Network, len(cfg.Networks))
	for key, value := range cfg.Networks {
		networks[key] = value
	}
	networks[name] = network
	cfg.Networks = networks

	return nil
}
