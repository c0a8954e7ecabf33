package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/peakdefi/fund-deployer/configs"
	"github.com/peakdefi/fund-deployer/internal/chain"
	"github.com/peakdefi/fund-deployer/internal/devnet"
	"github.com/peakdefi/fund-deployer/internal/infra/docker"
)

var devnetCmd = &cobra.Command{
	Use:   "devnet",
	Short: "Manage the local dev chain container",
}

var devnetUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start a fresh dev chain and wait for its RPC",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := docker.New()
		if err != nil {
			return fmt.Errorf("could not create docker client: %w", err)
		}
		defer client.Close()

		endpoint, err := devnet.New(configs.Values.Devnet, client, chain.WaitForRPC).Up(cmd.Context())
		if err != nil {
			return err
		}

		slog.With("rpc_url", endpoint.RPCURL, "chain_id", endpoint.ChainID, "operator", endpoint.Operator.Hex()).
			Info("dev chain ready")
		fmt.Fprintf(cmd.OutOrStdout(), "Dev chain at %s (chain %d, operator %s)\n", endpoint.RPCURL, endpoint.ChainID, endpoint.Operator.Hex())

		return nil
	},
}

var devnetDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Remove the dev chain container",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := docker.New()
		if err != nil {
			return fmt.Errorf("could not create docker client: %w", err)
		}
		defer client.Close()

		return devnet.New(configs.Values.Devnet, client, chain.WaitForRPC).Down(cmd.Context())
	},
}

func init() {
	devnetCmd.AddCommand(devnetUpCmd)
	devnetCmd.AddCommand(devnetDownCmd)
}
