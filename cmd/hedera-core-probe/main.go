// Command hedera-core-probe is a small operator tool for manually exercising
// the execution engine: it dials a named preset, dumps the live consensus
// snapshot, and can force one address-book refresh cycle.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hiero-ledger/hiero-sdk-go-core/core"
)

func main() {
	rootCmd := &cobra.Command{Use: "hedera-core-probe"}
	rootCmd.AddCommand(dialCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(refreshCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient(cmd *cobra.Command) (*core.Client, error) {
	network, _ := cmd.Flags().GetString("network")
	log := logrus.NewEntry(logrus.StandardLogger())
	return core.ForNetwork(network, 0, 0, log)
}

func dialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dial",
		Short: "dial a named preset network and report node count",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			fmt.Printf("connected: %d consensus nodes\n", client.Consensus().Len())
			return nil
		},
	}
	cmd.Flags().String("network", "testnet", "preset: mainnet|testnet|previewnet|localhost")
	return cmd
}

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "dump the live consensus snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			now := time.Now()
			snap := client.Consensus()
			for _, id := range snap.Nodes() {
				idx, _ := snap.Indices([]core.NodeId{id})
				i := idx[0]
				fmt.Printf("%s\thealthy=%v\n", id, snap.IsHealthy(i, now))
			}
			return nil
		},
	}
	cmd.Flags().String("network", "testnet", "preset: mainnet|testnet|previewnet|localhost")
	return cmd
}

func refreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "force one address-book refresh cycle against the mirror network",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			plaintextOnly, _ := cmd.Flags().GetBool("plaintext-only")
			if err := core.RefreshOnce(client, plaintextOnly); err != nil {
				return err
			}
			fmt.Printf("refreshed: %d consensus nodes\n", client.Consensus().Len())
			return nil
		},
	}
	cmd.Flags().String("network", "testnet", "preset: mainnet|testnet|previewnet|localhost")
	cmd.Flags().Bool("plaintext-only", false, "keep only plaintext consensus endpoints")
	return cmd
}
