package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/wo-matcher/internal/gateway"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the connection to the Anthropic API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ping"); err != nil {
			return err
		}
		return runPing(cmd.Context(), newGateway(cfg, nil), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

// pinger is the part of the gateway the ping command uses.
type pinger interface {
	Ping(ctx context.Context) gateway.PingResult
	Status() gateway.Status
}

func runPing(ctx context.Context, p pinger, w io.Writer) error {
	res := p.Ping(ctx)
	report := struct {
		Ping   gateway.PingResult `json:"ping"`
		Status gateway.Status     `json:"status"`
	}{res, p.Status()}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return eris.Wrap(err, "write ping report")
	}
	if !res.OK {
		return eris.Errorf("ping failed: %s", res.Error)
	}
	return nil
}
