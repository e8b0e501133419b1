package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/negotiation"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/state"
)

func newNegotiateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "negotiate",
		Short: "Negotiation tools",
	}
	cmd.AddCommand(newNegotiateSimulateCmd())
	return cmd
}

func newNegotiateSimulateCmd() *cobra.Command {
	var (
		rate   float64
		offers []float64
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a sequence of carrier offers against the pricing policy",
		Long:  "Run carrier offers through the negotiation engine for a load listed at --rate\nand print the broker decision for each round. Stops at the first terminal decision.",
		Example: "  carrier-sales negotiate simulate --rate 1000 --offers 1200,1150,1080",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(offers) == 0 {
				return fmt.Errorf("negotiate simulate: --offers is required")
			}
			return simulate(cmd, rate, offers)
		},
	}
	cmd.Flags().Float64Var(&rate, "rate", 1000, "listed loadboard rate")
	cmd.Flags().Float64SliceVar(&offers, "offers", nil, "comma separated carrier offers, one per round")
	return cmd
}

func simulate(cmd *cobra.Command, rate float64, offers []float64) error {
	engine := negotiation.New(state.New())
	load := model.Load{LoadID: "SIM", LoadboardRate: rate}

	policy := negotiation.DerivePolicy(rate)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "target %.2f  band [%.2f, %.2f]  max rounds %d\n\n", policy.Target, policy.Min, policy.Max, policy.MaxRounds)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUND\tOFFER\tDECISION\tCOUNTER\tSTATUS")
	for _, offer := range offers {
		res, err := engine.Step("simulation", load, "", offer)
		if err != nil {
			return fmt.Errorf("negotiate simulate: %w", err)
		}
		counter := "-"
		if res.CounterOffer != nil {
			counter = fmt.Sprintf("%.2f", *res.CounterOffer)
		}
		fmt.Fprintf(tw, "%d\t%.2f\t%s\t%s\t%s\n", res.State.Round, offer, res.Decision, counter, res.State.Status)
		if res.Completed() {
			break
		}
	}
	return tw.Flush()
}
