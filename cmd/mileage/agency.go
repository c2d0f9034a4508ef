package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/mileage/internal/core/domain"
	"github.com/samirrijal/mileage/internal/pkg/config"
	"github.com/samirrijal/mileage/internal/workflows"
)

var agencyOpts struct {
	Unit    string
	Regions []string
	Wait    bool
}

var agencyCmd = &cobra.Command{
	Use:     "agency SLUG",
	Short:   "Recompute the mileage of every route of an agency on the worker",
	Example: "  mileage agency bizkaibus --unit km --wait",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := domain.ParseUnit(agencyOpts.Unit)
		if err != nil {
			return err
		}
		cfg, err := config.Load("mileage-cli")
		if err != nil {
			return err
		}

		c, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			return fmt.Errorf("temporal client: %w", err)
		}
		defer c.Close()

		run, err := c.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
			ID:        "agency-mileage-" + args[0],
			TaskQueue: cfg.Temporal.TaskQueue,
		}, workflows.AgencyMileageWorkflow, workflows.AgencyMileageInput{
			AgencySlug: args[0],
			Regions:    trimAll(agencyOpts.Regions),
			Unit:       unit,
		})
		if err != nil {
			return fmt.Errorf("start workflow: %w", err)
		}
		slog.Info("workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

		if !agencyOpts.Wait {
			fmt.Fprintln(cmd.OutOrStdout(), run.GetID())
			return nil
		}

		var summary workflows.AgencyMileageSummary
		if err := run.Get(cmd.Context(), &summary); err != nil {
			return fmt.Errorf("workflow: %w", err)
		}
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func init() {

	agencyCmd.Flags().StringVarP(&agencyOpts.Unit, "unit", "u", string(domain.UnitKilometers), "Length unit: m, km, mi or nmi")
	agencyCmd.Flags().StringSliceVar(&agencyOpts.Regions, "regions", nil, "Regions to measure (default all)")
	agencyCmd.Flags().BoolVar(&agencyOpts.Wait, "wait", false, "Wait for the workflow and print its summary")

}
