package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorge-rr00/newbackend/internal/presentation/graph"
	"github.com/jorge-rr00/newbackend/internal/workflow"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the turn workflow as a Mermaid diagram",
	Long:  `Outputs a Mermaid diagram (graph TD) of the stage transition table. --route highlights the stages a turn on that path visits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		route, _ := cmd.Flags().GetString("route")

		var overlay *graph.Overlay
		if route != "" {
			path := workflow.Path(domain.Route(route))
			if len(path) == 0 {
				return fmt.Errorf("unknown route %q (use direct, specialist or declared)", route)
			}
			overlay = &graph.Overlay{Visited: path, Current: path[len(path)-1]}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(workflow.Transitions(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("route", "", "Highlight the path of a route: direct, specialist or declared")
}
