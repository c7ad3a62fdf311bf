package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jorge-rr00/newbackend/pkg/domain"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored sessions",
	Long:  `List, inspect, and remove sessions in the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored sessions, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openStorage(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		sessions, err := svc.Store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		for _, s := range sessions {
			class := string(s.Classification)
			if class == "" {
				class = "-"
			}
			fmt.Fprintf(out, "%s\t%s\t%d turns\t%s\n", s.ID, class, s.TurnCount, s.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print a session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withDocs, _ := cmd.Flags().GetBool("documents")
		svc, err := openStorage(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		s, err := svc.Store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("loading session '%s': %w", args[0], err)
		}
		if !withDocs {
			redactDocuments(s)
		}
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm [session-id...]",
	Short: "Remove one or more sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return fmt.Errorf("pass at least one session id or --all")
		}
		svc, err := openStorage(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx := cmd.Context()
		if all {
			list, err := svc.Store.List(ctx)
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
			args = args[:0]
			for _, s := range list {
				args = append(args, s.ID)
			}
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, id := range args {
			if err := svc.Store.Delete(ctx, id); err != nil {
				fmt.Fprintf(out, "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(out, "Removed session '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d sessions could not be removed", failed)
		}
		return nil
	},
}

// redactDocuments blanks extracted document text, keeping the metadata.
func redactDocuments(s *domain.Session) {
	for i := range s.Turns {
		for j := range s.Turns[i].Documents {
			d := &s.Turns[i].Documents[j]
			d.Text = fmt.Sprintf("[%d chars]", len([]rune(d.Text)))
		}
	}
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionInspectCmd.Flags().Bool("documents", false, "Include extracted document text")
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored session")
}
