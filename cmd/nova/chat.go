package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jorge-rr00/newbackend"
	"github.com/jorge-rr00/newbackend/internal/cli"
	"github.com/jorge-rr00/newbackend/internal/presentation/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to Nova in the terminal",
	Long:  `Starts an interactive conversation. Type /ayuda for the available commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		plain, _ := cmd.Flags().GetBool("plain")

		svc, err := openStorage(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		nova, err := svc.NewAssistant()
		if err != nil {
			return err
		}

		render := tui.Plain
		fd := int(os.Stdout.Fd())
		if !plain && term.IsTerminal(fd) {
			width := 80
			if w, _, err := term.GetSize(fd); err == nil && w > 0 {
				width = w
			}
			render = tui.NewRenderer(width)
			tui.PrintBanner(os.Stdout, newbackend.Version)
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.RunChat(ctx, nova, cli.ChatOptions{
			SessionID: sessionID,
			In:        os.Stdin,
			Out:       os.Stdout,
			Render:    render,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Resume an existing session")
	chatCmd.Flags().Bool("plain", false, "Disable markdown rendering and the banner")
}
