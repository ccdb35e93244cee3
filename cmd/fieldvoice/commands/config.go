package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldvoice/fieldvoice/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration contexts",
}

var configAddFlags struct {
	userID      string
	diaryURL    string
	diaryAPIKey string
	tokenURL    string
	tokenAPIKey string
	realtimeURL string
	transport   string
	sampleRate  int
}

var configAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or replace a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		ctx := &cli.Context{
			UserID:      configAddFlags.userID,
			DiaryURL:    configAddFlags.diaryURL,
			DiaryAPIKey: configAddFlags.diaryAPIKey,
			TokenURL:    configAddFlags.tokenURL,
			TokenAPIKey: configAddFlags.tokenAPIKey,
			RealtimeURL: configAddFlags.realtimeURL,
			Transport:   configAddFlags.transport,
			SampleRate:  configAddFlags.sampleRate,
		}
		if err := cfg.AddContext(args[0], ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q saved", args[0])
		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		for _, name := range cfg.ListContexts() {
			marker := "  "
			if name == cfg.CurrentContext {
				marker = "* "
			}
			fmt.Println(marker + name)
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a context with secrets masked",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		ctx, err := cfg.ResolveContext(name)
		if err != nil {
			return err
		}
		masked := *ctx
		masked.DiaryAPIKey = cli.MaskSecret(ctx.DiaryAPIKey)
		masked.TokenAPIKey = cli.MaskSecret(ctx.TokenAPIKey)
		return output(&masked)
	},
}

var configDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

func init() {
	f := configAddCmd.Flags()
	f.StringVar(&configAddFlags.userID, "user-id", "", "user identifier for diary scoping")
	f.StringVar(&configAddFlags.diaryURL, "diary-url", "", "diary service base URL")
	f.StringVar(&configAddFlags.diaryAPIKey, "diary-api-key", "", "diary service API key")
	f.StringVar(&configAddFlags.tokenURL, "token-url", "", "ephemeral credential issuing endpoint")
	f.StringVar(&configAddFlags.tokenAPIKey, "token-api-key", "", "credential endpoint API key")
	f.StringVar(&configAddFlags.realtimeURL, "realtime-url", "", "speech peer negotiation endpoint")
	f.StringVar(&configAddFlags.transport, "transport", "webrtc", "realtime transport: webrtc or websocket")
	f.IntVar(&configAddFlags.sampleRate, "sample-rate", 24000, "capture sample rate in Hz")

	configCmd.AddCommand(configAddCmd, configUseCmd, configListCmd, configShowCmd, configDeleteCmd)
	rootCmd.AddCommand(configCmd)
}
