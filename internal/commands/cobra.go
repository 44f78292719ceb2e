package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"qiandao/internal/automation"
)

// RunOnceCmd signs in once, now.
var RunOnceCmd = &cobra.Command{
	Use:   "run",
	Short: "Sign in once, now",
	Long:  "Run the sign-in workflow immediately and stream its progress. Exits with status 1 if the sign-in fails.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		RunOnce()
	},
}

// DaemonCmd runs the daily scheduler in the foreground.
var DaemonCmd = &cobra.Command{
	Use:     "daemon",
	Aliases: []string{"serve"},
	Short:   "Run the daily scheduler and HTTP API",
	Long:    "Sign in every day at the configured time. Also serves the HTTP API and live event feed unless --no-http is given.",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		noHTTP, _ := cmd.Flags().GetBool("no-http")
		RunDaemon(addr, noHTTP)
	},
}

func init() {
	DaemonCmd.Flags().String("addr", "", "HTTP listen address (overrides http.addr)")
	DaemonCmd.Flags().Bool("no-http", false, "Do not start the HTTP API")
}

// ScheduleCmd is the parent of the schedule commands.
var ScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show or change the daily sign-in time",
}

// ScheduleSetCmd persists a new daily time.
var ScheduleSetCmd = &cobra.Command{
	Use:     "set <hour> <minute> | set <HH:MM>",
	Short:   "Set the daily sign-in time",
	Example: "  qiandao schedule set 8 30\n  qiandao schedule set 08:30",
	Args:    cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		RunScheduleSet(args)
	},
}

// ScheduleShowCmd prints the daily time and the next firing.
var ScheduleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the daily sign-in time",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		RunScheduleShow()
	},
}

// ConfigCmd is the parent of the config commands.
var ConfigCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"c"},
	Short:   "Manage configuration",
	Long:    "Show the configuration or calibrate positions and colours",
}

// ConfigShowCmd prints the effective configuration.
var ConfigShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		RunConfigShow()
	},
}

// ConfigPathCmd prints the config file location.
var ConfigPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		RunConfigPath()
	},
}

// ConfigSetPositionCmd records a calibrated coordinate.
var ConfigSetPositionCmd = &cobra.Command{
	Use:               "set-position <name> <x> <y>",
	Short:             "Set the screen coordinate of a named position",
	Example:           "  qiandao config set-position sign_btn 1740 302",
	Args:              cobra.ExactArgs(3),
	ValidArgsFunction: completePositionNames,
	Run: func(cmd *cobra.Command, args []string) {
		RunConfigSetPosition(args[0], args[1], args[2])
	},
}

// ConfigSetColorCmd records a wait or verify colour.
var ConfigSetColorCmd = &cobra.Command{
	Use:     "set-color <wait|verify> <name> <#rrggbb|none>",
	Short:   "Set or clear the colour a position is expected to show",
	Example: "  qiandao config set-color wait game_link '#1e90ff'\n  qiandao config set-color verify sign_tag none",
	Args:    cobra.ExactArgs(3),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		switch len(args) {
		case 0:
			return []string{"wait", "verify"}, cobra.ShellCompDirectiveNoFileComp
		case 1:
			return positionNames(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	Run: func(cmd *cobra.Command, args []string) {
		RunConfigSetColor(args[0], args[1], args[2])
	},
}

// HistoryCmd lists past runs.
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past sign-ins",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		RunHistory(limit)
	},
}

func init() {
	HistoryCmd.Flags().IntP("limit", "n", 20, "Number of runs to show (0 for all)")
}

// ProbeCmd reports the pointer position and the colour under it.
var ProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Print the pointer location and pixel colour",
	Long:  "Print where the pointer is and the colour under it, to calibrate positions and colours. With --watch, keep printing as the pointer moves.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		watch, _ := cmd.Flags().GetBool("watch")
		interval, _ := cmd.Flags().GetDuration("interval")
		RunProbe(watch, interval)
	},
}

func init() {
	ProbeCmd.Flags().BoolP("watch", "w", false, "Keep printing until interrupted")
	ProbeCmd.Flags().Duration("interval", 200*time.Millisecond, "Polling interval with --watch")
}

// DoctorCmd represents the doctor command
var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run system diagnostics",
	Long:  "Check the configuration, the screen against the coordinate map, the screenshot directory and notifiers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		RunDoctor()
	},
}

// MCPCmd serves the sign-in tools over stdio.
var MCPCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server mode",
	Long:  "Expose sign_in_now, sign_in_status and sign_in_history as MCP tools over stdio",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		RunMCP()
	},
}

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show qiandao version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		RunVersion()
	},
}

// CompletionCmd generates shell completion scripts
var CompletionCmd = &cobra.Command{
	Use:    "completion [bash|zsh|fish|powershell]",
	Short:  "Generate shell completion script",
	Hidden: true,
	Long: `Generate shell completion script for the specified shell.

Usage examples:
  # Bash
  source <(qiandao completion bash)

  # Zsh
  source <(qiandao completion zsh)

  # Fish
  qiandao completion fish | source`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return fmt.Errorf("unsupported shell: %s", args[0])
	},
}

func init() {
	ScheduleCmd.AddCommand(ScheduleSetCmd, ScheduleShowCmd)
	ConfigCmd.AddCommand(ConfigShowCmd, ConfigPathCmd, ConfigSetPositionCmd, ConfigSetColorCmd)
}

func completePositionNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return positionNames(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func positionNames() []string {
	var out []string
	for _, n := range automation.DefaultPositions().Names() {
		out = append(out, string(n))
	}
	return out
}
