package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"qiandao/internal/commands"
	"qiandao/internal/output"
)

var jsonFlag bool

var rootCmd = &cobra.Command{
	Use:   "qiandao",
	Short: "Daily screen-coordinate sign-in bot",
	Long:  "qiandao clicks through a browser game's daily sign-in at a fixed time each day and keeps a screenshot as proof",
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Output in JSON format")

	rootCmd.AddCommand(commands.RunOnceCmd)
	rootCmd.AddCommand(commands.DaemonCmd)
	rootCmd.AddCommand(commands.ScheduleCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.ProbeCmd)
	rootCmd.AddCommand(commands.DoctorCmd)
	rootCmd.AddCommand(commands.MCPCmd)
	rootCmd.AddCommand(commands.VersionCmd)
	rootCmd.AddCommand(commands.CompletionCmd)

	// 没有子命令时: 终端里打开面板, 否则显示帮助
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		if !jsonFlag && term.IsTerminal(int(os.Stdin.Fd())) {
			commands.RunTUI()
			return
		}
		cmd.Help()
	}
}

func main() {
	// .env only fills variables that are not already set.
	_ = godotenv.Load()

	// Propagate --json flag before execution
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		output.JSONMode = jsonFlag
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
