package cmd

import (
	"os"

	"github.com/playengine/playengine/color"
	"github.com/playengine/playengine/style"
	"github.com/playengine/playengine/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// whereTarget is a location printed by the where command. Hidden ones are only
// printed when asked for by flag.
type whereTarget struct {
	name   string
	where  func() string
	flag   string
	short  string
	hidden bool
}

var whereTargets = []whereTarget{
	{"Config", where.Config, "config", "c", false},
	{"Resolvers", where.Resolvers, "resolvers", "r", false},
	{"Logs", where.Logs, "logs", "l", false},
	{"Snapshots", where.Snapshots, "snapshots", "s", false},
	{"History", where.History, "history", "", true},
	{"Cache", where.Cache, "cache", "", true},
	{"Temp", where.Temp, "temp", "", true},
}

func init() {
	rootCmd.AddCommand(whereCmd)

	for _, target := range whereTargets {
		whereCmd.Flags().BoolP(target.flag, target.short, false, target.name+" path")
		if target.hidden {
			lo.Must0(whereCmd.Flags().MarkHidden(target.flag))
		}
	}

	whereCmd.MarkFlagsMutuallyExclusive(lo.Map(whereTargets, func(t whereTarget, _ int) string {
		return t.flag
	})...)

	whereCmd.SetOut(os.Stdout)
}

// whereCmd prints where the player keeps its files.
var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Display the paths where the player keeps its files",
	Run: func(cmd *cobra.Command, args []string) {
		for _, target := range whereTargets {
			if lo.Must(cmd.Flags().GetBool(target.flag)) {
				cmd.Println(target.where())
				return
			}
		}

		headerStyle := style.New().Bold(true).Foreground(color.HiPurple).Render
		visible := lo.Reject(whereTargets, func(t whereTarget, _ int) bool { return t.hidden })

		for i, target := range visible {
			if i > 0 {
				cmd.Println()
			}
			cmd.Printf("%s %s\n", headerStyle(target.name+"?"), style.Fg(color.Yellow)("--"+target.flag))
			cmd.Println(target.where())
		}
	},
}
