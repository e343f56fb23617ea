package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/playengine/playengine/icon"
	"github.com/playengine/playengine/util"
	"github.com/playengine/playengine/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// clearTarget is data the player keeps on disk and can safely lose.
type clearTarget struct {
	name     string
	flag     string
	short    string
	location func() string
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", "c", where.Cache},
	{"history file", "history", "s", where.History},
	{"log files", "logs", "l", where.Logs},
	{"temporary files", "temp", "t", where.Temp},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		clearCmd.Flags().BoolP(target.flag, target.short, false, "clear "+target.name)
	}
	clearCmd.Flags().BoolP("all", "a", false, "clear everything above")
}

// clearCmd deletes cached, temporary and remembered data.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached, temporary and remembered application data",
	Run: func(cmd *cobra.Command, args []string) {
		all := lo.Must(cmd.Flags().GetBool("all"))
		selected := lo.Filter(clearTargets, func(target clearTarget, _ int) bool {
			return all || lo.Must(cmd.Flags().GetBool(target.flag))
		})

		if len(selected) == 0 {
			handleErr(cmd.Help())
			return
		}

		for _, target := range selected {
			erase := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
			err := util.Delete(target.location())
			erase()

			if err != nil && !errors.Is(err, os.ErrNotExist) {
				handleErr(err)
			}
			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
		}
	},
}
