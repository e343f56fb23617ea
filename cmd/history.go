package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/playengine/playengine/color"
	"github.com/playengine/playengine/history"
	"github.com/playengine/playengine/icon"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/style"
	"github.com/playengine/playengine/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

// historyCmd groups the commands over remembered positions and track selections.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage remembered playback positions and track selections",
}

func init() {
	historyCmd.AddCommand(historyListCmd)

	historyListCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON array")
	historyListCmd.Flags().IntP("limit", "n", 0, "Show at most this many entries")

	historyListCmd.SetOut(os.Stdout)
}

// historyListCmd prints remembered entries, most recent first.
var historyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Display remembered media, most recently played first",
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := history.Sorted()
		handleErr(err)

		if limit := lo.Must(cmd.Flags().GetInt("limit")); limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(entries))
			return
		}

		if len(entries) == 0 {
			cmd.Println(style.Faint("history is empty"))
			return
		}

		for _, e := range entries {
			cmd.Printf(
				"%s %s %s\n",
				style.Bold(e.Title),
				style.Fg(color.Yellow)(fmt.Sprintf("%.0f%%", e.Progress()*100)),
				style.Faint(e.Updated.Local().Format(time.DateTime)),
			)
			cmd.Println("  " + e.Locator)
		}
	},
}

func init() {
	historyCmd.AddCommand(historyRemoveCmd)
}

// historyRemoveCmd forgets individual locators.
var historyRemoveCmd = &cobra.Command{
	Use:     "remove [locator...]",
	Aliases: []string{"rm"},
	Short:   "Forget the remembered state of the given media",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, raw := range args {
			loc, err := mrl.Parse(raw)
			handleErr(err)

			handleErr(history.Remove(loc))
			fmt.Printf("%s forgot %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(loc.Name()))
		}
	},
}

func init() {
	historyCmd.AddCommand(historyClearCmd)

	historyClearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

// historyClearCmd forgets everything.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every remembered position and track selection",
	Run: func(cmd *cobra.Command, args []string) {
		if !lo.Must(cmd.Flags().GetBool("yes")) {
			entries, err := history.Sorted()
			handleErr(err)

			confirm := survey.Confirm{
				Message: fmt.Sprintf("Forget %s?", util.Quantify(len(entries), "entry", "entries")),
				Default: false,
			}
			var response bool
			if err := survey.AskOne(&confirm, &response); err != nil {
				handleErr(err)
			}
			if !response {
				return
			}
		}

		handleErr(history.Clear())
		fmt.Printf("%s history cleared\n", icon.Get(icon.Success))
	},
}

// lastPlayed is the locator of the most recently updated history entry.
func lastPlayed() (string, error) {
	entries, err := history.Sorted()
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("history is empty")
	}
	return entries[0].Locator, nil
}
