// Package cmd implements the command-line interface for playengine.
package cmd

import (
	"fmt"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/playengine/playengine/autoload"
	"github.com/playengine/playengine/color"
	"github.com/playengine/playengine/constant"
	"github.com/playengine/playengine/icon"
	"github.com/playengine/playengine/key"
	"github.com/playengine/playengine/log"
	"github.com/playengine/playengine/style"
	"github.com/playengine/playengine/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, square)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.Flags().BoolP("resume", "r", true, "Resume from the position remembered for this media")
	lo.Must0(viper.BindPFlag(key.HistoryResume, rootCmd.Flags().Lookup("resume")))

	rootCmd.Flags().Bool("remember-tracks", true, "Restore the track selections remembered for this media")
	lo.Must0(viper.BindPFlag(key.HistoryRememberTracks, rootCmd.Flags().Lookup("remember-tracks")))

	rootCmd.Flags().String("sub-autoload", "", "Which sibling subtitle files to load (exact, prefix, contain, fuzzy, all)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("sub-autoload", completionModes))
	lo.Must0(viper.BindPFlag(key.AutoloadSubtitleMode, rootCmd.Flags().Lookup("sub-autoload")))

	rootCmd.Flags().String("audio-autoload", "", "Which sibling audio files to load (exact, prefix, contain, fuzzy, all)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("audio-autoload", completionModes))
	lo.Must0(viper.BindPFlag(key.AutoloadAudioMode, rootCmd.Flags().Lookup("audio-autoload")))

	rootCmd.Flags().StringSlice("mpv-arg", nil, "Extra argument passed to mpv, may be repeated")
	lo.Must0(viper.BindPFlag(key.PlayerArgs, rootCmd.Flags().Lookup("mpv-arg")))

	rootCmd.Flags().BoolP("continue", "c", false, "Play the most recently played media")
	rootCmd.Flags().BoolP("exit-on-end", "e", true, "Quit once playback ends")
	rootCmd.Flags().BoolP("headless", "H", false, "Print status lines instead of showing the monitor")
	rootCmd.Flags().Float64("seek-step", 5, "Seconds skipped by a short seek in the monitor")

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify()
	})
}

func completionModes(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return lo.Map([]autoload.Mode{
		autoload.ModeExact,
		autoload.ModePrefix,
		autoload.ModeContain,
		autoload.ModeFuzzy,
		autoload.ModeAll,
	}, func(m autoload.Mode, _ int) string {
		return m.String()
	}), cobra.ShellCompDirectiveNoFileComp
}

// rootCmd plays the given locator.
var rootCmd = &cobra.Command{
	Use:   constant.App + " [file | url | dvd:// | bluray://]",
	Short: "A media playback engine for the terminal",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - A media playback engine for the terminal"),
	Example: "  " + constant.App + " ~/Videos/movie.mkv\n" +
		"  " + constant.App + " --sub-autoload fuzzy ./episode01.mp4\n" +
		"  " + constant.App + " dvd://1",
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		var target string
		switch {
		case len(args) > 0:
			target = args[0]
		case lo.Must(cmd.Flags().GetBool("continue")):
			last, err := lastPlayed()
			handleErr(err)
			target = last
		default:
			handleErr(cmd.Help())
			return
		}

		CheckDependencies()

		handleErr(play(cmd.Context(), target, playOptions{
			ExitOnEnd: lo.Must(cmd.Flags().GetBool("exit-on-end")),
			Headless:  lo.Must(cmd.Flags().GetBool("headless")),
			SeekStep:  lo.Must(cmd.Flags().GetFloat64("seek-step")),
		}))
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
