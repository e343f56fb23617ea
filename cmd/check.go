package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/playengine/playengine/constant"
	"github.com/playengine/playengine/icon"
	"github.com/playengine/playengine/key"
	"github.com/playengine/playengine/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// dependency is an external program the player runs.
type dependency struct {
	name     string
	key      string
	required bool
	install  map[string]string
}

var dependencies = []dependency{
	{
		name:     "mpv",
		key:      key.PlayerPath,
		required: true,
		install: map[string]string{
			constant.Darwin:  "brew install mpv",
			constant.Linux:   "sudo apt install mpv",
			constant.Windows: "scoop install mpv",
		},
	},
	{
		name: "yt-dlp",
		key:  key.ResolverYtDlpPath,
		install: map[string]string{
			constant.Darwin:  "brew install yt-dlp",
			constant.Linux:   "pipx install yt-dlp",
			constant.Windows: "scoop install yt-dlp",
		},
	},
}

func (d dependency) path() string {
	if p := viper.GetString(d.key); p != "" {
		return p
	}
	return d.name
}

func (d dependency) find() (string, error) {
	return exec.LookPath(d.path())
}

// CheckDependencies exits when a required program is missing.
func CheckDependencies() {
	for _, d := range dependencies {
		if !d.required {
			continue
		}
		if _, err := d.find(); err != nil {
			printMissingDependencyError(d)
			os.Exit(1)
		}
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.SetOut(os.Stdout)
}

// checkCmd reports which external programs were found.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether the external programs the player runs are installed",
	Run: func(cmd *cobra.Command, args []string) {
		missing := lo.Filter(dependencies, func(d dependency, _ int) bool {
			found, err := d.find()
			switch {
			case err == nil:
				cmd.Printf("%s %s %s\n", icon.Get(icon.Success), style.Bold(d.name), style.Faint(found))
			case d.required:
				cmd.Printf("%s %s not found\n", icon.Get(icon.Fail), style.Bold(d.name))
			default:
				cmd.Printf("%s %s not found %s\n", icon.Get(icon.Question), style.Bold(d.name), style.Faint("(optional)"))
			}
			return err != nil && d.required
		})

		for _, d := range missing {
			printMissingDependencyError(d)
		}
		if len(missing) > 0 {
			os.Exit(1)
		}
	},
}

func printMissingDependencyError(d dependency) {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.HiRed).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("The required program '%s' was not found in your PATH.", d.path()))

	suggestion := ""
	if installCmd, ok := d.install[runtime.GOOS]; ok {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(installCmd))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
