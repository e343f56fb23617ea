package cmd

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/playengine/playengine/color"
	"github.com/playengine/playengine/constant"
	"github.com/playengine/playengine/filesystem"
	"github.com/playengine/playengine/icon"
	"github.com/playengine/playengine/internal/script"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/resolve"
	"github.com/playengine/playengine/style"
	"github.com/playengine/playengine/util"
	"github.com/playengine/playengine/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const resolverExtension = ".lua"

func init() {
	rootCmd.AddCommand(resolversCmd)
}

// resolversCmd groups the commands managing Lua resolver scripts.
var resolversCmd = &cobra.Command{
	Use:   "resolvers",
	Short: "Manage the resolvers turning page and stream links into playable media",
}

func init() {
	resolversCmd.AddCommand(resolversListCmd)

	resolversListCmd.Flags().BoolP("raw", "r", false, "Print only script names")
	resolversListCmd.SetOut(os.Stdout)
}

// resolversListCmd shows the resolver chain and the Lua scripts it would run.
var resolversListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Display the resolver chain and the installed Lua scripts",
	Run: func(cmd *cobra.Command, args []string) {
		raw := lo.Must(cmd.Flags().GetBool("raw"))
		headerStyle := style.New().Foreground(color.HiBlue).Bold(true).Render

		chain := resolve.FromConfig()
		defer chain.Close()

		if !raw {
			cmd.Println(headerStyle("Chain:"))
			for _, r := range chain.Resolvers() {
				cmd.Println(r.Name())
			}
			cmd.Println()
			cmd.Println(headerStyle("Scripts:"))
		}

		lua := resolve.NewLua(where.Resolvers())
		defer lua.Close()

		for _, s := range lua.Scripts() {
			if raw {
				cmd.Println(s.Meta.Name)
				continue
			}
			line := fmt.Sprintf("%s %s", icon.Get(icon.Lua), style.Bold(s.Meta.Name))
			if s.Meta.Pattern != "" {
				line += " " + style.Fg(color.Yellow)(s.Meta.Pattern)
			}
			if s.Meta.Author != "" {
				line += " " + style.Faint("by "+s.Meta.Author)
			}
			cmd.Println(line)
		}

		for _, err := range lua.Errors() {
			cmd.PrintErrf("%s %v\n", icon.Get(icon.Fail), err)
		}
	},
}

func init() {
	resolversCmd.AddCommand(resolversNewCmd)

	resolversNewCmd.Flags().StringP("name", "n", "", "The display name of the new resolver")
	resolversNewCmd.Flags().StringP("pattern", "p", "", "Substring of the links the resolver handles")

	lo.Must0(resolversNewCmd.MarkFlagRequired("name"))
	lo.Must0(resolversNewCmd.MarkFlagRequired("pattern"))
}

// resolversNewCmd scaffolds a resolver script.
var resolversNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Scaffold a new Lua resolver script",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SetOut(os.Stdout)

		author := "Anonymous"
		if usr, err := user.Current(); err == nil {
			author = usr.Username
		}

		s := struct {
			Name      string
			Pattern   string
			Author    string
			ResolveFn string
		}{
			Name:      lo.Must(cmd.Flags().GetString("name")),
			Pattern:   lo.Must(cmd.Flags().GetString("pattern")),
			Author:    author,
			ResolveFn: constant.ResolveFn,
		}

		funcMap := template.FuncMap{
			"repeat": strings.Repeat,
			"plus":   func(a, b int) int { return a + b },
			"max":    func(first int, rest ...int) int { return lo.Max(append(rest, first)) },
		}

		tmpl, err := template.New("resolver").Funcs(funcMap).Parse(constant.ResolverTemplate)
		handleErr(err)

		target := filepath.Join(where.Resolvers(), util.SanitizeFilename(s.Name)+resolverExtension)
		f, err := filesystem.API().Create(target)
		handleErr(err)

		defer util.Ignore(f.Close)

		handleErr(tmpl.Execute(f, s))

		cmd.Println(target)
	},
}

func init() {
	resolversCmd.AddCommand(resolversInstallCmd)
}

// resolversInstallCmd downloads a resolver script into the resolvers directory.
var resolversInstallCmd = &cobra.Command{
	Use:     "install [url...]",
	Short:   "Download Lua resolver scripts, updating them when they changed",
	Args:    cobra.MinimumNArgs(1),
	Example: "  " + constant.App + " resolvers install https://example.com/resolvers/site.lua",
	Run: func(cmd *cobra.Command, args []string) {
		for _, remote := range args {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			path, changed, err := script.Install(ctx, remote, where.Resolvers())
			cancel()
			handleErr(err)

			if changed {
				fmt.Printf("%s installed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(path))
			} else {
				fmt.Printf("%s %s is up to date\n", icon.Get(icon.Success), style.Fg(color.Yellow)(path))
			}
		}
	},
}

func init() {
	resolversCmd.AddCommand(resolversRemoveCmd)
	resolversRemoveCmd.ValidArgsFunction = completionResolvers
}

func completionResolvers(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	files, err := filesystem.API().ReadDir(where.Resolvers())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	return lo.FilterMap(files, func(item os.FileInfo, _ int) (string, bool) {
		name := item.Name()
		if !strings.HasSuffix(name, resolverExtension) {
			return "", false
		}
		return util.FileStem(name), true
	}), cobra.ShellCompDirectiveNoFileComp
}

// resolversRemoveCmd deletes installed scripts.
var resolversRemoveCmd = &cobra.Command{
	Use:   "remove [name...]",
	Short: "Permanently delete the named Lua resolver scripts",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range args {
			path := filepath.Join(where.Resolvers(), name+resolverExtension)
			handleErr(filesystem.API().Remove(path))
			fmt.Printf("%s removed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(name))
		}
	},
}

func init() {
	resolversCmd.AddCommand(resolversRunCmd)

	resolversRunCmd.Flags().DurationP("timeout", "t", 30*time.Second, "Give up resolving after this long")
	resolversRunCmd.SetOut(os.Stdout)
}

// resolversRunCmd resolves a locator without playing it, for resolver development.
var resolversRunCmd = &cobra.Command{
	Use:   "run [url]",
	Short: "Resolve a link through the chain and print the playable result",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loc, err := mrl.Parse(args[0])
		handleErr(err)

		chain := resolve.FromConfig()
		defer chain.Close()

		ctx, cancel := context.WithTimeout(context.Background(), lo.Must(cmd.Flags().GetDuration("timeout")))
		defer cancel()

		resolved, err := chain.Resolve(ctx, loc)
		handleErr(err)

		cmd.Println(style.Bold(resolved.String()))
		if title := resolved.Label(); title != "" {
			cmd.Printf("%s %s\n", style.Faint("title"), title)
		}
		headers := resolved.Headers()
		names := lo.Keys(headers)
		sort.Strings(names)
		for _, name := range names {
			cmd.Printf("%s %s: %s\n", style.Faint("header"), name, headers[name])
		}
	},
}
