package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/playengine/playengine/autoload"
	"github.com/playengine/playengine/color"
	"github.com/playengine/playengine/engine"
	"github.com/playengine/playengine/history"
	"github.com/playengine/playengine/icon"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/stream"
	"github.com/playengine/playengine/style"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// probeReport is what a load of a locator would attach, without starting the backend.
type probeReport struct {
	Locator string      `json:"locator" jsonschema:"description=Locator as the backend receives it"`
	Key     string      `json:"key" jsonschema:"description=Identity used for history"`
	Types   []probeType `json:"types"`
}

type probeType struct {
	Type       string           `json:"type" jsonschema:"enum=audio,enum=video,enum=subtitle"`
	Enabled    bool             `json:"enabled"`
	Mode       string           `json:"mode,omitempty"`
	Candidates []probeCandidate `json:"candidates"`
	Selected   string           `json:"selected,omitempty" jsonschema:"description=Path of the file selected by default"`
}

type probeCandidate struct {
	Path     string `json:"path"`
	Tier     string `json:"tier" jsonschema:"enum=exact,enum=prefix,enum=contain,enum=fuzzy,enum=other"`
	Lang     string `json:"lang,omitempty"`
	Distance int    `json:"distance"`
	Encoding string `json:"encoding,omitempty"`
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON object")
	probeCmd.Flags().BoolP("history", "s", true, "Take remembered selections into account")

	probeCmd.SetOut(os.Stdout)
}

// probeCmd dry-runs sibling discovery and selection for a local file.
var probeCmd = &cobra.Command{
	Use:   "probe [file]",
	Short: "Show which sibling audio and subtitle files a load would attach",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loc, err := mrl.Parse(args[0])
		handleErr(err)

		report, err := probe(loc, lo.Must(cmd.Flags().GetBool("history")))
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(report))
			return
		}

		printProbe(cmd, report)
	},
}

func probe(loc mrl.Locator, useHistory bool) (probeReport, error) {
	opts, err := engine.OptionsFromConfig()
	if err != nil {
		return probeReport{}, err
	}

	var remembered autoload.Remembered
	if useHistory {
		remembered = func(t stream.Type) mo.Option[string] {
			return history.LastSelection(loc, t)
		}
	}

	var reported [stream.Count][]stream.Track
	plan := autoload.Plan(opts.Loaders, loc, reported, remembered)

	report := probeReport{Locator: loc.String(), Key: loc.Key()}
	for _, t := range stream.Types() {
		entry := probeType{
			Type: t.String(),
			Candidates: lo.Map(plan.Files[t], func(c autoload.Candidate, _ int) probeCandidate {
				return probeCandidate{
					Path:     c.Path,
					Tier:     c.Tier.String(),
					Lang:     c.Lang,
					Distance: c.Distance,
					Encoding: c.Encoding,
				}
			}),
		}
		if loader := opts.Loaders[t]; loader != nil {
			entry.Enabled = loader.Options().Enabled
			entry.Mode = loader.Options().Mode.String()
		}
		if selected, ok := plan.Selected(t).Get(); ok {
			entry.Selected = selected.Path
		}
		report.Types = append(report.Types, entry)
	}

	return report, nil
}

func printProbe(cmd *cobra.Command, report probeReport) {
	headerStyle := style.New().Bold(true).Foreground(color.HiPurple).Render

	cmd.Println(style.Bold(report.Locator))
	for _, entry := range report.Types {
		if !entry.Enabled && len(entry.Candidates) == 0 {
			continue
		}

		cmd.Println()
		cmd.Printf("%s %s\n", headerStyle(entry.Type), style.Faint(entry.Mode))
		if len(entry.Candidates) == 0 {
			cmd.Println(style.Faint("  no candidates"))
			continue
		}

		for _, c := range entry.Candidates {
			marker := " "
			if c.Path == entry.Selected {
				marker = icon.Get(icon.Success)
			}
			line := fmt.Sprintf("%s %s %s", marker, c.Path, style.Fg(color.Yellow)(c.Tier))
			if c.Lang != "" {
				line += " " + style.Fg(color.Green)(c.Lang)
			}
			if c.Encoding != "" {
				line += " " + style.Faint(c.Encoding)
			}
			cmd.Println(line)
		}
	}
}

func init() {
	probeCmd.AddCommand(probeSchemaCmd)
}

// probeSchemaCmd prints the JSON schema of probe --json.
var probeSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate the JSON schema of the probe output",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			return t.Name()
		}

		handleErr(json.NewEncoder(os.Stdout).Encode(reflector.Reflect(&probeReport{})))
	},
}
