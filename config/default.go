package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/playengine/playengine/color"
	"github.com/playengine/playengine/constant"
	"github.com/playengine/playengine/key"
	"github.com/playengine/playengine/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field is a registered setting.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty renders the field for config info.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env is the variable overriding the field, e.g. PLAYENGINE_PLAYER_PATH.
func (f *Field) Env() string {
	return strings.ToUpper(constant.App + "_" + EnvKeyReplacer.Replace(f.Key))
}

func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Env         string `json:"env"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
		Env:         f.Env(),
	})
}

func (f *Field) typeName() string {
	if f.Value == nil {
		return "unknown"
	}
	return reflect.TypeOf(f.Value).String()
}

// Default maps every key to its field.
var Default = make(map[string]Field)

// EnvExposed lists the keys bound to environment variables, in registration order.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("config: duplicate key " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.PlayerPath, "mpv", "Path to the mpv executable driving playback")
	register(key.PlayerArgs, []string{}, "Extra arguments passed to mpv on start.\nAvoid options that the engine sets itself (volume, tracks)")
	register(key.PlayerHwdec, "auto-safe", "Hardware decoding mode requested from mpv.\nUse \"no\" to disable")
	register(key.PlayerTimeout, 5, "Seconds to wait for the mpv IPC socket to accept connections")
	register(key.AudioVolume, 100, "Initial volume for every load. From 0 to 100")
	register(key.AudioAmplifier, 100, "Initial amplifier in percent. 100 leaves the signal untouched, up to 1000")
	register(key.AudioPriority, []string{}, "Preferred audio languages in order, e.g. [\"ja\", \"en\"]")
	register(key.SubtitlePriority, []string{"en"}, "Preferred subtitle languages in order.\nMatched against track languages and filename hints like movie.en.srt")
	register(key.SubtitleEncoding, "windows-1252", "Encoding assumed for external subtitles that are not valid UTF-8")
	register(key.SubtitleEncodingAutodetect, true, "Detect external subtitle encodings from byte order marks and content")
	register(key.AutoloadSubtitleEnable, true, "Load subtitle files found next to the media file")
	register(key.AutoloadSubtitleMode, "prefix", "Widest filename match accepted when autoloading subtitles.\nAvailable options are: exact, prefix, contain, fuzzy, all")
	register(key.AutoloadSubtitleSelect, true, "Activate the best ranked subtitle when no previous selection is remembered")
	register(key.AutoloadAudioEnable, false, "Load external audio files found next to the media file")
	register(key.AutoloadAudioMode, "exact", "Widest filename match accepted when autoloading audio.\nAvailable options are: exact, prefix, contain, fuzzy, all")
	register(key.AutoloadAudioSelect, false, "Prefer an autoloaded audio file over the embedded tracks")
	register(key.HistoryRememberTracks, true, "Remember track selections per media and restore them on the next load")
	register(key.HistoryResume, true, "Resume playback from the last remembered position")
	register(key.TelemetrySpeedWindow, 20, "Number of recent frames used to estimate the displayed frame rate")
	register(key.TelemetrySpeedMinSamples, 5, "Frames required before a frame rate estimate is reported")
	register(key.ResolverYtDlpPath, "yt-dlp", "Path to the yt-dlp executable used to resolve streaming pages.\nLeave empty to disable")
	register(key.ResolverLua, true, "Run Lua resolver scripts from the resolvers directory")
	register(key.ResolverCacheTTL, 30, "Minutes a resolved stream locator is reused before resolving again")
	register(key.ResolverProbe, true, "Probe HTTP locators to decide whether they are directly playable")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			if value == "" {
				return style.Faint("empty")
			}
			return style.Fg(color.Yellow)(value)
		case []string:
			if len(value) == 0 {
				return style.Faint("none")
			}
			return style.Fg(color.Yellow)(strings.Join(value, ", "))
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ .Value | printf "%T" }}`))
