package engine

import (
	"fmt"

	"github.com/playengine/playengine/autoload"
	"github.com/playengine/playengine/key"
	"github.com/playengine/playengine/mrlstate"
	"github.com/playengine/playengine/stream"
	"github.com/playengine/playengine/where"
	"github.com/spf13/viper"
)

// OptionsFromConfig builds engine options from the loaded configuration.
// Collaborators are left for the caller to fill in.
func OptionsFromConfig() (Options, error) {
	registry := stream.Descriptors().
		WithPriority(stream.Audio, viper.GetStringSlice(key.AudioPriority)).
		WithPriority(stream.Subtitle, viper.GetStringSlice(key.SubtitlePriority))

	var loaders [stream.Count]*autoload.Autoloader

	subMode, err := autoload.ParseMode(viper.GetString(key.AutoloadSubtitleMode))
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", key.AutoloadSubtitleMode, err)
	}
	loaders[stream.Subtitle] = autoload.New(registry.Get(stream.Subtitle), autoload.Options{
		Enabled:    viper.GetBool(key.AutoloadSubtitleEnable),
		Mode:       subMode,
		Select:     viper.GetBool(key.AutoloadSubtitleSelect),
		AllowNone:  true,
		Encoding:   viper.GetString(key.SubtitleEncoding),
		Autodetect: viper.GetBool(key.SubtitleEncodingAutodetect),
	})

	audioMode, err := autoload.ParseMode(viper.GetString(key.AutoloadAudioMode))
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", key.AutoloadAudioMode, err)
	}
	loaders[stream.Audio] = autoload.New(registry.Get(stream.Audio), autoload.Options{
		Enabled: viper.GetBool(key.AutoloadAudioEnable),
		Mode:    audioMode,
		Select:  viper.GetBool(key.AutoloadAudioSelect),
	})

	defaults := mrlstate.New()
	defaults.SetVolume(viper.GetInt(key.AudioVolume))
	defaults.SetAmplifier(viper.GetInt(key.AudioAmplifier))
	if hwdec := viper.GetString(key.PlayerHwdec); hwdec != "" {
		defaults.Video.Hwdec = hwdec
	}

	return Options{
		Registry:        registry,
		Loaders:         loaders,
		Defaults:        defaults,
		RememberTracks:  viper.GetBool(key.HistoryRememberTracks),
		Resume:          viper.GetBool(key.HistoryResume),
		SpeedMinSamples: viper.GetInt(key.TelemetrySpeedMinSamples),
		SpeedWindow:     viper.GetInt(key.TelemetrySpeedWindow),
		SnapshotDir:     where.Snapshots(),
	}, nil
}
