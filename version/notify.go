package version

import (
	"context"
	"fmt"
	"time"

	"github.com/playengine/playengine/color"
	"github.com/playengine/playengine/constant"
	"github.com/playengine/playengine/icon"
	"github.com/playengine/playengine/key"
	"github.com/playengine/playengine/log"
	"github.com/playengine/playengine/style"
	"github.com/playengine/playengine/util"
	"github.com/spf13/viper"
)

// Newer returns the latest release when it is newer than the running build.
func Newer(ctx context.Context) (string, bool) {
	latest, err := Latest(ctx)
	if err != nil {
		log.With("version").WithError(err).Debug("release lookup failed")
		return "", false
	}

	cmp, err := Compare(latest, constant.Version)
	if err != nil || cmp <= 0 {
		return "", false
	}
	return latest, true
}

// Notify prints an update notice when a newer release exists and checks are enabled.
func Notify() {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	erase := util.PrintErasable(fmt.Sprintf("%s Checking for a new version...", icon.Get(icon.Progress)))
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	latest, ok := Newer(ctx)
	erase()
	if !ok {
		return
	}

	fmt.Printf("\n%s New version is available %s %s\n%s\n\n",
		style.Fg(color.Green)("▇▇▇"),
		style.Bold(latest),
		style.Faint(fmt.Sprintf("(You're on %s)", constant.Version)),
		style.Faint(constant.Repository+"/releases/tag/v"+latest),
	)
}
