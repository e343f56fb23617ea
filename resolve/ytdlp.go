package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/playengine/playengine/mrl"
	"github.com/samber/lo"
)

// runner executes a program and returns its standard output.
type runner func(ctx context.Context, path string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, path string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, lastLine(msg))
		}
		return nil, err
	}
	return out, nil
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// YtDlp asks yt-dlp for the media behind a page.
type YtDlp struct {
	Path string
	run  runner
}

func NewYtDlp(path string) *YtDlp {
	return &YtDlp{Path: path, run: execRunner}
}

type ytDlpFormat struct {
	URL         string            `json:"url"`
	VCodec      string            `json:"vcodec"`
	HTTPHeaders map[string]string `json:"http_headers"`
}

type ytDlpInfo struct {
	ytDlpFormat
	Title            string        `json:"title"`
	Type             string        `json:"_type"`
	RequestedFormats []ytDlpFormat `json:"requested_formats"`
}

func (*YtDlp) Name() string { return "yt-dlp" }

func (y *YtDlp) Supports(loc mrl.Locator) bool {
	if !loc.IsStream() || y.Path == "" {
		return false
	}
	_, err := exec.LookPath(y.Path)
	return err == nil
}

func (y *YtDlp) Resolve(ctx context.Context, loc mrl.Locator) (mrl.Locator, error) {
	run := y.run
	if run == nil {
		run = execRunner
	}

	out, err := run(ctx, y.Path, "-J", "--no-playlist", "--no-warnings", "--", loc.String())
	if err != nil {
		return mrl.Locator{}, err
	}
	return parseYtDlp(out, loc)
}

func parseYtDlp(out []byte, loc mrl.Locator) (mrl.Locator, error) {
	var info ytDlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return mrl.Locator{}, fmt.Errorf("decode yt-dlp output: %w", err)
	}
	if info.Type == "playlist" {
		return mrl.Locator{}, errors.New("playlists are not supported")
	}

	format := info.ytDlpFormat
	if format.URL == "" {
		video, ok := lo.Find(info.RequestedFormats, func(f ytDlpFormat) bool {
			return f.URL != "" && f.VCodec != "none"
		})
		if !ok {
			video, ok = lo.Find(info.RequestedFormats, func(f ytDlpFormat) bool { return f.URL != "" })
		}
		if !ok {
			return mrl.Locator{}, errors.New("yt-dlp reported no playable url")
		}
		format = video
	}

	resolved, err := mrl.Parse(format.URL)
	if err != nil {
		return mrl.Locator{}, err
	}

	title := info.Title
	if title == "" {
		title = loc.Label()
	}
	return resolved.WithName(title).WithHeaders(format.HTTPHeaders), nil
}
