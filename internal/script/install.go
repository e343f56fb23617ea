package script

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/playengine/playengine/filesystem"
	"github.com/playengine/playengine/network"
)

// Install downloads a script into dir, keeping the remote file name.
// It reports whether the local copy changed; an identical file is left alone.
func Install(ctx context.Context, remoteURL, dir string) (string, bool, error) {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", false, fmt.Errorf("invalid url: %w", err)
	}

	name := path.Base(u.Path)
	if !strings.HasSuffix(name, ".lua") {
		return "", false, fmt.Errorf("%s does not name a .lua file", remoteURL)
	}
	localPath := filepath.Join(dir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", false, err
	}

	resp, err := network.Client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("download %s: %s", remoteURL, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, err
	}

	if local, err := filesystem.API().ReadFile(localPath); err == nil && sha256.Sum256(local) == sha256.Sum256(body) {
		return localPath, false, nil
	}

	if err := filesystem.API().MkdirAll(dir, os.ModePerm); err != nil {
		return "", false, err
	}

	tmpPath := localPath + ".tmp"
	if err := filesystem.API().WriteFile(tmpPath, body, 0o644); err != nil {
		return "", false, err
	}
	if err := filesystem.API().Rename(tmpPath, localPath); err != nil {
		_ = filesystem.API().Remove(tmpPath)
		return "", false, err
	}

	bytecodeCache.Delete(localPath)
	return localPath, true, nil
}
