// Package version holds the release identity and the startup update check.
package version

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	goversion "github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

// Proxy is the release version of this binary, overridable at link time.
var Proxy = "0.1.0"

// OllamaCompat is the Ollama server version reported to SDK clients via
// /api/version. Some clients refuse to talk to servers older than the
// feature set they need.
const OllamaCompat = "0.5.1"

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// CheckForUpdates probes the latest published release and logs a warning
// when this binary is behind. Failures are silent: the check must never
// delay or break startup.
func CheckForUpdates(logger *zap.Logger) {
	const repoOwner = "nulzo"
	const repoName = "ollama-openai-proxy"
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", repoOwner, repoName)

	client := http.Client{
		Timeout: 2 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return
	}

	current, err := goversion.NewVersion(Proxy)
	if err != nil {
		return
	}

	latest, err := goversion.NewVersion(release.TagName)
	if err != nil {
		return
	}

	if current.LessThan(latest) {
		logger.Warn("a newer release is available",
			zap.String("current", Proxy),
			zap.String("latest", release.TagName),
		)
	}
}
