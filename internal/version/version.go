// Package version knows the build version and checks GitHub for newer
// releases.
package version

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	Current       = "v0.3.0" // Will be overwritten by ldflags during build
	GitHubAPI     = "https://api.github.com/repos/chukul/fedctl/releases/latest"
	CheckInterval = 24 * time.Hour
)

type gitHubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

type lastCheck struct {
	LastChecked   time.Time `json:"last_checked"`
	LatestVersion string    `json:"latest_version"`
}

func checkCachePath() string {
	return filepath.Join(os.Getenv("HOME"), ".fedctl", "version_check.json")
}

// CheckForUpdates prints a notice to stderr when a newer release exists.
// Non-blocking; failures are silent.
func CheckForUpdates() {
	if !shouldCheck() {
		return
	}

	go func() {
		latest, url, err := FetchLatest()
		if err != nil {
			return // Silently fail
		}

		if IsNewer(latest, Current) {
			fmt.Fprintf(os.Stderr, "\nUpdate available: %s -> %s\n", Current, latest)
			fmt.Fprintf(os.Stderr, "   Download: %s\n\n", url)
		}

		saveLastCheck(latest)
	}()
}

func shouldCheck() bool {
	data, err := os.ReadFile(checkCachePath())
	if err != nil {
		return true
	}

	var check lastCheck
	if err := json.Unmarshal(data, &check); err != nil {
		return true
	}

	return time.Since(check.LastChecked) > CheckInterval
}

// FetchLatest returns the newest release tag and its download URL.
func FetchLatest() (string, string, error) {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(GitHubAPI)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var release gitHubRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return "", "", err
	}

	return release.TagName, release.HTMLURL, nil
}

// IsNewer compares two version tags segment by segment (assumes
// semantic versioning).
func IsNewer(latest, current string) bool {
	ls := strings.Split(strings.TrimPrefix(latest, "v"), ".")
	cs := strings.Split(strings.TrimPrefix(current, "v"), ".")
	for i := 0; i < len(ls) || i < len(cs); i++ {
		var l, c int
		if i < len(ls) {
			l, _ = strconv.Atoi(ls[i])
		}
		if i < len(cs) {
			c, _ = strconv.Atoi(cs[i])
		}
		if l != c {
			return l > c
		}
	}
	return false
}

func saveLastCheck(version string) {
	check := lastCheck{
		LastChecked:   time.Now(),
		LatestVersion: version,
	}
	data, _ := json.Marshal(check)
	os.MkdirAll(filepath.Dir(checkCachePath()), 0700)
	os.WriteFile(checkCachePath(), data, 0600)
}
