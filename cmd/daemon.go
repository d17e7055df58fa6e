package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/chukul/fedctl/federation"
	"github.com/chukul/fedctl/internal/config"
	"github.com/chukul/fedctl/internal/store"
)

var daemonInterval int

const (
	daemonPIDFile = ".fedctl/daemon.pid"
	daemonLogFile = ".fedctl/daemon.log"

	// Sessions expiring inside this window get re-exchanged.
	daemonRefreshWindow = 15 * time.Minute
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background auto-refresh daemon",
	Long: `The daemon re-exchanges web identity tokens for your stored sessions before
they expire. It runs in the foreground loop and checks every few minutes.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the auto-refresh daemon",
	Run: func(cmd *cobra.Command, args []string) {
		home, _ := os.UserHomeDir()
		pidPath := filepath.Join(home, daemonPIDFile)

		// Check if already running
		if _, err := os.Stat(pidPath); err == nil {
			fmt.Println("❌ Daemon is already running (or pid file exists).")
			fmt.Println("   Use 'fedctl daemon stop' first if you want to restart.")
			return
		}

		fmt.Printf("🚀 Starting fedctl daemon (Interval: %d minutes)...\n", daemonInterval)
		fmt.Printf("📝 Logs: ~/%s\n", daemonLogFile)

		startDaemonLoop(daemonInterval)
	},
}

func startDaemonLoop(intervalMins int) {
	home, _ := os.UserHomeDir()
	pidPath := filepath.Join(home, daemonPIDFile)
	logPath := filepath.Join(home, daemonLogFile)

	os.MkdirAll(filepath.Dir(pidPath), 0700)
	os.WriteFile(pidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0600)
	defer os.Remove(pidPath)

	logFile, _ := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	defer logFile.Close()

	logger := slog.New(slog.NewTextHandler(logFile, nil))
	logger.Info("daemon started", "interval_minutes", intervalMins)

	// The cache window must match the refresh window, otherwise a due
	// session is served from memory instead of re-exchanged.
	cache := federation.NewCache(federation.NewSTSExchanger(), federation.CacheOptions{
		ExpiryWindow: daemonRefreshWindow,
		Logger:       logger,
	})

	ticker := time.NewTicker(time.Duration(intervalMins) * time.Minute)
	defer ticker.Stop()

	for {
		runRefreshCheck(logger, cache)

		<-ticker.C
	}
}

func runRefreshCheck(logger *slog.Logger, cache *federation.Cache) {
	logger.Info("checking sessions")

	secret, err := store.ResolveSecret("")
	if err != nil {
		logger.Error("encryption secret required", "error", err)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	records, err := store.List(secret)
	if err != nil {
		logger.Error("failed to list sessions", "error", err)
		return
	}

	refreshExpiring(context.Background(), logger, cache, cfg, records, func(r *store.Record) error {
		return store.Save(r, secret)
	})
}

// refreshExpiring re-exchanges every record expiring inside the
// refresh window and hands the replacement to save.
func refreshExpiring(ctx context.Context, logger *slog.Logger, cache *federation.Cache, cfg *config.Config, records []*store.Record, save func(*store.Record) error) {
	now := time.Now()
	for _, r := range records {
		if time.Until(r.Expiration) >= daemonRefreshWindow {
			continue
		}
		// Already expired sessions need a manual mint.
		if now.After(r.Expiration) {
			continue
		}

		logger.Info("refreshing session",
			"identity", r.Identity,
			"expires_in", time.Until(r.Expiration).Round(time.Second).String())

		id, err := cfg.Identity(r.Identity)
		if err != nil {
			logger.Error("identity not configured", "identity", r.Identity, "error", err)
			continue
		}

		rec, err := mintSession(ctx, cache, r.Identity, id)
		if err != nil {
			logger.Error("refresh failed", "identity", r.Identity, "error", err)
			continue
		}

		if err := save(rec); err != nil {
			logger.Error("failed to save session", "identity", r.Identity, "error", err)
			continue
		}

		logger.Info("session refreshed", "identity", r.Identity, "expires", rec.Expiration.Format(time.RFC3339))
	}
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	Run: func(cmd *cobra.Command, args []string) {
		home, _ := os.UserHomeDir()
		pidPath := filepath.Join(home, daemonPIDFile)

		data, err := os.ReadFile(pidPath)
		if err != nil {
			fmt.Println("❌ Daemon is not running.")
			return
		}

		var pid int
		fmt.Sscanf(string(data), "%d", &pid)

		process, err := os.FindProcess(pid)
		if err != nil {
			fmt.Printf("❌ Could not find process %d\n", pid)
			os.Remove(pidPath)
			return
		}

		fmt.Printf("🛑 Stopping fedctl daemon (PID: %d)...\n", pid)
		process.Signal(os.Interrupt)
		os.Remove(pidPath)
		fmt.Println("✅ Daemon stopped.")
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check daemon status",
	Run: func(cmd *cobra.Command, args []string) {
		home, _ := os.UserHomeDir()
		pidPath := filepath.Join(home, daemonPIDFile)

		if _, err := os.Stat(pidPath); err != nil {
			fmt.Println("⚪ Daemon is NOT running.")
			return
		}

		data, _ := os.ReadFile(pidPath)
		fmt.Printf("🟢 Daemon is running (PID: %s)\n", string(data))
	},
}

var daemonLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View daemon logs",
	Run: func(cmd *cobra.Command, args []string) {
		home, _ := os.UserHomeDir()
		logPath := filepath.Join(home, daemonLogFile)

		data, err := os.ReadFile(logPath)
		if err != nil {
			fmt.Println("❌ No logs found.")
			return
		}

		fmt.Println(string(data))
	},
}

var daemonSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Setup automatic startup on macOS",
	Run: func(cmd *cobra.Command, args []string) {
		if runtime.GOOS != "darwin" {
			fmt.Println("❌ Setup is only supported on macOS.")
			return
		}

		home, _ := os.UserHomeDir()
		execPath, _ := os.Executable()
		plistPath := filepath.Join(home, "Library/LaunchAgents/com.chukul.fedctl.plist")

		plistContent := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.chukul.fedctl</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
        <string>daemon</string>
        <string>start</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>%s/.fedctl/daemon.stdout.log</string>
    <key>StandardErrorPath</key>
    <string>%s/.fedctl/daemon.stderr.log</string>
</dict>
</plist>`, execPath, home, home)

		os.MkdirAll(filepath.Dir(plistPath), 0755)
		err := os.WriteFile(plistPath, []byte(plistContent), 0644)
		if err != nil {
			fmt.Printf("❌ Failed to create plist: %v\n", err)
			return
		}

		fmt.Println("✅ LaunchAgent plist created.")
		fmt.Println("🚀 To enable, run:")
		fmt.Printf("   launchctl load %s\n", plistPath)
	},
}

func init() {
	daemonStartCmd.Flags().IntVarP(&daemonInterval, "interval", "i", 5, "Check interval in minutes")

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonLogsCmd)
	daemonCmd.AddCommand(daemonSetupCmd)

	rootCmd.AddCommand(daemonCmd)
}
