package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Dami4lola/Ea-script/internal/browser"
	"github.com/Dami4lola/Ea-script/internal/session"
)

var browserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Manage the Chrome instance that hosts the web app",
}

var browserLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch Chrome on the web app and keep it running",
	Long: `Launches Chrome, opens the web app and records the DevTools control URL
under .eatools/browser so other commands attach to the same browser.

Log in to the web app in the launched window. Press Ctrl+C to close it.`,
	RunE: browserLaunch,
}

func browserLaunch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	bc := session.BrowserConfig(cfg, workspace)
	bc.DebuggerURL = cfg.Browser.DebuggerURL
	mgr := browser.NewManager(bc)
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := mgr.Shutdown(context.Background()); err != nil {
			logger.Warn("browser shutdown", zap.Error(err))
		}
	}()

	if _, err := mgr.AppPage(ctx); err != nil {
		return fmt.Errorf("failed to open web app: %w", err)
	}

	controlFile, err := browser.WriteControlURL(session.BrowserDir(workspace), mgr.ControlURL())
	if err != nil {
		logger.Warn("failed to write browser control file", zap.Error(err))
	}
	defer func() {
		if err := os.Remove(controlFile); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove browser control file", zap.Error(err))
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Browser launched. Control URL: %s\n", okMark(), mgr.ControlURL())
	fmt.Fprintln(out, color.CyanString("Log in to the web app, then use eatools from another terminal."))
	fmt.Fprintln(out, "Press Ctrl+C to shutdown")

	<-ctx.Done()
	return nil
}
