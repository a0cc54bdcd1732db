// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command easydep-agent is the deployment daemon: it polls a GitHub
// repository's releases, runs the accepted ones through the forward
// deploy chain, and runs rollback chains for releases older than the
// last one it executed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/easybill/easydep/internal/clock"
	"github.com/easybill/easydep/internal/config"
	"github.com/easybill/easydep/internal/deploy"
	"github.com/easybill/easydep/internal/githubapp"
	"github.com/easybill/easydep/internal/release"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var installationID int64
	flag.Int64Var(&installationID, "github-app-installation-id", 0, "GitHub App installation id (required, EASYDEP_GITHUB_APP_INSTALLATION_ID overrides)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if raw := os.Getenv("EASYDEP_GITHUB_APP_INSTALLATION_ID"); raw != "" {
		if parsed, parseErr := parseInstallationID(raw); parseErr == nil {
			installationID = parsed
		} else {
			return fmt.Errorf("EASYDEP_GITHUB_APP_INSTALLATION_ID: %w", parseErr)
		}
	}
	if installationID == 0 {
		return fmt.Errorf("github app installation id is required (--github-app-installation-id or EASYDEP_GITHUB_APP_INSTALLATION_ID)")
	}

	deployLogger := deploy.NewSlogLogger(logger)

	layout, err := deploy.NewPathLayout(cfg.DeployRoot, cfg.CurrentLinkName)
	if err != nil {
		return fmt.Errorf("resolving deployments layout: %w", err)
	}
	if err := layout.CreateIfMissing(); err != nil {
		return fmt.Errorf("preparing deployments root: %w", err)
	}

	minter, err := githubapp.NewTokenMinter(githubapp.Config{
		AppID:          cfg.GitHubAppID,
		InstallationID: installationID,
		PrivateKeyPEM:  cfg.GitHubPrivateKeyPEM,
		Clock:          clock.Real(),
	})
	if err != nil {
		return fmt.Errorf("initializing GitHub App token minter: %w", err)
	}
	fetcher := deploy.RepoFetcherFunc(minter.AccessToken)

	source := release.NewGitHubSource(cfg.RepoOwner, cfg.RepoName, minter.AccessToken, nil, "")

	tagAcceptance, err := deploy.NewTagAcceptance(cfg.BodyParsePattern, cfg.Labels)
	if err != nil {
		return fmt.Errorf("initializing release acceptance stage: %w", err)
	}

	forwardRunner := deploy.NewPipelineRunner([]deploy.Stage{
		tagAcceptance,
		deploy.NewLifecycleScriptBridge(),
		deploy.NewRepoInit(layout, fetcher),
		deploy.NewCheckout(),
		deploy.NewWorkingCopyCleanup(),
		deploy.NewDeployScript(),
		deploy.NewSymlinkFlip(layout, cfg.AdditionalSymlinks),
		deploy.NewRetentionCleanup(layout, cfg.MaxStoredReleases),
	}, deployLogger)

	// Rollback only ever needs to re-point the current-release link at
	// an already-deployed directory — none of the forward
	// chain's fetch/build stages apply.
	rollbackRunner := deploy.NewPipelineRunner([]deploy.Stage{
		deploy.NewSymlinkFlip(layout, cfg.AdditionalSymlinks),
	}, deployLogger)

	supervisor := deploy.NewReleaseSupervisor(layout, forwardRunner, rollbackRunner, deployLogger)
	feed := deploy.NewReleaseFeed(source, supervisor, time.Duration(cfg.PollIntervalMillis)*time.Millisecond, deployLogger, clock.Real())

	logger.Info("easydep-agent starting",
		"repo_owner", cfg.RepoOwner,
		"repo_name", cfg.RepoName,
		"deploy_root", layout.Root(),
		"poll_interval_ms", cfg.PollIntervalMillis,
		"last_executed_release_id", supervisor.LastExecutedID(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed.Run(ctx)

	logger.Info("easydep-agent shutting down")
	return nil
}

func parseInstallationID(raw string) (int64, error) {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a valid integer", raw)
	}
	return value, nil
}
