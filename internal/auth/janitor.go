// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package auth

import (
	"context"
	"log/slog"
	"time"
)

// # Ledger Janitor

/*
RunJanitor periodically purges dead rows from the token ledger.

Description: Expired rows are removed as soon as they are seen; revoked rows
are retained for RevokedTokenRetention to keep an audit window, then removed.
The loop exits when the context is cancelled. Intended to run as a background
goroutine for the lifetime of the process.

Parameters:
  - context: context.Context
  - interval: time.Duration
  - logger: *slog.Logger
*/
func (service *Service) RunJanitor(context context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("token_janitor_started", slog.Duration("interval", interval))

	for {
		select {
		case <-context.Done():
			logger.Info("token_janitor_stopped")
			return
		case <-ticker.C:
			service.sweepLedger(context, logger)
		}
	}
}

// sweepLedger runs one purge pass. Failures are logged and retried on the
// next tick; a missed sweep only delays cleanup.
func (service *Service) sweepLedger(context context.Context, logger *slog.Logger) {
	now := time.Now()

	expired, err := service.tokenLedger.PurgeExpired(context, now)
	if err != nil {
		logger.Warn("token_janitor_purge_expired_failed", slog.Any("error", err))
	}

	revoked, err := service.tokenLedger.PurgeRevoked(context, now.Add(-RevokedTokenRetention))
	if err != nil {
		logger.Warn("token_janitor_purge_revoked_failed", slog.Any("error", err))
	}

	if expired > 0 || revoked > 0 {
		logger.Info("token_janitor_swept",
			slog.Int64("expired_removed", expired),
			slog.Int64("revoked_removed", revoked))
	}
}
