// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ledger optionally records a summary of each conversion run
// (what was converted, how many models failed and why) to DynamoDB, the
// same Database interface shape server/cloud/db/interface.go exposes for
// its own score/server records.
package ledger

import "time"

// RunRecord summarizes one conversion run.
type RunRecord struct {
	Input     string    `dynamo:"input"`
	StartedAt time.Time `dynamo:"started_at"`
	Models    int       `dynamo:"models"`
	Failures  int       `dynamo:"failures"`
}

// FailureRecord records one model's save failure within a run.
type FailureRecord struct {
	Input string `dynamo:"input"`
	Model string `dynamo:"model"`
	Err   string `dynamo:"err"`
}

// Ledger is the run-history sink. A nil Ledger (the no-op default) is
// valid and simply records nothing, so callers don't need a feature
// flag at every call site.
type Ledger interface {
	RecordRun(RunRecord) error
	RecordFailure(FailureRecord) error
}
