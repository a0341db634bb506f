// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/guregu/dynamo"
)

// DynamoLedger records runs and failures into two DynamoDB tables, the
// same svc/db/table wiring server/cloud/db/dynamodb.go uses for its own
// score/server tables.
type DynamoLedger struct {
	svc           *dynamodb.DynamoDB
	db            *dynamo.DB
	runsTable     dynamo.Table
	failuresTable dynamo.Table
}

// NewDynamoLedger returns a Ledger backed by the named table (runs) and
// table+"-failures" (per-model failures).
func NewDynamoLedger(sess *session.Session, table string) *DynamoLedger {
	l := &DynamoLedger{svc: dynamodb.New(sess)}
	l.db = dynamo.NewFromIface(l.svc)
	l.runsTable = l.db.Table(table)
	l.failuresTable = l.db.Table(table + "-failures")
	return l
}

func (l *DynamoLedger) RecordRun(r RunRecord) error {
	return l.runsTable.Put(r).Run()
}

func (l *DynamoLedger) RecordFailure(f FailureRecord) error {
	return l.failuresTable.Put(f).Run()
}
