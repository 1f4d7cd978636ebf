package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestApplyExecutesEveryStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	stmts := Statements()
	if len(stmts) == 0 {
		t.Fatal("expected embedded schema statements")
	}
	for range stmts {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := Apply(context.Background(), db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApplyStopsOnFirstFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(".*").WillReturnError(errors.New("permission denied"))

	err = Apply(context.Background(), db)
	if err == nil || !strings.Contains(err.Error(), "schema statement 2") {
		t.Fatalf("expected failure on statement 2, got %v", err)
	}
}

func TestSchemaKeepsLedgerConstraints(t *testing.T) {
	for _, want := range []string{
		"CHECK (balance >= 0)",
		"UNIQUE (account_id, idempotency_key)",
		"UNIQUE (campaign_id, creator_id)",
		"ON DELETE CASCADE",
	} {
		if !strings.Contains(schemaSQL, want) {
			t.Errorf("schema missing %q", want)
		}
	}
}
