package postgres

import (
	"context"
	"testing"
)

func TestHealthChecker_HealthCheck_PingSucceeds(t *testing.T) {
	db, mock := newMockDB(t)
	checker := NewHealthChecker(db)

	mock.ExpectPing()

	if err := checker.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHealthChecker_HealthCheck_PingFailsAfterClose(t *testing.T) {
	db, mock := newMockDB(t)
	checker := NewHealthChecker(db)
	mock.ExpectPing()
	_ = db.Close()

	if err := checker.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected an error when the underlying connection is closed")
	}
}
