package nats

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

func TestWrapTemporaryIfNeeded(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		temporary bool
	}{
		{name: "connection closed", err: fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed), temporary: true},
		{name: "no servers", err: nats.ErrNoServers, temporary: true},
		{name: "circuit open", err: gobreaker.ErrOpenState, temporary: true},
		{name: "bad subject", err: nats.ErrBadSubject, temporary: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := wrapTemporaryIfNeeded(tc.err)
			if domain.IsKind(got, domain.ErrTemporary) != tc.temporary {
				t.Fatalf("temporary=%v expected %v for %v", !tc.temporary, tc.temporary, got)
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("expected cause preserved, got %v", got)
			}
		})
	}
}

func TestIsBreakerFailureSkipsCallerErrors(t *testing.T) {
	if isBreakerFailure(nats.ErrMaxPayload) {
		t.Fatalf("max payload must not count against the breaker")
	}
	if !isBreakerFailure(nats.ErrNoServers) {
		t.Fatalf("no servers must count against the breaker")
	}
}
