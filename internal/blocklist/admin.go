// Package blocklist implements the admin surface over the blocked-IP
// registry: batch block/unblock with per-address outcomes.
package blocklist

import (
	"context"
	"errors"
	"net"

	"watchtower/internal/database"

	"github.com/charmbracelet/log"
)

// Outcome classifies what happened to one address in a batch.
type Outcome int

const (
	OutcomeBlocked Outcome = iota
	OutcomeUpdated
	OutcomeUnblocked
	OutcomeNotFound
	OutcomeInvalid
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBlocked:
		return "blocked"
	case OutcomeUpdated:
		return "already blocked - updated"
	case OutcomeUnblocked:
		return "unblocked"
	case OutcomeNotFound:
		return "not found in blocklist"
	case OutcomeInvalid:
		return "invalid IP address"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Result reports the outcome for one address of a batch.
type Result struct {
	IP      string
	Outcome Outcome
	Err     error
}

// Apply validates and processes each address independently, so a batch of
// mixed-validity IPs partially succeeds. Reason is stored on block, ignored
// on deactivate.
func Apply(ctx context.Context, ips []string, reason string, deactivate bool) []Result {
	results := make([]Result, 0, len(ips))

	for _, ip := range ips {
		results = append(results, applyOne(ctx, ip, reason, deactivate))
	}

	return results
}

func applyOne(ctx context.Context, ip, reason string, deactivate bool) Result {
	if net.ParseIP(ip) == nil {
		return Result{IP: ip, Outcome: OutcomeInvalid}
	}

	if deactivate {
		err := database.DeactivateBlockedIP(ctx, ip)
		switch {
		case errors.Is(err, database.ErrIPNotBlocked):
			return Result{IP: ip, Outcome: OutcomeNotFound}
		case err != nil:
			log.Error("Failed to unblock IP", "ip", ip, "error", err)
			return Result{IP: ip, Outcome: OutcomeError, Err: err}
		}
		return Result{IP: ip, Outcome: OutcomeUnblocked}
	}

	created, err := database.UpsertBlockedIP(ctx, ip, reason)
	if err != nil {
		log.Error("Failed to block IP", "ip", ip, "error", err)
		return Result{IP: ip, Outcome: OutcomeError, Err: err}
	}
	if created {
		return Result{IP: ip, Outcome: OutcomeBlocked}
	}
	return Result{IP: ip, Outcome: OutcomeUpdated}
}
