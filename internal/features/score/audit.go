package score

import (
	"context"
	"fmt"
)

// AuditInvariants scans every record for consistency: score must equal
// the sum of its reason tallies, and no token balance may be negative.
// Returns one human-readable finding per violation. Findings mean
// corrupted state and are for alerting, never for silent repair.
func AuditInvariants(ctx context.Context, store Store) ([]string, error) {
	records, err := store.AllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit scan: %w", err)
	}

	var findings []string
	for _, rec := range records {
		if sum := rec.SumReasons(); sum != rec.Score {
			findings = append(findings, fmt.Sprintf(
				"%s: score %d != reasons sum %d", rec.Key, rec.Score, sum))
		}
		if rec.Token < 0 {
			findings = append(findings, fmt.Sprintf(
				"%s: negative token balance %d", rec.Key, rec.Token))
		}
	}

	wallet, err := store.Wallet(ctx)
	if err != nil {
		return findings, fmt.Errorf("audit wallet: %w", err)
	}
	if wallet.Token < 0 {
		findings = append(findings, fmt.Sprintf(
			"bot wallet: negative balance %d", wallet.Token))
	}

	return findings, nil
}
