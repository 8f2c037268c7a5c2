package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	anonymizeCalls      atomic.Int64
	anonymizeFailures   atomic.Int64
	deanonymizeCalls    atomic.Int64
	deanonymizeFailures atomic.Int64
	tokensIssued        atomic.Int64
	tokensAllocated     atomic.Int64
	tokensResolved      atomic.Int64
	tokensUnresolved    atomic.Int64
	tokenCollisions     atomic.Int64
	storeErrors         atomic.Int64
)

func ObserveAnonymize(tokens int, err error) {
	anonymizeCalls.Add(1)
	if err != nil {
		anonymizeFailures.Add(1)
		return
	}
	tokensIssued.Add(int64(tokens))
}

func ObserveDeanonymize(resolved, unresolved int, err error) {
	deanonymizeCalls.Add(1)
	if err != nil {
		deanonymizeFailures.Add(1)
		return
	}
	tokensResolved.Add(int64(resolved))
	tokensUnresolved.Add(int64(unresolved))
}

// ObserveAllocation counts a token freshly written to the vault.
func ObserveAllocation() { tokensAllocated.Add(1) }

func ObserveCollision() { tokenCollisions.Add(1) }

func ObserveStoreError() { storeErrors.Add(1) }

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	AnonymizeCalls      int64
	AnonymizeFailures   int64
	DeanonymizeCalls    int64
	DeanonymizeFailures int64
	TokensIssued        int64
	TokensAllocated     int64
	TokensResolved      int64
	TokensUnresolved    int64
	TokenCollisions     int64
	StoreErrors         int64
}

func Read() Snapshot {
	return Snapshot{
		AnonymizeCalls:      anonymizeCalls.Load(),
		AnonymizeFailures:   anonymizeFailures.Load(),
		DeanonymizeCalls:    deanonymizeCalls.Load(),
		DeanonymizeFailures: deanonymizeFailures.Load(),
		TokensIssued:        tokensIssued.Load(),
		TokensAllocated:     tokensAllocated.Load(),
		TokensResolved:      tokensResolved.Load(),
		TokensUnresolved:    tokensUnresolved.Load(),
		TokenCollisions:     tokenCollisions.Load(),
		StoreErrors:         storeErrors.Load(),
	}
}

func WritePrometheus(w http.ResponseWriter) {
	s := Read()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	write := func(name, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n", name, value)
	}

	write("vault_anonymize_calls_total", "Anonymize calls handled.", s.AnonymizeCalls)
	write("vault_anonymize_failures_total", "Anonymize calls aborted with a fatal error.", s.AnonymizeFailures)
	write("vault_deanonymize_calls_total", "Deanonymize calls handled.", s.DeanonymizeCalls)
	write("vault_deanonymize_failures_total", "Deanonymize calls aborted with a fatal error.", s.DeanonymizeFailures)
	write("vault_tokens_issued_total", "Distinct tokens returned by anonymize calls.", s.TokensIssued)
	write("vault_tokens_allocated_total", "Tokens newly written to the mapping store.", s.TokensAllocated)
	write("vault_tokens_resolved_total", "Tokens reconstituted to their original value.", s.TokensResolved)
	write("vault_tokens_unresolved_total", "Well-formed tokens absent from the mapping store.", s.TokensUnresolved)
	write("vault_token_collisions_total", "Minted tokens rejected and regenerated.", s.TokenCollisions)
	write("vault_store_errors_total", "Mapping store calls that failed or timed out.", s.StoreErrors)
}
