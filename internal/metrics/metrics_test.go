package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCalculation(t *testing.T) {
	before := testutil.ToFloat64(calculationsTotal.WithLabelValues("srm_test_kind", ResultOK))

	ObserveCalculation("srm_test_kind", ResultOK, 3*time.Millisecond)
	ObserveCalculation("srm_test_kind", ResultOK, 5*time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(calculationsTotal.WithLabelValues("srm_test_kind", ResultOK)))
}

func TestCounters(t *testing.T) {
	mismatches := testutil.ToFloat64(srmMismatches)
	ledger := testutil.ToFloat64(ledgerErrors)

	MismatchDetected()
	LedgerError()

	assert.Equal(t, mismatches+1, testutil.ToFloat64(srmMismatches))
	assert.Equal(t, ledger+1, testutil.ToFloat64(ledgerErrors))
}
