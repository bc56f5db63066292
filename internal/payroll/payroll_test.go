package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xahau-payroll/payroll-engine/internal/model"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

func TestParseCallerKindAcceptsSourceAndDestination(t *testing.T) {
	source, err := parseCallerKind("source")
	require.NoError(t, err)
	assert.Equal(t, model.CallerSource, source)

	destination, err := parseCallerKind("destination")
	require.NoError(t, err)
	assert.Equal(t, model.CallerDestination, destination)
}

func TestParseCallerKindRejectsUnknownValue(t *testing.T) {
	_, err := parseCallerKind("worker")
	var invalid *payrollerr.InvalidParametersError
	assert.ErrorAs(t, err, &invalid)
}
