package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colloquyhq/colloquy/pkg/adapters/memory"
	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/colloquyhq/colloquy/pkg/ports/tests"
)

func TestMemoryStoreContract(t *testing.T) {
	tests.StateStoreContractTest(t, memory.NewStore())
}

func TestSourceLookup(t *testing.T) {
	src, err := memory.NewSource(
		&domain.Flow{Name: "book_flight"},
		&domain.Flow{Name: "check_weather"},
	)
	require.NoError(t, err)

	f, err := src.Flow("book_flight")
	require.NoError(t, err)
	assert.Equal(t, "book_flight", f.Name)

	_, err = src.Flow("order_pizza")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)

	flows, err := src.Flows()
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, "book_flight", flows[0].Name, "listing is name-ordered")
}

func TestSourceRejectsDuplicates(t *testing.T) {
	_, err := memory.NewSource(
		&domain.Flow{Name: "book_flight"},
		&domain.Flow{Name: "book_flight"},
	)
	assert.Error(t, err)
}
