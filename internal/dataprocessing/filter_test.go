package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptodash/pkg/contracts/domain"
)

func derivedFixture() []domain.DerivedRecord {
	return NewDeriver(nil, DefaultDeriverConfig()).Derive([]domain.PriceRecord{
		rec("btc", 1, 100),
		rec("eth", 1, 10),
		rec("btc", 2, 110),
		rec("eth", 2, 11),
		rec("sol", 3, 5),
		rec("btc", 3, 120),
	})
}

func jan(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestFilter(t *testing.T) {
	rows := derivedFixture()
	end2 := jan(2)

	tests := []struct {
		name    string
		sel     domain.FilterSelection
		want    int
		wantErr error
	}{
		{
			name: "case insensitive symbols over full span",
			sel:  domain.FilterSelection{Symbols: []string{"BTC"}, Range: domain.DateRange{Start: jan(1)}},
			want: 3,
		},
		{
			name: "inclusive bounds",
			sel:  domain.FilterSelection{Symbols: []string{"btc", "ETH"}, Range: domain.DateRange{Start: jan(1), End: &end2}},
			want: 4,
		},
		{
			name: "open ended start only",
			sel:  domain.FilterSelection{Symbols: []string{"btc", "sol"}, Range: domain.DateRange{Start: jan(3)}},
			want: 2,
		},
		{
			name:    "unknown symbol",
			sel:     domain.FilterSelection{Symbols: []string{"DOGE"}, Range: domain.DateRange{Start: jan(1)}},
			wantErr: ErrEmptyResult,
		},
		{
			name:    "no symbols",
			sel:     domain.FilterSelection{Range: domain.DateRange{Start: jan(1)}},
			wantErr: ErrEmptyResult,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Filter(rows, tt.sel)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestFilter_PreservesOrderAndDoesNotAlias(t *testing.T) {
	rows := derivedFixture()
	sel := domain.FilterSelection{Symbols: []string{"btc", "eth", "sol"}, Range: domain.DateRange{Start: jan(1)}}

	got, err := Filter(rows, sel)
	require.NoError(t, err)
	require.Equal(t, rows, got)

	got[0].Close = -1
	assert.NotEqual(t, -1.0, rows[0].Close)

	again, err := Filter(got, sel)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestSymbols(t *testing.T) {
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, Symbols(derivedFixture()))
	assert.Empty(t, Symbols(nil))
}

func TestDateSpan(t *testing.T) {
	min, max, ok := DateSpan(derivedFixture())
	require.True(t, ok)
	assert.Equal(t, jan(1), min)
	assert.Equal(t, jan(3), max)

	_, _, ok = DateSpan(nil)
	assert.False(t, ok)
}

func TestDefaultSelection(t *testing.T) {
	sel := DefaultSelection(derivedFixture())
	assert.Equal(t, []string{"BTC"}, sel.Symbols)
	assert.Equal(t, jan(1), sel.Range.Start)
	require.NotNil(t, sel.Range.End)
	assert.Equal(t, jan(3), *sel.Range.End)
}

func TestResolveSelection(t *testing.T) {
	rows := derivedFixture()

	t.Run("empty request takes defaults", func(t *testing.T) {
		sel := ResolveSelection(rows, domain.FilterSelection{})
		assert.Equal(t, DefaultSelection(rows), sel)
	})

	t.Run("explicitly empty symbols select nothing", func(t *testing.T) {
		sel := ResolveSelection(rows, domain.FilterSelection{Symbols: []string{}})
		assert.NotNil(t, sel.Symbols)
		assert.Empty(t, sel.Symbols)
		assert.Equal(t, DefaultSelection(rows).Range, sel.Range)

		_, err := Filter(rows, sel)
		assert.ErrorIs(t, err, ErrEmptyResult)
	})

	t.Run("requested start stays open ended", func(t *testing.T) {
		sel := ResolveSelection(rows, domain.FilterSelection{Symbols: []string{"eth"}, Range: domain.DateRange{Start: jan(2)}})
		assert.Equal(t, []string{"eth"}, sel.Symbols)
		assert.Equal(t, jan(2), sel.Range.Start)
		assert.Nil(t, sel.Range.End)
	})
}
