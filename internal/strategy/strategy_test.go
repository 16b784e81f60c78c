package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewMeanReversion(DefaultMeanReversionConfig()))
	r.Register(NewCrossover(5, 20))

	assert.Equal(t, []string{NameCrossover, NameMeanReversion}, r.Names())

	s, ok := r.Get(NameMeanReversion)
	require.True(t, ok)
	assert.Equal(t, NameMeanReversion, s.Name())

	_, err := r.Lookup("momentum")
	assert.ErrorContains(t, err, "unknown")
}

func TestCrossover_BuyThenSell(t *testing.T) {
	c := NewCrossover(2, 4)
	st := domain.NewSymbolState("X")

	prices := []float64{10, 10, 10, 10, 11, 12, 13, 12, 10, 8, 7}
	var sigs []domain.Signal
	for _, p := range prices {
		sigs = append(sigs, c.OnBar(domain.Bar{Close: p}, st))
	}

	var buys, sells int
	for _, s := range sigs {
		switch s {
		case domain.SignalBuy:
			buys++
		case domain.SignalSell:
			sells++
		}
	}
	assert.Equal(t, 1, buys)
	assert.Equal(t, 1, sells)
	assert.Equal(t, domain.SignalBuy, sigs[4])
	assert.False(t, st.IsLong())
}

func TestCrossover_InvalidWindows(t *testing.T) {
	c := NewCrossover(0, 0)
	assert.Equal(t, 50, c.short)
	assert.Equal(t, 200, c.long)
}
