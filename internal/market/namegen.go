package market

import (
	"strings"
	"sync"
	"time"

	"CoinPulse/internal/domain/models"
	"CoinPulse/pkg/util"
)

// Rand is the subset of math/rand the simulator draws from. Injecting it
// keeps generation and price walks reproducible under a seeded source.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Int63n(n int64) int64
}

// lockedRand serializes draws from the shared source. math/rand sources are
// not safe for concurrent use and the engine draws on every request.
type lockedRand struct {
	mu  sync.Mutex
	src Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}

func (l *lockedRand) Int63n(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Int63n(n)
}

var namePrefixes = []string{
	"Quantum", "Cyber", "Neo", "Meta", "Digi",
	"Tech", "Flux", "Nova", "Byte", "Data",
}

var nameSuffixes = []string{
	"Coin", "Chain", "Token", "Protocol", "Network",
	"Link", "Node", "Base", "Hub", "Core",
}

// randomName draws one of the 100 prefix+suffix combinations.
func randomName(r Rand) string {
	prefix := namePrefixes[r.Intn(len(namePrefixes))]
	suffix := nameSuffixes[r.Intn(len(nameSuffixes))]
	return prefix + suffix
}

// symbolFromName keeps the uppercase letters of the name, pads with 'X' to
// at least 3 characters and truncates to at most 4. "QuantumCoin" -> "QCX".
func symbolFromName(name string) string {
	var b strings.Builder
	for _, c := range name {
		if c >= 'A' && c <= 'Z' {
			b.WriteRune(c)
		}
	}
	sym := b.String()
	for len(sym) < 3 {
		sym += "X"
	}
	if len(sym) > 4 {
		sym = sym[:4]
	}
	return sym
}

// randomPrice draws a base in [0,100) scaled by a power of ten up to 10^3,
// so listings span sub-dollar tokens to five-figure ones.
func randomPrice(r Rand) float64 {
	magnitude := r.Intn(4)
	base := r.Float64() * 100
	scale := 1.0
	for i := 0; i < magnitude; i++ {
		scale *= 10
	}
	p := util.Round2(base * scale)
	if p < 0.01 {
		// Rounding a sub-cent draw hits zero; prices stay strictly positive.
		p = 0.01
	}
	return p
}

// seedHistory fills the chart with placeholder points. Real continuity
// starts with the first update pass.
func seedHistory(r Rand) []float64 {
	h := make([]float64, models.PriceHistorySize)
	for i := range h {
		h[i] = r.Float64() * 100
	}
	return h
}

// randomAsset draws a complete new asset: ~70% of assets carry an APY in
// [1,9), change in [-7.5,7.5), volatility in [0.02,0.12).
func randomAsset(r Rand, now time.Time) *models.Asset {
	name := randomName(r)
	a := &models.Asset{
		Symbol:        symbolFromName(name),
		Name:          name,
		Price:         randomPrice(r),
		ChangePercent: util.Round2(r.Float64()*15 - 7.5),
		Volatility:    util.Round4(r.Float64()*0.1 + 0.02),
		PriceHistory:  seedHistory(r),
		CreatedAt:     now,
	}
	if r.Float64() < 0.7 {
		apy := util.Round2(r.Float64()*8 + 1)
		a.APY = &apy
	}
	return a
}
