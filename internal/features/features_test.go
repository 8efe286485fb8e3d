package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frauddetect/internal/config"
	"frauddetect/internal/data"
)

func baseFrame() *data.Frame {
	f := data.NewFrame(4)
	f.SetStrings("transaction_id", []string{"t1", "t2", "t3", "t4"})
	f.SetNumeric("timestamp", []float64{0, 3600, 7200, 90000})
	f.SetNumeric("amount", []float64{100, 200, 50, 1000})
	f.SetStrings("sender_account_id", []string{"a", "a", "b", "a"})
	f.SetStrings("receiver_account_id", []string{"x", "x", "y", "x"})
	f.SetStrings("device_used", []string{"d1", "d1", "d2", "d1"})
	f.SetNumeric("latency_ms", []float64{10, 30, 20, 50})
	f.SetNumeric("bandwidth_mbps", []float64{22, 0, 5, 10})
	f.SetStrings("geolocation", []string{
		"(40.7128, -74.0060)", "51.5074N, 0.1278W", "(0, 0)", "garbage",
	})
	f.SetNumeric("fraud_flag", []float64{0, 0, 1, 0})
	return f
}

func TestEngineerTemporalNumeric(t *testing.T) {
	out := Engineer(baseFrame(), config.DefaultColumns())
	assert.Equal(t, []float64{0, 1, 2, 1}, out.Numeric("hour"))
	assert.Equal(t, []float64{0, 0, 0, 1}, out.Numeric("day"))
}

func TestEngineerAggregates(t *testing.T) {
	out := Engineer(baseFrame(), config.DefaultColumns())

	assert.Equal(t, []float64{3, 3, 1, 3}, out.Numeric("sender_txn_count"))
	want := (100.0 + 200.0 + 1000.0) / 3.0
	avg := out.Numeric("sender_avg_amount")
	assert.InDelta(t, want, avg[0], 1e-9)
	// single-transaction sender gets zero spread
	assert.Equal(t, 0.0, out.Numeric("sender_std_amount")[2])

	tsl := out.Numeric("time_since_last_txn_user")
	assert.Equal(t, 1e9, tsl[0])
	assert.Equal(t, 3600.0, tsl[1])
	assert.Equal(t, 1e9, tsl[2])
	assert.Equal(t, 86400.0, tsl[3])
}

func TestEngineerZScoreWithZeroStd(t *testing.T) {
	out := Engineer(baseFrame(), config.DefaultColumns())
	z := out.Numeric("amount_zscore_user")
	// sender b has a single transaction: std 0 is replaced by 1
	assert.InDelta(t, 0, z[2], 1e-6)
	for _, v := range z {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestEngineerDeviceNetwork(t *testing.T) {
	out := Engineer(baseFrame(), config.DefaultColumns())
	// d1 is shared by sender a only, d2 by b only
	assert.Equal(t, []float64{1, 1, 1, 1}, out.Numeric("device_freq"))

	ratio := out.Numeric("bandwidth_ratio")
	assert.InDelta(t, 2.0, ratio[0], 1e-9) // 22/(10+1)
	assert.InDelta(t, 0.0, ratio[1], 1e-9) // 0/(30+1)
}

func TestEngineerIdempotent(t *testing.T) {
	cols := config.DefaultColumns()
	once := Engineer(baseFrame(), cols)
	twice := Engineer(once, cols)
	require.ElementsMatch(t, once.Names(), twice.Names())
	for _, name := range once.NumericNames() {
		assert.InDeltaSlice(t, once.Numeric(name), twice.Numeric(name), 1e-9, name)
	}
}

func TestEngineerMissingColumnsFallBack(t *testing.T) {
	f := data.NewFrame(2)
	f.SetNumeric("amount", []float64{10, 20})
	out := Engineer(f, config.DefaultColumns())

	assert.Equal(t, []float64{0, 0}, out.Numeric("sender_txn_count"))
	assert.Equal(t, []float64{1, 1}, out.Numeric("sender_std_amount"))
	assert.Equal(t, []float64{1e9, 1e9}, out.Numeric("time_since_last_txn_user"))
	assert.Equal(t, []float64{0, 0}, out.Numeric("device_freq"))
	assert.Equal(t, []float64{0, 0}, out.Numeric("suspicious_travel"))
}

func TestParseGeolocation(t *testing.T) {
	lat, lon, ok := ParseGeolocation("(40.7128, -74.0060)")
	require.True(t, ok)
	assert.InDelta(t, 40.7128, lat, 1e-9)
	assert.InDelta(t, -74.0060, lon, 1e-9)

	lat, lon, ok = ParseGeolocation("51.5074N, 0.1278W")
	require.True(t, ok)
	assert.InDelta(t, 51.5074, lat, 1e-9)
	assert.InDelta(t, 0.1278, lon, 1e-9)

	_, _, ok = ParseGeolocation("garbage")
	assert.False(t, ok)
	_, _, ok = ParseGeolocation("")
	assert.False(t, ok)
}

func TestHaversine(t *testing.T) {
	// New York to London, roughly 5570 km
	d := Haversine(40.7128, -74.0060, 51.5074, -0.1278)
	assert.InDelta(t, 5570, d, 20)

	assert.Equal(t, 0.0, Haversine(10, 20, 10, 20))
	assert.True(t, math.IsNaN(Haversine(math.NaN(), 0, 0, 0)))
}

func TestSuspiciousTravel(t *testing.T) {
	f := data.NewFrame(2)
	f.SetNumeric("timestamp", []float64{0, 600})
	f.SetNumeric("amount", []float64{10, 20})
	f.SetStrings("sender_account_id", []string{"a", "a"})
	// NYC then London ten minutes later
	f.SetStrings("geolocation", []string{"(40.7128, -74.0060)", "(51.5074, -0.1278)"})

	out := Engineer(f, config.DefaultColumns())
	assert.Equal(t, []float64{0, 1}, out.Numeric("suspicious_travel"))
	assert.Greater(t, out.Numeric("distance_from_last_location")[1], ImpossibleTravelKM)
}

func TestSelectRanksByVariance(t *testing.T) {
	cols := config.DefaultColumns()
	f := data.NewFrame(4)
	f.SetNumeric("flat", []float64{1, 1, 1, 1})
	f.SetNumeric("wild", []float64{0, 100, -50, 200})
	f.SetNumeric("mild", []float64{1, 2, 3, 4})
	f.SetNumeric(cols.Label, []float64{0, 1, 0, 1})

	got := Select(f, cols, 2)
	assert.Equal(t, []string{"wild", "mild"}, got)

	all := Select(f, cols, 10)
	assert.NotContains(t, all, cols.Label)
	assert.Len(t, all, 3)
}
