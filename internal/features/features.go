// Package features derives the model inputs from cleaned transaction
// frames: temporal, per-account aggregate, transactional, device/network,
// and spatial columns. Every transform tolerates missing source columns by
// emitting constant fallbacks, so the sequence degrades gracefully across
// schemas, and the whole sequence is idempotent: derived columns are always
// recomputed from the raw sources.
package features

import (
	"math"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"frauddetect/internal/config"
	"frauddetect/internal/data"
)

const (
	// ImpossibleTravelKM flags consecutive transactions further apart than
	// this distance.
	ImpossibleTravelKM = 500.0
	// ImpossibleTravelWindow is the time window, in seconds, inside which
	// such a jump is physically impossible.
	ImpossibleTravelWindow = 1800.0

	// farPast stands in for "no previous transaction" time deltas.
	farPast = 1e9
)

// Engineer runs the full feature sequence on a copy of the input.
func Engineer(f *data.Frame, cols config.Columns) *data.Frame {
	out := f.Copy()
	temporal(out, cols)
	accountAggregates(out, cols)
	transactional(out, cols)
	deviceNetwork(out, cols)
	spatial(out, cols)
	SweepNonFinite(out)
	return out
}

// TimeValues extracts a per-row epoch-seconds vector from the timestamp
// column. Numeric timestamps pass through; datetime strings are parsed.
// Unparseable or absent values yield zero.
func TimeValues(f *data.Frame, cols config.Columns) []float64 {
	out := make([]float64, f.Rows())
	if nums := f.Numeric(cols.Timestamp); nums != nil {
		for i, v := range nums {
			if !math.IsNaN(v) {
				out[i] = v
			}
		}
		return out
	}
	for i, s := range f.Strings(cols.Timestamp) {
		if t, ok := parseTime(s); ok {
			out[i] = float64(t.Unix())
		}
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func constant(f *data.Frame, name string, v float64) {
	vals := make([]float64, f.Rows())
	for i := range vals {
		vals[i] = v
	}
	f.SetNumeric(name, vals)
}

func temporal(f *data.Frame, cols config.Columns) {
	n := f.Rows()
	hour := make([]float64, n)
	day := make([]float64, n)
	dow := make([]float64, n)
	weekend := make([]float64, n)

	if nums := f.Numeric(cols.Timestamp); nums != nil {
		for i, v := range nums {
			if math.IsNaN(v) {
				continue
			}
			hour[i] = math.Mod(math.Floor(v/3600), 24)
			day[i] = math.Mod(math.Floor(v/86400), 365)
			dow[i] = math.Mod(math.Floor(v/86400), 7)
			if dow[i] >= 5 {
				weekend[i] = 1
			}
		}
	} else if strs := f.Strings(cols.Timestamp); strs != nil {
		for i, s := range strs {
			t, ok := parseTime(s)
			if !ok {
				continue
			}
			hour[i] = float64(t.Hour())
			day[i] = float64(t.YearDay())
			// Monday = 0 .. Sunday = 6.
			dow[i] = float64((int(t.Weekday()) + 6) % 7)
			if dow[i] >= 5 {
				weekend[i] = 1
			}
		}
	}
	f.SetNumeric("hour", hour)
	f.SetNumeric("day", day)
	f.SetNumeric("dayofweek", dow)
	f.SetNumeric("is_weekend", weekend)
}

// groupKeys renders a grouping column as strings regardless of its kind.
// Returns nil when the column is absent.
func groupKeys(f *data.Frame, name string) []string {
	if name == "" {
		return nil
	}
	if strs := f.Strings(name); strs != nil {
		return strs
	}
	if nums := f.Numeric(name); nums != nil {
		out := make([]string, len(nums))
		for i, v := range nums {
			out[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return out
	}
	return nil
}

func accountAggregates(f *data.Frame, cols config.Columns) {
	n := f.Rows()
	amounts := f.Numeric(cols.Amount)
	senders := groupKeys(f, cols.Sender)
	receivers := groupKeys(f, cols.Receiver)

	if senders != nil && amounts != nil {
		count := map[string]float64{}
		sum := map[string]float64{}
		sumsq := map[string]float64{}
		for i := 0; i < n; i++ {
			a := amounts[i]
			if math.IsNaN(a) {
				a = 0
			}
			count[senders[i]]++
			sum[senders[i]] += a
			sumsq[senders[i]] += a * a
		}
		cnt := make([]float64, n)
		avg := make([]float64, n)
		std := make([]float64, n)
		for i := 0; i < n; i++ {
			k := senders[i]
			c := count[k]
			m := sum[k] / c
			cnt[i] = c
			avg[i] = m
			if c > 1 {
				variance := (sumsq[k] - c*m*m) / (c - 1)
				if variance > 0 {
					std[i] = math.Sqrt(variance)
				}
			}
		}
		f.SetNumeric("sender_txn_count", cnt)
		f.SetNumeric("sender_avg_amount", avg)
		f.SetNumeric("sender_std_amount", std)
	} else {
		constant(f, "sender_txn_count", 0)
		constant(f, "sender_avg_amount", 0)
		constant(f, "sender_std_amount", 1)
	}

	if receivers != nil && amounts != nil {
		count := map[string]float64{}
		sum := map[string]float64{}
		for i := 0; i < n; i++ {
			a := amounts[i]
			if math.IsNaN(a) {
				a = 0
			}
			count[receivers[i]]++
			sum[receivers[i]] += a
		}
		cnt := make([]float64, n)
		avg := make([]float64, n)
		for i := 0; i < n; i++ {
			cnt[i] = count[receivers[i]]
			avg[i] = sum[receivers[i]] / count[receivers[i]]
		}
		f.SetNumeric("receiver_txn_count", cnt)
		f.SetNumeric("receiver_avg_amount", avg)
	} else {
		constant(f, "receiver_txn_count", 0)
		constant(f, "receiver_avg_amount", 0)
	}

	// Seconds since the sender's previous transaction, in time order.
	tsl := make([]float64, n)
	for i := range tsl {
		tsl[i] = farPast
	}
	if senders != nil {
		times := TimeValues(f, cols)
		for _, order := range senderOrders(senders, times) {
			for j := 1; j < len(order); j++ {
				tsl[order[j]] = times[order[j]] - times[order[j-1]]
			}
		}
	}
	f.SetNumeric("time_since_last_txn_user", tsl)
}

// senderOrders groups row indices by sender, each group sorted by time
// (ties broken by original row order for determinism).
func senderOrders(senders []string, times []float64) map[string][]int {
	groups := map[string][]int{}
	for i, s := range senders {
		groups[s] = append(groups[s], i)
	}
	for _, order := range groups {
		sort.SliceStable(order, func(a, b int) bool {
			return times[order[a]] < times[order[b]]
		})
	}
	return groups
}

func transactional(f *data.Frame, cols config.Columns) {
	n := f.Rows()
	amounts := f.Numeric(cols.Amount)
	senders := groupKeys(f, cols.Sender)
	receivers := groupKeys(f, cols.Receiver)

	if amounts == nil {
		constant(f, "amount_zscore_user", 0)
		constant(f, "is_high_value", 0)
		constant(f, "same_receiver_amount_count", 0)
		return
	}

	avg := f.Numeric("sender_avg_amount")
	std := f.Numeric("sender_std_amount")
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		s := std[i]
		if s == 0 {
			s = 1
		}
		a := amounts[i]
		if math.IsNaN(a) {
			a = 0
		}
		z[i] = (a - avg[i]) / (s + 1e-9)
	}
	f.SetNumeric("amount_zscore_user", z)

	high := make([]float64, n)
	if senders != nil {
		perSender := map[string][]float64{}
		for i := 0; i < n; i++ {
			if !math.IsNaN(amounts[i]) {
				perSender[senders[i]] = append(perSender[senders[i]], amounts[i])
			}
		}
		q := map[string]float64{}
		for k, vals := range perSender {
			sort.Float64s(vals)
			q[k] = stat.Quantile(0.95, stat.LinInterp, vals, nil)
		}
		for i := 0; i < n; i++ {
			if !math.IsNaN(amounts[i]) && amounts[i] >= q[senders[i]] {
				high[i] = 1
			}
		}
	} else {
		sorted := make([]float64, 0, n)
		for _, a := range amounts {
			if !math.IsNaN(a) {
				sorted = append(sorted, a)
			}
		}
		sort.Float64s(sorted)
		if len(sorted) > 0 {
			q := stat.Quantile(0.95, stat.LinInterp, sorted, nil)
			for i, a := range amounts {
				if !math.IsNaN(a) && a >= q {
					high[i] = 1
				}
			}
		}
	}
	f.SetNumeric("is_high_value", high)

	repeat := make([]float64, n)
	if senders != nil && receivers != nil {
		count := map[string]float64{}
		key := func(i int) string {
			return senders[i] + "\x00" + receivers[i] + "\x00" + strconv.FormatFloat(amounts[i], 'g', -1, 64)
		}
		for i := 0; i < n; i++ {
			count[key(i)]++
		}
		for i := 0; i < n; i++ {
			repeat[i] = count[key(i)]
		}
	}
	f.SetNumeric("same_receiver_amount_count", repeat)
}

func deviceNetwork(f *data.Frame, cols config.Columns) {
	n := f.Rows()
	senders := groupKeys(f, cols.Sender)
	devices := groupKeys(f, cols.Device)

	if devices != nil && senders != nil {
		users := map[string]map[string]struct{}{}
		for i := 0; i < n; i++ {
			if users[devices[i]] == nil {
				users[devices[i]] = map[string]struct{}{}
			}
			users[devices[i]][senders[i]] = struct{}{}
		}
		freq := make([]float64, n)
		for i := 0; i < n; i++ {
			freq[i] = float64(len(users[devices[i]]))
		}
		f.SetNumeric("device_freq", freq)
	} else {
		constant(f, "device_freq", 0)
	}

	latency := f.Numeric(cols.Latency)
	if latency != nil && senders != nil {
		sum := map[string]float64{}
		count := map[string]float64{}
		for i := 0; i < n; i++ {
			v := latency[i]
			if math.IsNaN(v) {
				v = 0
			}
			sum[senders[i]] += v
			count[senders[i]]++
		}
		avg := make([]float64, n)
		for i := 0; i < n; i++ {
			avg[i] = sum[senders[i]] / count[senders[i]]
		}
		f.SetNumeric("avg_latency_user", avg)
	} else {
		constant(f, "avg_latency_user", 0)
	}

	bandwidth := f.Numeric(cols.Bandwidth)
	if bandwidth != nil && latency != nil {
		ratio := make([]float64, n)
		for i := 0; i < n; i++ {
			b, l := bandwidth[i], latency[i]
			if math.IsNaN(b) {
				b = 0
			}
			if math.IsNaN(l) {
				l = 0
			}
			// +1 keeps zero-latency rows finite.
			ratio[i] = b / (l + 1)
		}
		f.SetNumeric("bandwidth_ratio", ratio)
	} else {
		constant(f, "bandwidth_ratio", 0)
	}
}

func spatial(f *data.Frame, cols config.Columns) {
	n := f.Rows()
	lat := make([]float64, n)
	lon := make([]float64, n)
	for i := range lat {
		lat[i] = math.NaN()
		lon[i] = math.NaN()
	}
	if geos := f.Strings(cols.Geolocation); geos != nil {
		for i, g := range geos {
			if la, lo, ok := ParseGeolocation(g); ok {
				lat[i] = la
				lon[i] = lo
			}
		}
	}
	f.SetNumeric("latitude", lat)
	f.SetNumeric("longitude", lon)

	dist := make([]float64, n)
	avgDist := make([]float64, n)
	suspicious := make([]float64, n)
	senders := groupKeys(f, cols.Sender)
	if senders != nil {
		times := TimeValues(f, cols)
		tsl := f.Numeric("time_since_last_txn_user")
		for _, order := range senderOrders(senders, times) {
			var sum float64
			var count float64
			for j := 1; j < len(order); j++ {
				i, prev := order[j], order[j-1]
				d := Haversine(lat[i], lon[i], lat[prev], lon[prev])
				if math.IsNaN(d) {
					continue
				}
				dist[i] = d
				sum += d
				count++
				if d > ImpossibleTravelKM && tsl[i] < ImpossibleTravelWindow {
					suspicious[i] = 1
				}
			}
			if count > 0 {
				mean := sum / count
				for _, i := range order {
					avgDist[i] = mean
				}
			}
		}
	}
	f.SetNumeric("distance_from_last_location", dist)
	f.SetNumeric("avg_txn_distance", avgDist)
	f.SetNumeric("suspicious_travel", suspicious)
}

// ParseGeolocation extracts a latitude/longitude pair from a combined
// coordinate string. Parenthesis wrapping and directional letter suffixes
// are tolerated; malformed entries report ok=false rather than failing.
func ParseGeolocation(s string) (lat, lon float64, ok bool) {
	cleaned := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '(', ')', 'N', 'S', 'E', 'W', 'n', 's', 'e', 'w', ' ':
		default:
			cleaned = append(cleaned, r)
		}
	}
	parts := splitComma(string(cleaned))
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(parts[0], 64)
	lon, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func splitComma(s string) []string {
	out := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// Haversine returns the great-circle distance in kilometers. Any NaN input
// yields NaN.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	if math.IsNaN(lat1) || math.IsNaN(lon1) || math.IsNaN(lat2) || math.IsNaN(lon2) {
		return math.NaN()
	}
	const earthRadiusKM = 6371.0
	rad := math.Pi / 180
	dlat := (lat2 - lat1) * rad
	dlon := (lon2 - lon1) * rad
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

// SweepNonFinite zeroes NaN and infinite cells in every numeric column, in
// place. Runs as the final safety pass of the feature sequence.
func SweepNonFinite(f *data.Frame) {
	for _, name := range f.NumericNames() {
		vals := f.Numeric(name)
		for i, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				vals[i] = 0
			}
		}
	}
}

// Select ranks the numeric candidate columns by descending variance and
// returns the top max names. Identifier and label columns are excluded;
// ties keep the frame's column order.
func Select(f *data.Frame, cols config.Columns, max int) []string {
	type ranked struct {
		name     string
		variance float64
		pos      int
	}
	candidates := []ranked{}
	for pos, name := range f.NumericNames() {
		if name == cols.ID || name == cols.Label {
			continue
		}
		vals := f.Numeric(name)
		clean := make([]float64, 0, len(vals))
		for _, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				clean = append(clean, 0)
			} else {
				clean = append(clean, v)
			}
		}
		candidates = append(candidates, ranked{name, stat.Variance(clean, nil), pos})
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].variance > candidates[b].variance
	})
	if max > len(candidates) {
		max = len(candidates)
	}
	out := make([]string, max)
	for i := 0; i < max; i++ {
		out[i] = candidates[i].name
	}
	return out
}
