package data

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

var txnTypes = []string{"transfer", "payment", "withdrawal", "deposit", "purchase"}
var txnStatuses = []string{"completed", "pending", "failed"}
var devices = []string{"mobile_android", "mobile_ios", "web_browser", "atm", "pos_terminal"}
var networkSlices = []string{"slice_a", "slice_b", "slice_c", "slice_premium"}

// GenerateSyntheticTransactions writes n labeled transactions to a CSV,
// with a latent numeric block (V1..Vlatent) and fraud correlated with a
// handful of structural signals. Deterministic for a fixed seed.
func GenerateSyntheticTransactions(n, latent int, fraudRate float64, seed int64, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"transaction_id", "timestamp", "amount",
		"sender_account_id", "receiver_account_id",
		"transaction_type", "transaction_status",
		"device_used", "network_slice_id",
		"latency_ms", "bandwidth_mbps", "geolocation",
	}
	for v := 1; v <= latent; v++ {
		header = append(header, fmt.Sprintf("V%d", v))
	}
	header = append(header, "fraud_flag")
	if err := w.Write(header); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(seed))
	base := int64(1700000000)

	for i := 0; i < n; i++ {
		sender := "ACC" + strconv.Itoa(rng.Intn(2000))
		receiver := "ACC" + strconv.Itoa(rng.Intn(2000))
		ts := base + int64(i)*30 + int64(rng.Intn(30))

		amount := rng.ExpFloat64() * 120
		nightOwl := (ts/3600)%24 < 5
		if rng.Float64() < 0.03 {
			amount *= 10
		}

		device := devices[rng.Intn(len(devices))]
		latency := 20 + rng.Float64()*180
		bandwidth := 1 + rng.Float64()*99
		lat := -35 + rng.Float64()*70
		lon := -120 + rng.Float64()*240
		geo := fmt.Sprintf("(%.4f, %.4f)", lat, lon)

		score := 0.0
		flags := 0
		if amount > 600 {
			score += 0.3
			flags++
		}
		if nightOwl {
			score += 0.15
			flags++
		}
		if sender == receiver {
			score += 0.35
			flags++
		}
		if latency > 170 {
			score += 0.1
			flags++
		}

		fraud := 0
		if flags >= 2 {
			fraud = 1
		} else if rng.Float64() < fraudRate+score {
			fraud = 1
		}

		rec := []string{
			uuid.NewString(),
			strconv.FormatInt(ts, 10),
			strconv.FormatFloat(amount, 'f', 2, 64),
			sender,
			receiver,
			txnTypes[rng.Intn(len(txnTypes))],
			txnStatuses[rng.Intn(len(txnStatuses))],
			device,
			networkSlices[rng.Intn(len(networkSlices))],
			strconv.FormatFloat(latency, 'f', 1, 64),
			strconv.FormatFloat(bandwidth, 'f', 1, 64),
			geo,
		}
		for v := 0; v < latent; v++ {
			shift := 0.0
			if fraud == 1 {
				shift = 1.5
			}
			rec = append(rec, strconv.FormatFloat(rng.NormFloat64()+shift, 'f', 4, 64))
		}
		rec = append(rec, strconv.Itoa(fraud))
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
