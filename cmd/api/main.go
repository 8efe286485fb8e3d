package main

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"frauddetect/internal/config"
	"frauddetect/internal/data"
	"frauddetect/internal/infer"
	"frauddetect/pkg/utils"
)

var pipeline *infer.Pipeline
var cfg config.Config

func main() {
	_ = godotenv.Load()
	logger := utils.Logger()
	defer logger.Sync()

	preset := os.Getenv("PRESET")
	if preset == "" {
		preset = "kfold"
	}
	var err error
	cfg, err = config.Preset(preset)
	if err != nil {
		logger.Fatal("invalid preset", zap.Error(err))
	}
	cfg = config.FromEnv(cfg)

	pipeline, err = infer.Load(cfg, logger)
	if err != nil {
		logger.Fatal("pipeline load failed", zap.Error(err))
	}

	r := gin.Default()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", handleMetrics)

	api := r.Group("/")
	api.Use(apiKeyMiddleware)
	api.POST("/predict", handlePredict)
	api.POST("/batch", handleBatch)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}

func apiKeyMiddleware(c *gin.Context) {
	key := os.Getenv("API_KEY")
	if key == "" {
		c.Next()
		return
	}
	if c.GetHeader("X-API-Key") != key {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

type predictReq struct {
	TransactionID     string             `json:"transaction_id"`
	Timestamp         float64            `json:"timestamp"`
	Amount            float64            `json:"amount"`
	SenderAccountID   string             `json:"sender_account_id"`
	ReceiverAccountID string             `json:"receiver_account_id"`
	TransactionType   string             `json:"transaction_type"`
	TransactionStatus string             `json:"transaction_status"`
	DeviceUsed        string             `json:"device_used"`
	NetworkSliceID    string             `json:"network_slice_id"`
	LatencyMs         float64            `json:"latency_ms"`
	BandwidthMbps     float64            `json:"bandwidth_mbps"`
	Geolocation       string             `json:"geolocation"`
	Extra             map[string]float64 `json:"extra"`
}

func frameFrom(items []predictReq) *data.Frame {
	cols := cfg.Columns
	n := len(items)
	f := data.NewFrame(n)
	ids := make([]string, n)
	ts := make([]float64, n)
	amounts := make([]float64, n)
	senders := make([]string, n)
	receivers := make([]string, n)
	types := make([]string, n)
	statuses := make([]string, n)
	devs := make([]string, n)
	slices := make([]string, n)
	lats := make([]float64, n)
	bws := make([]float64, n)
	geos := make([]string, n)
	extras := map[string][]float64{}
	for i, it := range items {
		ids[i] = it.TransactionID
		if ids[i] == "" {
			ids[i] = strconv.Itoa(i)
		}
		ts[i] = it.Timestamp
		amounts[i] = it.Amount
		senders[i] = it.SenderAccountID
		receivers[i] = it.ReceiverAccountID
		types[i] = it.TransactionType
		statuses[i] = it.TransactionStatus
		devs[i] = it.DeviceUsed
		slices[i] = it.NetworkSliceID
		lats[i] = it.LatencyMs
		bws[i] = it.BandwidthMbps
		geos[i] = it.Geolocation
		for k, v := range it.Extra {
			if extras[k] == nil {
				extras[k] = make([]float64, n)
			}
			extras[k][i] = v
		}
	}
	f.SetStrings(cols.ID, ids)
	f.SetNumeric(cols.Timestamp, ts)
	f.SetNumeric(cols.Amount, amounts)
	f.SetStrings(cols.Sender, senders)
	f.SetStrings(cols.Receiver, receivers)
	f.SetStrings("transaction_type", types)
	f.SetStrings("transaction_status", statuses)
	f.SetStrings(cols.Device, devs)
	f.SetStrings("network_slice_id", slices)
	f.SetNumeric(cols.Latency, lats)
	f.SetNumeric(cols.Bandwidth, bws)
	f.SetStrings(cols.Geolocation, geos)
	for k, vals := range extras {
		f.SetNumeric(k, vals)
	}
	return f
}

func handlePredict(c *gin.Context) {
	var req predictReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	preds, err := pipeline.Score(frameFrom([]predictReq{req}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	p := preds[0]
	c.JSON(http.StatusOK, gin.H{
		"transaction_id": p.ID,
		"probability":    p.Probability,
		"anomaly_score":  p.AnomalyScore,
		"fraud":          p.Fraud,
	})
}

func handleBatch(c *gin.Context) {
	var items []predictReq
	if err := c.BindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusOK, []gin.H{})
		return
	}
	preds, err := pipeline.Score(frameFrom(items))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, len(preds))
	for i, p := range preds {
		out[i] = gin.H{
			"transaction_id": p.ID,
			"probability":    p.Probability,
			"anomaly_score":  p.AnomalyScore,
			"fraud":          p.Fraud,
		}
	}
	c.JSON(http.StatusOK, out)
}

func handleMetrics(c *gin.Context) {
	path := filepath.Join(cfg.OutputsDir, "evaluation_metrics.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"metrics": gin.H{}})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}
