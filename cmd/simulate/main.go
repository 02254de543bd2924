package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/scheduling-engine/internal/db"
)

// Booking storm driver: hammers the API with concurrent book, cancel and
// availability reads, then reports per-operation success/conflict counts and
// latency percentiles. Conflicts (409) are expected under contention and are
// counted separately from errors.

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	BookRatio   float64
	CancelRatio float64
	PostgresDSN string
}

func loadSimConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:  getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		Duration:    30 * time.Second,
		Workers:     16,
		BookRatio:   0.6,
		CancelRatio: 0.15,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}
	if v := os.Getenv("SIM_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Duration = d
		}
	}
	if v := os.Getenv("SIM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type DataPool struct {
	Doctors  []uuid.UUID
	Patients []uuid.UUID

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment() (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rand.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Rejected int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case status >= 400 && status < 500:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Percentile(p float64) time.Duration {
	om.mu.Lock()
	defer om.mu.Unlock()
	if len(om.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(om.latencies))
	copy(sorted, om.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg := loadSimConfig()

	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required to discover seeded doctors")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}

	doctors, err := loadDoctors(context.Background(), pool)
	pool.Close()
	if err != nil {
		log.Fatalf("load doctors: %v", err)
	}
	if len(doctors) == 0 {
		log.Fatal("no work templates found, run cmd/seed first")
	}

	gofakeit.Seed(time.Now().UnixNano())

	dp := &DataPool{Doctors: doctors}
	for i := 0; i < 500; i++ {
		dp.Patients = append(dp.Patients, uuid.New())
	}

	log.Printf("simulating %d workers for %s against %s (%d doctors)",
		cfg.Workers, cfg.Duration, cfg.APIBaseURL, len(doctors))

	var bookM, cancelM, readM OperationMetrics
	client := &http.Client{Timeout: 10 * time.Second}

	deadline := time.Now().Add(cfg.Duration)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				r := rand.Float64()
				switch {
				case r < cfg.BookRatio:
					doBook(client, cfg.APIBaseURL, dp, &bookM)
				case r < cfg.BookRatio+cfg.CancelRatio:
					doCancel(client, cfg.APIBaseURL, dp, &cancelM)
				default:
					doRead(client, cfg.APIBaseURL, dp, &readM)
				}
			}
		}()
	}
	wg.Wait()

	report("book", &bookM)
	report("cancel", &cancelM)
	report("read", &readM)
}

func loadDoctors(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `SELECT DISTINCT doctor_id FROM work_templates WHERE active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doctors []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		doctors = append(doctors, id)
	}
	return doctors, rows.Err()
}

// randomAlignedTime picks a 15-minute aligned working-hours moment within
// the next two weeks. Many collide on purpose: collisions are the point.
func randomAlignedTime() time.Time {
	day := time.Now().AddDate(0, 0, 1+rand.Intn(14))
	hour := 8 + rand.Intn(9)
	minute := 15 * rand.Intn(4)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.Local)
}

func doBook(client *http.Client, baseURL string, dp *DataPool, m *OperationMetrics) {
	doctor := dp.Doctors[rand.Intn(len(dp.Doctors))]
	patient := dp.Patients[rand.Intn(len(dp.Patients))]

	body, _ := json.Marshal(map[string]any{
		"patient_id":     patient.String(),
		"doctor_id":      doctor.String(),
		"scheduled_time": randomAlignedTime().Format(time.RFC3339),
		"reason":         gofakeit.Sentence(4),
		"priority":       gofakeit.Number(1, 3),
	})

	start := time.Now()
	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(body))
	if err != nil {
		m.Record(time.Since(start), 0)
		return
	}
	defer resp.Body.Close()
	m.Record(time.Since(start), resp.StatusCode)

	if resp.StatusCode == http.StatusCreated {
		var created struct {
			ID uuid.UUID `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err == nil {
			dp.AddAppointment(created.ID)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
}

func doCancel(client *http.Client, baseURL string, dp *DataPool, m *OperationMetrics) {
	id, ok := dp.RandomAppointment()
	if !ok {
		return
	}

	start := time.Now()
	resp, err := client.Post(fmt.Sprintf("%s/appointments/%s/cancel", baseURL, id), "application/json", nil)
	if err != nil {
		m.Record(time.Since(start), 0)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	m.Record(time.Since(start), resp.StatusCode)
}

func doRead(client *http.Client, baseURL string, dp *DataPool, m *OperationMetrics) {
	doctor := dp.Doctors[rand.Intn(len(dp.Doctors))]
	date := time.Now().AddDate(0, 0, rand.Intn(14)).Format("2006-01-02")

	start := time.Now()
	resp, err := client.Get(fmt.Sprintf("%s/doctors/%s/slots?date=%s", baseURL, doctor, date))
	if err != nil {
		m.Record(time.Since(start), 0)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	m.Record(time.Since(start), resp.StatusCode)
}

func report(name string, m *OperationMetrics) {
	log.Printf("%-7s total=%d success=%d conflict=%d rejected=%d error=%d p50=%s p99=%s",
		name,
		atomic.LoadInt64(&m.Total),
		atomic.LoadInt64(&m.Success),
		atomic.LoadInt64(&m.Conflict),
		atomic.LoadInt64(&m.Rejected),
		atomic.LoadInt64(&m.Error),
		m.Percentile(0.50),
		m.Percentile(0.99),
	)
}
