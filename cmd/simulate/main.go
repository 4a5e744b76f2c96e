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
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/equilibra/burnout-scheduling/internal/config"
	"github.com/equilibra/burnout-scheduling/internal/db"
)

// The simulator replays a clinic's day against a running api-server:
// patients submit burnout surveys (some hot enough to auto-schedule),
// book slots by hand, and everyone reads availability.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	SurveyRatio  float64
	BookingRatio float64
	ReadRatio    float64
	PatientLimit int
	PostgresDSN  string
}

type simUser struct {
	ID    uuid.UUID
	Email string
}

type DataPool struct {
	Patients []simUser
	Doctors  []simUser

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[len(latencies)*50/100]
	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]
	return
}

type Metrics struct {
	Survey    OperationMetrics
	AutoSched int64 // surveys that came back with an auto-appointment
	Booking   OperationMetrics
	Slots     OperationMetrics
	List      OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d survey=%.2f booking=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.SurveyRatio, cfg.BookingRatio, cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d patients, %d doctors", len(dataPool.Patients), len(dataPool.Doctors))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		SurveyRatio:  getFloat("SIM_SURVEY_RATIO", 0.3),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.3),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.4),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 1000),
		PostgresDSN:  baseCfg.PostgresDSN,
	}

	total := cfg.SurveyRatio + cfg.BookingRatio + cfg.ReadRatio
	if total > 0 {
		cfg.SurveyRatio /= total
		cfg.BookingRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT id, email FROM users WHERE role = 'patient' LIMIT $1
	`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u simUser
		if err := rows.Scan(&u.ID, &u.Email); err != nil {
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, u)
	}

	rows, err = pool.Query(ctx, `
		SELECT id, email FROM users WHERE role = 'doctor'
	`)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u simUser
		if err := rows.Scan(&u.ID, &u.Email); err != nil {
			return nil, err
		}
		dataPool.Doctors = append(dataPool.Doctors, u)
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run the seed first")
	}
	if len(dataPool.Doctors) == 0 {
		return nil, fmt.Errorf("no doctors loaded, run the seed first")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.SurveyRatio:
				s.doSurvey(ctx, rng)
			case r < s.config.SurveyRatio+s.config.BookingRatio:
				s.doBooking(ctx, rng)
			default:
				if rng.Intn(2) == 0 {
					s.doReadSlots(ctx, rng)
				} else {
					s.doListAppointments(ctx, rng)
				}
			}
		}
	}
}

func (s *Simulator) doSurvey(ctx context.Context, rng *rand.Rand) {
	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	// Five answers 0..15, so roughly a third of surveys cross the
	// auto-schedule threshold.
	answers := make([]int, 5)
	score := 0
	for i := range answers {
		answers[i] = rng.Intn(16)
		score += answers[i]
	}

	body, _ := json.Marshal(map[string]any{"score": score, "answers": answers})

	start := time.Now()
	resp, err := s.post(ctx, "/surveys", patient.ID, body)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusCreated {
			success = true
			var surveyResp struct {
				AutoAppointment *struct {
					ID uuid.UUID `json:"id"`
				} `json:"auto_appointment"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if json.Unmarshal(bodyBytes, &surveyResp) == nil && surveyResp.AutoAppointment != nil {
				atomic.AddInt64(&s.metrics.AutoSched, 1)
				s.pool.AddAppointment(surveyResp.AutoAppointment.ID)
			}
		}
	}

	// A second same-day survey comes back 400; count it as neither
	// success nor conflict noise.
	s.metrics.Survey.Record(latency, success, false)
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	doctor := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]

	// A working-hours slot within the next week.
	day := time.Now().AddDate(0, 0, 1+rng.Intn(7))
	hour := 8 + rng.Intn(8)
	startAt := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)

	body, _ := json.Marshal(map[string]string{
		"doctor_id": doctor.ID.String(),
		"date":      startAt.Format(time.RFC3339),
	})

	start := time.Now()
	resp, err := s.post(ctx, "/appointments", patient.ID, body)
	latency := time.Since(start)

	success := false
	conflict := false
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusCreated {
			success = true
			var apptResp struct {
				ID uuid.UUID `json:"id"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if json.Unmarshal(bodyBytes, &apptResp) == nil && apptResp.ID != uuid.Nil {
				s.pool.AddAppointment(apptResp.ID)
			}
		} else if resp.StatusCode == http.StatusConflict {
			conflict = true
		}
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doReadSlots(ctx context.Context, rng *rand.Rand) {
	doctor := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
	date := time.Now().AddDate(0, 0, rng.Intn(7)).Format("2006-01-02")

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/doctors/%s/slots?date=%s", s.config.APIBaseURL, doctor.ID, date), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.Slots.Record(latency, success, false)
}

func (s *Simulator) doListAppointments(ctx context.Context, rng *rand.Rand) {
	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+"/appointments", nil)
	req.Header.Set("X-User-ID", patient.ID.String())

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.List.Record(latency, success, false)
}

func (s *Simulator) post(ctx context.Context, path string, userID uuid.UUID, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID.String())
	return s.client.Do(req)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Auto-scheduled appointments: %d\n", atomic.LoadInt64(&s.metrics.AutoSched))
	fmt.Println()

	printOperationReport("Survey", &s.metrics.Survey)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Read Slots", &s.metrics.Slots)
	printOperationReport("List Appointments", &s.metrics.List)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failures := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failures > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failures, float64(failures)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
