package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CREDENCE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CREDENCE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// ResolveMaxIterations caps a single defeater resolution run.
// Defaults to 1000 if not set.
func ResolveMaxIterations() int {
	n, err := strconv.Atoi(os.Getenv("RESOLVE_MAX_ITERATIONS"))
	if err != nil || n <= 0 {
		return 1000
	}
	return n
}

// CalibrationBuckets returns the number of calibration histogram buckets.
// Defaults to 10 (deciles) if not set.
func CalibrationBuckets() int {
	n, err := strconv.Atoi(os.Getenv("CALIBRATION_BUCKETS"))
	if err != nil || n <= 0 {
		return 10
	}
	return n
}

// CalibrationEpsilon is the PAC accuracy target for sufficiency verdicts.
// Defaults to 0.1 if not set.
func CalibrationEpsilon() float64 {
	e, err := strconv.ParseFloat(os.Getenv("CALIBRATION_EPSILON"), 64)
	if err != nil || e <= 0 || e >= 1 {
		return 0.1
	}
	return e
}

// CalibrationDelta is the PAC failure probability for sufficiency verdicts.
// Defaults to 0.05 if not set.
func CalibrationDelta() float64 {
	d, err := strconv.ParseFloat(os.Getenv("CALIBRATION_DELTA"), 64)
	if err != nil || d <= 0 || d >= 1 {
		return 0.05
	}
	return d
}

// EvidenceSweepMinutes is the interval between evidence expiry sweeps.
// Defaults to 15 if not set.
func EvidenceSweepMinutes() int {
	n, err := strconv.Atoi(os.Getenv("EVIDENCE_SWEEP_MINUTES"))
	if err != nil || n <= 0 {
		return 15
	}
	return n
}
