package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings is the player daemon configuration.
type Settings struct {
	Port      string
	LogLevel  string
	LogFormat string

	// TickPeriod is how often each playing session advances.
	TickPeriod time.Duration
	// AudioBuffers is the number of device buffers per session.
	AudioBuffers int
	// Advisory decode queue bounds.
	QueueVideoCapacity int
	QueueAudioCapacity int

	// Synthetic source defaults.
	SourceFPS        int
	SourceLength     time.Duration
	SourceSampleRate int
}

// FromEnv reads Settings from the environment, falling back to defaults for
// unset or malformed values.
func FromEnv() Settings {
	return Settings{
		Port:               GetEnv("PORT", "8080"),
		LogLevel:           GetEnv("LOG_LEVEL", "info"),
		LogFormat:          GetEnv("LOG_FORMAT", "json"),
		TickPeriod:         GetEnvDuration("TICK_PERIOD", 10*time.Millisecond),
		AudioBuffers:       GetEnvInt("AUDIO_BUFFERS", 30),
		QueueVideoCapacity: GetEnvInt("QUEUE_VIDEO_CAPACITY", 10),
		QueueAudioCapacity: GetEnvInt("QUEUE_AUDIO_CAPACITY", 60),
		SourceFPS:          GetEnvInt("SOURCE_FPS", 25),
		SourceLength:       time.Duration(GetEnvInt("SOURCE_SECONDS", 10)) * time.Second,
		SourceSampleRate:   GetEnvInt("SOURCE_SAMPLE_RATE", 48000),
	}
}

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files; with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvDuration parses the environment variable named by key with
// time.ParseDuration ("10ms", "1s"). A bare integer is taken as milliseconds.
// Unset, empty, malformed or negative values yield fallback.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	if n, err := strconv.Atoi(s); err == nil {
		s = strconv.Itoa(n) + "ms"
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
