package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultDataDir = "./data"
const defaultListenAddress = ":8080"

const (
	DefaultGeminiModel  = "gemini-2.0-flash"
	DefaultPostTime     = "21:00"
	DefaultSMTPHost     = "smtp.gmail.com"
	DefaultSMTPPort     = 587
	DefaultBlueskyPDS   = "https://bsky.social"
	DefaultInstagramAPI = "https://graph.facebook.com/v19.0"
	minSessionSecretLen = 32
)

// Configuration holds every setting read from the environment. Components
// read their own typed view of it through the Get*Config helpers below.
type Configuration map[string]any

func ReadConfig() Configuration {
	c := Configuration{}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir
		if err := os.Setenv("DATA_DIR", dataDir); err != nil {
			logrus.Fatalf("Failed to set DATA_DIR: %v", err)
		}
	}
	c["data_dir"] = dataDir

	// Read the env file. Plain environment variables still work without it.
	if err := godotenv.Load(filepath.Join(dataDir, ".env")); err != nil {
		logrus.Infof("No env file found in %s, reading from environment variables", dataDir)
	}

	level := ParseLogLevel(os.Getenv("LOG_LEVEL"))
	c["log_level"] = level.String()
	SetLogLevel(level)

	listenAddress := os.Getenv("LISTEN_ADDRESS")
	if listenAddress == "" {
		listenAddress = defaultListenAddress
	}
	c["listen_address"] = listenAddress

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "kartr.db")
	}
	c["database_path"] = dbPath

	c["stats_buf_size"] = uint(intFromEnv("STATS_BUF_SIZE", 128))
	c["max_jobs"] = intFromEnv("MAX_JOBS", 10)
	c["result_cache_max_size"] = intFromEnv("RESULT_CACHE_MAX_SIZE", 1000)
	c["result_cache_max_age_seconds"] = secondsFromEnv("RESULT_CACHE_MAX_AGE_SECONDS", 600)
	c["job_timeout_seconds"] = secondsFromEnv("JOB_TIMEOUT_SECONDS", 300)

	// Session signing
	secret := os.Getenv("SESSION_SECRET")
	if len(secret) < minSessionSecretLen {
		if secret != "" {
			logrus.Warnf("SESSION_SECRET is shorter than %d characters, generating a random one", minSessionSecretLen)
		} else {
			logrus.Warn("SESSION_SECRET is not set, generating a random one. Sessions will not survive a restart")
		}
		secret = randomSecret()
	}
	c["session_secret"] = secret
	c["session_timeout_seconds"] = secondsFromEnv("SESSION_TIMEOUT_SECONDS", 86400)

	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		c["api_key"] = apiKey
	}

	// Upstream APIs
	c["youtube_api_key"] = os.Getenv("YOUTUBE_API_KEY")
	if c.GetString("youtube_api_key", "") != "" {
		logrus.Info("YouTube API key found")
	}
	c["gemini_api_key"] = os.Getenv("GEMINI_API_KEY")
	if c.GetString("gemini_api_key", "") != "" {
		logrus.Info("Gemini API key found")
	}
	c["gemini_model"] = stringFromEnv("GEMINI_MODEL", DefaultGeminiModel)

	// Mail / OTP
	c["email_user"] = os.Getenv("EMAIL_USER")
	c["email_password"] = os.Getenv("EMAIL_PASSWORD")
	c["smtp_host"] = stringFromEnv("SMTP_HOST", DefaultSMTPHost)
	c["smtp_port"] = intFromEnv("SMTP_PORT", DefaultSMTPPort)
	c["otp_ttl_seconds"] = secondsFromEnv("OTP_TTL_SECONDS", 600)
	c["otp_length"] = intFromEnv("OTP_LENGTH", 6)

	// Social
	c["bluesky_handle"] = os.Getenv("BLUESKY_HANDLE")
	c["bluesky_app_password"] = os.Getenv("BLUESKY_APP_PASSWORD")
	c["bluesky_pds"] = stringFromEnv("BLUESKY_PDS", DefaultBlueskyPDS)
	c["instagram_user_id"] = os.Getenv("INSTAGRAM_USER_ID")
	c["instagram_access_token"] = os.Getenv("INSTAGRAM_ACCESS_TOKEN")
	c["instagram_api_url"] = strings.TrimRight(stringFromEnv("INSTAGRAM_API_URL", DefaultInstagramAPI), "/")
	// Instagram fetches media by URL, so local files must be reachable from outside.
	c["media_base_url"] = strings.TrimRight(os.Getenv("MEDIA_BASE_URL"), "/")
	c["youtube_client_secrets"] = os.Getenv("YOUTUBE_CLIENT_SECRETS")
	c["youtube_token_file"] = stringFromEnv("YOUTUBE_TOKEN_FILE", filepath.Join(dataDir, "youtube_token.json"))

	// Image generation backend
	c["imagegen_url"] = strings.TrimRight(os.Getenv("IMAGEGEN_URL"), "/")
	c["imagegen_timeout_seconds"] = secondsFromEnv("IMAGEGEN_TIMEOUT_SECONDS", 120)

	// Scheduler
	c["scheduler_interval_seconds"] = secondsFromEnv("SCHEDULER_INTERVAL_SECONDS", 60)
	c["default_post_time"] = stringFromEnv("DEFAULT_POST_TIME", DefaultPostTime)

	c["profiling_enabled"] = os.Getenv("ENABLE_PPROF") == "true"

	return c
}

func stringFromEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intFromEnv(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		logrus.Errorf("Error parsing %s (%q). Setting to default %d.", key, s, def)
		return def
	}
	return v
}

func secondsFromEnv(key string, def int) time.Duration {
	return time.Duration(intFromEnv(key, def)) * time.Second
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logrus.Fatalf("Failed to generate session secret: %v", err)
	}
	return hex.EncodeToString(b)
}

// Unmarshal unmarshals the configuration into the supplied interface.
func (c Configuration) Unmarshal(v any) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("error marshalling configuration: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	return nil
}

func (c Configuration) DataDir() string {
	return c.GetString("data_dir", defaultDataDir)
}

func (c Configuration) ListenAddress() string {
	return c.GetString("listen_address", defaultListenAddress)
}

func (c Configuration) DatabasePath() string {
	return c.GetString("database_path", filepath.Join(c.DataDir(), "kartr.db"))
}

// GetInt safely extracts an int from Configuration, with a default fallback
func (c Configuration) GetInt(key string, def int) int {
	if v, ok := c[key]; ok {
		switch val := v.(type) {
		case int:
			return val
		case int64:
			return int(val)
		case uint:
			return int(val)
		case float64:
			return int(val)
		case float32:
			return int(val)
		}
	}
	return def
}

func (c Configuration) GetDuration(key string, defSecs int) time.Duration {
	if v, ok := c[key]; ok {
		switch val := v.(type) {
		case time.Duration:
			return val
		case int:
			return time.Duration(val) * time.Second
		}
	}
	return time.Duration(defSecs) * time.Second
}

func (c Configuration) GetString(key string, def string) string {
	if v, ok := c[key]; ok {
		if val, ok := v.(string); ok {
			return val
		}
	}
	return def
}

// GetStringSlice safely extracts a string slice from Configuration, with a default fallback
func (c Configuration) GetStringSlice(key string, def []string) []string {
	if v, ok := c[key]; ok {
		if val, ok := v.([]string); ok {
			return val
		}
	}
	return def
}

// GetBool safely extracts a bool from Configuration, with a default fallback
func (c Configuration) GetBool(key string, def bool) bool {
	if v, ok := c[key]; ok {
		if val, ok := v.(bool); ok {
			return val
		}
	}
	return def
}

type YouTubeConfig struct {
	APIKey string
}

func (c Configuration) GetYouTubeConfig() YouTubeConfig {
	return YouTubeConfig{APIKey: c.GetString("youtube_api_key", "")}
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

func (c Configuration) GetGeminiConfig() GeminiConfig {
	return GeminiConfig{
		APIKey: c.GetString("gemini_api_key", ""),
		Model:  c.GetString("gemini_model", DefaultGeminiModel),
	}
}

type AuthConfig struct {
	SessionSecret  string
	SessionTimeout time.Duration
	OTPTTL         time.Duration
	OTPLength      int
	APIKey         string
}

func (c Configuration) GetAuthConfig() AuthConfig {
	return AuthConfig{
		SessionSecret:  c.GetString("session_secret", ""),
		SessionTimeout: c.GetDuration("session_timeout_seconds", 86400),
		OTPTTL:         c.GetDuration("otp_ttl_seconds", 600),
		OTPLength:      c.GetInt("otp_length", 6),
		APIKey:         c.GetString("api_key", ""),
	}
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// Configured reports whether SMTP credentials are present.
func (m MailConfig) Configured() bool {
	return m.User != "" && m.Password != ""
}

func (c Configuration) GetMailConfig() MailConfig {
	return MailConfig{
		Host:     c.GetString("smtp_host", DefaultSMTPHost),
		Port:     c.GetInt("smtp_port", DefaultSMTPPort),
		User:     c.GetString("email_user", ""),
		Password: c.GetString("email_password", ""),
	}
}

type SocialConfig struct {
	BlueskyHandle        string
	BlueskyAppPassword   string
	BlueskyPDS           string
	InstagramUserID      string
	InstagramAccessToken string
	InstagramAPIURL      string
	MediaBaseURL         string
	YouTubeClientSecrets string
	YouTubeTokenFile     string
}

func (c Configuration) GetSocialConfig() SocialConfig {
	return SocialConfig{
		BlueskyHandle:        c.GetString("bluesky_handle", ""),
		BlueskyAppPassword:   c.GetString("bluesky_app_password", ""),
		BlueskyPDS:           c.GetString("bluesky_pds", DefaultBlueskyPDS),
		InstagramUserID:      c.GetString("instagram_user_id", ""),
		InstagramAccessToken: c.GetString("instagram_access_token", ""),
		InstagramAPIURL:      c.GetString("instagram_api_url", DefaultInstagramAPI),
		MediaBaseURL:         c.GetString("media_base_url", ""),
		YouTubeClientSecrets: c.GetString("youtube_client_secrets", ""),
		YouTubeTokenFile:     c.GetString("youtube_token_file", ""),
	}
}

type ImageGenConfig struct {
	URL     string
	Timeout time.Duration
	DataDir string
}

func (c Configuration) GetImageGenConfig() ImageGenConfig {
	return ImageGenConfig{
		URL:     c.GetString("imagegen_url", ""),
		Timeout: c.GetDuration("imagegen_timeout_seconds", 120),
		DataDir: c.DataDir(),
	}
}

type SchedulerConfig struct {
	Interval        time.Duration
	DefaultPostTime string
	DataDir         string
}

func (c Configuration) GetSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:        c.GetDuration("scheduler_interval_seconds", 60),
		DefaultPostTime: c.GetString("default_post_time", DefaultPostTime),
		DataDir:         c.DataDir(),
	}
}

type JobServerConfig struct {
	Workers            int
	StatsBufSize       uint
	ResultCacheMaxSize int
	ResultCacheMaxAge  time.Duration
	JobTimeout         time.Duration
}

func (c Configuration) GetJobServerConfig() JobServerConfig {
	return JobServerConfig{
		Workers:            c.GetInt("max_jobs", 10),
		StatsBufSize:       uint(c.GetInt("stats_buf_size", 128)),
		ResultCacheMaxSize: c.GetInt("result_cache_max_size", 1000),
		ResultCacheMaxAge:  c.GetDuration("result_cache_max_age_seconds", 600),
		JobTimeout:         c.GetDuration("job_timeout_seconds", 300),
	}
}

// ParseLogLevel parses a string and returns the corresponding logrus.Level.
func ParseLogLevel(logLevel string) logrus.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		logrus.WithFields(logrus.Fields{"level": logLevel, "setting_to": logrus.InfoLevel.String()}).Error("Invalid log level")
		return logrus.InfoLevel
	}
}

// SetLogLevel sets the log level for the application.
func SetLogLevel(level logrus.Level) {
	logrus.SetLevel(level)
}
