package config

import (
	"PoseLogin/pkg/camera"
	"PoseLogin/pkg/cascade"
	"PoseLogin/pkg/pose"
	"PoseLogin/pkg/redis"
	"PoseLogin/pkg/sequencer"
	"PoseLogin/pkg/stream"
	"PoseLogin/pkg/utils"
	websocketPkg "PoseLogin/pkg/websocket"
	"fmt"
	"github.com/go-playground/validator/v10"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig is everything read from the environment at startup.
type AppConfig struct {
	Port string `validate:"required,numeric"`
	Env  string `validate:"omitempty,oneof=development production test"`

	CameraIndex  int     `validate:"gte=0"`
	CameraWidth  int     `validate:"gt=0"`
	CameraHeight int     `validate:"gt=0"`
	CameraFPS    float64 `validate:"gt=0"`

	DetectionConfidence float64 `validate:"gte=0,lte=1"`
	TrackingConfidence  float64 `validate:"gte=0,lte=1"`
	LandmarkURL         string  `validate:"omitempty,url"`
	FaceCascadePath     string
	SmileCascadePath    string

	JPEGQuality    int           `validate:"gte=1,lte=100"`
	FrameInterval  time.Duration `validate:"gt=0"`
	PoseHold       time.Duration `validate:"gt=0"`
	AngleThreshold float64       `validate:"gt=0,lt=90"`
	LoginSequence  []string      `validate:"min=1,dive,pose_step"`

	VerificationTTL time.Duration `validate:"gt=0"`
	RedisAddress    string
	RedisPassword   string
	RedisDB         int `validate:"gte=0"`
}

// LoadAppConfig reads the environment, applying defaults for unset keys, and
// validates the result.
func LoadAppConfig(v *validator.Validate, u utils.IUtils) (AppConfig, error) {
	p := envParser{}

	cfg := AppConfig{
		Port: getEnv("APP_PORT", "3000"),
		Env:  getEnv("APP_ENV", "development"),

		CameraIndex:  p.int("CAMERA_INDEX", 0),
		CameraWidth:  p.int("CAMERA_WIDTH", 640),
		CameraHeight: p.int("CAMERA_HEIGHT", 480),
		CameraFPS:    p.float("CAMERA_FPS", 30),

		DetectionConfidence: p.float("DETECTION_CONFIDENCE", 0.5),
		TrackingConfidence:  p.float("TRACKING_CONFIDENCE", 0.5),
		LandmarkURL:         getEnv("AI_LANDMARK_URL", websocketPkg.DefaultConfig().URL),
		FaceCascadePath:     getEnv("FACE_CASCADE_PATH", cascade.DefaultConfig().FaceCascadePath),
		SmileCascadePath:    getEnv("SMILE_CASCADE_PATH", cascade.DefaultConfig().SmileCascadePath),

		JPEGQuality:    p.int("JPEG_QUALITY", stream.DefaultJPEGQuality),
		FrameInterval:  time.Duration(p.int("STREAM_FRAME_INTERVAL_MS", 33)) * time.Millisecond,
		PoseHold:       p.seconds("POSE_HOLD_SECONDS", sequencer.DefaultHold),
		AngleThreshold: p.float("POSE_ANGLE_THRESHOLD", pose.DefaultAngleThreshold),
		LoginSequence:  u.SplitList(getEnv("LOGIN_SEQUENCE", defaultSequence())),

		VerificationTTL: p.seconds("VERIFICATION_TTL_SECONDS", 5*time.Minute),
		RedisAddress:    os.Getenv("REDIS_ADDRESS"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         p.int("REDIS_DB", 0),
	}

	if p.err != nil {
		return AppConfig{}, p.err
	}
	if err := v.Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c AppConfig) Camera() camera.Config {
	return camera.Config{
		Index:  c.CameraIndex,
		Width:  c.CameraWidth,
		Height: c.CameraHeight,
		FPS:    c.CameraFPS,
	}
}

func (c AppConfig) Classifier() pose.ClassifierConfig {
	cfg := pose.DefaultClassifierConfig()
	cfg.AngleThreshold = c.AngleThreshold
	return cfg
}

func (c AppConfig) Cascade() cascade.Config {
	cfg := cascade.DefaultConfig()
	cfg.FaceCascadePath = c.FaceCascadePath
	cfg.SmileCascadePath = c.SmileCascadePath
	return cfg
}

func (c AppConfig) Landmarks() websocketPkg.Config {
	cfg := websocketPkg.DefaultConfig()
	cfg.URL = c.LandmarkURL
	cfg.DetectionConfidence = c.DetectionConfidence
	cfg.TrackingConfidence = c.TrackingConfidence
	cfg.JPEGQuality = c.JPEGQuality
	return cfg
}

func (c AppConfig) Redis() redis.Config {
	return redis.Config{
		Address:  c.RedisAddress,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

func (c AppConfig) Sequence() ([]pose.Label, error) {
	labels := make([]pose.Label, 0, len(c.LoginSequence))
	for _, item := range c.LoginSequence {
		label, err := pose.ParseLabel(item)
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, nil
}

func defaultSequence() string {
	names := make([]string, len(sequencer.DefaultSequence))
	for i, label := range sequencer.DefaultSequence {
		names[i] = string(label)
	}
	return strings.Join(names, ",")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// envParser keeps the first parse failure so every key can be read in one
// pass.
type envParser struct {
	err error
}

func (p *envParser) int(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return value
}

func (p *envParser) float(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return value
}

func (p *envParser) seconds(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return time.Duration(value * float64(time.Second))
}

func (p *envParser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid value %q for %s: %w", raw, key, err)
	}
}
