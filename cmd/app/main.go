package main

import (
	faceService "PoseLogin/internal/api/face/service"
	"PoseLogin/internal/config"
	"PoseLogin/internal/middleware"
	"PoseLogin/pkg/camera"
	"PoseLogin/pkg/cascade"
	"PoseLogin/pkg/log"
	"PoseLogin/pkg/metrics"
	"PoseLogin/pkg/pose"
	"PoseLogin/pkg/redis"
	"PoseLogin/pkg/sequencer"
	"PoseLogin/pkg/stream"
	"PoseLogin/pkg/utils"
	websocketPkg "PoseLogin/pkg/websocket"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("No .env file loaded: %v", err)
	}

	logger := log.NewLogger()
	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()
	appUtils := utils.New()

	appConfig, err := config.LoadAppConfig(validator, appUtils)
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	var store redis.IRedis
	if appConfig.RedisAddress != "" {
		store = redis.New(logger, appConfig.Redis())
	}

	session, closeSession := newSession(logger, appConfig)
	defer closeSession()

	registry := metrics.NewRegistry()
	faces := faceService.NewFaceService(logger, session, store, appUtils, faceService.Options{
		FrameInterval:       appConfig.FrameInterval,
		Encoder:             stream.NewJPEGEncoder(appConfig.JPEGQuality),
		VerificationTTL:     appConfig.VerificationTTL,
		DetectionConfidence: appConfig.DetectionConfidence,
		TrackingConfidence:  appConfig.TrackingConfidence,
		Observers:           []stream.Observer{metrics.Observer()},
	})

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithMiddleware(middleware.DefaultConfig()),
		config.WithFaceService(faces),
		config.WithRedisServer(store),
		config.WithMetrics(registry),
		config.WithPort(appConfig.Port),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":            appConfig.Port,
		"camera_ready":    session != nil,
		"login_sequence":  appConfig.LoginSequence,
		"hold_seconds":    appConfig.PoseHold.Seconds(),
		"redis_available": store != nil,
	}).Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(shutdownTimeout); err != nil {
		logger.Errorf("Shutdown finished with errors: %v", err)
	}
}

// newSession opens the camera and the detectors behind it. A nil session
// means the service runs without a camera and answers 503.
func newSession(logger *logrus.Logger, cfg config.AppConfig) (*faceService.Session, func()) {
	noop := func() {}

	sequence, err := cfg.Sequence()
	if err != nil {
		logger.Fatalf("Invalid login sequence: %v", err)
	}
	seq, err := sequencer.New(sequence, cfg.PoseHold)
	if err != nil {
		logger.Fatalf("Failed to build login sequencer: %v", err)
	}

	source, err := camera.Open(cfg.Camera())
	if err != nil {
		logger.WithError(err).Warn("Camera not available, face routes will answer 503")
		return nil, noop
	}

	var (
		regions pose.RegionDetector
		smile   pose.SmileDetector
	)
	detector, err := cascade.New(cfg.Cascade())
	if err != nil {
		logger.WithError(err).Warn("Cascade detectors not loaded, smile detection disabled")
	} else {
		regions = detector
		smile = detector
	}

	var model pose.LandmarkModel
	var landmarks websocketPkg.ILandmarkClient
	if cfg.LandmarkURL != "" {
		landmarks = websocketPkg.NewLandmarkClient(logger, cfg.Landmarks())
		model = landmarks
	} else {
		logger.Warn("AI_LANDMARK_URL empty, head pose estimation disabled")
	}

	session := &faceService.Session{
		Source:     source,
		Extractor:  pose.NewExtractor(logger, model, regions),
		Classifier: pose.NewClassifier(logger, cfg.Classifier(), smile),
		Sequencer:  seq,
	}

	return session, func() {
		if landmarks != nil {
			landmarks.CloseConnection()
		}
		if detector != nil {
			if err := detector.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close cascade detectors")
			}
		}
	}
}
