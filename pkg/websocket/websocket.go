package websocketPkg

import (
	"PoseLogin/internal/entity"
	"PoseLogin/pkg/camera"
	"PoseLogin/pkg/pose"
	"PoseLogin/pkg/stream"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrNotConfigured = errors.New("landmark service URL not configured")
	ErrNotConnected  = errors.New("not connected to landmark service")
	ErrRemote        = errors.New("landmark service error")
)

type ILandmarkClient interface {
	pose.LandmarkModel
	IsConnected() bool
	Reconnect() error
	CloseConnection()
}

type Config struct {
	URL                 string
	DetectionConfidence float64
	TrackingConfidence  float64
	JPEGQuality         int
	PingInterval        time.Duration
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	DialTimeout         time.Duration
	RetryBackoff        time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:                 "ws://localhost:8000/api/v1/landmarks/ws",
		DetectionConfidence: 0.5,
		TrackingConfidence:  0.5,
		JPEGQuality:         stream.DefaultJPEGQuality,
		PingInterval:        30 * time.Second,
		ReadTimeout:         2 * time.Second,
		WriteTimeout:        time.Second,
		DialTimeout:         time.Second,
		RetryBackoff:        2 * time.Second,
	}
}

// landmarkClient sends each frame as a JPEG binary message and reads back
// one JSON landmark result. Requests are serialized over a single connection.
type landmarkClient struct {
	cfg     Config
	log     *logrus.Logger
	encoder stream.Encoder
	now     func() time.Time

	mu         sync.Mutex
	conn       *websocket.Conn
	retryAfter time.Time

	reqMu sync.Mutex
}

func NewLandmarkClient(log *logrus.Logger, cfg Config) ILandmarkClient {
	client := newLandmarkClient(log, cfg)
	go client.connectInBackground()
	return client
}

func newLandmarkClient(log *logrus.Logger, cfg Config) *landmarkClient {
	def := DefaultConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	return &landmarkClient{
		cfg:     cfg,
		log:     log,
		encoder: stream.NewJPEGEncoder(cfg.JPEGQuality),
		now:     time.Now,
	}
}

func (c *landmarkClient) connectInBackground() {
	if _, err := c.connection(context.Background()); err != nil {
		return
	}
	c.log.WithField("url", c.cfg.URL).Info("Connected to landmark service")
}

func (c *landmarkClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Reconnect drops the current connection, if any, and dials again regardless
// of the retry window.
func (c *landmarkClient) Reconnect() error {
	c.CloseConnection()

	conn, err := c.dial(context.Background())

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return err
	}
	c.adoptLocked(conn)
	return nil
}

func (c *landmarkClient) CloseConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
}

// connection returns the live connection, dialing when there is none. After a
// failed dial no new attempt is made until RetryBackoff has passed; calls in
// that window fail at once with pose.ErrModelUnavailable.
func (c *landmarkClient) connection(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	if c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}
	if wait := c.retryAfter.Sub(c.now()); wait > 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: retry in %s", pose.ErrModelUnavailable, wait.Round(time.Millisecond))
	}
	c.mu.Unlock()

	conn, err := c.dial(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		// A cancelled caller says nothing about the sidecar.
		if !errors.Is(ctx.Err(), context.Canceled) {
			c.retryAfter = c.now().Add(c.cfg.RetryBackoff)
			c.log.WithFields(logrus.Fields{
				"url":   c.cfg.URL,
				"error": err.Error(),
				"retry": c.cfg.RetryBackoff.String(),
			}).Warn("Landmark service unreachable")
		}
		return nil, fmt.Errorf("%w: %w", pose.ErrModelUnavailable, err)
	}
	return c.adoptLocked(conn), nil
}

// dial opens a connection bounded by ctx and DialTimeout. It holds no lock.
func (c *landmarkClient) dial(ctx context.Context) (*websocket.Conn, error) {
	target, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	var stopWatch func() bool
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = c.cfg.DialTimeout
	dialer.NetDialContext = func(dctx context.Context, network, addr string) (net.Conn, error) {
		netConn, err := (&net.Dialer{}).DialContext(dctx, network, addr)
		if err != nil {
			return nil, err
		}
		// Abort a stalled handshake as soon as ctx ends.
		stopWatch = context.AfterFunc(ctx, func() { _ = netConn.Close() })
		return netConn, nil
	}

	conn, _, err := dialer.DialContext(ctx, target, nil)
	if stopWatch != nil && !stopWatch() && err == nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", target, ctx.Err())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return conn, nil
}

// adoptLocked installs conn unless another dial won the race.
func (c *landmarkClient) adoptLocked(conn *websocket.Conn) *websocket.Conn {
	if c.conn != nil {
		conn.Close()
		return c.conn
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.cfg.WriteTimeout))
		if err != nil {
			c.log.WithError(err).Debug("Error sending pong to landmark service")
		}
		return nil
	})

	c.conn = conn
	c.retryAfter = time.Time{}
	go c.keepAlive(conn)
	return conn
}

func (c *landmarkClient) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *landmarkClient) endpoint() (string, error) {
	if c.cfg.URL == "" {
		return "", ErrNotConfigured
	}
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid landmark service URL: %w", err)
	}

	q := u.Query()
	if c.cfg.DetectionConfidence > 0 {
		q.Set("detection_confidence", strconv.FormatFloat(c.cfg.DetectionConfidence, 'f', -1, 64))
	}
	if c.cfg.TrackingConfidence > 0 {
		q.Set("tracking_confidence", strconv.FormatFloat(c.cfg.TrackingConfidence, 'f', -1, 64))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *landmarkClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.cfg.WriteTimeout))
		if err != nil {
			c.log.WithError(err).Warn("Ping to landmark service failed, marking connection as dead")
			c.dropLocked()
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

// invalidate forgets conn if it is still the current connection.
func (c *landmarkClient) invalidate(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.dropLocked()
	}
}

func (c *landmarkClient) Landmarks(ctx context.Context, frame *camera.Frame) ([]pose.LandmarkSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := c.encoder.Encode(frame)
	if err != nil {
		return nil, err
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	conn, err := c.connection(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}

	// Unblock a pending read once ctx ends; the connection is dropped after.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.NetConn().SetReadDeadline(time.Now())
	})
	defer stop()

	if err := conn.SetWriteDeadline(c.deadline(ctx, c.cfg.WriteTimeout)); err != nil {
		c.invalidate(conn)
		return nil, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		c.invalidate(conn)
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	if err := conn.SetReadDeadline(c.deadline(ctx, c.cfg.ReadTimeout)); err != nil {
		c.invalidate(conn)
		return nil, err
	}
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.invalidate(conn)
		return nil, fmt.Errorf("error reading landmark message: %w", err)
	}

	var result entity.LandmarkResult
	if err := json.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling landmark response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRemote, result.Error)
	}

	c.log.WithFields(logrus.Fields{
		"frame_seq": frame.Seq,
		"faces":     len(result.Faces),
	}).Debug("Received landmarks")

	return toLandmarkSets(result.Faces), nil
}

func (c *landmarkClient) deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func toLandmarkSets(faces [][]entity.Landmark) []pose.LandmarkSet {
	sets := make([]pose.LandmarkSet, 0, len(faces))
	for _, face := range faces {
		set := make(pose.LandmarkSet, len(face))
		for i, lm := range face {
			set[i] = pose.Point3D{X: lm.X, Y: lm.Y, Z: lm.Z}
		}
		sets = append(sets, set)
	}
	return sets
}
