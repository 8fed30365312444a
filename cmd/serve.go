// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/internal/config"
	"github.com/Thermoquad/astrolabe/pkg/device"
	"github.com/Thermoquad/astrolabe/pkg/jy901"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the device over HTTP",
	Long: `Expose the device through a REST API and a WebSocket telemetry feed.

Readings:
  GET    /api/v1/sample
  GET    /api/v1/{orientation,acceleration,angular-velocity,magnetic-field,
              temperature,pressure,position,time,quaternion,pins}

Commands:
  POST   /api/v1/calibration      {"mode": "gyro", "duration": "5s"}
  DELETE /api/v1/calibration
  PUT    /api/v1/rate             {"rate": "10"}
  PUT    /api/v1/led              {"on": true}
  PUT    /api/v1/pins/:pin/mode   {"mode": "pwm"}
  PUT    /api/v1/pins/:pin/pwm    {"period": 20000, "width": 1500}

Telemetry:
  GET    /api/v1/ws               CBOR encoded samples, one binary message per interval`,
	Example:    "  astrolabe serve --port /dev/ttyUSB0 --listen-port 18900",
	SuggestFor: []string{"server", "api"},
	RunE:       runServe,
}

func init() {
	serveCmd.Flags().Int("listen-port", config.DefaultAPIPort, "HTTP listen port")
	serveCmd.Flags().String("interface", config.DefaultAPIInterface, "HTTP listen interface")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	d, info, err := OpenDevice()
	if err != nil {
		return err
	}
	defer d.Close()
	log.Infoln("connected:", info)

	srv := newAPIServer(d, time.Duration(opt.API.SampleIntervalMs)*time.Millisecond)
	defer srv.stopCalibrationTimer()

	addr := net.JoinHostPort(opt.API.Interface, strconv.Itoa(opt.API.Port))
	log.Infoln("listening on", addr)
	return srv.router().Run(addr)
}

// apiServer exposes one device over HTTP
type apiServer struct {
	dev      *device.Device
	interval time.Duration
	upgrader websocket.Upgrader

	mu       sync.Mutex
	calTimer *time.Timer
}

func newAPIServer(d *device.Device, interval time.Duration) *apiServer {
	return &apiServer{
		dev:      d,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *apiServer) router() *gin.Engine {
	router := gin.Default()
	v1 := router.Group("/api/v1")

	v1.GET("/sample", s.reading(func(d *device.Device) (interface{}, error) { return d.Sample() }))
	v1.GET("/orientation", s.reading(func(d *device.Device) (interface{}, error) { return d.Orientation() }))
	v1.GET("/acceleration", s.reading(func(d *device.Device) (interface{}, error) { return d.Acceleration() }))
	v1.GET("/angular-velocity", s.reading(func(d *device.Device) (interface{}, error) { return d.AngularVelocity() }))
	v1.GET("/magnetic-field", s.reading(func(d *device.Device) (interface{}, error) { return d.MagneticField() }))
	v1.GET("/temperature", s.reading(func(d *device.Device) (interface{}, error) { return d.Temperature() }))
	v1.GET("/pressure", s.reading(func(d *device.Device) (interface{}, error) { return d.PressureHeight() }))
	v1.GET("/position", s.reading(func(d *device.Device) (interface{}, error) { return d.Position() }))
	v1.GET("/time", s.reading(func(d *device.Device) (interface{}, error) { return d.Time() }))
	v1.GET("/quaternion", s.reading(func(d *device.Device) (interface{}, error) { return d.Quaternion() }))
	v1.GET("/pins", s.reading(func(d *device.Device) (interface{}, error) { return d.PinStatus() }))

	v1.POST("/calibration", s.startCalibration)
	v1.DELETE("/calibration", s.exitCalibration)
	v1.PUT("/rate", s.setRate)
	v1.PUT("/led", s.setLED)
	v1.PUT("/pins/:pin/mode", s.setPinMode)
	v1.PUT("/pins/:pin/pwm", s.setPinPWM)

	v1.GET("/ws", s.feed)

	return router
}

// statusFor maps rejected arguments to 400 and bus failures to 502
func statusFor(err error) int {
	if errors.Is(err, device.ErrInvalidParameter) || errors.Is(err, device.ErrPeriodNotConfigured) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func fail(c *gin.Context, code int, err error) {
	c.JSON(code, gin.H{
		"err":  err.Error(),
		"data": nil,
	})
}

func reply(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{
		"err": nil,
		"msg": msg,
	})
}

func (s *apiServer) reading(get func(d *device.Device) (interface{}, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := get(s.dev)
		if err != nil {
			fail(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"err":  nil,
			"data": v,
		})
	}
}

type calibrationReq struct {
	Mode     string `json:"mode" binding:"required"`
	Duration string `json:"duration"`
}

func (s *apiServer) startCalibration(c *gin.Context) {
	req := calibrationReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	mode, err := jy901.ParseCalibrationMode(req.Mode)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	var duration time.Duration
	if req.Duration != "" {
		if duration, err = time.ParseDuration(req.Duration); err != nil || duration < 0 {
			fail(c, http.StatusBadRequest, fmt.Errorf("invalid duration %q", req.Duration))
			return
		}
	}

	s.stopCalibrationTimer()
	if err := s.dev.Calibration().Enter(mode, 0); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	if duration > 0 && mode != jy901.CalibrationNone {
		s.scheduleCalibrationExit(duration)
	}

	c.JSON(http.StatusOK, gin.H{
		"err":   nil,
		"msg":   "calibration mode " + mode.String(),
		"state": s.dev.Calibration().State().String(),
	})
}

func (s *apiServer) exitCalibration(c *gin.Context) {
	s.stopCalibrationTimer()
	if err := s.dev.Calibration().Exit(); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	reply(c, "calibration finished")
}

// scheduleCalibrationExit leaves calibration after d unless a newer request replaced it
func (s *apiServer) scheduleCalibrationExit(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		current := s.calTimer == t
		if current {
			s.calTimer = nil
		}
		s.mu.Unlock()
		if !current {
			return
		}
		if err := s.dev.Calibration().Exit(); err != nil {
			log.Warnf("failed to leave calibration: %v", err)
		}
	})
	s.calTimer = t
}

func (s *apiServer) stopCalibrationTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calTimer != nil {
		s.calTimer.Stop()
		s.calTimer = nil
	}
}

type rateReq struct {
	Rate string `json:"rate" binding:"required"`
}

func (s *apiServer) setRate(c *gin.Context) {
	req := rateReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	r, err := jy901.ParseRate(req.Rate)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := s.dev.SetReturnRate(r); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	reply(c, "output rate set to "+r.String())
}

type ledReq struct {
	On *bool `json:"on" binding:"required"`
}

func (s *apiServer) setLED(c *gin.Context) {
	req := ledReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := s.dev.SetLED(*req.On); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	if *req.On {
		reply(c, "LED on")
	} else {
		reply(c, "LED off")
	}
}

type pinModeReq struct {
	Mode string `json:"mode" binding:"required"`
}

func (s *apiServer) setPinMode(c *gin.Context) {
	pin, err := parsePin(c.Param("pin"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	req := pinModeReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	mode, err := jy901.ParsePinMode(req.Mode)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := s.dev.Pins().SetMode(pin, mode); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	reply(c, fmt.Sprintf("D%d mode set to %s", pin, mode))
}

type pinPWMReq struct {
	Period *uint16  `json:"period"`
	Width  *uint16  `json:"width"`
	Duty   *float64 `json:"duty"`
}

func (s *apiServer) setPinPWM(c *gin.Context) {
	pin, err := parsePin(c.Param("pin"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	req := pinPWMReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if req.Width != nil && req.Duty != nil {
		fail(c, http.StatusBadRequest, errors.New("width and duty are mutually exclusive"))
		return
	}
	if req.Period == nil && req.Width == nil && req.Duty == nil {
		fail(c, http.StatusBadRequest, errors.New("nothing to do: give period, width or duty"))
		return
	}

	pins := s.dev.Pins()
	if req.Period != nil {
		if err := pins.SetPWMPeriod(pin, *req.Period); err != nil {
			fail(c, statusFor(err), err)
			return
		}
	}
	switch {
	case req.Width != nil:
		err = pins.SetPWMWidth(pin, *req.Width)
	case req.Duty != nil:
		err = pins.SetPWMPower(pin, *req.Duty)
	}
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	reply(c, fmt.Sprintf("D%d PWM configured", pin))
}

// feed streams CBOR samples until the client goes away
func (s *apiServer) feed(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Control frames are only processed while reading
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sample, err := s.dev.Sample()
		if err != nil {
			log.Debugf("sample failed: %v", err)
			continue
		}
		data, err := jy901.MarshalSample(sample)
		if err != nil {
			log.Warnf("%v", err)
			continue
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			log.Debugf("websocket client gone: %v", err)
			return
		}
	}
}
