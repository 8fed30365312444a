// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/astrolabe/pkg/jy901"
	"github.com/sirupsen/logrus"
)

// Device is a JY901 module bound to a transport
type Device struct {
	t       Transport
	profile *Profile
	pins    *PinController
	cal     *CalibrationController
	log     *logrus.Entry
	regs    *jy901.RegisterMap
}

// Option configures a Device
type Option func(*Device)

// WithLogger sets the logger used for register traffic
func WithLogger(log *logrus.Entry) Option {
	return func(d *Device) {
		d.log = log
	}
}

// WithRegisterMap overrides the register table of the profile: the telemetry
// blocks, pin status and the pin mode and PWM bases. Settings and calibration
// commands always use the fixed jy901.Reg* addresses.
func WithRegisterMap(regs jy901.RegisterMap) Option {
	return func(d *Device) {
		d.regs = &regs
	}
}

// New binds a device of the given variant to t
func New(t Transport, variant Variant, opts ...Option) *Device {
	d := &Device{t: t}
	for _, opt := range opts {
		opt(d)
	}
	d.log = orDefault(d.log).WithField("variant", variant)

	if d.regs != nil {
		d.profile = NewProfileWithRegisters(variant, *d.regs)
	} else {
		d.profile = NewProfile(variant)
	}
	d.pins = NewPinController(t, d.profile, d.log)
	d.cal = NewCalibrationController(t, d.log)
	return d
}

// Profile returns the variant profile
func (d *Device) Profile() *Profile {
	return d.profile
}

// Pins returns the port controller
func (d *Device) Pins() *PinController {
	return d.pins
}

// Calibration returns the calibration controller
func (d *Device) Calibration() *CalibrationController {
	return d.cal
}

// Close closes the transport if it holds a resource
func (d *Device) Close() error {
	if c, ok := d.t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (d *Device) read(name string, block jy901.Block) ([]byte, error) {
	b, err := d.t.Receive(block.Addr, block.Width)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

func (d *Device) write(reg byte, data []byte) error {
	d.log.WithField("register", jy901.FormatRegister(reg)).Debugf("write % X", data)
	if err := d.t.Transmit(reg, data); err != nil {
		return fmt.Errorf("write %s: %w", jy901.FormatRegister(reg), err)
	}
	return nil
}

// writeAndSave writes a setting and persists it
func (d *Device) writeAndSave(reg byte, data []byte) error {
	if err := d.write(reg, data); err != nil {
		return err
	}
	return d.Save()
}

//////////////////////////////////////////////////////////////
// Queries
//////////////////////////////////////////////////////////////

// Orientation reads roll, pitch and yaw in radians
func (d *Device) Orientation() (jy901.Orientation, error) {
	b, err := d.read("orientation", d.profile.Registers().Orientation)
	if err != nil {
		return jy901.Orientation{}, err
	}
	return jy901.DecodeOrientation(b)
}

func (d *Device) axis(name string, block jy901.Block, i int, scale float64) (float64, error) {
	b, err := d.read(name, block.Axis(i))
	if err != nil {
		return 0, err
	}
	return jy901.DecodeAxis(b, scale)
}

// Roll reads the roll angle in radians
func (d *Device) Roll() (float64, error) {
	return d.axis("roll", d.profile.Registers().Orientation, 0, jy901.OrientationScale)
}

// Pitch reads the pitch angle in radians
func (d *Device) Pitch() (float64, error) {
	return d.axis("pitch", d.profile.Registers().Orientation, 1, jy901.OrientationScale)
}

// Yaw reads the yaw angle in radians
func (d *Device) Yaw() (float64, error) {
	return d.axis("yaw", d.profile.Registers().Orientation, 2, jy901.OrientationScale)
}

// AngularVelocity reads the gyroscope in °/s
func (d *Device) AngularVelocity() (jy901.AngularVelocity, error) {
	b, err := d.read("angular velocity", d.profile.Registers().AngularVelocity)
	if err != nil {
		return jy901.AngularVelocity{}, err
	}
	return jy901.DecodeAngularVelocity(b)
}

// AngularVelocityAxis reads one gyroscope axis (0=x, 1=y, 2=z) in °/s
func (d *Device) AngularVelocityAxis(i int) (float64, error) {
	if i < 0 || i > 2 {
		return 0, fmt.Errorf("%w: axis %d", ErrInvalidParameter, i)
	}
	return d.axis("angular velocity", d.profile.Registers().AngularVelocity, i, jy901.GyroScale)
}

// Acceleration reads the accelerometer in m/s²
func (d *Device) Acceleration() (jy901.Acceleration, error) {
	b, err := d.read("acceleration", d.profile.Registers().Acceleration)
	if err != nil {
		return jy901.Acceleration{}, err
	}
	return jy901.DecodeAcceleration(b)
}

// AccelerationAxis reads one accelerometer axis (0=x, 1=y, 2=z) in m/s²
func (d *Device) AccelerationAxis(i int) (float64, error) {
	if i < 0 || i > 2 {
		return 0, fmt.Errorf("%w: axis %d", ErrInvalidParameter, i)
	}
	return d.axis("acceleration", d.profile.Registers().Acceleration, i, jy901.AccelScale)
}

// MagneticField reads the raw magnetometer counts
func (d *Device) MagneticField() (jy901.MagneticField, error) {
	b, err := d.read("magnetic field", d.profile.Registers().Magnetic)
	if err != nil {
		return jy901.MagneticField{}, err
	}
	return jy901.DecodeMagneticField(b)
}

// MagneticFieldAxis reads one magnetometer axis (0=x, 1=y, 2=z)
func (d *Device) MagneticFieldAxis(i int) (float64, error) {
	if i < 0 || i > 2 {
		return 0, fmt.Errorf("%w: axis %d", ErrInvalidParameter, i)
	}
	return d.axis("magnetic field", d.profile.Registers().Magnetic, i, 1)
}

// Temperature reads the chip temperature in °C
func (d *Device) Temperature() (float64, error) {
	b, err := d.read("temperature", d.profile.Registers().Temperature)
	if err != nil {
		return 0, err
	}
	return jy901.DecodeTemperature(b)
}

// PressureHeight reads the barometer
func (d *Device) PressureHeight() (jy901.PressureHeight, error) {
	b, err := d.read("pressure", d.profile.Registers().Pressure)
	if err != nil {
		return jy901.PressureHeight{}, err
	}
	return jy901.DecodePressureHeight(b)
}

// Position reads the GPS longitude and latitude.
// Without GPS it returns the zero position and does not touch the bus.
func (d *Device) Position() (jy901.Position, error) {
	if !d.profile.HasGPS() {
		return jy901.Position{}, nil
	}
	b, err := d.read("position", d.profile.Registers().Position)
	if err != nil {
		return jy901.Position{}, err
	}
	return jy901.DecodePosition(b)
}

// Time reads the device clock
func (d *Device) Time() (jy901.Time, error) {
	b, err := d.read("time", d.profile.Registers().Time)
	if err != nil {
		return jy901.Time{}, err
	}
	return jy901.DecodeTime(b)
}

// Quaternion reads the attitude quaternion
func (d *Device) Quaternion() (jy901.Quaternion, error) {
	b, err := d.read("quaternion", d.profile.Registers().Quaternion)
	if err != nil {
		return jy901.Quaternion{}, err
	}
	return jy901.DecodeQuaternion(b)
}

// PinStatus reads all four port readings
func (d *Device) PinStatus() (jy901.PinStatus, error) {
	return d.pins.Status()
}

// Sample reads every telemetry block into one sample.
// The first failing read aborts the sample.
func (d *Device) Sample() (*jy901.Sample, error) {
	s := &jy901.Sample{Timestamp: time.Now()}

	t, err := d.Time()
	if err != nil {
		return nil, err
	}
	s.Time = &t

	a, err := d.Acceleration()
	if err != nil {
		return nil, err
	}
	s.Acceleration = &a

	g, err := d.AngularVelocity()
	if err != nil {
		return nil, err
	}
	s.AngularVelocity = &g

	m, err := d.MagneticField()
	if err != nil {
		return nil, err
	}
	s.MagneticField = &m

	o, err := d.Orientation()
	if err != nil {
		return nil, err
	}
	s.Orientation = &o

	temp, err := d.Temperature()
	if err != nil {
		return nil, err
	}
	s.Temperature = &temp

	pins, err := d.PinStatus()
	if err != nil {
		return nil, err
	}
	s.PinStatus = &pins

	ph, err := d.PressureHeight()
	if err != nil {
		return nil, err
	}
	s.PressureHeight = &ph

	q, err := d.Quaternion()
	if err != nil {
		return nil, err
	}
	s.Quaternion = &q

	if d.profile.HasGPS() {
		p, err := d.Position()
		if err != nil {
			return nil, err
		}
		s.Position = &p
	}

	return s, nil
}

//////////////////////////////////////////////////////////////
// Settings
//////////////////////////////////////////////////////////////

// Save persists the current configuration across power cycles
func (d *Device) Save() error {
	return d.write(jy901.RegSave, jy901.EncodeSave())
}

// RestoreDefaults restores the factory configuration
func (d *Device) RestoreDefaults() error {
	return d.write(jy901.RegSave, jy901.EncodeDefaults())
}

// SetReturnRate selects the output rate
func (d *Device) SetReturnRate(r jy901.Rate) error {
	if !r.Valid() {
		return fmt.Errorf("%w: rate 0x%02X", ErrInvalidParameter, uint8(r))
	}
	return d.write(jy901.RegRate, jy901.EncodeRate(r))
}

// SetReturnContent selects which blocks the UART streams (jy901.Content* bits)
func (d *Device) SetReturnContent(mask uint16) error {
	return d.write(jy901.RegContent, jy901.EncodeContent(mask))
}

// SetSerialBaud changes the module's own UART baud rate and saves it
func (d *Device) SetSerialBaud(b jy901.Baud) error {
	if b == jy901.BaudNoDevice || !b.Valid() {
		return fmt.Errorf("%w: serial baud 0x%02X", ErrInvalidParameter, uint8(b))
	}
	return d.writeAndSave(jy901.RegBaud, jy901.EncodeBaud(b))
}

// SetGPSBaud sets the baud rate of the attached GPS receiver and saves it.
// BaudNoDevice tells the module no receiver is attached and turns GPS off.
func (d *Device) SetGPSBaud(b jy901.Baud) error {
	if !b.Valid() {
		return fmt.Errorf("%w: gps baud 0x%02X", ErrInvalidParameter, uint8(b))
	}
	if err := d.writeAndSave(jy901.RegGPSBaud, jy901.EncodeBaud(b)); err != nil {
		return err
	}
	if b == jy901.BaudNoDevice {
		d.profile.disableGPS()
		d.log.Info("GPS disabled")
	}
	return nil
}

// SetLED switches the status LED and saves the setting
func (d *Device) SetLED(on bool) error {
	return d.writeAndSave(jy901.RegLED, jy901.EncodeLED(on))
}

// SetBusAddress changes the I2C address and saves it.
// The transport keeps talking to the old address until it is reopened.
func (d *Device) SetBusAddress(addr uint8) error {
	if addr == 0 || addr > 0x7F {
		return fmt.Errorf("%w: bus address 0x%02X", ErrInvalidParameter, addr)
	}
	return d.writeAndSave(jy901.RegAddress, jy901.EncodeAddress(addr))
}

// BiasSensor selects the sensor whose offsets SetBias writes
type BiasSensor byte

const (
	AccelBias BiasSensor = jy901.RegAccelBiasX
	GyroBias  BiasSensor = jy901.RegGyroBiasX
	MagBias   BiasSensor = jy901.RegMagBiasX
)

// SetBias writes the x, y and z offsets of a sensor
func (d *Device) SetBias(sensor BiasSensor, offsets [3]int16) error {
	switch sensor {
	case AccelBias, GyroBias, MagBias:
	default:
		return fmt.Errorf("%w: bias register 0x%02X", ErrInvalidParameter, byte(sensor))
	}
	for i, v := range offsets {
		if err := d.write(byte(sensor)+byte(i), jy901.EncodeInt16(v)); err != nil {
			return err
		}
	}
	return nil
}
