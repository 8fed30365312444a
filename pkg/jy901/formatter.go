// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import (
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.Timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (0x%02X)\n", timestamp, FormatFrameType(f.Type), f.Type)
	result += FormatFramePayload(f)
	return result
}

// FormatFrameType returns the human-readable name for a frame type
func FormatFrameType(t uint8) string {
	switch t {
	case FrameTime:
		return "TIME"
	case FrameAcceleration:
		return "ACCELERATION"
	case FrameAngularVel:
		return "ANGULAR_VELOCITY"
	case FrameOrientation:
		return "ORIENTATION"
	case FrameMagnetic:
		return "MAGNETIC_FIELD"
	case FramePinStatus:
		return "PIN_STATUS"
	case FramePressure:
		return "PRESSURE_HEIGHT"
	case FramePosition:
		return "POSITION"
	case FrameGPSSpeed:
		return "GPS_MOTION"
	case FrameQuaternion:
		return "QUATERNION"
	case FrameGPSAccuracy:
		return "GPS_ACCURACY"
	case FrameRegisters:
		return "REGISTERS"
	default:
		return "UNKNOWN"
	}
}

// FormatFramePayload formats the decoded payload of a frame, one field per line
func FormatFramePayload(f *Frame) string {
	d := f.Data[:]
	switch f.Type {
	case FrameTime:
		v, _ := DecodeTime(d)
		return fmt.Sprintf("  Time: %s\n", v)
	case FrameAcceleration:
		v, _ := DecodeAcceleration(d)
		t, _ := DecodeTemperature(d[6:])
		return fmt.Sprintf("  Accel: x=%.3f y=%.3f z=%.3f m/s²  Temp: %.2f°C\n", v.X, v.Y, v.Z, t)
	case FrameAngularVel:
		v, _ := DecodeAngularVelocity(d)
		return fmt.Sprintf("  Gyro: x=%.2f y=%.2f z=%.2f °/s\n", v.X, v.Y, v.Z)
	case FrameOrientation:
		v, _ := DecodeOrientation(d)
		return FormatOrientation(v) + fmt.Sprintf("  Version: %d\n", Uint16(d[6:]))
	case FrameMagnetic:
		v, _ := DecodeMagneticField(d)
		return fmt.Sprintf("  Mag: x=%.0f y=%.0f z=%.0f\n", v.X, v.Y, v.Z)
	case FramePinStatus:
		v, _ := DecodePinStatus(d)
		return FormatPinStatus(v)
	case FramePressure:
		v, _ := DecodePressureHeight(d)
		return fmt.Sprintf("  Pressure: %d Pa  Height: %.2f m\n", v.Pressure, float64(v.Height)/100)
	case FramePosition:
		v, _ := DecodePosition(d)
		return FormatPosition(v)
	case FrameGPSSpeed:
		v, _ := DecodeGPSMotion(d)
		return fmt.Sprintf("  GPS Height: %.1f m  Heading: %.2f°  Speed: %.3f km/h\n", v.Height, v.Heading, v.Speed)
	case FrameQuaternion:
		v, _ := DecodeQuaternion(d)
		return fmt.Sprintf("  Quaternion: %.4f %.4f %.4f %.4f\n", v.Q0, v.Q1, v.Q2, v.Q3)
	case FrameGPSAccuracy:
		v, _ := DecodeGPSAccuracy(d)
		return fmt.Sprintf("  Satellites: %d  PDOP: %.2f  HDOP: %.2f  VDOP: %.2f\n", v.Satellites, v.PDOP, v.HDOP, v.VDOP)
	default:
		return fmt.Sprintf("  Raw: % X\n", d)
	}
}

// FormatOrientation prints the angles in degrees
func FormatOrientation(o Orientation) string {
	roll, pitch, yaw := o.Degrees()
	return fmt.Sprintf("  Roll: %.2f°  Pitch: %.2f°  Yaw: %.2f°\n", roll, pitch, yaw)
}

// FormatPinStatus prints each port reading
func FormatPinStatus(s PinStatus) string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("D%d=%d", i, v)
	}
	return "  Pins: " + strings.Join(parts, " ") + "\n"
}

// FormatPosition prints the raw and decimal degree coordinates
func FormatPosition(p Position) string {
	lon, lat := p.Degrees()
	return fmt.Sprintf("  Lon: %.6f°  Lat: %.6f° (raw %d, %d)\n", lon, lat, p.Longitude, p.Latitude)
}

// FormatSample prints every block present in the sample
func FormatSample(s *Sample) string {
	var b strings.Builder
	if s.Time != nil {
		fmt.Fprintf(&b, "  Time: %s\n", *s.Time)
	}
	if s.Acceleration != nil {
		fmt.Fprintf(&b, "  Accel: x=%.3f y=%.3f z=%.3f m/s²\n", s.Acceleration.X, s.Acceleration.Y, s.Acceleration.Z)
	}
	if s.AngularVelocity != nil {
		fmt.Fprintf(&b, "  Gyro: x=%.2f y=%.2f z=%.2f °/s\n", s.AngularVelocity.X, s.AngularVelocity.Y, s.AngularVelocity.Z)
	}
	if s.Orientation != nil {
		b.WriteString(FormatOrientation(*s.Orientation))
	}
	if s.MagneticField != nil {
		fmt.Fprintf(&b, "  Mag: x=%.0f y=%.0f z=%.0f\n", s.MagneticField.X, s.MagneticField.Y, s.MagneticField.Z)
	}
	if s.Temperature != nil {
		fmt.Fprintf(&b, "  Temp: %.2f°C\n", *s.Temperature)
	}
	if s.PinStatus != nil {
		b.WriteString(FormatPinStatus(*s.PinStatus))
	}
	if s.PressureHeight != nil {
		fmt.Fprintf(&b, "  Pressure: %d Pa  Height: %.2f m\n", s.PressureHeight.Pressure, float64(s.PressureHeight.Height)/100)
	}
	if s.Position != nil {
		b.WriteString(FormatPosition(*s.Position))
	}
	if s.Quaternion != nil {
		q := s.Quaternion
		fmt.Fprintf(&b, "  Quaternion: %.4f %.4f %.4f %.4f\n", q.Q0, q.Q1, q.Q2, q.Q3)
	}
	return b.String()
}

// FormatRegister returns a name for a configuration or telemetry register
func FormatRegister(reg byte) string {
	switch {
	case reg == RegSave:
		return "SAVE"
	case reg == RegCalibrate:
		return "CALSW"
	case reg == RegContent:
		return "RSW"
	case reg == RegRate:
		return "RRATE"
	case reg == RegBaud:
		return "BAUD"
	case reg >= RegAccelBiasX && reg < RegGyroBiasX:
		return fmt.Sprintf("AXOFFSET+%d", reg-RegAccelBiasX)
	case reg >= RegGyroBiasX && reg < RegMagBiasX:
		return fmt.Sprintf("GXOFFSET+%d", reg-RegGyroBiasX)
	case reg >= RegMagBiasX && reg < RegPinModeBase:
		return fmt.Sprintf("HXOFFSET+%d", reg-RegMagBiasX)
	case reg >= RegPinModeBase && reg < RegPWMWidth:
		return fmt.Sprintf("D%dMODE", reg-RegPinModeBase)
	case reg >= RegPWMWidth && reg < RegPWMPeriod:
		return fmt.Sprintf("D%dPWMH", reg-RegPWMWidth)
	case reg >= RegPWMPeriod && reg < RegAddress:
		return fmt.Sprintf("D%dPWMT", reg-RegPWMPeriod)
	case reg == RegAddress:
		return "IICADDR"
	case reg == RegLED:
		return "LEDOFF"
	case reg == RegGPSBaud:
		return "GPSBAUD"
	case reg == RegTime:
		return "TIME"
	case reg == RegAcceleration:
		return "AX"
	case reg == RegAngularVel:
		return "GX"
	case reg == RegMagnetic:
		return "HX"
	case reg == RegOrientation:
		return "ROLL"
	case reg == RegTemperature:
		return "TEMP"
	case reg >= RegPinStatus && reg < RegPressure:
		return fmt.Sprintf("D%dSTATUS", reg-RegPinStatus)
	case reg == RegPressure:
		return "PRESSURE"
	case reg == RegPosition:
		return "LON"
	case reg == RegQuaternion:
		return "Q0"
	default:
		return fmt.Sprintf("REG_0x%02X", reg)
	}
}
