// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import "github.com/westphae/quaternion"

func (q Quaternion) value() quaternion.Quaternion {
	return quaternion.Quaternion{W: q.Q0, X: q.Q1, Y: q.Q2, Z: q.Q3}
}

// Norm returns the quaternion magnitude, 1 for a well formed attitude
func (q Quaternion) Norm() float64 {
	return q.value().Norm()
}

// Unit returns q scaled to unit length
func (q Quaternion) Unit() Quaternion {
	u := q.value().Unit()
	return Quaternion{Q0: u.W, Q1: u.X, Q2: u.Y, Q3: u.Z}
}

// Orientation converts the quaternion to roll, pitch and yaw in radians
func (q Quaternion) Orientation() Orientation {
	roll, pitch, yaw := q.Unit().value().Euler()
	return Orientation{Roll: roll, Pitch: pitch, Yaw: yaw}
}
