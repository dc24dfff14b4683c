/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Grid snapping for interactive transforms. Positions snap softly (only
// within a threshold), sizes snap hard, rotation snaps to 45° stops.

import "math"

// MinSize is the smallest width or height a shape may have.
const MinSize = 5

// MaxSize is the largest width or height a shape may have.
const MaxSize = 1 << 20

// RotationTolerance is the circular distance (degrees) below which an angle snaps to a stop.
const RotationTolerance = 5

// RotationStops are the angles rotation snaps to.
var RotationStops = [...]float64{0, 45, 90, 135, 180, 225, 270, 315}

// SnapValue snaps a single coordinate to the nearest multiple of grid when it
// lies strictly closer than threshold; otherwise v is returned unchanged.
func SnapValue(v, grid, threshold float64) float64 {
	if grid <= 0 {
		return v
	}
	m := math.Round(v/grid) * grid
	if math.Abs(v-m) < threshold {
		return m
	}
	return v
}

// SnapPosition soft-snaps each axis of p independently.
func SnapPosition(p Pt, grid, threshold float64) Pt {
	return Pt{X: SnapValue(p.X, grid, threshold), Y: SnapValue(p.Y, grid, threshold)}
}

// SnapSize rounds size to the nearest multiple of grid, never below MinSize.
func SnapSize(size, grid float64) float64 {
	if grid <= 0 {
		return math.Max(MinSize, size)
	}
	return math.Max(MinSize, math.Round(size/grid)*grid)
}

// NormalizeDegrees maps any finite angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 { // -tiny + 360 rounds up
		d = 0
	}
	return d
}

// SnapRotation normalizes deg and snaps it to the nearest stop when the
// circular distance is below RotationTolerance.
func SnapRotation(deg float64) float64 {
	d := NormalizeDegrees(deg)
	best, bestDist := d, math.Inf(1)
	for _, s := range RotationStops {
		dist := circularDistance(d, s)
		if dist < bestDist {
			best, bestDist = s, dist
		}
	}
	if bestDist < RotationTolerance {
		return best
	}
	return d
}

func circularDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}
