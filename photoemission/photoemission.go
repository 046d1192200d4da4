/*
Copyright (C) 2013-2014 Regents of the University of Minnesota.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package photoemission computes the sun-driven photoelectron yield on
// each conductor's sun-facing exposed surface. It is weakly coupled to
// the capacitance core: it reads the same Object Map and exposed-node
// table (classify.ExposedNodes). It defines no error kinds of its own:
// Compute returns no error.
//
// The photon and energy spectral integrals follow the Planck radiance
// tail integral (Widger & Woodall 1976), computed here by Gauss-
// Legendre quadrature over a finite window rather than a closed-form
// truncated series, since this module's dependency stack already
// provides a quadrature library.
package photoemission

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/spatialmodel/picap/classify"
)

const (
	planck         = 6.6260693e-34
	boltzmann      = 1.380658e-23
	speedOfLight   = 299792458.0
	sunSurfaceArea = 6.1e18 // m^2
)

// Config carries the configuration keys that drive a photoemission
// computation.
type Config struct {
	// WorkFunction is each object's photoelectric work function,
	// expressed as a wavenumber-like cutoff sigma (m^-1) per object.
	WorkFunction []float64
	// ConductingSurface is each object's exposed conducting area (m^2).
	ConductingSurface []float64
	DistanceFromSun   float64 // meters
	BlackBodyTemp     float64 // kelvin
	// TimeStep is the simulation time step, used to convert the
	// per-second Planck radiance into a per-step photon/energy yield.
	TimeStep float64
}

// Yield holds, per object, the photon count and the radiated energy
// collected from the sun-facing exposed surface during one time step.
type Yield struct {
	Photons []float64
	Energy  []float64
}

// Compute derives, for every object with at least one sun-facing
// exposed node owned by this rank (tbl.Exposed, built by
// classify.Tables.WithExposedNodes), the photon count and energy yield
// from the sun for the current time step. Objects with no locally
// owned exposed nodes get a zero entry, the way a rank that owns none
// of an object's surface contributes nothing to its correction sums.
func Compute(cfg Config, tbl *classify.Tables) *Yield {
	n := tbl.N
	y := &Yield{Photons: make([]float64, n+1), Energy: make([]float64, n+1)}
	if tbl.EO == nil {
		return y
	}
	for a := 1; a <= n; a++ {
		if tbl.EO[a] == tbl.EO[a-1] {
			continue
		}
		sigma := cfg.WorkFunction[a-1]
		area := cfg.ConductingSurface[a-1]
		solidAngle := area / (cfg.DistanceFromSun * cfg.DistanceFromSun)

		y.Photons[a] = photonIntegral(sigma, cfg.BlackBodyTemp) * solidAngle * sunSurfaceArea * cfg.TimeStep
		y.Energy[a] = energyIntegral(sigma, cfg.BlackBodyTemp) * solidAngle * sunSurfaceArea * cfg.TimeStep
	}
	return y
}

// dimensionlessCutoff converts a wavenumber-like work function sigma
// (m^-1) and a blackbody temperature into the dimensionless spectral
// coordinate x = h*c*sigma/(k*T) the Planck tail integral is expressed
// in.
func dimensionlessCutoff(sigma, temperature float64) float64 {
	c1 := planck * speedOfLight / boltzmann
	return c1 * sigma / temperature
}

// planckPhotonSpectralRadiance is the integrand of the photon-number
// tail integral in the dimensionless coordinate x.
func planckPhotonSpectralRadiance(x float64) float64 {
	return x * x / math.Expm1(x)
}

// planckEnergySpectralRadiance is the integrand of the radiated-power
// tail integral in the dimensionless coordinate x.
func planckEnergySpectralRadiance(x float64) float64 {
	return x * x * x / math.Expm1(x)
}

// tailWindow bounds the quadrature window above the cutoff: the
// integrand decays as exp(-x), so 40 dimensionless units past the
// cutoff leaves a negligible tail for any physically meaningful
// blackBodyTemp/workFunction pairing.
const tailWindow = 40.0

func photonIntegral(sigma, temperature float64) float64 {
	x0 := dimensionlessCutoff(sigma, temperature)
	kTohc := boltzmann * temperature / (planck * speedOfLight)
	return 2 * math.Pow(kTohc, 3) * speedOfLight * quad.Fixed(planckPhotonSpectralRadiance, x0, x0+tailWindow, 64, nil, 0)
}

func energyIntegral(sigma, temperature float64) float64 {
	x0 := dimensionlessCutoff(sigma, temperature)
	c1 := planck * speedOfLight / boltzmann
	return 2 * planck * speedOfLight * speedOfLight * math.Pow(temperature/c1, 4) * quad.Fixed(planckEnergySpectralRadiance, x0, x0+tailWindow, 64, nil, 0)
}
