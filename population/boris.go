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

package population

// PushBoris advances every live particle of species s by dt using the
// Boris leapfrog scheme: a half electric-field kick, a magnetic-field
// rotation, a second half electric-field kick, then a position drift.
// The charge-to-mass ratio comes from species s; e returns the electric
// and magnetic field at a particle's position.
func (p *Population) PushBoris(s int, dt float64, e func(pos [3]float64) (efield, bfield [3]float64)) {
	qOverM := p.Species[s].Charge / p.Species[s].Mass
	start, stop := p.Range(s)
	for i := start; i < stop; i++ {
		part := &p.Particles[i]
		efield, bfield := e(part.Pos)

		halfK := 0.5 * qOverM * dt
		vMinus := [3]float64{
			part.Vel[0] + halfK*efield[0],
			part.Vel[1] + halfK*efield[1],
			part.Vel[2] + halfK*efield[2],
		}

		t := [3]float64{halfK * bfield[0], halfK * bfield[1], halfK * bfield[2]}
		tMagSq := t[0]*t[0] + t[1]*t[1] + t[2]*t[2]
		s2 := 2 / (1 + tMagSq)
		sVec := [3]float64{s2 * t[0], s2 * t[1], s2 * t[2]}

		vPrime := addCross(vMinus, vMinus, t)
		vPlus := addCross(vMinus, vPrime, sVec)

		part.Vel = [3]float64{
			vPlus[0] + halfK*efield[0],
			vPlus[1] + halfK*efield[1],
			vPlus[2] + halfK*efield[2],
		}
		part.Pos = [3]float64{
			part.Pos[0] + part.Vel[0]*dt,
			part.Pos[1] + part.Vel[1]*dt,
			part.Pos[2] + part.Vel[2]*dt,
		}
	}
}

// addCross returns v + (u cross w).
func addCross(v, u, w [3]float64) [3]float64 {
	return [3]float64{
		v[0] + (u[1]*w[2] - u[2]*w[1]),
		v[1] + (u[2]*w[0] - u[0]*w[2]),
		v[2] + (u[0]*w[1] - u[1]*w[0]),
	}
}
