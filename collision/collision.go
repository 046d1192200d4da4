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

// Package collision defines what happens to a particle when it reaches
// a conductor object's interior. Today the only implemented policy is
// absorb-on-impact, the behavior impact.Collect already needs;
// ElasticCollisionPolicy exists so a future implementer can plug in
// real elastic scattering without changing impact.Collect's call
// sites.
//
// A particle's post-impact trajectory (where it would land if it
// reflected instead of being absorbed, and the surface-intersection
// geometry that would require) is deliberately not implemented: there
// is no unambiguous geometry to infer from an absorb-only policy, and
// guessing one risks inventing behavior nobody has asked for.
package collision

// Outcome describes what should happen to a particle that reaches an
// object's interior.
type Outcome struct {
	// Absorbed reports whether the particle is removed (true for
	// every policy this package currently implements).
	Absorbed bool
	// Charge is the charge to attribute to the object, 0 if Absorbed
	// is false.
	Charge float64
}

// ElasticCollisionPolicy decides what happens when a particle of the
// given charge reaches an object's interior. impact.Collect calls this
// once per particle found inside an object instead of unconditionally
// absorbing it,
// so a future elastic-scattering policy can intercept the decision.
type ElasticCollisionPolicy interface {
	Resolve(objectCharge float64, particleCharge float64) Outcome
}

// AbsorbOnImpact is the only implemented policy: every particle that
// reaches an object's interior is absorbed and its full charge
// attributed to the object.
type AbsorbOnImpact struct{}

// Resolve implements ElasticCollisionPolicy.
func (AbsorbOnImpact) Resolve(objectCharge, particleCharge float64) Outcome {
	return Outcome{Absorbed: true, Charge: particleCharge}
}
