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

package picaputil

import (
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/picap/capacitance"
	"github.com/spatialmodel/picap/classify"
	"github.com/spatialmodel/picap/collision"
	"github.com/spatialmodel/picap/comm"
	"github.com/spatialmodel/picap/correct"
	"github.com/spatialmodel/picap/grid"
	"github.com/spatialmodel/picap/impact"
	"github.com/spatialmodel/picap/objio"
	"github.com/spatialmodel/picap/objmap"
	"github.com/spatialmodel/picap/photoemission"
	"github.com/spatialmodel/picap/picaperr"
	"github.com/spatialmodel/picap/poisson"
	"github.com/spatialmodel/picap/population"
)

// decomposeX splits a global true-domain size of n nodes along x into
// size equal-or-smaller shares, giving every rank before it n/size
// nodes and folding the remainder into the last rank, and reports the
// lower/upper neighbor rank along x (-1 at the global edge).
func decomposeX(rank, size, n int) (localN, lower, upper int) {
	base := n / size
	localN = base
	if rank == size-1 {
		localN = n - base*(size-1)
	}
	lower, upper = rank-1, rank+1
	if rank == 0 {
		lower = -1
	}
	if rank == size-1 {
		upper = -1
	}
	return localN, lower, upper
}

// newSolver builds the Poisson solver named by methods.poisson.
func newSolver(cfg *viper.Viper, neighbors [grid.NDim][2]int, h [grid.NDim]float64) (capacitance.Solver, error) {
	pcfg := poisson.Config{
		Neighbors: neighbors,
		H:         h,
		BC:        poisson.Dirichlet,
		Omega:     cfg.GetFloat64("methods.omega"),
		Tol:       cfg.GetFloat64("methods.tol"),
		MaxIter:   cfg.GetInt("methods.maxIter"),
	}
	switch m := cfg.GetString("methods.poisson"); m {
	case "", "jacobi":
		return poisson.New(pcfg), nil
	case "multigrid":
		return poisson.NewMG(pcfg, 4, 2, 2), nil
	default:
		return nil, fmt.Errorf("unknown methods.poisson %q, want \"jacobi\" or \"multigrid\"", m)
	}
}

// buildGrids constructs this rank's local grid and neighbor topology
// from config, decomposing the global domain along x only. objio.Reader
// reads the Object dataset as a single whole-domain array, so mpi.ranks
// greater than 1 only works correctly against an Object Map dataset
// already split to match each rank's local true size; a single Object
// Map file is only directly usable with mpi.ranks=1.
func buildGrids(cfg *viper.Viper, rank, size int) (g *grid.Grid, neighbors [grid.NDim][2]int, h [grid.NDim]float64, err error) {
	globalTrue, err := gridTrueSize()
	if err != nil {
		return nil, neighbors, h, err
	}
	ghosts, err := gridNGhostLayers()
	if err != nil {
		return nil, neighbors, h, err
	}
	h, err = gridSpacing()
	if err != nil {
		return nil, neighbors, h, err
	}

	localX, lower, upper := decomposeX(rank, size, globalTrue[0])
	trueSize := [grid.NDim]int{localX, globalTrue[1], globalTrue[2]}
	nGhostBefore := [grid.NDim]int{ghosts[0], ghosts[2], ghosts[4]}
	nGhostAfter := [grid.NDim]int{ghosts[1], ghosts[3], ghosts[5]}

	g = grid.New(trueSize, nGhostBefore, nGhostAfter)
	neighbors[0] = [2]int{lower, upper}
	neighbors[1] = [2]int{-1, -1}
	neighbors[2] = [2]int{-1, -1}
	return g, neighbors, h, nil
}

// Validate loads the Object Map and builds the node-classification
// tables without running any simulation steps, returning the number of
// conductor objects found.
func Validate(cfg *viper.Viper) (int, error) {
	c := comm.NewLocalGroup(1)[0]
	g, neighbors, _, err := buildGrids(cfg, 0, 1)
	if err != nil {
		return 0, err
	}

	objPath := os.ExpandEnv(cfg.GetString("input.objectMap"))
	f, err := os.Open(objPath)
	if err != nil {
		return 0, fmt.Errorf("picap: opening input.objectMap: %v", err)
	}
	defer f.Close()

	m, err := objmap.Load(objio.Reader{RW: f}, g, c, neighbors, cfg.GetBool("objects.enabled"))
	if err != nil {
		return 0, err
	}
	return m.N, nil
}

// Run assembles the capacitance structure and steps the simulation
// run.numSteps times, spreading mpi.ranks goroutine-backed
// LocalCommunicator ranks across the decomposed domain the way run.go's
// Calculations spreads per-cell work across GOMAXPROCS workers.
func Run(cfg *viper.Viper, logger *logrus.Logger) error {
	size := cfg.GetInt("mpi.ranks")
	if size < 1 {
		return fmt.Errorf("mpi.ranks must be >= 1, got %d", size)
	}
	outputFile, err := checkOutputFile(cfg.GetString("output.file"))
	if err != nil {
		return err
	}

	comms := comm.NewLocalGroup(size)
	errs := make([]error, size)
	var wg sync.WaitGroup
	wg.Add(size)
	for r := 0; r < size; r++ {
		go func(rank int) {
			defer wg.Done()
			errs[rank] = runRank(cfg, comms[rank], logger, outputFile)
		}(r)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func runRank(cfg *viper.Viper, c comm.Communicator, logger *logrus.Logger, outputFile string) error {
	rank := c.Rank()
	log := logger.WithField("rank", rank)

	g, neighbors, h, err := buildGrids(cfg, rank, c.Size())
	if err != nil {
		return picaperr.Configf(rank, "picaputil.Run", "%v", err)
	}

	objPath := os.ExpandEnv(cfg.GetString("input.objectMap"))
	f, err := os.Open(objPath)
	if err != nil {
		return picaperr.Configf(rank, "picaputil.Run", "opening input.objectMap: %v", err)
	}
	defer f.Close()

	objMap, err := objmap.Load(objio.Reader{RW: f}, g, c, neighbors, cfg.GetBool("objects.enabled"))
	if err != nil {
		return err
	}
	log.Infof("loaded object map: N=%d", objMap.N)

	tbl := classify.Build(g, objMap.Tag, objMap.N)
	if cfg.GetBool("objects.photoemission") {
		tbl = tbl.WithExposedNodes(g, objMap.Tag)
	}
	gsm, err := classify.BuildGlobalSurfaceMap(tbl, c)
	if err != nil {
		return err
	}

	solver, err := newSolver(cfg, neighbors, h)
	if err != nil {
		return picaperr.Configf(rank, "picaputil.Run", "%v", err)
	}

	rho := grid.New(g.TrueSize, ghostBefore(g), ghostAfter(g))
	phi := grid.New(g.TrueSize, ghostBefore(g), ghostAfter(g))
	rhoObj := grid.New(g.TrueSize, ghostBefore(g), ghostAfter(g))

	store, err := capacitance.Build(solver, tbl, gsm, rho, phi, c)
	if err != nil {
		return err
	}
	log.Info("capacitance structure assembled")

	charges := cfg.GetFloat64Slice("population.charges")
	masses := cfg.GetFloat64Slice("population.masses")
	capacities := cfg.GetIntSlice("population.capacities")
	pop := population.New(charges, masses, capacities)
	seedPopulation(pop, g, rank, cfg.GetInt("population.seedPerRank"))

	var bExternal [3]float64
	if bv := cfg.GetFloat64Slice("fields.b"); len(bv) == 3 {
		bExternal = [3]float64{bv[0], bv[1], bv[2]}
	}

	var photoCfg photoemission.Config
	if cfg.GetBool("objects.photoemission") {
		photoCfg = photoemission.Config{
			WorkFunction:      cfg.GetFloat64Slice("objects.workFunction"),
			ConductingSurface: cfg.GetFloat64Slice("objects.conductingSurface"),
			DistanceFromSun:   cfg.GetFloat64("objects.distanceFromSun"),
			BlackBodyTemp:     cfg.GetFloat64("spectrum.blackBodyTemp"),
		}
	}

	dt := cfg.GetFloat64("run.dt")
	numSteps := cfg.GetInt("run.numSteps")
	for step := 0; step < numSteps; step++ {
		rho.Zero()
		for i, v := range rhoObj.Values() {
			rho.Values()[i] = v
		}

		if err := solver.Solve(rho, phi, c); err != nil {
			return err
		}
		if err := correct.Apply(store, tbl, gsm, rho, phi, c); err != nil {
			return err
		}
		if err := solver.Solve(rho, phi, c); err != nil {
			return err
		}

		// PushBoris samples both fields from one function, so the
		// external B field rides along as the sampler's second return
		// value.
		sampler := gradientSampler(phi, h, bExternal)
		for s := range pop.Species {
			pop.PushBoris(s, dt, sampler)
		}

		if err := impact.Collect(pop, tbl, gsm, g, rhoObj, c, collision.AbsorbOnImpact{}); err != nil {
			return err
		}

		if cfg.GetBool("objects.photoemission") {
			photoCfg.TimeStep = dt
			if err := applyPhotoemission(photoCfg, tbl, gsm, rhoObj, c); err != nil {
				return err
			}
		}

		log.WithField("step", step).Debug("step complete")
	}

	if rank == 0 {
		out, err := os.Create(os.ExpandEnv(outputFile))
		if err != nil {
			return picaperr.Configf(rank, "picaputil.Run", "creating output.file: %v", err)
		}
		defer out.Close()
		if err := objio.WriteState(out, rho, phi, rhoObj); err != nil {
			return picaperr.Internalf(rank, "picaputil.Run", "writing output state: %v", err)
		}
	}
	log.Info("run complete")
	return nil
}

func ghostBefore(g *grid.Grid) [grid.NDim]int {
	var out [grid.NDim]int
	for d := 0; d < grid.NDim; d++ {
		out[d] = g.NGhostLayers[2*d]
	}
	return out
}

func ghostAfter(g *grid.Grid) [grid.NDim]int {
	var out [grid.NDim]int
	for d := 0; d < grid.NDim; d++ {
		out[d] = g.NGhostLayers[2*d+1]
	}
	return out
}

// seedPopulation scatters n particles of every species uniformly at
// random across g's true domain, in the same grid-index position units
// impact.Collect's cell lookup expects. The source is seeded
// deterministically per rank so a run is reproducible.
func seedPopulation(pop *population.Population, g *grid.Grid, rank, n int) {
	if n <= 0 {
		return
	}
	r := rand.New(rand.NewSource(int64(rank) + 1))
	for s := range pop.Species {
		for i := 0; i < n; i++ {
			pos := [3]float64{
				float64(g.NGhostLayers[0]) + r.Float64()*float64(g.TrueSize[0]),
				float64(g.NGhostLayers[2]) + r.Float64()*float64(g.TrueSize[1]),
				float64(g.NGhostLayers[4]) + r.Float64()*float64(g.TrueSize[2]),
			}
			pop.Append(s, population.Particle{Pos: pos})
		}
	}
}

// gradientSampler returns a field function sampling -gradient(phi) by
// central difference at the nearest grid node to a particle's position
// -- a deliberately coarse stand-in for the interpolation a full PIC
// field gather would use -- paired with the configured uniform external
// magnetic field.
func gradientSampler(phi *grid.Grid, h [grid.NDim]float64, bExternal [3]float64) func(pos [3]float64) (e, b [3]float64) {
	return func(pos [3]float64) (e, b [3]float64) {
		x := clampCoord(int(pos[0]+0.5), phi.Size[0])
		y := clampCoord(int(pos[1]+0.5), phi.Size[1])
		z := clampCoord(int(pos[2]+0.5), phi.Size[2])
		i := phi.Idx(x, y, z)
		v := phi.Values()

		gx := (v[i+phi.SizeProd[1]] - v[i-phi.SizeProd[1]]) / (2 * h[0])
		gy := (v[i+phi.SizeProd[2]] - v[i-phi.SizeProd[2]]) / (2 * h[1])
		gz := (v[i+phi.SizeProd[3]] - v[i-phi.SizeProd[3]]) / (2 * h[2])
		return [3]float64{-gx, -gy, -gz}, bExternal
	}
}

func clampCoord(x, size int) int {
	if x < 1 {
		return 1
	}
	if x > size-2 {
		return size - 2
	}
	return x
}

// applyPhotoemission computes this step's photoelectron yield for every
// object with locally exposed nodes and deposits the resulting charge
// uniformly across that object's global surface nodes, mirroring
// impact.Collect's redistribution.
func applyPhotoemission(cfg photoemission.Config, tbl *classify.Tables, gsm *classify.GlobalSurfaceMap, rhoObj *grid.Grid, c comm.Communicator) error {
	const elementaryCharge = 1.602176634e-19
	y := photoemission.Compute(cfg, tbl)
	for a := 1; a <= tbl.N; a++ {
		total, err := c.AllReduce(y.Photons[a]*elementaryCharge, comm.Sum)
		if err != nil {
			return picaperr.Commf(c.Rank(), "picaputil.applyPhotoemission", "object %d: all-reduce(photoCharge): %v", a, err)
		}
		t := gsm.T[a]
		if t == 0 {
			continue
		}
		share := total / float64(t)
		for localB := tbl.SO[a-1]; localB < tbl.SO[a]; localB++ {
			rhoObj.Values()[tbl.Surface[localB]] += share
		}
	}
	return nil
}
