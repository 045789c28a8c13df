package evaluator

import (
	"sync"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

// Feature layout, all positions scaled by the pitch half extents:
//
//	0..3    ball x, y, vx, vy
//	4       spend time / 50
//	5       chain length / 4
//	6..49   teammates 1..11: x, y, valid, holder
//	50..82  opponents, up to 11 by unum: x, y, valid
const (
	ballFeatures   = 4
	chainFeatures  = 2
	mateFeatures   = 4
	oppFeatures    = 3
	FeatureSize    = ballFeatures + chainFeatures + world.MaxUnum*(mateFeatures+oppFeatures)
	mateOffset     = ballFeatures + chainFeatures
	opponentOffset = mateOffset + world.MaxUnum*mateFeatures
)

var featurePool = sync.Pool{
	New: func() any {
		b := make([]float32, FeatureSize)
		return &b
	},
}

func getFeatures() *[]float32  { return featurePool.Get().(*[]float32) }
func putFeatures(b *[]float32) { featurePool.Put(b) }

// Features encodes s into dst, which must hold FeatureSize values.
func Features(dst []float32, s *state.State, path []action.Pair) {
	clear(dst)
	sp := s.Server()
	sx := float32(1 / sp.PitchHalfLength)
	sy := float32(1 / sp.PitchHalfWidth)

	b := s.Ball()
	dst[0] = float32(b.Pos.X) * sx
	dst[1] = float32(b.Pos.Y) * sy
	dst[2] = float32(b.Vel.X / sp.BallSpeedMax)
	dst[3] = float32(b.Vel.Y / sp.BallSpeedMax)
	dst[4] = float32(s.SpendTime()) / 50
	dst[5] = float32(len(path)) / 4

	holder := s.BallHolderUnum()
	for i, p := range s.OurPlayers() {
		if !p.Valid {
			continue
		}
		o := mateOffset + i*mateFeatures
		dst[o] = float32(p.Pos.X) * sx
		dst[o+1] = float32(p.Pos.Y) * sy
		dst[o+2] = 1
		if p.Unum == holder {
			dst[o+3] = 1
		}
	}
	for _, p := range s.Opponents() {
		if p.Unum < 1 || p.Unum > world.MaxUnum || !p.Valid {
			continue
		}
		o := opponentOffset + (p.Unum-1)*oppFeatures
		dst[o] = float32(p.Pos.X) * sx
		dst[o+1] = float32(p.Pos.Y) * sy
		dst[o+2] = 1
	}
}
