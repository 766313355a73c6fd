// Package genes provides a deterministic reference implementation of the
// gene-mixing oracle.
package genes

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"creaturecore/pkg/domain"
)

// Mixer derives a child genome from two parent genomes and a seed tick.
// The same inputs always produce the same child, so replaying a birth
// reproduces the genome exactly.
type Mixer struct {
	// Salt perturbs the derivation so independent deployments disagree.
	Salt []byte
}

// NewMixer constructs a mixer with the given salt. A nil salt is valid.
func NewMixer(salt []byte) *Mixer { return &Mixer{Salt: salt} }

// IsGeneOracle marks the capability probe.
func (m *Mixer) IsGeneOracle() bool { return true }

// MixGenes selects each child byte from one parent or the other, driven by a
// hash of both genomes and the seed. A second hash occasionally replaces a
// byte outright, standing in for mutation.
func (m *Mixer) MixGenes(_ context.Context, matron, sire domain.Genes, seedTick uint64) (domain.Genes, error) {
	selector := m.digest(matron, sire, seedTick, 0x00)
	mutation := m.digest(matron, sire, seedTick, 0xff)

	var child domain.Genes
	for i := 0; i < domain.GenesSize; i++ {
		if selector[i]&1 == 0 {
			child[i] = matron[i]
		} else {
			child[i] = sire[i]
		}
		// Roughly a 1-in-32 chance per byte.
		if mutation[i]&0x1f == 0 {
			child[i] = selector[i] ^ mutation[i]
		}
	}
	return child, nil
}

func (m *Mixer) digest(matron, sire domain.Genes, seedTick uint64, tag byte) [sha256.Size]byte {
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], seedTick)
	h := sha256.New()
	h.Write(m.Salt)
	h.Write(matron[:])
	h.Write(sire[:])
	h.Write(seed[:])
	h.Write([]byte{tag})
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}
