package genes

import (
	"context"
	"testing"

	"creaturecore/pkg/domain"
)

func TestMixGenesDeterministic(t *testing.T) {
	m := NewMixer([]byte("salt"))
	ctx := context.Background()
	matron := domain.GenesFromUint64(0xdead)
	sire := domain.GenesFromUint64(0xbeef)

	a, err := m.MixGenes(ctx, matron, sire, 42)
	if err != nil {
		t.Fatalf("mix: %v", err)
	}
	b, err := m.MixGenes(ctx, matron, sire, 42)
	if err != nil {
		t.Fatalf("mix: %v", err)
	}
	if a != b {
		t.Fatal("same inputs must reproduce the same child")
	}
}

func TestMixGenesVariesWithSeed(t *testing.T) {
	m := NewMixer(nil)
	ctx := context.Background()
	matron := domain.GenesFromUint64(1)
	sire := domain.GenesFromUint64(2)

	a, _ := m.MixGenes(ctx, matron, sire, 1)
	b, _ := m.MixGenes(ctx, matron, sire, 2)
	if a == b {
		t.Fatal("different seeds should diverge")
	}
}

func TestMixGenesVariesWithSalt(t *testing.T) {
	ctx := context.Background()
	matron := domain.GenesFromUint64(1)
	sire := domain.GenesFromUint64(2)

	a, _ := NewMixer([]byte("deploy-a")).MixGenes(ctx, matron, sire, 7)
	b, _ := NewMixer([]byte("deploy-b")).MixGenes(ctx, matron, sire, 7)
	if a == b {
		t.Fatal("different salts should diverge")
	}
}

func TestMixGenesDrawsFromParents(t *testing.T) {
	m := NewMixer(nil)
	ctx := context.Background()
	var matron, sire domain.Genes
	for i := range matron {
		matron[i] = 0xaa
		sire[i] = 0x55
	}

	child, err := m.MixGenes(ctx, matron, sire, 9)
	if err != nil {
		t.Fatalf("mix: %v", err)
	}
	// Nearly every byte comes from one of the parents; mutation touches a
	// byte only about one time in thirty-two.
	var parental, mutated int
	for _, b := range child {
		switch b {
		case 0xaa, 0x55:
			parental++
		default:
			mutated++
		}
	}
	if parental < domain.GenesSize/2 {
		t.Fatalf("only %d of %d bytes drawn from parents", parental, domain.GenesSize)
	}
	if mutated > domain.GenesSize/4 {
		t.Fatalf("implausible mutation count %d", mutated)
	}
}

func TestMixerCapabilityProbe(t *testing.T) {
	if !NewMixer(nil).IsGeneOracle() {
		t.Fatal("capability probe")
	}
}
