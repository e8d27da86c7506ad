package allocation

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func percents(a Allocation) []float64 {
	out := make([]float64, a.Len())
	for i := 0; i < a.Len(); i++ {
		out[i] = a.At(i).Percent
	}
	return out
}

func split(ps ...float64) Allocation {
	shares := make([]Share, len(ps))
	for i, p := range ps {
		shares[i] = Share{ID: fmt.Sprintf("r%d", i), Name: fmt.Sprintf("Role %d", i), Percent: p}
	}
	return New(shares...)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		alloc   Allocation
		valid   bool
		deficit float64
	}{
		{"exact", split(50, 25, 25), true, 0},
		{"within epsilon", split(33.335, 33.33, 33.33), true, 0.005},
		{"under", split(40, 40), false, 20},
		{"over", split(60, 60), false, -20},
		{"empty", New(), false, 100},
	}
	for _, tt := range tests {
		v := tt.alloc.Validate()
		assert.Equal(t, tt.valid, v.Valid, tt.name)
		assert.InDelta(t, tt.deficit, v.Deficit, 1e-9, tt.name)
	}
}

func TestAllocation_PreservesOrder(t *testing.T) {
	a := New(
		Share{ID: "c", Name: "Creator", Percent: 10},
		Share{ID: "a", Name: "Artist", Percent: 90},
	)
	require.Equal(t, 2, a.Len())
	assert.Equal(t, "c", a.At(0).ID)
	assert.Equal(t, "a", a.At(1).ID)
	assert.Equal(t, 1, a.IndexOf("a"))
	assert.Equal(t, -1, a.IndexOf("missing"))

	p, ok := a.Percent("a")
	assert.True(t, ok)
	assert.Equal(t, 90.0, p)

	shares := a.Shares()
	shares[0].Percent = 99
	assert.Equal(t, 10.0, a.At(0).Percent, "Shares must return a copy")
}

func TestAllocation_AppendRemoveRename(t *testing.T) {
	a := split(60, 40)
	b := a.Append(Share{ID: "x", Name: "New", Percent: 0})
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 3, b.Len())

	c := b.Remove(0)
	assert.Equal(t, []float64{40, 0}, percents(c))
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, b, b.Remove(7))

	d := c.Rename(1, "Renamed")
	assert.Equal(t, "Renamed", d.At(1).Name)
	assert.Equal(t, "New", c.At(1).Name)
}

func TestRebalance_ThreeRolesProportional(t *testing.T) {
	a := split(34, 33, 33)
	got := Rebalance(a, 0, 50)

	assert.Equal(t, []float64{50, 25, 25}, percents(got))
	assert.InDelta(t, 100, got.Sum(), 1e-9)
	assert.Equal(t, []float64{34, 33, 33}, percents(a), "input must not change")
}

func TestRebalance_ZeroTotalOthers(t *testing.T) {
	got := Rebalance(split(0, 100), 1, 60)
	assert.Equal(t, []float64{40, 60}, percents(got))

	got = Rebalance(split(0, 0, 100), 2, 40)
	assert.Equal(t, []float64{30, 30, 40}, percents(got))
}

func TestRebalance_SingleRoleAlwaysWhole(t *testing.T) {
	for _, p := range []float64{0, 12.5, 99.99, 100} {
		got := Rebalance(split(100), 0, p)
		require.Equal(t, 1, got.Len())
		assert.Equal(t, 100.0, got.At(0).Percent)
	}
	got := Rebalance(split(37), 0, 5)
	assert.Equal(t, 100.0, got.At(0).Percent)
}

func TestRebalance_ClampingLeavesDrift(t *testing.T) {
	// Under-allocated input: the others cannot absorb the full delta.
	got := Rebalance(split(10, 20, 20), 0, 80)

	assert.Equal(t, []float64{80, 0, 0}, percents(got))
	v := got.Validate()
	assert.False(t, v.Valid)
	assert.InDelta(t, 20, v.Deficit, 1e-9)
}

func TestRebalance_OutOfRangeIndex(t *testing.T) {
	a := split(50, 50)
	assert.Equal(t, a, Rebalance(a, -1, 10))
	assert.Equal(t, a, Rebalance(a, 2, 10))
}

func TestRebalance_SumPreservedWithoutClamping(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := 0; iter < 2000; iter++ {
		n := 2 + r.Intn(8)
		weights := make([]float64, n)
		var wsum float64
		for i := range weights {
			weights[i] = r.Float64() + 0.01
			wsum += weights[i]
		}
		for i := range weights {
			weights[i] = weights[i] / wsum * 100
		}
		a := split(weights...)
		idx := r.Intn(n)
		newPercent := math.Round(r.Float64()*10000) / 100

		got := Rebalance(a, idx, newPercent)

		clamped := false
		for i, p := range percents(got) {
			if i != idx && p == 0 {
				clamped = true
			}
		}
		if clamped {
			continue
		}
		require.InDelta(t, 100, got.Sum(), 1e-6, "iteration %d: %v -> %v", iter, percents(a), percents(got))
		require.Equal(t, newPercent, got.At(idx).Percent)
	}
}

func TestTemplates(t *testing.T) {
	assert.Equal(t, []string{"band", "duo", "film", "solo"}, TemplateNames())

	for _, name := range TemplateNames() {
		tpl, err := LookupTemplate(name)
		require.NoError(t, err)
		seq := 0
		a := FromTemplate(tpl, func() string { seq++; return fmt.Sprintf("id-%d", seq) })
		assert.True(t, a.Validate().Valid, name)
		assert.Equal(t, "id-1", a.At(0).ID, name)
	}

	def, err := LookupTemplate("")
	require.NoError(t, err)
	assert.Equal(t, "solo", def.Name)

	_, err = LookupTemplate("orchestra")
	assert.Error(t, err)
}
