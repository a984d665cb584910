package coupling_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/seam/core/cochange"
	"github.com/adalundhe/seam/core/coupling"
	"github.com/adalundhe/seam/core/imports"
	"github.com/adalundhe/seam/core/registry"
)

func TestClassify(t *testing.T) {
	th := coupling.Thresholds{Structural: 1, Behavioral: 2}

	tests := []struct {
		name       string
		structural float64
		behavioral float64
		same       bool
		want       coupling.Classification
	}{
		{"both significant", 1, 2, false, coupling.ExplicitModule},
		{"structural only", 2, 1.9, false, coupling.StableInterface},
		{"behavioral only", 0, 5, false, coupling.HiddenCoupling},
		{"neither", 0.5, 1, false, coupling.Unrelated},
		{"same component overrides", 0, 0, true, coupling.ExplicitModule},
		{"same component with hidden signal", 0, 5, true, coupling.ExplicitModule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coupling.Classify(tt.structural, tt.behavioral, th, tt.same))
		})
	}
}

func TestClassify_ZeroWeightNeverSignificant(t *testing.T) {
	zero := coupling.Thresholds{}
	assert.Equal(t, coupling.Unrelated, coupling.Classify(0, 0, zero, false))
	assert.Equal(t, coupling.HiddenCoupling, coupling.Classify(0, 0.1, zero, false))
}

func TestCalibrate(t *testing.T) {
	assert.Zero(t, coupling.Calibrate(nil))
	assert.Zero(t, coupling.Calibrate([]float64{0, 0}))
	assert.Equal(t, 2.0, coupling.Calibrate([]float64{3, 0, 1, 2}))
	assert.Equal(t, 2.5, coupling.Calibrate([]float64{4, 1, 2, 3, 0}))
	assert.Equal(t, 7.0, coupling.Calibrate([]float64{7}))
}

func buildFixture(t *testing.T) (cochange.Graph, *imports.Graph, *registry.Registry) {
	t.Helper()

	w := cochange.NewWeigher()
	w.Add([]string{"api/handler.go", "db/schema.go"})
	w.Add([]string{"api/handler.go", "db/schema.go"})
	w.Add([]string{"api/handler.go", "db/schema.go", "api/routes.go"})
	w.Add([]string{"api/routes.go", "web/app.ts"})
	w.Add([]string{"api/handler.go", "api/routes.go"})

	imp := imports.NewGraph()
	imp.Add("api/handler.go", "api/routes.go")
	imp.Add("api/routes.go", "db/query.go")

	reg, err := registry.New([]registry.Component{
		{Name: "api", Paths: []string{"api"}},
		{Name: "db", Paths: []string{"db"}},
		{Name: "web", Paths: []string{"web"}},
	})
	require.NoError(t, err)
	return w.Graph(), imp, reg
}

func TestBuild(t *testing.T) {
	co, imp, reg := buildFixture(t)

	m := coupling.Build(co, imp, coupling.Options{Registry: reg})

	// behavioral weights: handler-schema 2.5, handler-routes 1.5,
	// routes-schema 0.5, routes-app 1 -> median of 0.5,1,1.5,2.5 = 1.25
	assert.Equal(t, 1.25, m.BehavioralThreshold)
	assert.Equal(t, 1.0, m.StructuralThreshold)
	assert.Len(t, m.Entries, 5)

	handlerSchema, ok := m.Entry("db/schema.go", "api/handler.go")
	require.True(t, ok)
	assert.Equal(t, coupling.HiddenCoupling, handlerSchema.Classification)
	assert.Equal(t, 2.5, handlerSchema.BehavioralWeight)

	handlerRoutes, _ := m.Entry("api/handler.go", "api/routes.go")
	assert.Equal(t, coupling.ExplicitModule, handlerRoutes.Classification)
	assert.True(t, handlerRoutes.SameComponent)

	routesQuery, _ := m.Entry("api/routes.go", "db/query.go")
	assert.Equal(t, coupling.StableInterface, routesQuery.Classification)

	routesSchema, _ := m.Entry("api/routes.go", "db/schema.go")
	assert.Equal(t, coupling.Unrelated, routesSchema.Classification)

	_, ok = m.Entry("web/app.ts", "db/query.go")
	assert.False(t, ok)

	hidden := m.FindHiddenCoupling()
	require.Len(t, hidden, 1)
	assert.Equal(t, [2]string{"api/handler.go", "db/schema.go"}, hidden[0].Pair)

	assert.Equal(t, map[coupling.Classification]int{
		coupling.ExplicitModule:  1,
		coupling.StableInterface: 1,
		coupling.HiddenCoupling:  1,
		coupling.Unrelated:       2,
	}, m.Counts())
}

func TestBuild_ManualThresholds(t *testing.T) {
	co, imp, reg := buildFixture(t)

	m := coupling.Build(co, imp, coupling.Options{Registry: reg, Structural: 5, Behavioral: 0.5})

	assert.Equal(t, 0.5, m.BehavioralThreshold)
	assert.Equal(t, 5.0, m.StructuralThreshold)

	hidden := m.FindHiddenCoupling()
	require.Len(t, hidden, 3)
	assert.Equal(t, 2.5, hidden[0].BehavioralWeight)
	assert.Equal(t, [2]string{"api/routes.go", "web/app.ts"}, hidden[1].Pair)
	assert.Equal(t, [2]string{"api/routes.go", "db/schema.go"}, hidden[2].Pair)
}

func TestBuild_RecomputeIsStable(t *testing.T) {
	co, imp, reg := buildFixture(t)
	m := coupling.Build(co, imp, coupling.Options{Registry: reg})

	assert.Equal(t, m.Entries, m.Recompute(m.Thresholds()))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	var decoded coupling.Matrix
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m.Entries, decoded.Recompute(m.Thresholds()))
}

func TestBuild_NoSignal(t *testing.T) {
	m := coupling.Build(cochange.Unavailable(cochange.SignalNoRepository), nil, coupling.Options{})

	assert.Empty(t, m.Entries)
	assert.NotNil(t, m.Entries)
	assert.Zero(t, m.BehavioralThreshold)
	assert.Equal(t, cochange.SignalNoRepository, m.Signal)
}

func TestComponentCouplingProfile(t *testing.T) {
	co, imp, reg := buildFixture(t)
	m := coupling.Build(co, imp, coupling.Options{Registry: reg})

	web, err := m.ComponentCouplingProfile("web")
	require.NoError(t, err)
	require.Len(t, web, 1)
	assert.Equal(t, [2]string{"api/routes.go", "web/app.ts"}, web[0].Pair)

	db, err := m.ComponentCouplingProfile("db")
	require.NoError(t, err)
	assert.Len(t, db, 3)

	_, err = m.ComponentCouplingProfile("billing")
	assert.ErrorIs(t, err, registry.ErrUnknownComponent)
}

func TestComponentLevelMatrix(t *testing.T) {
	co, imp, reg := buildFixture(t)

	rolledCo := co.Rollup(reg.ComponentsOf)
	rolledImp := imp.Rollup(reg.ComponentsOf)
	m := coupling.Build(rolledCo, rolledImp, coupling.Options{Registry: reg})

	apiDB, ok := m.Entry("api", "db")
	require.True(t, ok)
	assert.Equal(t, 3.0, apiDB.BehavioralWeight)
	assert.Equal(t, 1.0, apiDB.StructuralWeight)
	assert.Equal(t, coupling.ExplicitModule, apiDB.Classification)

	profile, err := m.ComponentCouplingProfile("web")
	require.NoError(t, err)
	require.Len(t, profile, 1)
	assert.Equal(t, coupling.Unrelated, profile[0].Classification)
}

func TestComponentLevelMatrix_IgnoresPathMatching(t *testing.T) {
	reg, err := registry.New([]registry.Component{
		{Name: "api", Paths: []string{"api"}},
		{Name: "db", Paths: []string{"db"}},
		{Name: "everything", Paths: []string{"**"}},
	})
	require.NoError(t, err)

	w := cochange.NewWeigher()
	w.Add([]string{"api", "db"})
	imp := imports.NewGraph()

	m := coupling.Build(w.Graph(), imp, coupling.Options{Registry: reg, ComponentLevel: true})

	entry, ok := m.Entry("api", "db")
	require.True(t, ok)
	assert.False(t, entry.SameComponent)
	assert.Equal(t, coupling.HiddenCoupling, entry.Classification)

	profile, err := m.ComponentCouplingProfile("everything")
	require.NoError(t, err)
	assert.Empty(t, profile)

	fileLevel := coupling.Build(w.Graph(), imp, coupling.Options{Registry: reg})
	entry, ok = fileLevel.Entry("api", "db")
	require.True(t, ok)
	assert.True(t, entry.SameComponent)
}
