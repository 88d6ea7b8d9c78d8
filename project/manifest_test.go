package project

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shaded/gpucore"
	"github.com/gogpu/shaded/pipeline"
	"github.com/gogpu/shaded/sysvar"
)

func loadSimple(t *testing.T) (*Loader, *Manifest) {
	t.Helper()
	l, err := Open("testdata/simple")
	require.NoError(t, err)
	m, err := l.LoadManifest(DefaultManifest)
	require.NoError(t, err)
	return l, m
}

func TestManifestBuild(t *testing.T) {
	_, m := loadSimple(t)
	assert.Equal(t, "simple", m.Name)

	store, err := m.Build()
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	item, ok := store.Find("Simple")
	require.True(t, ok)
	pass := item.Pass()
	require.NotNil(t, pass)

	assert.Equal(t, "shaders/simple.wgsl", pass.VSPath)
	assert.Equal(t, "fs_main", pass.PSEntry)
	assert.Equal(t, "POSITION0:float32x3,NORMAL0:float32x3,TEXCOORD0:float32x2", pass.VSInputLayout.String())

	require.True(t, pass.VSVariables.IsSlotUsed(0))
	vsCB := pass.VSVariables.Slot(0)
	require.Len(t, vsCB.Variables, 2)
	assert.Equal(t, sysvar.SemanticGeometryTransform, vsCB.Variables[1].System)
	assert.Equal(t, []float32{1, 0.5, 0.25, 1}, pass.PSVariables.Slot(0).Variables[0].Value)

	require.Len(t, pass.Items, 4)
	assert.Equal(t, pipeline.ItemGeometry, pass.Items[0].Type)
	assert.True(t, pass.Items[0].Handle().IsValid(), "nested items are registered with the store")

	blend := pass.Items[1].Data.(*pipeline.BlendState)
	assert.Equal(t, gputypes.BlendFactorSrcAlpha, blend.Desc.Color.SrcFactor)

	ds := pass.Items[2].Data.(*pipeline.DepthStencilState)
	assert.True(t, ds.Desc.StencilEnable)
	assert.True(t, ds.Desc.DepthEnable, "unset depth keeps the default")
	assert.Equal(t, uint32(1), ds.StencilReference)
	assert.Equal(t, gpucore.StencilOpReplace, ds.Desc.Front.PassOp)

	ground := pass.Items[3].Data.(*pipeline.GeometryItem)
	assert.Equal(t, sysvar.Vec3{X: 4, Y: 1, Z: 4}, ground.Transform.Scale)
	assert.Equal(t, float32(-1), ground.Transform.Position.Y)

	post, _ := store.Find("Post")
	assert.Zero(t, post.Pass().VSInputLayout.Len(), "pass without layout gets an empty one")
}

func TestManifestShaderPaths(t *testing.T) {
	_, m := loadSimple(t)
	paths := m.ShaderPaths()
	assert.Equal(t, []string{"Simple"}, paths["shaders/simple.wgsl"])
	assert.Equal(t, []string{"Post"}, paths["shaders/post.wgsl"])
}

func TestManifestRoundTrip(t *testing.T) {
	_, m := loadSimple(t)

	l, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, l.SaveManifest(DefaultManifest, m))

	again, err := l.LoadManifest(DefaultManifest)
	require.NoError(t, err)
	assert.Equal(t, m, again)
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "name: x\npasess: []\n"},
		{"bad format", "passes:\n  - name: P\n    layout: [{semantic: POSITION, format: float5}]\n"},
		{"bad semantic", "passes:\n  - name: P\n    vs_buffers: [{slot: 0, variables: [{name: v, type: float, system: bogus}]}]\n"},
		{"bad slot", "passes:\n  - name: P\n    ps_buffers: [{slot: 14, variables: []}]\n"},
		{"bad shape", "passes:\n  - name: P\n    items: [{geometry: {name: G, shape: torus}}]\n"},
		{"bad topology", "passes:\n  - name: P\n    items: [{geometry: {name: G, shape: cube, topology: fan}}]\n"},
		{"bad blend", "passes:\n  - name: P\n    items: [{blend: {name: B, mode: multiply}}]\n"},
		{"bad stencil op", "passes:\n  - name: P\n    items: [{depth_stencil: {name: D, front: {compare: always, pass: explode}}}]\n"},
		{"empty item", "passes:\n  - name: P\n    items: [{}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseManifest([]byte(tt.yaml))
			if err != nil {
				return
			}
			_, err = m.Build()
			assert.Error(t, err)
		})
	}
}
