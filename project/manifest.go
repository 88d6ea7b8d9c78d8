package project

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/shaded/gpucore"
	"github.com/gogpu/shaded/pipeline"
	"github.com/gogpu/shaded/pipeline/geometry"
	"github.com/gogpu/shaded/sysvar"
)

// DefaultManifest is the manifest file name inside a project directory.
const DefaultManifest = "shaded.yaml"

// Manifest is the YAML description of a pipeline.
type Manifest struct {
	// Name is the project display name.
	Name string `yaml:"name"`

	// Passes lists the shader passes in draw order.
	Passes []PassSpec `yaml:"passes"`
}

// PassSpec describes one shader pass.
type PassSpec struct {
	Name string    `yaml:"name"`
	VS   StageSpec `yaml:"vs"`
	PS   StageSpec `yaml:"ps"`

	// Layout is the vertex input layout. Omit it for passes that generate
	// vertices in the shader.
	Layout []ElementSpec `yaml:"layout,omitempty"`

	VSBuffers []BufferSpec `yaml:"vs_buffers,omitempty"`
	PSBuffers []BufferSpec `yaml:"ps_buffers,omitempty"`

	Items []ItemSpec `yaml:"items,omitempty"`
}

// StageSpec names a shader file and entry point.
type StageSpec struct {
	Path  string `yaml:"path"`
	Entry string `yaml:"entry"`
}

// ElementSpec is one vertex input element.
type ElementSpec struct {
	Semantic string `yaml:"semantic"`
	Index    uint32 `yaml:"index,omitempty"`
	Format   string `yaml:"format"`
}

// BufferSpec is a constant buffer bound to a slot.
type BufferSpec struct {
	Slot      int            `yaml:"slot"`
	Variables []VariableSpec `yaml:"variables"`
}

// VariableSpec is one constant buffer variable.
type VariableSpec struct {
	Name   string    `yaml:"name"`
	Type   string    `yaml:"type"`
	System string    `yaml:"system,omitempty"`
	Value  []float32 `yaml:"value,omitempty"`
}

// ItemSpec is a nested pass item. Exactly one of the fields is set.
type ItemSpec struct {
	Geometry     *GeometrySpec     `yaml:"geometry,omitempty"`
	Blend        *BlendSpec        `yaml:"blend,omitempty"`
	DepthStencil *DepthStencilSpec `yaml:"depth_stencil,omitempty"`
}

// GeometrySpec describes a geometry item.
type GeometrySpec struct {
	Name     string      `yaml:"name"`
	Shape    string      `yaml:"shape"`
	Topology string      `yaml:"topology,omitempty"`
	Position [3]float32  `yaml:"position,omitempty"`
	Rotation [3]float32  `yaml:"rotation,omitempty"`
	Scale    *[3]float32 `yaml:"scale,omitempty"`
}

// BlendSpec describes a blend state item. Mode is opaque, alpha or additive.
type BlendSpec struct {
	Name string `yaml:"name"`
	Mode string `yaml:"mode"`
}

// DepthStencilSpec describes a depth/stencil state item. Unset fields take
// the values of gpucore.DefaultDepthStencil.
type DepthStencilSpec struct {
	Name       string       `yaml:"name"`
	Depth      *bool        `yaml:"depth,omitempty"`
	DepthWrite *bool        `yaml:"depth_write,omitempty"`
	Compare    string       `yaml:"compare,omitempty"`
	Stencil    bool         `yaml:"stencil,omitempty"`
	Reference  uint32       `yaml:"reference,omitempty"`
	Front      *StencilSpec `yaml:"front,omitempty"`
	Back       *StencilSpec `yaml:"back,omitempty"`
}

// StencilSpec describes the stencil behavior of one face.
type StencilSpec struct {
	Compare   string `yaml:"compare"`
	Fail      string `yaml:"fail,omitempty"`
	DepthFail string `yaml:"depth_fail,omitempty"`
	Pass      string `yaml:"pass,omitempty"`
}

// ParseManifest decodes a manifest, rejecting unknown fields.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("project: parse manifest: %w", err)
	}
	return &m, nil
}

// LoadManifest reads and decodes a project-relative manifest file.
func (l *Loader) LoadManifest(rel string) (*Manifest, error) {
	data, err := l.ReadFile(rel)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// SaveManifest encodes m into a project-relative file.
func (l *Loader) SaveManifest(rel string, m *Manifest) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("project: encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("project: encode manifest: %w", err)
	}
	return l.SaveProjectFile(rel, buf.String())
}

// Build creates a pipeline store holding the manifest's passes.
func (m *Manifest) Build() (*pipeline.Store, error) {
	store := pipeline.NewStore()
	for i := range m.Passes {
		item, err := m.Passes[i].build()
		if err != nil {
			return nil, err
		}
		if _, err := store.Add(item); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// ShaderPaths maps every shader path referenced by the manifest to the
// names of the passes using it.
func (m *Manifest) ShaderPaths() map[string][]string {
	out := make(map[string][]string)
	for _, p := range m.Passes {
		out[p.VS.Path] = appendUnique(out[p.VS.Path], p.Name)
		out[p.PS.Path] = appendUnique(out[p.PS.Path], p.Name)
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func (p *PassSpec) build() (*pipeline.Item, error) {
	pass := &pipeline.ShaderPass{
		VSPath:        p.VS.Path,
		VSEntry:       p.VS.Entry,
		PSPath:        p.PS.Path,
		PSEntry:       p.PS.Entry,
		VSInputLayout: gpucore.NewInputLayout(),
	}

	for _, e := range p.Layout {
		f, err := gpucore.ParseVertexFormat(e.Format)
		if err != nil {
			return nil, fmt.Errorf("project: pass %q: %w", p.Name, err)
		}
		pass.VSInputLayout.Add(gpucore.InputElement{Semantic: e.Semantic, SemanticIndex: e.Index, Format: f})
	}
	if err := buildBuffers(&pass.VSVariables, p.VSBuffers); err != nil {
		return nil, fmt.Errorf("project: pass %q: %w", p.Name, err)
	}
	if err := buildBuffers(&pass.PSVariables, p.PSBuffers); err != nil {
		return nil, fmt.Errorf("project: pass %q: %w", p.Name, err)
	}
	for i, spec := range p.Items {
		item, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("project: pass %q item %d: %w", p.Name, i, err)
		}
		pass.Items = append(pass.Items, item)
	}
	return pipeline.NewShaderPass(p.Name, pass), nil
}

func buildBuffers(slots *pipeline.VariableSlots, specs []BufferSpec) error {
	for _, bs := range specs {
		cb := &pipeline.ConstantBuffer{}
		for _, vs := range bs.Variables {
			vt, err := pipeline.ParseVariableType(vs.Type)
			if err != nil {
				return err
			}
			sem, err := sysvar.ParseSemantic(vs.System)
			if err != nil {
				return err
			}
			cb.Variables = append(cb.Variables, &pipeline.Variable{Name: vs.Name, Type: vt, System: sem, Value: vs.Value})
		}
		if err := slots.SetSlot(bs.Slot, cb); err != nil {
			return err
		}
	}
	return nil
}

func (s *ItemSpec) build() (*pipeline.Item, error) {
	switch {
	case s.Geometry != nil:
		return s.Geometry.build()
	case s.Blend != nil:
		return s.Blend.build()
	case s.DepthStencil != nil:
		return s.DepthStencil.build()
	default:
		return nil, errors.New("empty item")
	}
}

func (g *GeometrySpec) build() (*pipeline.Item, error) {
	mesh, err := geometry.New(geometry.Shape(g.Shape))
	if err != nil {
		return nil, err
	}
	geo := pipeline.NewGeometryItem(mesh)
	if g.Topology != "" {
		if geo.Topology, err = parseTopology(g.Topology); err != nil {
			return nil, err
		}
	}
	geo.Transform.Position = vec3(g.Position)
	geo.Transform.Rotation = vec3(g.Rotation)
	if g.Scale != nil {
		geo.Transform.Scale = vec3(*g.Scale)
	}
	return pipeline.NewGeometry(g.Name, geo), nil
}

func vec3(v [3]float32) sysvar.Vec3 { return sysvar.Vec3{X: v[0], Y: v[1], Z: v[2]} }

func (b *BlendSpec) build() (*pipeline.Item, error) {
	var desc gputypes.BlendState
	switch b.Mode {
	case "", "opaque":
		desc = gpucore.OpaqueBlend()
	case "alpha":
		desc = pipeline.AlphaBlend()
	case "additive":
		desc = pipeline.AdditiveBlend()
	default:
		return nil, fmt.Errorf("unknown blend mode %q", b.Mode)
	}
	return pipeline.NewBlendState(b.Name, &pipeline.BlendState{Desc: desc}), nil
}

func (d *DepthStencilSpec) build() (*pipeline.Item, error) {
	desc := gpucore.DefaultDepthStencil()
	if d.Depth != nil {
		desc.DepthEnable = *d.Depth
	}
	if d.DepthWrite != nil {
		desc.DepthWrite = *d.DepthWrite
	}
	if d.Compare != "" {
		c, err := parseCompare(d.Compare)
		if err != nil {
			return nil, err
		}
		desc.DepthCompare = c
	}
	desc.StencilEnable = d.Stencil
	var err error
	if d.Front != nil {
		if desc.Front, err = d.Front.build(); err != nil {
			return nil, err
		}
	}
	if d.Back != nil {
		if desc.Back, err = d.Back.build(); err != nil {
			return nil, err
		}
	}
	return pipeline.NewDepthStencilState(d.Name, &pipeline.DepthStencilState{Desc: desc, StencilReference: d.Reference}), nil
}

func (s *StencilSpec) build() (gpucore.StencilFace, error) {
	face := gpucore.StencilFace{Compare: gputypes.CompareFunctionAlways}
	var err error
	if s.Compare != "" {
		if face.Compare, err = parseCompare(s.Compare); err != nil {
			return face, err
		}
	}
	ops := []struct {
		name string
		dst  *gpucore.StencilOp
	}{{s.Fail, &face.FailOp}, {s.DepthFail, &face.DepthFailOp}, {s.Pass, &face.PassOp}}
	for _, op := range ops {
		if op.name == "" {
			continue
		}
		if *op.dst, err = gpucore.ParseStencilOp(op.name); err != nil {
			return face, err
		}
	}
	return face, nil
}

var topologies = map[string]gputypes.PrimitiveTopology{
	"point-list":     gputypes.PrimitiveTopologyPointList,
	"line-list":      gputypes.PrimitiveTopologyLineList,
	"line-strip":     gputypes.PrimitiveTopologyLineStrip,
	"triangle-list":  gputypes.PrimitiveTopologyTriangleList,
	"triangle-strip": gputypes.PrimitiveTopologyTriangleStrip,
}

func parseTopology(name string) (gputypes.PrimitiveTopology, error) {
	if t, ok := topologies[name]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown topology %q", name)
}

var compareFunctions = map[string]gputypes.CompareFunction{
	"never":         gputypes.CompareFunctionNever,
	"less":          gputypes.CompareFunctionLess,
	"equal":         gputypes.CompareFunctionEqual,
	"less-equal":    gputypes.CompareFunctionLessEqual,
	"greater":       gputypes.CompareFunctionGreater,
	"not-equal":     gputypes.CompareFunctionNotEqual,
	"greater-equal": gputypes.CompareFunctionGreaterEqual,
	"always":        gputypes.CompareFunctionAlways,
}

func parseCompare(name string) (gputypes.CompareFunction, error) {
	if c, ok := compareFunctions[name]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown compare function %q", name)
}
