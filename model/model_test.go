package model

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/vmeshconv/collada"
	"github.com/mogaika/vmeshconv/pack/cmp"
	"github.com/mogaika/vmeshconv/pack/vms"
	"github.com/mogaika/vmeshconv/scene"
	"github.com/mogaika/vmeshconv/utils"
)

const quadFormat = vms.FVF_XYZ | vms.FVF_TEX1

// quadRaw is a textured unit quad in the XY plane shifted by offset along X.
func quadRaw(name, material string, offset float32) *scene.RawGeometry {
	g := scene.NewRawGeometry(name+"-mesh", name)
	g.AddSource(&scene.Source{
		ID:     name + "-positions",
		Data:   []float32{offset, 0, 0, offset + 1, 0, 0, offset + 1, 1, 0, offset, 1, 0},
		Stride: 3, Params: 3, Count: 4,
	})
	g.AddSource(&scene.Source{
		ID:     name + "-uv",
		Data:   []float32{0, 0, 1, 0, 1, 1, 0, 1},
		Stride: 2, Params: 2, Count: 4,
	})
	g.Primitives = []scene.Primitive{{
		Kind:     scene.PRIMITIVE_TRIANGLES,
		Material: material,
		Count:    2,
		Inputs: []scene.Input{
			{Semantic: scene.SEMANTIC_POSITION, Source: name + "-positions"},
			{Semantic: scene.SEMANTIC_TEXCOORD, Source: name + "-uv"},
		},
		Indices: []int{0, 1, 2, 0, 2, 3},
	}}
	return g
}

func testOptions() ImportOptions {
	return ImportOptions{
		Name:                     "ship",
		StripMaterialSuffix:      true,
		StripMaterialSuffixTools: []string{"vmeshconv"},
		LodCutoff:                2250,
		LodFar:                   1000000,
	}
}

// testScene is a hull with a second LOD, a revolving turret and a sliding barrel.
func testScene() *scene.Scene {
	s := scene.NewScene()
	s.AuthoringTool = "vmeshconv 1.0"
	s.Materials["hull-material"] = &scene.Material{Name: "hull-material", Diffuse: mgl32.Vec4{0.5, 0.5, 0.5, 1}}

	hull := scene.NewNode("Hull")
	hull.Geometry = quadRaw("Hull", "hull-material", 0)
	hullLod := scene.NewNode("Hull_lod1")
	hullLod.Geometry = quadRaw("Hull_lod1", "hull-material", 0)

	turret := scene.NewNode("Turret")
	turret.Geometry = quadRaw("Turret", "glass", 2)
	turret.Transform = mgl32.Translate3D(0, 1, 0)
	turret.SetProperty("construct", scene.ParseProperty("rev"))
	turret.SetProperty("min", scene.ParseProperty("30"))
	turret.SetProperty("max", scene.ParseProperty("-45"))
	turret.SetProperty("axis_rotation", scene.ParseProperty("0 0 1"))

	barrel := scene.NewNode("Barrel")
	barrel.Geometry = quadRaw("Barrel", "glass", 4)
	barrel.SetProperty("Construct", scene.ParseProperty("PRIS"))
	barrel.SetProperty("axis_translation", scene.ParseProperty("1 0 0"))
	barrel.SetProperty("max", scene.ParseProperty("2"))

	hull.AddChild(turret)
	turret.AddChild(barrel)
	s.Nodes = []*scene.Node{hull, hullLod}
	return s
}

func TestImportScene(t *testing.T) {
	m, err := ImportScene(testScene(), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	root := m.Root
	if root.Name != "Hull" || root.ObjectName != ROOT_NAME || root.Construct != nil {
		t.Errorf("root %q %q %+v", root.Name, root.ObjectName, root.Construct)
	}
	if len(root.Levels) != 2 {
		t.Fatalf("root has %d levels", len(root.Levels))
	}
	if name := root.Levels[1].MeshName; name != "ship-Hull.lod1.258.vms" {
		t.Errorf("lod 1 mesh name %q", name)
	}
	if root.Levels[0].Ref.MeshHash != utils.ModelNameHash("ship-Hull.lod0.258.vms") {
		t.Errorf("reference hash does not match the mesh name")
	}
	if len(root.Switch2) != 3 || root.Switch2[1] != 2250 || root.Switch2[2] != 1000000 {
		t.Errorf("switch distances %v", root.Switch2)
	}
	if root.Levels[0].Geometry.Drawcalls[0].Material != "hull" {
		t.Errorf("material suffix not stripped: %+v", root.Levels[0].Geometry.Drawcalls)
	}

	turret := root.Children[0]
	c := turret.Construct
	if c.Type != cmp.JOINT_REV || c.Parent != ROOT_NAME || c.Child != "Turret" {
		t.Errorf("turret construct %+v", c)
	}
	if !mgl32.FloatEqualThreshold(c.Limit.Min, utils.DegreesToRadians(-45), 1e-6) ||
		!mgl32.FloatEqualThreshold(c.Limit.Max, utils.DegreesToRadians(30), 1e-6) {
		t.Errorf("turret limits %+v", c.Limit)
	}
	if c.Axis != (mgl32.Vec3{0, 0, 1}) || c.Origin != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("turret axis %v origin %v", c.Axis, c.Origin)
	}
	if len(turret.Switch2) != 0 {
		t.Errorf("single level parts need no switch record")
	}

	barrel := turret.Children[0].Construct
	if barrel.Type != cmp.JOINT_PRIS || barrel.Parent != "Turret" || barrel.Axis != (mgl32.Vec3{1, 0, 0}) ||
		barrel.Limit != (cmp.Range{Min: 0, Max: 2}) {
		t.Errorf("barrel construct %+v", barrel)
	}

	if len(m.Materials) != 2 || m.Materials[0].Name != "hull" || m.Materials[0].Diffuse[0] != 0.5 ||
		m.Materials[1].Name != "glass" || m.Materials[1].Diffuse != (mgl32.Vec4{1, 1, 1, 1}) {
		t.Errorf("materials %+v", m.Materials)
	}
}

func TestImportKeepsSuffixForOtherTools(t *testing.T) {
	s := testScene()
	s.AuthoringTool = "Blender 4.1"
	m, err := ImportScene(s, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if name := m.Root.Levels[0].Geometry.Drawcalls[0].Material; name != "hull-material" {
		t.Errorf("material %q", name)
	}
}

func TestEncodeDecode(t *testing.T) {
	m, err := ImportScene(testScene(), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	rec, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	files, err := rec.Files()
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{
		"Barrel.lod0.vmeshref",
		"Root.lod0.vmeshref",
		"Root.lod1.vmeshref",
		"Root.switch2",
		"Turret.lod0.vmeshref",
		"cons.pris",
		"cons.rev",
		"materials.yaml",
		"ship-Barrel.lod0.258.vms.vmeshdata",
		"ship-Hull.lod0.258.vms.vmeshdata",
		"ship-Hull.lod1.258.vms.vmeshdata",
		"ship-Turret.lod0.258.vms.vmeshdata",
	}
	if len(files) != len(expected) {
		t.Fatalf("got %d files; expected %d", len(files), len(expected))
	}
	loaded := NewRecords()
	for i, f := range files {
		if f.Name != expected[i] {
			t.Errorf("file %d is %q; expected %q", i, f.Name, expected[i])
		}
		if ok, err := loaded.Add(f.Name, f.Data); !ok || err != nil {
			t.Errorf("file %q not accepted: %v", f.Name, err)
		}
	}

	decoded, err := Decode(loaded, nil)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Name != "ship" || decoded.Root.Name != "Hull" || decoded.Root.ObjectName != ROOT_NAME {
		t.Errorf("decoded names %q %q %q", decoded.Name, decoded.Root.Name, decoded.Root.ObjectName)
	}

	want, got := m.Parts(), decoded.Parts()
	if len(got) != len(want) {
		t.Fatalf("decoded %d parts; expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i].Name || len(got[i].Levels) != len(want[i].Levels) {
			t.Fatalf("part %d: %q with %d levels; expected %q with %d", i,
				got[i].Name, len(got[i].Levels), want[i].Name, len(want[i].Levels))
		}
		if (got[i].Construct == nil) != (want[i].Construct == nil) ||
			got[i].Construct != nil && *got[i].Construct != *want[i].Construct {
			t.Errorf("part %q construct %+v; expected %+v", got[i].Name, got[i].Construct, want[i].Construct)
		}
		for l := range want[i].Levels {
			gg, wg := got[i].Levels[l].Geometry, want[i].Levels[l].Geometry
			if gg.Format != wg.Format || len(gg.Vertices) != len(wg.Vertices) || len(gg.Indices) != len(wg.Indices) {
				t.Fatalf("part %q lod %d geometry shape differs", got[i].Name, l)
			}
			for v := range wg.Vertices {
				if !gg.Vertices[v].Equal(&wg.Vertices[v], wg.Format) {
					t.Errorf("part %q lod %d vertex %d %+v; expected %+v", got[i].Name, l, v, gg.Vertices[v], wg.Vertices[v])
				}
			}
			for d := range wg.Drawcalls {
				if gg.Drawcalls[d] != wg.Drawcalls[d] {
					t.Errorf("part %q lod %d drawcall %+v; expected %+v", got[i].Name, l, gg.Drawcalls[d], wg.Drawcalls[d])
				}
			}
		}
	}
	if len(decoded.Root.Switch2) != 3 || decoded.Root.Switch2[1] != 2250 {
		t.Errorf("decoded switch distances %v", decoded.Root.Switch2)
	}
	if len(decoded.Materials) != 2 || decoded.Materials[0].Diffuse[0] != 0.5 {
		t.Errorf("decoded materials %+v", decoded.Materials)
	}
}

func TestDecodeErrors(t *testing.T) {
	m, err := ImportScene(testScene(), testOptions())
	if err != nil {
		t.Fatal(err)
	}

	rec, _ := m.Encode()
	delete(rec.MeshData, "ship-Turret.lod0.258.vms")
	if _, err := Decode(rec, nil); errors.Cause(err) != vms.ErrFormatMismatch {
		t.Errorf("dangling reference: %v", err)
	}

	rec, _ = m.Encode()
	rec.Constructs[cmp.JOINT_REV] = rec.Constructs[cmp.JOINT_REV][:10]
	if _, err := Decode(rec, nil); errors.Cause(err) != utils.ErrBufferOverrun {
		t.Errorf("short construct record: %v", err)
	}

	rec, _ = m.Encode()
	rec.Constructs[cmp.JOINT_FIX] = rec.Constructs[cmp.JOINT_PRIS]
	delete(rec.Constructs, cmp.JOINT_PRIS)
	if _, err := Decode(rec, nil); errors.Cause(err) != utils.ErrBufferOverrun {
		t.Errorf("pris records read as fix: %v", err)
	}
}

func TestDecodeWithoutMaterials(t *testing.T) {
	m, err := ImportScene(testScene(), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	rec, _ := m.Encode()
	rec.Materials = nil
	decoded, err := Decode(rec, nil)
	if err != nil {
		t.Fatal(err)
	}
	name := decoded.Root.Levels[0].Geometry.Drawcalls[0].Material
	if !strings.HasPrefix(name, "material_0x") {
		t.Errorf("unresolved material name %q", name)
	}
}

func TestImportHierarchyErrors(t *testing.T) {
	emptyRoot := scene.NewNode("Empty")
	emptyRoot.AddChild(geometryNode("Hull"))

	for _, test := range []struct {
		name  string
		nodes []*scene.Node
		msg   string
	}{
		{"two roots", []*scene.Node{geometryNode("A"), geometryNode("B")}, "more than one root"},
		{"no nodes", nil, "could not find root"},
		{"only alternates", []*scene.Node{geometryNode("A_lod1")}, "could not find root"},
		{"root without mesh", []*scene.Node{emptyRoot}, "must have a mesh"},
		{"camera beside root", []*scene.Node{geometryNode("A"), scene.NewNode("Camera")}, "more than one root"},
	} {
		t.Run(test.name, func(t *testing.T) {
			s := scene.NewScene()
			s.Nodes = test.nodes
			_, err := ImportScene(s, testOptions())
			if errors.Cause(err) != cmp.ErrHierarchy {
				t.Fatalf("expected hierarchy error, got %v", err)
			}
			if !strings.Contains(err.Error(), test.msg) {
				t.Errorf("error %q does not mention %q", err, test.msg)
			}
		})
	}

	opts := testOptions()
	opts.Name = ""
	if _, err := ImportScene(testScene(), opts); err == nil {
		t.Errorf("empty model name accepted")
	}
}

func TestImportCapacity(t *testing.T) {
	g := quadRaw("Big", "hull", 0)
	p := &g.Primitives[0]
	for len(p.Indices) <= vms.MaxTriangles*3 {
		p.Indices = append(p.Indices, 0, 1, 2)
	}
	n := scene.NewNode("Big")
	n.Geometry = g
	s := scene.NewScene()
	s.Nodes = []*scene.Node{n}
	if _, err := ImportScene(s, testOptions()); errors.Cause(err) != vms.ErrCapacityExceeded {
		t.Errorf("expected capacity error, got %v", err)
	}
}

func TestImportRenamesDuplicates(t *testing.T) {
	gun := scene.NewNode("Gun")
	gun.AddChild(scene.NewNode("gun"))
	root := geometryNode("Hull", gun, scene.NewNode("root"))
	s := scene.NewScene()
	s.Nodes = []*scene.Node{root}

	m, err := ImportScene(s, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, p := range m.Parts() {
		parent := ""
		if p.Construct != nil {
			parent = p.Construct.Parent
		}
		names = append(names, p.ObjectName+"<"+parent)
	}
	if got := strings.Join(names, " "); got != "Root< Gun<Root gun.0000<Gun root.0000<Root" {
		t.Errorf("parts %s", got)
	}
}

func TestImportZUp(t *testing.T) {
	child := geometryNode("Door")
	child.Transform = mgl32.Translate3D(0, 0, 5)
	child.SetProperty("construct", scene.ParseProperty("rev"))
	child.SetProperty("axis_rotation", scene.ParseProperty("0 0 1"))
	child.SetProperty("offset", scene.ParseProperty("0 2 0"))

	s := scene.NewScene()
	s.UpAxis = scene.Z_UP
	s.Nodes = []*scene.Node{geometryNode("Hull", child)}

	m, err := ImportScene(s, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	c := m.Root.Children[0].Construct
	if !c.Origin.ApproxEqualThreshold(mgl32.Vec3{0, 5, 0}, 1e-6) {
		t.Errorf("origin %v", c.Origin)
	}
	if !c.Axis.ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-6) || !c.Offset.ApproxEqualThreshold(mgl32.Vec3{0, 0, -2}, 1e-6) {
		t.Errorf("axis %v offset %v", c.Axis, c.Offset)
	}
	if !c.Rotation.ApproxEqualThreshold(mgl32.Ident3(), 1e-6) {
		t.Errorf("rotation %v", c.Rotation)
	}
	if v := m.Root.Levels[0].Geometry.Vertices[2].Position; v != (mgl32.Vec3{1, 0, -1}) {
		t.Errorf("vertex %v", v)
	}
}

func TestExportGLTF(t *testing.T) {
	m, err := ImportScene(testScene(), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := m.ExportGLTF(&buf); err != nil {
		t.Fatal(err)
	}

	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Nodes) != 3 || len(doc.Meshes) != 3 || len(doc.Materials) != 2 {
		t.Fatalf("%d nodes %d meshes %d materials", len(doc.Nodes), len(doc.Meshes), len(doc.Materials))
	}
	if doc.Nodes[0].Name != "Hull" || len(doc.Nodes[0].Children) != 1 || doc.Nodes[0].Children[0] != 1 {
		t.Errorf("root node %+v", doc.Nodes[0])
	}
	if len(doc.Scenes[0].Nodes) != 1 {
		t.Errorf("scene roots %v", doc.Scenes[0].Nodes)
	}
	if doc.Nodes[1].Matrix[13] != 1 {
		t.Errorf("turret matrix %v", doc.Nodes[1].Matrix)
	}
	prim := doc.Meshes[0].Primitives[0]
	if _, ok := prim.Attributes["TEXCOORD_0"]; !ok {
		t.Errorf("attributes %v", prim.Attributes)
	}
	if _, ok := prim.Attributes["NORMAL"]; ok {
		t.Errorf("normals written for a format without them")
	}
	if prim.Material == nil || doc.Materials[*prim.Material].Name != "hull" {
		t.Errorf("primitive material %v", prim.Material)
	}
}

func TestExportColladaRoundTrip(t *testing.T) {
	m, err := ImportScene(testScene(), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := m.ExportCollada(&buf, collada.WriteOptions{AuthoringTool: "vmeshconv"}); err != nil {
		t.Fatal(err)
	}
	back, err := Import(&buf, testOptions())
	if err != nil {
		t.Fatal(err)
	}

	want, got := m.Parts(), back.Parts()
	if len(got) != len(want) {
		t.Fatalf("%d parts; expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i].Name || len(got[i].Levels) != len(want[i].Levels) {
			t.Errorf("part %q with %d levels; expected %q with %d",
				got[i].Name, len(got[i].Levels), want[i].Name, len(want[i].Levels))
		}
		if want[i].Construct == nil {
			continue
		}
		gc, wc := got[i].Construct, want[i].Construct
		if gc.Type != wc.Type || gc.Parent != wc.Parent || gc.Axis != wc.Axis || gc.Origin != wc.Origin ||
			!mgl32.FloatEqualThreshold(gc.Limit.Min, wc.Limit.Min, 1e-5) ||
			!mgl32.FloatEqualThreshold(gc.Limit.Max, wc.Limit.Max, 1e-5) {
			t.Errorf("construct %+v; expected %+v", gc, wc)
		}
	}
	if back.Root.Levels[0].Geometry.Drawcalls[0].Material != "hull" {
		t.Errorf("material names not preserved: %+v", back.Root.Levels[0].Geometry.Drawcalls)
	}
	if len(back.Materials) != 2 || back.Materials[0].Diffuse[0] != 0.5 {
		t.Errorf("materials %+v", back.Materials)
	}
}

func TestRecordsFiles(t *testing.T) {
	m, err := ImportScene(testScene(), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	rec, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	files, _ := rec.Files()

	dir := t.TempDir()
	if err := rec.WriteDir(dir); err != nil {
		t.Fatal(err)
	}
	loaded, err := ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	loadedFiles, _ := loaded.Files()
	if len(loadedFiles) != len(files) {
		t.Fatalf("read %d files back; expected %d", len(loadedFiles), len(files))
	}
	for i := range files {
		if loadedFiles[i].Name != files[i].Name || !bytes.Equal(loadedFiles[i].Data, files[i].Data) {
			t.Errorf("file %q differs after directory round trip", files[i].Name)
		}
	}

	var buf bytes.Buffer
	if err := rec.WriteZip(&buf); err != nil {
		t.Fatal(err)
	}
	z, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if len(z.File) != len(files) {
		t.Fatalf("zip holds %d files; expected %d", len(z.File), len(files))
	}
	for i, f := range z.File {
		if f.Name != files[i].Name {
			t.Errorf("zip entry %d is %q; expected %q", i, f.Name, files[i].Name)
		}
	}

	if ok, err := NewRecords().Add("readme.txt", nil); ok || err != nil {
		t.Errorf("unknown file accepted: %v %v", ok, err)
	}
}
