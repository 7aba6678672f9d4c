package web

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/vmeshconv/collada"
	"github.com/mogaika/vmeshconv/pack/vms"
	"github.com/mogaika/vmeshconv/utils"
)

func quad() *vms.Geometry {
	g := &vms.Geometry{Name: "Hull", Format: vms.FVF_XYZ | vms.FVF_NORMAL}
	for _, p := range []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}} {
		g.Vertices = append(g.Vertices, vms.Vertex{Position: p, Normal: mgl32.Vec3{0, 0, 1}})
	}
	g.Indices = []uint16{0, 1, 2, 0, 2, 3}
	g.Drawcalls = []vms.Drawcall{{StartIndex: 0, TriCount: 2, Material: "hull"}}
	g.UpdateSpans()
	return g
}

func upload(t *testing.T, url, field, fileName string, data []byte, values map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, fileName)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	for k, v := range values {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest("POST", url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	NewRouter().ServeHTTP(rec, req)
	return rec
}

func importZip(t *testing.T) []byte {
	var doc bytes.Buffer
	part := &collada.Part{Name: "Hull", Transform: mgl32.Ident4(), Levels: []*vms.Geometry{quad()}}
	if err := collada.WriteDocument(&doc, []*collada.Part{part},
		[]vms.Material{{Name: "hull", Diffuse: mgl32.Vec4{0.5, 0.5, 0.5, 1}}}, collada.WriteOptions{AuthoringTool: "vmeshconv"}); err != nil {
		t.Fatal(err)
	}
	rec := upload(t, "/api/import", "model", "scenes/ship.dae", doc.Bytes(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "ship.zip") {
		t.Errorf("content disposition %q", cd)
	}
	return rec.Body.Bytes()
}

func TestImport(t *testing.T) {
	data := importZip(t)
	z, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, len(z.File))
	for i, f := range z.File {
		names[i] = f.Name
	}
	expected := "Root.lod0.vmeshref materials.yaml ship-Hull.lod0.18.vms.vmeshdata"
	if got := strings.Join(names, " "); got != expected {
		t.Errorf("archive holds %s; expected %s", got, expected)
	}
}

func TestExport(t *testing.T) {
	data := importZip(t)

	rec := upload(t, "/api/export/glb", "records", "ship.zip", data, nil)
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("glTF")) {
		t.Errorf("glb export status %d, %d bytes", rec.Code, rec.Body.Len())
	}

	rec = upload(t, "/api/export/dae", "records", "ship.zip", data, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<COLLADA") {
		t.Errorf("dae export status %d: %.200s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "ship.dae") {
		t.Errorf("content disposition %q", cd)
	}

	rec = upload(t, "/api/export/fbx", "records", "ship.zip", data, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format status %d", rec.Code)
	}
}

func TestInspect(t *testing.T) {
	blob, err := vms.EncodeMeshData(quad())
	if err != nil {
		t.Fatal(err)
	}
	rec := upload(t, "/api/inspect", "meshdata", "hull.vmeshdata", blob, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var result inspectResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Vertices != 4 || result.Indices != 6 || result.Stride != 24 || len(result.Meshes) != 1 {
		t.Errorf("summary %+v", result)
	}
	hash := utils.ModelNameHash("hull")
	if m := result.Meshes[0]; m.Triangles != 2 || m.EndVertex != 3 || m.MaterialHash != hash ||
		m.Material != fmt.Sprintf("material_0x%.8X", hash) {
		t.Errorf("mesh %+v", m)
	}
	if result.Max != (mgl32.Vec3{1, 1, 0}) {
		t.Errorf("max %v", result.Max)
	}
}

func TestInspectErrors(t *testing.T) {
	rec := upload(t, "/api/inspect", "meshdata", "bad.vmeshdata", []byte{1, 2, 3}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	var result struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil || !strings.Contains(result.Error, "bad.vmeshdata") {
		t.Errorf("error body %q: %v", rec.Body.String(), err)
	}

	rec = upload(t, "/api/inspect", "wrong", "hull.vmeshdata", []byte{1}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing form file status %d", rec.Code)
	}

	get := httptest.NewRecorder()
	NewRouter().ServeHTTP(get, httptest.NewRequest("GET", "/api/inspect", nil))
	if get.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status %d", get.Code)
	}
}
