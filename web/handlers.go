package web

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/vmeshconv/collada"
	"github.com/mogaika/vmeshconv/model"
	"github.com/mogaika/vmeshconv/pack/vms"
	"github.com/mogaika/vmeshconv/utils"
	"github.com/mogaika/vmeshconv/webutils"
)

func baseName(fileName string) string {
	name := filepath.Base(fileName)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// HandlerImport converts an uploaded document ("model") to a zip of records.
// The optional "name" value overrides the model name taken from the file name.
func HandlerImport(w http.ResponseWriter, r *http.Request) {
	data, fileName, err := webutils.ReadFormFile(r, "model")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	name := r.FormValue("name")
	if name == "" {
		name = baseName(fileName)
	}

	m, err := model.Import(bytes.NewReader(data), model.NewImportOptions(name, ServerConfig))
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Can't import %q", fileName))
		return
	}
	rec, err := m.Encode()
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Can't encode %q", name))
		return
	}

	var buf bytes.Buffer
	if err := rec.WriteZip(&buf); err != nil {
		webutils.WriteError(w, err)
		return
	}
	utils.Log.Info("imported", zap.String("file", fileName), zap.String("model", name), zap.Int("size", buf.Len()))
	webutils.WriteFile(w, &buf, name+".zip")
}

// HandlerExport converts an uploaded zip of records ("records") to a glb or dae document.
func HandlerExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(mux.Vars(r)["format"])
	if format != "glb" && format != "dae" {
		webutils.WriteError(w, errors.Errorf("Unknown export format %q", format))
		return
	}
	data, fileName, err := webutils.ReadFormFile(r, "records")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	rec, err := model.ReadZip(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	m, err := model.Decode(rec, nil)
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Can't decode %q", fileName))
		return
	}
	name := m.Name
	if name == "" {
		name = baseName(fileName)
	}

	var buf bytes.Buffer
	switch format {
	case "glb":
		err = m.ExportGLTF(&buf)
	case "dae":
		err = m.ExportCollada(&buf, collada.WriteOptions{
			AuthoringTool: ServerConfig.Export.AuthoringTool,
			Author:        ServerConfig.Export.Author,
		})
	}
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, name+"."+format)
}

type inspectMesh struct {
	Material     string `json:"material"`
	MaterialHash uint32 `json:"material_hash"`
	StartVertex  uint16 `json:"start_vertex"`
	EndVertex    uint16 `json:"end_vertex"`
	Triangles    int    `json:"triangles"`
}

type inspectResult struct {
	Format   string        `json:"format"`
	Stride   int           `json:"stride"`
	Vertices int           `json:"vertices"`
	Indices  int           `json:"indices"`
	Meshes   []inspectMesh `json:"meshes"`
	Min      mgl32.Vec3    `json:"min"`
	Max      mgl32.Vec3    `json:"max"`
	Center   mgl32.Vec3    `json:"center"`
	Radius   float32       `json:"radius"`
}

// HandlerInspect summarizes an uploaded mesh data blob ("meshdata").
func HandlerInspect(w http.ResponseWriter, r *http.Request) {
	data, fileName, err := webutils.ReadFormFile(r, "meshdata")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	md, err := vms.DecodeMeshData(data)
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Can't decode %q", fileName))
		return
	}
	g, _, err := md.Geometry(nil, nil)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	bounds := g.Bounds()
	result := &inspectResult{
		Format:   md.Format.String(),
		Stride:   md.Format.Stride(),
		Vertices: len(md.Vertices),
		Indices:  len(md.Indices),
		Meshes:   make([]inspectMesh, len(md.Meshes)),
		Min:      bounds.Min,
		Max:      bounds.Max,
		Center:   bounds.Center,
		Radius:   bounds.Radius,
	}
	for i, mh := range md.Meshes {
		result.Meshes[i] = inspectMesh{
			Material:     g.Drawcalls[i].Material,
			MaterialHash: mh.MaterialHash,
			StartVertex:  mh.StartVertex,
			EndVertex:    mh.EndVertex,
			Triangles:    mh.TriangleCount(),
		}
	}
	webutils.WriteJson(w, result)
}
