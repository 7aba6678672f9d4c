package model

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/vmeshconv/pack/cmp"
	"github.com/mogaika/vmeshconv/pack/vms"
)

// Record file name parts.
const (
	EXT_MESH_DATA   = ".vmeshdata"
	EXT_MESH_REF    = ".vmeshref"
	EXT_SWITCH2     = ".switch2"
	CONS_PREFIX     = "cons."
	MATERIALS_FILE  = "materials.yaml"
	LEVEL_SEPARATOR = ".lod"
)

// Records is the binary form of a model.
type Records struct {
	// mesh data blobs by mesh library name
	MeshData map[string][]byte
	// mesh references by "<object>.lod<N>"
	MeshRefs map[string][]byte
	// switch distances by object name
	Switch2    map[string][]byte
	Constructs map[cmp.JointType][]byte
	Materials  []vms.Material
}

func NewRecords() *Records {
	return &Records{
		MeshData:   make(map[string][]byte),
		MeshRefs:   make(map[string][]byte),
		Switch2:    make(map[string][]byte),
		Constructs: make(map[cmp.JointType][]byte),
	}
}

func LevelKey(object string, level int) string {
	return fmt.Sprintf("%s%s%d", object, LEVEL_SEPARATOR, level)
}

// Encode serializes every mesh, reference, switch and construct of the model.
func (m *Model) Encode() (*Records, error) {
	rec := NewRecords()
	rec.Materials = append(rec.Materials, m.Materials...)
	err := m.Walk(func(p *Part, depth int) error {
		for i, level := range p.Levels {
			if _, ok := rec.MeshData[level.MeshName]; !ok {
				b, err := vms.EncodeMeshData(level.Geometry)
				if err != nil {
					return errors.Wrapf(err, "part %q lod %d", p.Name, i)
				}
				rec.MeshData[level.MeshName] = b
			}
			rec.MeshRefs[LevelKey(p.ObjectName, i)] = level.Ref.Marshal()
		}
		if len(p.Switch2) != 0 {
			rec.Switch2[p.ObjectName] = cmp.EncodeSwitch2(p.Switch2)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rec.Constructs, err = cmp.EncodeConstructs(m.Constructs()); err != nil {
		return nil, err
	}
	return rec, nil
}

type materialEntry struct {
	Name    string     `yaml:"name"`
	Diffuse [4]float32 `yaml:"diffuse,flow"`
}

func encodeMaterials(materials []vms.Material) ([]byte, error) {
	entries := make([]materialEntry, len(materials))
	for i, m := range materials {
		entries[i] = materialEntry{Name: m.Name, Diffuse: m.Diffuse}
	}
	return yaml.Marshal(entries)
}

func decodeMaterials(b []byte) ([]vms.Material, error) {
	var entries []materialEntry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse %s", MATERIALS_FILE)
	}
	result := make([]vms.Material, len(entries))
	for i, e := range entries {
		result[i] = vms.Material{Name: e.Name, Diffuse: e.Diffuse}
	}
	return result, nil
}

// MaterialLibrary indexes the materials by name hash for decoding.
func (rec *Records) MaterialLibrary() vms.MaterialLibrary {
	lib := make(vms.MaterialLibrary, len(rec.Materials))
	for _, m := range rec.Materials {
		lib.Add(m)
	}
	return lib
}

type File struct {
	Name string
	Data []byte
}

// Files lists every record as a named file, sorted by name.
func (rec *Records) Files() ([]File, error) {
	files := make([]File, 0, len(rec.MeshData)+len(rec.MeshRefs)+len(rec.Switch2)+len(rec.Constructs)+1)
	for name, b := range rec.MeshData {
		files = append(files, File{Name: name + EXT_MESH_DATA, Data: b})
	}
	for key, b := range rec.MeshRefs {
		files = append(files, File{Name: key + EXT_MESH_REF, Data: b})
	}
	for object, b := range rec.Switch2 {
		files = append(files, File{Name: object + EXT_SWITCH2, Data: b})
	}
	for jt, b := range rec.Constructs {
		files = append(files, File{Name: CONS_PREFIX + jt.String(), Data: b})
	}
	if len(rec.Materials) != 0 {
		b, err := encodeMaterials(rec.Materials)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: MATERIALS_FILE, Data: b})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Add stores a record file by its name. Unknown names are reported as not ok.
func (rec *Records) Add(name string, data []byte) (bool, error) {
	switch {
	case name == MATERIALS_FILE:
		materials, err := decodeMaterials(data)
		if err != nil {
			return true, err
		}
		rec.Materials = append(rec.Materials, materials...)
	case strings.HasSuffix(name, EXT_MESH_DATA):
		rec.MeshData[strings.TrimSuffix(name, EXT_MESH_DATA)] = data
	case strings.HasSuffix(name, EXT_MESH_REF):
		rec.MeshRefs[strings.TrimSuffix(name, EXT_MESH_REF)] = data
	case strings.HasSuffix(name, EXT_SWITCH2):
		rec.Switch2[strings.TrimSuffix(name, EXT_SWITCH2)] = data
	case strings.HasPrefix(name, CONS_PREFIX):
		jt, ok := cmp.ParseJointType(strings.TrimPrefix(name, CONS_PREFIX))
		if !ok {
			return false, nil
		}
		rec.Constructs[jt] = data
	default:
		return false, nil
	}
	return true, nil
}

func (rec *Records) WriteDir(dir string) error {
	files, err := rec.Files()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Wrapf(err, "Failed to create %q", dir)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0666); err != nil {
			return errors.Wrapf(err, "Failed to write %q", f.Name)
		}
	}
	return nil
}

// ReadDir loads the records of dir, skipping files that are not records.
func ReadDir(dir string) (*Records, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to list %q", dir)
	}
	rec := NewRecords()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read %q", e.Name())
		}
		if _, err := rec.Add(e.Name(), data); err != nil {
			return nil, errors.Wrapf(err, "file %q", e.Name())
		}
	}
	return rec, nil
}

func (rec *Records) WriteZip(w io.Writer) error {
	files, err := rec.Files()
	if err != nil {
		return err
	}
	z := zip.NewWriter(w)
	for _, f := range files {
		fw, err := z.Create(f.Name)
		if err != nil {
			return errors.Wrapf(err, "Failed to add %q", f.Name)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return errors.Wrapf(err, "Failed to write %q", f.Name)
		}
	}
	return z.Close()
}

// ReadZip loads the records of an archive written by WriteZip.
func ReadZip(r io.ReaderAt, size int64) (*Records, error) {
	z, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open archive")
	}
	rec := NewRecords()
	for _, f := range z.File {
		if f.FileInfo().IsDir() {
			continue
		}
		fr, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to open %q", f.Name)
		}
		data, err := io.ReadAll(fr)
		fr.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read %q", f.Name)
		}
		if _, err := rec.Add(filepath.Base(f.Name), data); err != nil {
			return nil, errors.Wrapf(err, "file %q", f.Name)
		}
	}
	return rec, nil
}
