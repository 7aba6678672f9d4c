package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/vmeshconv/collada"
	"github.com/mogaika/vmeshconv/config"
	"github.com/mogaika/vmeshconv/model"
	"github.com/mogaika/vmeshconv/utils"
	"github.com/mogaika/vmeshconv/web"
)

func importModel(cfg *config.Config, path, out, name string, dump bool) error {
	if out == "" {
		return errors.New("-import requires -out directory")
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "Can't open %q", path)
	}
	defer f.Close()

	m, err := model.Import(f, model.NewImportOptions(name, cfg))
	if err != nil {
		return errors.Wrapf(err, "Can't import %q", path)
	}
	if dump {
		utils.Dump(m)
	}
	rec, err := m.Encode()
	if err != nil {
		return err
	}
	return rec.WriteDir(out)
}

func exportModel(cfg *config.Config, dir, out string, dump bool) error {
	if out == "" {
		return errors.New("-export requires -out file (.dae or .glb)")
	}
	rec, err := model.ReadDir(dir)
	if err != nil {
		return err
	}
	m, err := model.Decode(rec, nil)
	if err != nil {
		return errors.Wrapf(err, "Can't decode %q", dir)
	}
	if dump {
		utils.Dump(m)
	}

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "Can't create %q", out)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(out)); ext {
	case ".dae":
		err = m.ExportCollada(f, collada.WriteOptions{
			AuthoringTool: cfg.Export.AuthoringTool,
			Author:        cfg.Export.Author,
		})
	case ".glb":
		err = m.ExportGLTF(f)
	default:
		err = errors.Errorf("Unknown export format %q", ext)
	}
	if err != nil {
		return err
	}
	utils.Log.Info("exported", zap.String("model", m.Name), zap.String("file", out))
	return nil
}

func main() {
	var importPath, exportDir, out, addr, configPath, logFile, name string
	var serve, debug, dump bool
	flag.StringVar(&importPath, "import", "", "COLLADA document to convert into binary records")
	flag.StringVar(&exportDir, "export", "", "Directory with binary records to convert into a document")
	flag.StringVar(&out, "out", "", "Output directory for -import, output .dae or .glb file for -export")
	flag.StringVar(&name, "name", "", "Model name override, defaults to the imported file name")
	flag.BoolVar(&serve, "serve", false, "Start http conversion server")
	flag.StringVar(&addr, "addr", "", "Address of http server, overrides server.addr from config")
	flag.StringVar(&configPath, "config", "", "Path to yaml config")
	flag.StringVar(&logFile, "log", "", "Path to log file")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&dump, "dump", false, "Dump the converted model to stdout")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	if logFile != "" {
		cfg.Logging.LogFile = logFile
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	utils.InitLogger(cfg.Logging.Level, cfg.Logging.LogFile)
	defer utils.SyncLogger()

	if err := cfg.Apply(); err != nil {
		utils.Log.Fatal("Invalid config", zap.Error(err))
	}

	switch {
	case importPath != "":
		err = importModel(cfg, importPath, out, name, dump)
	case exportDir != "":
		err = exportModel(cfg, exportDir, out, dump)
	case serve:
		err = web.StartServer(cfg)
	default:
		flag.PrintDefaults()
		return
	}
	if err != nil {
		utils.Log.Fatal("Failed", zap.Error(err))
	}
}
