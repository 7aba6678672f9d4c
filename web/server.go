package web

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mogaika/vmeshconv/config"
	"github.com/mogaika/vmeshconv/utils"
)

var ServerConfig = config.Default()

func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/import", HandlerImport).Methods("POST")
	r.HandleFunc("/api/inspect", HandlerInspect).Methods("POST")
	r.HandleFunc("/api/export/{format}", HandlerExport).Methods("POST")
	return r
}

// StartServer serves the conversion api on cfg.Server.Addr.
func StartServer(cfg *config.Config) error {
	ServerConfig = cfg
	addr := cfg.Server.Addr

	var h http.Handler = NewRouter()
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	h = handlers.LoggingHandler(zap.NewStdLog(utils.Log).Writer(), h)

	utils.Log.Info("Starting server", zap.String("addr", addr))

	return http.ListenAndServe(addr, h)
}
