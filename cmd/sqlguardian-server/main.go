// Command sqlguardian-server exposes the analyzer over HTTP: POST /verify-sql
// runs a query against a policy and returns the verdict; GET /metrics exposes
// Prometheus counters and histograms for every call.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/sqlguardian/sqlguardian/logging"
	"github.com/sqlguardian/sqlguardian/risk"
)

// SERVICE_NAME identifies this binary in logs and metrics.
const SERVICE_NAME = "sqlguardian-server"

const (
	// DEFAULT_HOST is the default bind address.
	DEFAULT_HOST = "0.0.0.0"
	// DEFAULT_PORT is the default listen port for the verify-sql API.
	DEFAULT_PORT = 9191
)

func main() {
	host := flag.String("host", DEFAULT_HOST, "Host to bind the HTTP server to")
	port := flag.Int("port", DEFAULT_PORT, "Port to listen on")
	logFormat := flag.String("log-format", "plaintext", "Logging format: plaintext, json or cef")
	verbose := flag.Bool("v", false, "Log debug messages")
	openaiKey := flag.String("openai-key", "", "OpenAI API key for the optional risk scorer (unset disables risk scoring)")
	openaiModel := flag.String("openai-model", "", "OpenAI model for the risk scorer (defaults to gpt-4o-mini)")
	flag.Parse()

	logging.CreateFormatter(*logFormat)
	if *verbose {
		logging.SetLogLevel(logging.LogDebug)
	} else {
		logging.SetLogLevel(logging.LogVerbose)
	}
	log.Infof("Starting service %v", SERVICE_NAME)

	registerMetrics()

	var scorer risk.Scorer
	if *openaiKey != "" {
		scorer = risk.NewOpenAIScorer(*openaiKey, *openaiModel, 5*time.Second)
	}
	server := &verifyServer{scorer: scorer}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.POST("/verify-sql", server.verifySQL)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%d", *host, *port)
	log.WithField("address", addr).Infoln("Listening for verify-sql requests")
	if err := http.ListenAndServe(addr, engine); err != nil {
		log.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorCantStartService).Fatalln("HTTP server stopped")
	}
}

func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		entry := log.WithField("path", ctx.Request.URL.Path)
		ctx.Request = ctx.Request.WithContext(logging.SetLoggerToContext(ctx.Request.Context(), entry))
		ctx.Next()
	}
}
