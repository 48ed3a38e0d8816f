package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/sqlguardian/sqlguardian/analyzer"
	"github.com/sqlguardian/sqlguardian/logging"
	"github.com/sqlguardian/sqlguardian/policy"
	"github.com/sqlguardian/sqlguardian/risk"
)

// HTTPError stores an HTTP response status and message, per the server's
// content-negotiated error rendering.
type HTTPError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"invalid request body"`
}

// Empty reports whether err is the zero value.
func (err HTTPError) Empty() bool {
	return err.Code == 0 && err.Message == ""
}

// NewHTTPError builds an HTTPError from a status and message.
func NewHTTPError(status int, message string) HTTPError {
	return HTTPError{Code: status, Message: message}
}

// RespondWithError encodes err to the response content type and writes it to ctx.
func RespondWithError(ctx *gin.Context, err HTTPError) {
	switch ctx.ContentType() {
	case gin.MIMEXML:
		ctx.XML(err.Code, err)
	default:
		ctx.JSON(err.Code, err)
	}
}

type verifyRequest struct {
	SQL     string          `json:"sql"`
	Config  json.RawMessage `json:"config"`
	Dialect string          `json:"dialect"`
}

const defaultDialect = "trino"

type verifyServer struct {
	scorer risk.Scorer
}

func (s *verifyServer) verifySQL(ctx *gin.Context) {
	logger := logging.GetLoggerFromContext(ctx.Request.Context())

	var req verifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logger.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorHTTPRequest).Warningln("Can't parse verify-sql request body")
		RespondWithError(ctx, NewHTTPError(http.StatusBadRequest, "invalid request body"))
		return
	}
	if req.SQL == "" {
		RespondWithError(ctx, NewHTTPError(http.StatusBadRequest, "sql must not be empty"))
		return
	}
	if len(req.Config) == 0 {
		RespondWithError(ctx, NewHTTPError(http.StatusBadRequest, "config must not be empty"))
		return
	}

	pol, err := policy.Load(req.Config, policy.FormatJSON)
	if err != nil {
		logger.WithError(err).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorPolicyLoad).Warningln("Can't load policy from verify-sql request")
		RespondWithError(ctx, NewHTTPError(http.StatusBadRequest, err.Error()))
		return
	}

	dialect := req.Dialect
	if dialect == "" {
		dialect = defaultDialect
	}

	start := time.Now()
	verdict, verr := analyzer.Verify(req.SQL, pol, dialect)
	verifyDuration.Observe(time.Since(start).Seconds())
	if verr != nil {
		logger.WithError(verr).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorSQLParse).Warningln("verify-sql call failed")
		RespondWithError(ctx, NewHTTPError(http.StatusBadRequest, verr.Error()))
		return
	}

	verifyTotal.WithLabelValues(boolLabel(verdict.Allowed)).Inc()
	logger.WithFields(log.Fields{"allowed": verdict.Allowed, "risk": verdict.Risk}).
		WithField(logging.FieldKeyEventCode, logging.EventCodeVerifyCompleted).Infoln("verify-sql completed")

	if s.scorer != nil {
		scoreCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
		score, serr := s.scorer.Score(scoreCtx, req.SQL, verdict)
		cancel()
		if serr != nil {
			logger.WithError(serr).WithField(logging.FieldKeyEventCode, logging.EventCodeErrorRiskScorer).Warningln("risk scorer call failed, leaving risk at 0.0")
		} else {
			verdict.Risk = score
		}
	}

	ctx.JSON(http.StatusOK, verdict)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
