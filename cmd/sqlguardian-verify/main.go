// Command sqlguardian-verify runs the analyzer once against a SQL statement
// and a policy file, printing the resulting verdict as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/sqlguardian/sqlguardian/analyzer"
	"github.com/sqlguardian/sqlguardian/logging"
	"github.com/sqlguardian/sqlguardian/policy"
)

// SERVICE_NAME identifies this binary in log output.
const SERVICE_NAME = "sqlguardian-verify"

// DEFAULT_DIALECT is used when -dialect is not given.
const DEFAULT_DIALECT = "trino"

// DEFAULT_POLICY_FORMAT is used when -format is not given (sniffed from content).
const DEFAULT_POLICY_FORMAT = ""

func main() {
	sql := flag.String("sql", "", "SQL statement to verify")
	sqlFile := flag.String("sql-file", "", "Path to a file containing the SQL statement to verify")
	policyPath := flag.String("policy", "", "Path to the policy document")
	dialect := flag.String("dialect", DEFAULT_DIALECT, "SQL dialect tag passed to the parser adapter")
	format := flag.String("format", DEFAULT_POLICY_FORMAT, "Policy document format: json or yaml (sniffed from content if empty)")
	logFormat := flag.String("log-format", "plaintext", "Logging format: plaintext, json or cef")
	flag.Parse()

	logging.CreateFormatter(*logFormat)

	sqlText, err := readSQL(*sql, *sqlFile)
	if err != nil {
		fail(logging.EventCodeErrorWrongParam, "Can't read SQL input", err)
	}

	if *policyPath == "" {
		fail(logging.EventCodeErrorWrongParam, "Can't load policy", fmt.Errorf("-policy is required"))
	}
	policyData, err := os.ReadFile(*policyPath)
	if err != nil {
		fail(logging.EventCodeErrorCantReadServiceConfig, "Can't read policy file", err)
	}
	pol, err := policy.Load(policyData, *format)
	if err != nil {
		fail(logging.EventCodeErrorPolicyLoad, "Can't load policy", err)
	}

	verdict, err := analyzer.Verify(sqlText, pol, *dialect)
	if err != nil {
		fail(logging.EventCodeErrorSQLParse, "Verification failed", err)
	}

	encoded, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		fail(logging.EventCodeErrorGeneral, "Can't encode verdict", err)
	}
	fmt.Println(string(encoded))

	if !verdict.Allowed {
		os.Exit(1)
	}
}

func readSQL(sql, sqlFile string) (string, error) {
	if sql != "" {
		return sql, nil
	}
	if sqlFile != "" {
		data, err := os.ReadFile(sqlFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("one of -sql or -sql-file is required")
}

func fail(eventCode int, message string, err error) {
	log.WithError(err).WithField(logging.FieldKeyEventCode, eventCode).Errorln(message)
	os.Exit(2)
}
