/*
Copyright 2018, Cossack Labs Limited

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package logging

// Event codes for different events, split by groups and component.
const (
	// 100 .. 200 general events
	EventCodeGeneral = 100

	// 500 .. 510 generic errors
	EventCodeErrorGeneral    = 500
	EventCodeErrorWrongParam = 501

	// processes
	EventCodeErrorCantStartService      = 505
	EventCodeErrorWrongConfiguration    = 507
	EventCodeErrorCantReadServiceConfig = 508

	// 560 .. 569 policy loading and validation
	EventCodeErrorPolicyLoad                   = 560
	EventCodeErrorPolicyValidation              = 561
	EventCodeErrorPolicyUnsupportedRestriction = 562

	// 570 .. 579 SQL parsing
	EventCodeErrorSQLParse = 570

	// 580 .. 589 analyzer
	EventCodeErrorAnalyzerInternal = 580
	EventCodeVerifyCompleted       = 581

	// 700 .. 709 HTTP server
	EventCodeErrorHTTPRequest          = 700
	EventCodeErrorHTTPMethodNotAllowed = 701
	EventCodeErrorHTTPBodyTooLarge     = 702

	// metrics
	EventCodeErrorPrometheusHTTPHandler = 1000

	// 900 .. 909 risk scorer
	EventCodeErrorRiskScorer = 900
)
