package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Bateristico/agent-architect/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one level run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one scenario verdict.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure represents a failed scenario.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a level run to JUnit XML. Verdict latency in
// milliseconds becomes the test case time.
func ConvertToJUnit(level *models.Level, p models.Placement, result *models.LevelResult, ts time.Time) *JUnitTestSuites {
	failures := len(result.PerScenario) - result.Passed()

	var totalMs int
	suite := JUnitTestSuite{
		Name:      levelName(level),
		Tests:     len(result.PerScenario),
		Failures:  failures,
		Timestamp: ts.UTC().Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "level", Value: result.LevelID},
			{Name: "total", Value: fmt.Sprintf("%d", result.Total)},
			{Name: "tier", Value: fmt.Sprintf("%d", result.Tier)},
			{Name: "accuracy", Value: fmt.Sprintf("%d", result.SubScores.Accuracy)},
			{Name: "efficiency", Value: fmt.Sprintf("%d", result.SubScores.Efficiency)},
			{Name: "practices", Value: fmt.Sprintf("%d", result.SubScores.Practices)},
			{Name: "robustness", Value: fmt.Sprintf("%d", result.SubScores.Robustness)},
		},
	}
	for _, role := range models.AllRoles {
		if id := p[role]; id != "" {
			suite.Properties = append(suite.Properties, JUnitProperty{Name: "component." + string(role), Value: id})
		}
	}

	for _, v := range result.PerScenario {
		totalMs += v.Latency
		suite.TestCases = append(suite.TestCases, convertVerdict(result.LevelID, v))
	}
	suite.Time = float64(totalMs) / 1000.0

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   failures,
		Time:       suite.Time,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertVerdict(levelID string, v models.Verdict) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      v.ScenarioID,
		Classname: levelID,
		Time:      float64(v.Latency) / 1000.0,
		SystemOut: strings.Join(v.Trace, "\n"),
	}
	if !v.Success {
		tc.Failure = &JUnitFailure{
			Message: v.Reason,
			Type:    "ScenarioFailure",
			Body:    fmt.Sprintf("cost=%d latency=%dms\n%s", v.Cost, v.Latency, strings.Join(v.Trace, "\n")),
		}
	}
	return tc
}

// MarshalJUnit renders the suites with an XML header.
func MarshalJUnit(suites *JUnitTestSuites) ([]byte, error) {
	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JUnit XML: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}

// WriteJUnitXML writes JUnit XML for a level run to path.
func WriteJUnitXML(level *models.Level, p models.Placement, result *models.LevelResult, path string) error {
	data, err := MarshalJUnit(ConvertToJUnit(level, p, result, time.Now()))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
