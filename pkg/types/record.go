// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Provenance records which content source produced the text that was
// ultimately analyzed for a record.
type Provenance string

const (
	ProvenanceAbstract  Provenance = "Abstract"
	ProvenancePMC       Provenance = "Full Text (PMC)"
	ProvenanceDOI       Provenance = "Full Text (DOI)"
	ProvenanceLocalFile Provenance = "Local File"
	ProvenanceFailed    Provenance = "Failed"
)

// RecordFields is the canonical field order of the extraction schema.
// The names double as the JSON keys the model is instructed to emit and
// as the column headers for spreadsheet export.
var RecordFields = []string{
	"Title",
	"PMID",
	"Full Text Link",
	"Subject of Study",
	"Disease State",
	"Number of Subjects Studied",
	"Type of Study",
	"Study Design",
	"Intervention",
	"Intervention Dose",
	"Intervention Dosage Form",
	"Control",
	"Primary Endpoint",
	"Primary Endpoint Result",
	"Secondary Endpoints",
	"Safety Endpoints",
	"Results Available",
	"Primary Endpoint Met",
	"Statistical Significance",
	"Clinical Significance",
	"Conclusion",
	"Main Author",
	"Other Authors",
	"Journal Name",
	"Date of Publication",
	"Error",
}

// Record is one analyzed paper in the fixed extraction schema. The mapping
// is total: every schema field is present, defaulting to the empty string,
// so downstream consumers never need to probe for missing keys.
type Record struct {
	Title                   string `json:"Title" yaml:"title"`
	PMID                    string `json:"PMID" yaml:"pmid"`
	FullTextLink            string `json:"Full Text Link" yaml:"full_text_link"`
	SubjectOfStudy          string `json:"Subject of Study" yaml:"subject_of_study"`
	DiseaseState            string `json:"Disease State" yaml:"disease_state"`
	SubjectCount            string `json:"Number of Subjects Studied" yaml:"subject_count"`
	TypeOfStudy             string `json:"Type of Study" yaml:"type_of_study"`
	StudyDesign             string `json:"Study Design" yaml:"study_design"`
	Intervention            string `json:"Intervention" yaml:"intervention"`
	InterventionDose        string `json:"Intervention Dose" yaml:"intervention_dose"`
	DosageForm              string `json:"Intervention Dosage Form" yaml:"dosage_form"`
	Control                 string `json:"Control" yaml:"control"`
	PrimaryEndpoint         string `json:"Primary Endpoint" yaml:"primary_endpoint"`
	PrimaryEndpointResult   string `json:"Primary Endpoint Result" yaml:"primary_endpoint_result"`
	SecondaryEndpoints      string `json:"Secondary Endpoints" yaml:"secondary_endpoints"`
	SafetyEndpoints         string `json:"Safety Endpoints" yaml:"safety_endpoints"`
	ResultsAvailable        string `json:"Results Available" yaml:"results_available"`
	PrimaryEndpointMet      string `json:"Primary Endpoint Met" yaml:"primary_endpoint_met"`
	StatisticalSignificance string `json:"Statistical Significance" yaml:"statistical_significance"`
	ClinicalSignificance    string `json:"Clinical Significance" yaml:"clinical_significance"`
	Conclusion              string `json:"Conclusion" yaml:"conclusion"`
	MainAuthor              string `json:"Main Author" yaml:"main_author"`
	OtherAuthors            string `json:"Other Authors" yaml:"other_authors"`
	JournalName             string `json:"Journal Name" yaml:"journal_name"`
	PublicationDate         string `json:"Date of Publication" yaml:"publication_date"`
	Error                   string `json:"Error" yaml:"error,omitempty"`

	// Bookkeeping fields attached by the orchestrator, never produced by
	// the model.
	AnalysisSource string `json:"Analysis Source,omitempty" yaml:"analysis_source,omitempty"`
	Filename       string `json:"Filename,omitempty" yaml:"filename,omitempty"`
	RawResponse    string `json:"Raw Response,omitempty" yaml:"raw_response,omitempty"`
}

// Field returns the value for a canonical schema field name, or the empty
// string for an unknown name.
func (r *Record) Field(name string) string {
	switch name {
	case "Title":
		return r.Title
	case "PMID":
		return r.PMID
	case "Full Text Link":
		return r.FullTextLink
	case "Subject of Study":
		return r.SubjectOfStudy
	case "Disease State":
		return r.DiseaseState
	case "Number of Subjects Studied":
		return r.SubjectCount
	case "Type of Study":
		return r.TypeOfStudy
	case "Study Design":
		return r.StudyDesign
	case "Intervention":
		return r.Intervention
	case "Intervention Dose":
		return r.InterventionDose
	case "Intervention Dosage Form":
		return r.DosageForm
	case "Control":
		return r.Control
	case "Primary Endpoint":
		return r.PrimaryEndpoint
	case "Primary Endpoint Result":
		return r.PrimaryEndpointResult
	case "Secondary Endpoints":
		return r.SecondaryEndpoints
	case "Safety Endpoints":
		return r.SafetyEndpoints
	case "Results Available":
		return r.ResultsAvailable
	case "Primary Endpoint Met":
		return r.PrimaryEndpointMet
	case "Statistical Significance":
		return r.StatisticalSignificance
	case "Clinical Significance":
		return r.ClinicalSignificance
	case "Conclusion":
		return r.Conclusion
	case "Main Author":
		return r.MainAuthor
	case "Other Authors":
		return r.OtherAuthors
	case "Journal Name":
		return r.JournalName
	case "Date of Publication":
		return r.PublicationDate
	case "Error":
		return r.Error
	default:
		return ""
	}
}

// SetField assigns a value to a canonical schema field name. Unknown names
// are ignored, which makes mapping tolerant of extra keys in model output.
func (r *Record) SetField(name, value string) {
	switch name {
	case "Title":
		r.Title = value
	case "PMID":
		r.PMID = value
	case "Full Text Link":
		r.FullTextLink = value
	case "Subject of Study":
		r.SubjectOfStudy = value
	case "Disease State":
		r.DiseaseState = value
	case "Number of Subjects Studied":
		r.SubjectCount = value
	case "Type of Study":
		r.TypeOfStudy = value
	case "Study Design":
		r.StudyDesign = value
	case "Intervention":
		r.Intervention = value
	case "Intervention Dose":
		r.InterventionDose = value
	case "Intervention Dosage Form":
		r.DosageForm = value
	case "Control":
		r.Control = value
	case "Primary Endpoint":
		r.PrimaryEndpoint = value
	case "Primary Endpoint Result":
		r.PrimaryEndpointResult = value
	case "Secondary Endpoints":
		r.SecondaryEndpoints = value
	case "Safety Endpoints":
		r.SafetyEndpoints = value
	case "Results Available":
		r.ResultsAvailable = value
	case "Primary Endpoint Met":
		r.PrimaryEndpointMet = value
	case "Statistical Significance":
		r.StatisticalSignificance = value
	case "Clinical Significance":
		r.ClinicalSignificance = value
	case "Conclusion":
		r.Conclusion = value
	case "Main Author":
		r.MainAuthor = value
	case "Other Authors":
		r.OtherAuthors = value
	case "Journal Name":
		r.JournalName = value
	case "Date of Publication":
		r.PublicationDate = value
	case "Error":
		r.Error = value
	}
}

// RecordFromMap builds a Record from decoded model output. Values are
// coerced to strings: the model occasionally emits the subject count as a
// JSON number or yes/no fields as booleans.
func RecordFromMap(m map[string]any) *Record {
	r := &Record{}
	for k, v := range m {
		r.SetField(k, flexString(v))
	}
	return r
}

func flexString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
