// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import "github.com/CarbonMon/CLARA/pkg/types"

// MaxContentChars caps the user-content payload submitted to a backend.
// Longer content is truncated deterministically with an explicit marker so
// that repeated runs over the same source produce identical payloads.
const MaxContentChars = 100000

const truncationMarker = "\n\n[Content truncated due to length]"

// Truncate enforces the submission cap. It reports whether the text was cut.
func Truncate(text string) (string, bool) {
	if len(text) <= MaxContentChars {
		return text, false
	}
	return text[:MaxContentChars] + truncationMarker, true
}

// basePrompt is the fixed-field extraction schema shared by every provider.
// The field names must match types.RecordFields exactly; the parser maps
// the model's JSON keys back onto the Record by these names.
const basePrompt = `You are a bot speaking with another program that takes JSON formatted text as an input. Only return results in JSON format, with NO PREAMBLE.
The user will input the results from a PubMed search or a full-text clinical trial document. Your job is to extract the exact information to return:
  'Title': The complete article title
  'PMID': The Pubmed ID of the article (if available, otherwise 'NA')
  'Full Text Link': If available, the DOI URL, otherwise NA
  'Subject of Study': The type of subject in the study. Human, Animal, In-Vitro, Other
  'Disease State': Disease state studied, if any, or if the study is done on a healthy population. Leave blank if disease state or healthy patients is not mentioned explicitly. "Healthy patients" if patients are explicitly mentioned to be healthy.
  'Number of Subjects Studied': If human, the total study population. Otherwise, leave blank. This field needs to be an integer or empty.
  'Type of Study': Type of study done. 'RCT' for randomized controlled trial, '1. Meta-analysis', '2. Systematic Review', '3. Cohort Study', or '4. Other'. If it is '4. Other', append a short description
  'Study Design': Brief and succinct details about study design, if applicable
  'Intervention': Intervention(s) studied, if any. Intervention is the treatment applied to the group.
  'Intervention Dose': Go in detail here about the intervention's doses and treatment duration if available.
  'Intervention Dosage Form': A brief description of the dosage form - ie. oral, topical, intranasal, if available.
  'Control': Control or comparators, if any
  'Primary Endpoint': What the primary endpoint of the study was, if available. Include how it was measured too if available.
  'Primary Endpoint Result': The measurement for the primary endpoints
  'Secondary Endpoints': If available
  'Safety Endpoints': If available
  'Results Available': Yes or No
  'Primary Endpoint Met': Summarize from results whether or not the primary endpoint(s) was met: Yes or No or NA if results unavailable
  'Statistical Significance': alpha-level and p-value for primary endpoint(s), if available
  'Clinical Significance': Effect size, and Number needed to treat (NNT)/Number needed to harm (NNH), if available
  'Conclusion': Brief summary of the conclusions of the paper
  'Main Author': Last name, First initials
  'Other Authors': Last name, First initials; Last name First initials; ...
  'Journal Name': Full journal name
  'Date of Publication': YYYY-MM-DD
  'Error': Error description, if any. Otherwise, leave empty

IMPORTANT: Your output MUST be a valid JSON object. Do not include any explanations, comments, or markdown formatting. Only return a JSON object with the fields described above.`

// fullDocumentAddendum is appended when the content is a full document
// rather than an abstract.
const fullDocumentAddendum = `
Note: This is a full-text clinical trial document. Extract as much detail as possible from the full text.`

const openaiAddendum = `
Format your response as a valid JSON object without any explanations or text outside the JSON structure.`

const anthropicAddendum = `
You must format your output as a valid JSON object. Do not include any text outside the JSON structure.
Do not wrap the JSON in markdown code blocks - just return the raw JSON object.`

// systemPrompt assembles the instruction text for one provider: the fixed
// schema, the provider-specific formatting addendum, and the full-document
// addendum when applicable.
func systemPrompt(provider types.Provider, fullDocument bool) string {
	prompt := basePrompt
	switch provider {
	case types.ProviderOpenAI:
		prompt += openaiAddendum
	case types.ProviderAnthropic:
		prompt += anthropicAddendum
	}
	if fullDocument {
		prompt += fullDocumentAddendum
	}
	return prompt
}
