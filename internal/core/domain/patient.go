package domain

// PatientRequest is the structured record a medical analysis starts from.
type PatientRequest struct {
	SessionID    string     `json:"session_id"`
	Patient      Patient    `json:"patient"`
	UserComments string     `json:"user_comments,omitempty"`
	Analyses     []Analysis `json:"analyses,omitempty"`
}

// Patient holds demographics and history.
type Patient struct {
	ID                    string   `json:"id,omitempty"`
	Gender                string   `json:"gender,omitempty"`
	Age                   int      `json:"age,omitempty"`
	Race                  string   `json:"race,omitempty"`
	Ethnicity             string   `json:"ethnicity,omitempty"`
	Diagnoses             []string `json:"diagnoses,omitempty"`
	ChronicDiseases       []string `json:"chronic_diseases,omitempty"`
	AdditionalInformation string   `json:"additional_information,omitempty"`
}

// Analysis is one lab panel or examination.
type Analysis struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Date        string      `json:"date,omitempty"`
	Indicators  []Indicator `json:"indicators,omitempty"`
}

// Indicator is a single measured value.
type Indicator struct {
	Name           string `json:"name"`
	Value          string `json:"value"`
	Unit           string `json:"unit,omitempty"`
	Accuracy       string `json:"accuracy,omitempty"`
	ReferenceRange string `json:"reference_range,omitempty"`
}

// Validate checks the minimum a request needs to be analysed.
func (r *PatientRequest) Validate() error {
	if r == nil {
		return ErrInvalidInput
	}
	if len(r.Analyses) == 0 && r.UserComments == "" && r.Patient.AdditionalInformation == "" &&
		len(r.Patient.Diagnoses) == 0 && len(r.Patient.ChronicDiseases) == 0 {
		return ErrInvalidInput
	}
	return nil
}
