package dcs

// WireRequest is the JSON document sealed into a check request.
type WireRequest struct {
	CorrelationID string   `json:"correlationId"`
	RequestID     string   `json:"requestId"`
	Timestamp     string   `json:"timestamp"`
	Surname       string   `json:"surname"`
	Forenames     []string `json:"forenames"`
	DateOfBirth   string   `json:"dateOfBirth"`
	IssueDate     string   `json:"issueDate,omitempty"`
	ExpiryDate    string   `json:"expiryDate"`
	IssueNumber   string   `json:"issueNumber,omitempty"`
	IssuerID      string   `json:"issuerId"`
	LicenceNumber string   `json:"licenceNumber"`
	Postcode      string   `json:"postcode"`
}

// WireResponse is the JSON document sealed into a check response.
type WireResponse struct {
	CorrelationID string   `json:"correlationId"`
	RequestID     string   `json:"requestId"`
	Valid         bool     `json:"valid"`
	Error         bool     `json:"error,omitempty"`
	ErrorMessage  []string `json:"errorMessage,omitempty"`
}
