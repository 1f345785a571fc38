package vulnerabilities

// Reference is an external link attached to a vulnerability. References are
// immutable once created.
type Reference struct {
	ID              int64  `json:"id,omitempty"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	VulnerabilityID int64  `json:"vulnerability_id,omitempty"`
}

// Vulnerability is a finding attached to a scan. Location holds the rendered text.
type Vulnerability struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	ShortDescription string     `json:"short_description"`
	Description      string     `json:"description"`
	Recommendation   string     `json:"recommendation"`
	TechnicalDetail  string     `json:"technical_detail"`
	RiskRating       RiskRating `json:"risk_rating"`
	CVSSV3Vector     string     `json:"cvss_v3_vector"`
	DNA              string     `json:"dna"`
	Location         string     `json:"location"`
	ScanID           int64      `json:"scan_id"`
}

// NewVulnerability is a finding as shaped by the caller, before validation and rendering.
type NewVulnerability struct {
	Title            string
	ShortDescription string
	Description      string
	Recommendation   string
	TechnicalDetail  string
	RiskRating       string
	CVSSV3Vector     string
	DNA              string
	Location         Location
	ScanID           int64
	References       []Reference
}
