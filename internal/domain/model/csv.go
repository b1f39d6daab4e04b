package model

// CSVData holds a parsed prospect file. Every row carries exactly the header keys.
type CSVData struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

func (d *CSVData) HasHeader(name string) bool {
	if d == nil {
		return false
	}
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// MappingConfig maps the four prospect fields to CSV header names.
type MappingConfig struct {
	FirstName  string `json:"firstName" yaml:"first_name"`
	LastName   string `json:"lastName" yaml:"last_name"`
	Company    string `json:"company" yaml:"company"`
	WebsiteURL string `json:"websiteUrl" yaml:"website_url"`
}

// Complete reports whether every field is assigned.
func (m MappingConfig) Complete() bool {
	return m.FirstName != "" && m.LastName != "" && m.Company != "" && m.WebsiteURL != ""
}

// Missing lists the unassigned fields by their JSON names.
func (m MappingConfig) Missing() []string {
	var out []string
	if m.FirstName == "" {
		out = append(out, "firstName")
	}
	if m.LastName == "" {
		out = append(out, "lastName")
	}
	if m.Company == "" {
		out = append(out, "company")
	}
	if m.WebsiteURL == "" {
		out = append(out, "websiteUrl")
	}
	return out
}

// Unknown lists the assigned fields whose header is not in headers, as
// "field=header" pairs.
func (m MappingConfig) Unknown(headers []string) []string {
	d := &CSVData{Headers: headers}
	var out []string
	for _, f := range []struct{ name, header string }{
		{"firstName", m.FirstName},
		{"lastName", m.LastName},
		{"company", m.Company},
		{"websiteUrl", m.WebsiteURL},
	} {
		if f.header != "" && !d.HasHeader(f.header) {
			out = append(out, f.name+"="+f.header)
		}
	}
	return out
}

// Prospect projects one row. Absent keys yield empty strings.
func (m MappingConfig) Prospect(row map[string]string) Prospect {
	return Prospect{
		FirstName:  row[m.FirstName],
		LastName:   row[m.LastName],
		Company:    row[m.Company],
		WebsiteURL: row[m.WebsiteURL],
	}
}
