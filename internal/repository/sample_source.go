package repository

import (
	"context"

	"github.com/noah-isme/shortcourse-api/internal/models"
)

const sampleName = "sample"

// SampleSource serves the bundled demonstration records. It always succeeds.
type SampleSource struct{}

// NewSampleSource returns the builtin provider.
func NewSampleSource() *SampleSource { return &SampleSource{} }

// Name identifies the source in logs and metrics.
func (SampleSource) Name() string { return sampleName }

// Tier reports the provider tier.
func (SampleSource) Tier() models.SourceTier { return models.TierBuiltin }

// Fetch returns a fresh copy of the sample records.
func (SampleSource) Fetch(context.Context) ([]models.RawRecord, error) {
	out := make([]models.RawRecord, len(sampleRecords))
	for i, rec := range sampleRecords {
		clone := make(models.RawRecord, len(rec))
		for k, v := range rec {
			clone[k] = v
		}
		out[i] = clone
	}
	return out, nil
}

var sampleRecords = []models.RawRecord{
	{
		"id":                      1,
		"timestamp":               "2025-10-20 09:30:00",
		"programme":               "Effective Administrative and Secretarial Skills",
		"organisation":            "ABC Corporation Sdn Bhd",
		"address":                 "123 Jalan Ampang, Kuala Lumpur",
		"pic":                     "Sarah Tan",
		"phone":                   "+6012 345 6789",
		"email":                   "sarah.tan@abc.com",
		"participantCount":        "2",
		"participant1Name":        "John Lim",
		"participant1Phone":       "+6012 987 6543",
		"participant1Email":       "john.lim@abc.com",
		"participant1Designation": "Executive Assistant",
		"participant2Name":        "Mary Wong",
		"participant2Phone":       "+6012 555 0123",
		"participant2Email":       "mary.wong@abc.com",
		"participant2Designation": "Administrative Officer",
		"meal":                    "Vegetarian",
		"member":                  "Yes",
		"memberId":                "MIM12345",
		"claim":                   models.ClaimHRDC,
		"status":                  "pending",
		"assignedTo":              "TM001",
		"remark":                  "Initial contact made.",
	},
	{
		"id":                      2,
		"timestamp":               "2025-10-21 14:15:00",
		"programme":               "Effective Administrative and Secretarial Skills",
		"organisation":            "XYZ Technologies",
		"address":                 "456 Jalan Tun Razak, Kuala Lumpur",
		"pic":                     "Ahmad Ibrahim",
		"phone":                   "+6013 222 3333",
		"email":                   "ahmad@xyz.com",
		"participantCount":        "1",
		"participant1Name":        "Lisa Chen",
		"participant1Phone":       "+6014 888 9999",
		"participant1Email":       "lisa.chen@xyz.com",
		"participant1Designation": "Secretary",
		"meal":                    "Non Vege",
		"member":                  "No",
		"claim":                   models.ClaimOwn,
		"voucher":                 "DISCOUNT10",
		"status":                  "registered",
		"assignedTo":              "TM002",
		"remark":                  "Followed up, sent invoice.",
	},
	{
		"id":                      3,
		"timestamp":               "2025-10-22 10:45:00",
		"programme":               "Effective Administrative and Secretarial Skills",
		"organisation":            "Global Services Malaysia",
		"address":                 "789 Jalan Sultan Ismail, Kuala Lumpur",
		"pic":                     "Priya Kumar",
		"phone":                   "+6012 777 8888",
		"email":                   "priya@globalservices.com",
		"participantCount":        "2",
		"participant1Name":        "David Tan",
		"participant1Phone":       "+6013 444 5555",
		"participant1Email":       "david@globalservices.com",
		"participant1Designation": "Admin Manager",
		"participant2Name":        "Emily Lee",
		"participant2Phone":       "+6014 666 7777",
		"participant2Email":       "emily@globalservices.com",
		"participant2Designation": "Office Coordinator",
		"meal":                    "Vegetarian",
		"member":                  "Yes",
		"memberId":                "MIM67890",
		"claim":                   models.ClaimHRDC,
		"status":                  "pending",
		"trainer":                 "Mr. Lee",
		"assignedTo":              models.Unassigned,
	},
	{
		"id":                      4,
		"timestamp":               "2025-11-01 11:00:00",
		"programme":               "Leadership Development Program",
		"organisation":            "Tech Innovators Inc.",
		"address":                 "101 Cyberjaya Street, Selangor",
		"pic":                     "Michael Ong",
		"phone":                   "+6016 111 2222",
		"email":                   "michael.ong@techinnovators.com",
		"participantCount":        "3",
		"participant1Name":        "Amanda Goh",
		"participant1Phone":       "+6017 333 4444",
		"participant1Email":       "amanda.goh@techinnovators.com",
		"participant1Designation": "Senior Developer",
		"participant2Name":        "Brian Koh",
		"participant2Phone":       "+6018 555 6666",
		"participant2Email":       "brian.koh@techinnovators.com",
		"participant2Designation": "Project Manager",
		"meal":                    "Non Vege",
		"member":                  "Yes",
		"memberId":                "MIM98765",
		"claim":                   models.ClaimHRDC,
		"status":                  "registered",
		"trainer":                 "Dr. Lim",
		"assignedTo":              "TM003",
		"remark":                  "Registration confirmed. Payment pending.",
	},
}
