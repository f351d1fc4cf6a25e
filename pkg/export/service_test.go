package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/evoclabs/crm/pkg/models"
	"github.com/evoclabs/crm/pkg/views"
)

func fixedService(t *testing.T) *Service {
	t.Helper()
	svc := NewService()
	svc.now = func() time.Time {
		return time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestFilename(t *testing.T) {
	svc := fixedService(t)
	assert.Equal(t, "dashboard-leads-2026-08-31.csv", svc.Filename(views.ViewDashboard, "csv"))
	assert.Equal(t, "companion-leads-2026-08-31.xlsx", svc.Filename(views.ViewCompanion, "xlsx"))
}

func TestWriteCSVQuotesEveryField(t *testing.T) {
	svc := fixedService(t)
	leads := []models.Lead{
		{
			ID:       "1",
			Name:     "Asha Verma",
			Email:    "asha@example.com",
			FormType: "book-demo",
			Status:   models.StatusContacted,
			Budget:   "5000",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(&buf, views.ViewDashboard, leads))

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"Name","Email","Form Type","Status","Budget/Revenue"`, lines[0])
	assert.Equal(t, `"Asha Verma","asha@example.com","Book Demo","Contacted","5000"`, lines[1])
}

func TestWriteCSVDoublesEmbeddedQuotes(t *testing.T) {
	svc := fixedService(t)
	leads := []models.Lead{
		{Name: `Tim "Timo" O'Brien`, Email: "tim@example.com", Status: models.StatusLeads},
	}

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(&buf, views.ViewDashboard, leads))
	assert.Contains(t, buf.String(), `"Tim ""Timo"" O'Brien"`)
}

func TestWriteCSVEmptyFieldsStillQuoted(t *testing.T) {
	svc := fixedService(t)
	leads := []models.Lead{{Name: "Bare", Status: models.StatusLeads}}

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(&buf, views.ViewDashboard, leads))
	assert.Contains(t, buf.String(), `"Bare","","","New Lead",""`)
}

func TestWriteCSVCompanionColumns(t *testing.T) {
	svc := fixedService(t)
	leads := []models.Lead{
		{
			Name:        "Asha",
			WorkEmail:   "asha@corp.io",
			Email:       "asha@personal.io",
			Company:     "Corp",
			Platform:    "meta",
			Target:      "sales",
			Budget:      "250",
			SubmittedAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC).UnixMilli(),
			Status:      models.StatusLeads,
		},
		{Name: "Second", Email: "s@x.io", Status: models.StatusLeads},
	}

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(&buf, views.ViewCompanion, leads))

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"#","Name","Email","Company","Platform","Goal","Budget/Day","Submitted"`, lines[0])
	// workEmail wins over personal email, labels are expanded
	assert.Equal(t, `"1","Asha","asha@corp.io","Corp","Meta Ads","Sales / E-commerce","250","2026-04-01"`, lines[1])
	assert.Equal(t, `"2","Second","s@x.io","","","","",""`, lines[2])
}

func TestWriteCSVOneRowPerLead(t *testing.T) {
	svc := fixedService(t)
	leads := make([]models.Lead, 7)
	for i := range leads {
		leads[i] = models.Lead{Name: "L", Status: models.StatusLeads}
	}

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(&buf, views.ViewDashboard, leads))
	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\r\n")
	assert.Len(t, lines, 8)
}

func TestWriteExcel(t *testing.T) {
	svc := fixedService(t)
	leads := []models.Lead{
		{Name: "Asha", Email: "asha@example.com", FormType: "contact", Status: models.StatusWon, Budget: "900"},
	}

	var buf bytes.Buffer
	require.NoError(t, svc.WriteExcel(&buf, views.ViewDashboard, leads))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Leads")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Name", "Email", "Form Type", "Status", "Budget/Revenue"}, rows[0])
	assert.Equal(t, []string{"Asha", "asha@example.com", "Contact", "Won", "900"}, rows[1])
}
