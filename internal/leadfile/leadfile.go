// Package leadfile reads lead profiles from CSV and XLSX exports.
//
// The first row is a header. Column names are matched case-insensitively
// against the JSON names of model.LeadProfile ("credit_score",
// "monthly_income", ...). Columns named negative_<kind> populate
// NegativeItems under the credit scorer's item names, so negative_tax_lien
// and negative_taxLien both count as taxLien. Unknown columns are ignored and empty cells leave the
// field absent.
package leadfile

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/scorer"
)

const negativePrefix = "negative_"

// Read parses a lead file, picking the format from its extension.
func Read(path string) ([]model.LeadProfile, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(path)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, eris.Errorf("leadfile: unsupported file type %q", filepath.Ext(path))
	}
}

// MapRows converts a header and data rows into profiles. Rows without a
// contact id are skipped. A contact id seen twice keeps the later row.
func MapRows(header []string, rows [][]string) ([]model.LeadProfile, error) {
	cols := make([]string, len(header))
	hasID := false
	for i, h := range header {
		cols[i] = normalizeHeader(h)
		if cols[i] == "contact_id" {
			hasID = true
		}
	}
	if !hasID {
		return nil, eris.New("leadfile: header has no contact_id column")
	}

	index := make(map[string]int)
	var leads []model.LeadProfile
	skipped := 0
	for n, row := range rows {
		p, err := mapRow(cols, row)
		if err != nil {
			// +2: one for the header, one for 1-based numbering.
			return nil, eris.Wrapf(err, "leadfile: row %d", n+2)
		}
		if p.ContactID == "" {
			skipped++
			continue
		}
		if i, ok := index[p.ContactID]; ok {
			leads[i] = p
			continue
		}
		index[p.ContactID] = len(leads)
		leads = append(leads, p)
	}

	if skipped > 0 {
		zap.L().Warn("leadfile: skipped rows without contact_id", zap.Int("rows", skipped))
	}
	return leads, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func mapRow(cols []string, row []string) (model.LeadProfile, error) {
	var p model.LeadProfile
	for i, col := range cols {
		if i >= len(row) {
			break
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}
		if err := setField(&p, col, v); err != nil {
			return model.LeadProfile{}, eris.Wrapf(err, "column %s", col)
		}
	}
	return p, nil
}

func setField(p *model.LeadProfile, col, v string) error {
	switch col {
	case "contact_id":
		p.ContactID = v
	case "first_name":
		p.FirstName = v
	case "last_name":
		p.LastName = v
	case "email":
		p.Email = v
	case "phone":
		p.Phone = v
	case "employment_status":
		p.EmploymentStatus = v
	case "home_ownership":
		p.HomeOwnership = v
	case "lead_source":
		p.LeadSource = v
	case "primary_goal":
		p.PrimaryGoal = v
	case "timeline":
		p.Timeline = v
	case "notes":
		p.Notes = v
	case "comments":
		p.Comments = v

	case "credit_score":
		n, err := parseInt(v)
		if err != nil {
			return err
		}
		p.CreditScore = &n
	case "documents_uploaded":
		n, err := parseInt(v)
		if err != nil {
			return err
		}
		p.DocumentsUploaded = n

	case "monthly_income":
		return setFloat(&p.MonthlyIncome, v)
	case "monthly_debt":
		return setFloat(&p.MonthlyDebt, v)
	case "credit_utilization":
		return setFloat(&p.CreditUtilization, strings.TrimSuffix(v, "%"))
	case "form_completeness":
		return setFloat(&p.FormCompleteness, strings.TrimSuffix(v, "%"))
	case "response_time":
		return setFloat(&p.ResponseTime, v)

	case "identity_theft":
		return setBool(&p.IdentityTheft, v)
	case "recent_bankruptcy":
		return setBool(&p.RecentBankruptcy, v)
	case "email_verified":
		return setBool(&p.EmailVerified, v)
	case "phone_verified":
		return setBool(&p.PhoneVerified, v)
	case "is_previous_client":
		return setBool(&p.IsPreviousClient, v)
	case "appointment_scheduled":
		return setBool(&p.AppointmentScheduled, v)
	case "has_deadline":
		return setBool(&p.HasDeadline, v)

	case "deadline_date":
		t, err := parseDate(v)
		if err != nil {
			return err
		}
		p.DeadlineDate = &t

	default:
		if kind, ok := strings.CutPrefix(col, negativePrefix); ok && kind != "" && kind != "items" {
			n, err := parseInt(v)
			if err != nil {
				return err
			}
			if canonical, known := scorer.NegativeItemKind(kind); known {
				kind = canonical
			}
			if p.NegativeItems == nil {
				p.NegativeItems = make(map[string]int)
			}
			p.NegativeItems[kind] = n
		}
	}
	return nil
}

// parseInt accepts spreadsheet-style values such as "720.0" and "1,200".
func parseInt(v string) (int, error) {
	v = strings.ReplaceAll(v, ",", "")
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, eris.Errorf("invalid integer %q", v)
	}
	return int(f), nil
}

func setFloat(dst **float64, v string) error {
	v = strings.ReplaceAll(strings.TrimPrefix(v, "$"), ",", "")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return eris.Errorf("invalid number %q", v)
	}
	*dst = &f
	return nil
}

func setBool(dst *bool, v string) error {
	switch strings.ToLower(v) {
	case "y", "yes":
		*dst = true
		return nil
	case "n", "no":
		*dst = false
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return eris.Errorf("invalid boolean %q", v)
	}
	*dst = b
	return nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "01/02/2006", "1/2/2006"}

func parseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("invalid date %q", v)
}
