package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/trialforge/supplyline/pkg/application/dto"
	"github.com/trialforge/supplyline/pkg/domain/entities"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// Scenario renders one scenario
func Scenario(w io.Writer, s *entities.Scenario, asJSON bool) error {
	if asJSON {
		return writeJSON(w, s)
	}
	return Scenarios(w, []*entities.Scenario{s}, false)
}

// Scenarios renders the scenario list
func Scenarios(w io.Writer, scenarios []*entities.Scenario, asJSON bool) error {
	if asJSON {
		return writeJSON(w, scenarios)
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Trial", "Name", "Created"})
	for _, s := range scenarios {
		t.AppendRow(table.Row{s.ID, s.TrialCode, s.Name, s.CreatedAt.Format("2006-01-02 15:04")})
	}
	t.Render()
	return nil
}

type versionView struct {
	ID          string `json:"id"`
	Version     int    `json:"version"`
	Label       string `json:"label,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	CreatedAt   string `json:"created_at"`
	PayloadHash string `json:"payload_hash"`
}

func viewOf(v *entities.ScenarioVersion) versionView {
	return versionView{
		ID:          v.ID.String(),
		Version:     v.Version,
		Label:       v.Label,
		CreatedBy:   v.CreatedBy,
		CreatedAt:   v.CreatedAt.Format("2006-01-02 15:04:05"),
		PayloadHash: v.PayloadHash,
	}
}

// Version renders one scenario version
func Version(w io.Writer, v *entities.ScenarioVersion, asJSON bool) error {
	if asJSON {
		return writeJSON(w, viewOf(v))
	}
	return Versions(w, []*entities.ScenarioVersion{v}, false)
}

// Versions renders a version list
func Versions(w io.Writer, versions []*entities.ScenarioVersion, asJSON bool) error {
	if asJSON {
		views := make([]versionView, 0, len(versions))
		for _, v := range versions {
			views = append(views, viewOf(v))
		}
		return writeJSON(w, views)
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Version", "Label", "By", "Created", "Hash"})
	for _, v := range versions {
		hash := v.PayloadHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		t.AppendRow(table.Row{v.Version, v.Label, v.CreatedBy, v.CreatedAt.Format("2006-01-02 15:04"), hash})
	}
	t.Render()
	return nil
}

// Run renders a forecast run result
func Run(w io.Writer, r *dto.RunResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, r)
	}

	fmt.Fprintf(w, "Run %s  engine %s  status %s", r.RunID, r.EngineVersion, r.Status)
	if r.Elapsed != "" {
		fmt.Fprintf(w, "  (%s)", r.Elapsed)
	}
	fmt.Fprintln(w)
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
		return nil
	}
	fmt.Fprintf(w, "Horizon %d buckets  enrolled %.1f  visits %.1f\n",
		len(r.BucketDates), r.TotalEnrolled, r.TotalVisits)

	if len(r.Demand) == 0 {
		return nil
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"SKU", "Total demand"})
	for _, d := range r.Demand {
		t.AppendRow(table.Row{d.SKU, fmt.Sprintf("%.2f", d.Total)})
	}
	t.Render()
	return nil
}

// PlanJSON renders a plan result as JSON
func PlanJSON(w io.Writer, r *dto.PlanResult) error {
	return writeJSON(w, r)
}

// Plan renders the shipment and alert tables of a supply plan
func Plan(w io.Writer, plan *entities.SupplyPlan) error {
	fmt.Fprintf(w, "Supply plan: %d SKUs over %d buckets\n",
		len(plan.ProjectedInventory), len(plan.BucketDates))

	if len(plan.PlannedShipments) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"SKU", "Order", "Delivery", "Qty", "Reason", "Due"})
		for _, s := range plan.PlannedShipments {
			due := ""
			if s.AlreadyDue {
				due = "ALREADY DUE"
			}
			t.AppendRow(table.Row{s.SKU, s.OrderDate, s.DeliveryDate, s.Qty.StringFixed(2), s.Reason, due})
		}
		t.Render()
	} else {
		fmt.Fprintln(w, "No planned shipments.")
	}

	if len(plan.StockoutAlerts) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"SKU", "Bucket", "Date", "Deficit"})
		for _, a := range plan.StockoutAlerts {
			t.AppendRow(table.Row{a.SKU, a.Bucket, a.Date, a.Deficit.StringFixed(2)})
		}
		t.Render()
	} else {
		fmt.Fprintln(w, "No stockouts projected.")
	}
	return nil
}
